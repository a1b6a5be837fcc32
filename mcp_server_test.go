package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/CAPITALETECH-MA/AI-agent/config"
	"github.com/CAPITALETECH-MA/AI-agent/detector"
	detectormocks "github.com/CAPITALETECH-MA/AI-agent/detector/mocks"
	"github.com/CAPITALETECH-MA/AI-agent/errs"
	"github.com/CAPITALETECH-MA/AI-agent/notify"
	notifymocks "github.com/CAPITALETECH-MA/AI-agent/notify/mocks"
)

type toolFixture struct {
	app     *App
	catalog *detectormocks.MockCatalogReader
	exec    *detectormocks.MockQueryExecutor
	sender  *notifymocks.MockSender
}

func newToolFixture(t *testing.T) toolFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := toolFixture{
		catalog: detectormocks.NewMockCatalogReader(ctrl),
		exec:    detectormocks.NewMockQueryExecutor(ctrl),
		sender:  notifymocks.NewMockSender(ctrl),
	}
	det := detector.New(f.catalog, f.exec, detector.Options{Schema: "public", MaxLimit: 100})
	f.app = NewApp(det, f.sender, "public", config.DetectionConfig{DefaultLimit: 20, MaxLimit: 100})
	return f
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &body))
	return body
}

func candidateColumns() []detector.ColumnDescriptor {
	return []detector.ColumnDescriptor{
		{Table: "candidates", Column: "id", DataType: "integer"},
		{Table: "candidates", Column: "email", DataType: "character varying", Nullable: true},
		{Table: "candidates", Column: "phone_number", DataType: "character varying", Nullable: true},
		{Table: "candidates", Column: "full_name", DataType: "character varying", Nullable: true},
		{Table: "resume_uploads", Column: "id", DataType: "integer"},
		{Table: "resume_uploads", Column: "candidate_id", DataType: "integer"},
		{Table: "resume_uploads", Column: "parsed_data", DataType: "jsonb", Nullable: true},
	}
}

func candidateSummary() []map[string]any {
	return []map[string]any{{
		"total_records": int64(2),
		"email_present": int64(1),
		"phone_present": int64(1),
		"name_present":  int64(2),
	}}
}

func candidateDetails() []map[string]any {
	return []map[string]any{
		{
			"record_id": "7", "email": nil, "phone_number": "+1 555 0100", "full_name": "Ada",
			"missing_email": int64(1), "missing_phone": int64(0), "missing_name": int64(0),
			"recoverable_name": nil, "recoverable_phone": nil,
		},
		{
			"record_id": "8", "email": "alan@example.com", "phone_number": nil, "full_name": "Alan",
			"missing_email": int64(0), "missing_phone": int64(1), "missing_name": int64(0),
			"recoverable_name": nil, "recoverable_phone": "+44 20 7946 0958",
		},
	}
}

func TestNewMCPServer(t *testing.T) {
	f := newToolFixture(t)
	assert.NotNil(t, NewMCPServer(f.app))
}

func TestHandleDetectMissingInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults_use_configured_limit", func(t *testing.T) {
		f := newToolFixture(t)
		f.catalog.EXPECT().ReadColumns(gomock.Any()).Return(candidateColumns(), nil)
		gomock.InOrder(
			f.exec.EXPECT().Query(gomock.Any(), gomock.Any()).Return(candidateSummary(), nil),
			f.exec.EXPECT().Query(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, stmt detector.Statement) ([]map[string]any, error) {
					assert.Equal(t, []any{20, detector.PhonePattern}, stmt.Args)
					return candidateDetails(), nil
				}),
		)

		result, err := f.app.handleDetectMissingInfo(ctx, toolRequest("detect-missing-info", map[string]any{}))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		body := decodeResult(t, result)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "candidates", body["main_table"])
		assert.Equal(t, true, body["recovery_enabled"])
		assert.Equal(t, float64(2), body["returned_records"])

		records, ok := body["records"].([]any)
		require.True(t, ok)
		require.Len(t, records, 2)
		first := records[0].(map[string]any)
		assert.Equal(t, "7", first["record_id"])
		assert.Equal(t, "Critical", first["priority"])

		summary := body["summary"].(map[string]any)
		assert.Equal(t, float64(2), summary["total_candidates"])
		assert.Equal(t, float64(100), summary["phone_recovery_rate"])
	})

	t.Run("explicit_parameters", func(t *testing.T) {
		f := newToolFixture(t)
		f.catalog.EXPECT().ReadColumns(gomock.Any()).Return(candidateColumns(), nil)
		gomock.InOrder(
			f.exec.EXPECT().Query(gomock.Any(), gomock.Any()).Return(candidateSummary(), nil),
			f.exec.EXPECT().Query(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, stmt detector.Statement) ([]map[string]any, error) {
					assert.Equal(t, []any{10, detector.PhonePattern}, stmt.Args)
					return candidateDetails(), nil
				}),
		)

		result, err := f.app.handleDetectMissingInfo(ctx, toolRequest("detect-missing-info", map[string]any{
			"limitResults":   float64(10),
			"priorityFilter": "Low",
		}))
		require.NoError(t, err)

		body := decodeResult(t, result)
		assert.Equal(t, "Low", body["priority_filter"])
		records := body["records"].([]any)
		require.Len(t, records, 1)
		assert.Equal(t, "8", records[0].(map[string]any)["record_id"])
	})

	t.Run("recovery_disabled", func(t *testing.T) {
		f := newToolFixture(t)
		f.catalog.EXPECT().ReadColumns(gomock.Any()).Return(candidateColumns(), nil)
		f.exec.EXPECT().Query(gomock.Any(), gomock.Any()).Return(candidateSummary(), nil)
		f.exec.EXPECT().Query(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, stmt detector.Statement) ([]map[string]any, error) {
				assert.NotContains(t, stmt.SQL, "LATERAL")
				return candidateDetails(), nil
			})

		result, err := f.app.handleDetectMissingInfo(ctx, toolRequest("detect-missing-info", map[string]any{
			"includeRecoveryAnalysis": false,
		}))
		require.NoError(t, err)

		body := decodeResult(t, result)
		assert.Equal(t, false, body["recovery_enabled"])
	})

	t.Run("database_unreachable", func(t *testing.T) {
		f := newToolFixture(t)
		f.catalog.EXPECT().ReadColumns(gomock.Any()).
			Return(nil, errs.New(errs.KindConnectionFailed, "failed to begin read-only transaction"))

		result, err := f.app.handleDetectMissingInfo(ctx, toolRequest("detect-missing-info", nil))
		require.NoError(t, err, "failures are reported in the result, not as protocol errors")
		assert.True(t, result.IsError)

		body := decodeResult(t, result)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "connection_failed", body["error"])
		assert.Equal(t, "failed to read schema catalog", body["message"])
		assert.NotEmpty(t, body["suggestion"])
		assert.Contains(t, body["cause"], "failed to begin read-only transaction")
	})

	t.Run("no_main_table", func(t *testing.T) {
		f := newToolFixture(t)
		f.catalog.EXPECT().ReadColumns(gomock.Any()).Return([]detector.ColumnDescriptor{
			{Table: "audit_log", Column: "id", DataType: "integer"},
			{Table: "audit_log", Column: "payload", DataType: "jsonb"},
		}, nil)

		result, err := f.app.handleDetectMissingInfo(ctx, toolRequest("detect-missing-info", nil))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "no_main_table", decodeResult(t, result)["error"])
	})

	t.Run("limit_out_of_range_touches_nothing", func(t *testing.T) {
		f := newToolFixture(t)

		for _, limit := range []float64{0, -5, 101} {
			result, err := f.app.handleDetectMissingInfo(ctx, toolRequest("detect-missing-info", map[string]any{
				"limitResults": limit,
			}))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Equal(t, "invalid_input", decodeResult(t, result)["error"])
		}
	})

	t.Run("unknown_priority", func(t *testing.T) {
		f := newToolFixture(t)

		result, err := f.app.handleDetectMissingInfo(ctx, toolRequest("detect-missing-info", map[string]any{
			"priorityFilter": "Urgent",
		}))
		require.NoError(t, err)
		body := decodeResult(t, result)
		assert.Equal(t, "invalid_input", body["error"])
		assert.NotEmpty(t, body["suggestion"])
	})
}

func TestHandleInspectSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("returns_model_and_catalog", func(t *testing.T) {
		f := newToolFixture(t)
		f.catalog.EXPECT().ReadColumns(gomock.Any()).Return(candidateColumns(), nil)

		result, err := f.app.handleInspectSchema(ctx, toolRequest("inspect-schema", nil))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		body := decodeResult(t, result)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "public", body["schema"])
		model := body["model"].(map[string]any)
		assert.Equal(t, "candidates", model["main_table"])
		assert.Equal(t, "phone_number", model["phone_field"])
		assert.Contains(t, body["catalog"], "Table: resume_uploads")
	})

	t.Run("catalog_failure", func(t *testing.T) {
		f := newToolFixture(t)
		f.catalog.EXPECT().ReadColumns(gomock.Any()).Return(nil, errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))

		result, err := f.app.handleInspectSchema(ctx, toolRequest("inspect-schema", nil))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "connection_failed", decodeResult(t, result)["error"])
	})
}

func TestHandleSendEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("delivered", func(t *testing.T) {
		f := newToolFixture(t)
		sentAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
		f.sender.EXPECT().
			Send(gomock.Any(), notify.Message{
				To:      "ada@example.com",
				Subject: "Missing phone number",
				Body:    "Could you share a phone number?",
			}).
			Return(&notify.Receipt{
				MessageID: "abc@example.com",
				To:        "ada@example.com",
				Subject:   "Missing phone number",
				SentAt:    sentAt,
			}, nil)

		result, err := f.app.handleSendEmail(ctx, toolRequest("send-email", map[string]any{
			"to":      "ada@example.com",
			"subject": "Missing phone number",
			"body":    "Could you share a phone number?",
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		body := decodeResult(t, result)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "abc@example.com", body["message_id"])
		assert.Equal(t, "2026-03-02T09:30:00Z", body["sent_at"])
	})

	t.Run("transport_failure", func(t *testing.T) {
		f := newToolFixture(t)
		f.sender.EXPECT().Send(gomock.Any(), gomock.Any()).
			Return(nil, errs.Wrap(errs.KindTransportFailed, "failed to send email", errors.New("connection refused")))

		result, err := f.app.handleSendEmail(ctx, toolRequest("send-email", map[string]any{
			"to": "ada@example.com", "subject": "s", "body": "b",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)

		body := decodeResult(t, result)
		assert.Equal(t, "transport_failed", body["error"])
		assert.Equal(t, "connection refused", body["cause"])
	})

	t.Run("empty_recipient_never_reaches_transport", func(t *testing.T) {
		sender, err := notify.NewSMTPSender(notify.SMTPOptions{})
		require.NoError(t, err)
		app := NewApp(nil, sender, "public", config.DetectionConfig{})

		result, err := app.handleSendEmail(ctx, toolRequest("send-email", map[string]any{
			"to": "", "subject": "s", "body": "b",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "invalid_input", decodeResult(t, result)["error"])
	})

	t.Run("transport_not_configured", func(t *testing.T) {
		sender, err := notify.NewSMTPSender(notify.SMTPOptions{})
		require.NoError(t, err)
		app := NewApp(nil, sender, "public", config.DetectionConfig{})

		result, err := app.handleSendEmail(ctx, toolRequest("send-email", map[string]any{
			"to": "ada@example.com", "subject": "s", "body": "b",
		}))
		require.NoError(t, err)
		body := decodeResult(t, result)
		assert.Equal(t, "transport_failed", body["error"])
		assert.NotEmpty(t, body["suggestion"])
	})
}

func TestErrorResult(t *testing.T) {
	t.Run("structured_error", func(t *testing.T) {
		err := errs.New(errs.KindQueryFailed, "failed to run summary query").
			WithDetails(map[string]any{"sqlstate": "42P01"})

		result := errorResult(err)
		assert.True(t, result.IsError)

		body := decodeResult(t, result)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "query_failed", body["error"])
		assert.Equal(t, map[string]any{"sqlstate": "42P01"}, body["details"])
		assert.NotContains(t, body, "suggestion")
		assert.NotContains(t, body, "cause")
	})

	t.Run("plain_error_is_unknown", func(t *testing.T) {
		body := decodeResult(t, errorResult(errors.New("boom")))
		assert.Equal(t, "unknown", body["error"])
		assert.Equal(t, "boom", body["message"])
	})
}
