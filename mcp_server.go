package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/CAPITALETECH-MA/AI-agent/detector"
	"github.com/CAPITALETECH-MA/AI-agent/errs"
	"github.com/CAPITALETECH-MA/AI-agent/notify"
)

const (
	serverName    = "missing-info-detector"
	serverVersion = "1.0.0"
)

// NewMCPServer registers the detection, inspection and email tools on a new server.
func NewMCPServer(app *App) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	detectTool := mcp.NewTool("detect-missing-info",
		mcp.WithDescription("Find records with missing email, phone or name by analysing the database schema, "+
			"and report which missing values can be recovered from related data"),
		mcp.WithBoolean("includeRecoveryAnalysis",
			mcp.Description("Check related tables for recoverable phone numbers and names (default: true)"),
		),
		mcp.WithNumber("limitResults",
			mcp.Description(fmt.Sprintf("Maximum number of records to return (default: %d)", app.DefaultRequest().Limit)),
		),
		mcp.WithString("priorityFilter",
			mcp.Description("Only return records of this priority"),
			mcp.Enum("Critical", "High", "Medium", "Low"),
		),
		mcp.WithBoolean("autoDiscoverTables",
			mcp.Description("Score every table to find the main one instead of using the configured default (default: true)"),
		),
	)
	s.AddTool(detectTool, app.handleDetectMissingInfo)

	inspectTool := mcp.NewTool("inspect-schema",
		mcp.WithDescription("Show the main table, field mapping and recovery tables detection would use, without querying any records"),
		mcp.WithBoolean("autoDiscoverTables",
			mcp.Description("Score every table to find the main one instead of using the configured default (default: true)"),
		),
	)
	s.AddTool(inspectTool, app.handleInspectSchema)

	sendEmailTool := mcp.NewTool("send-email",
		mcp.WithDescription("Send a plain-text email, e.g. to ask a candidate for missing contact details"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain-text email body"),
		),
	)
	s.AddTool(sendEmailTool, app.handleSendEmail)

	return s
}

// StartMCPServer serves the tools over stdio until the client disconnects.
func StartMCPServer(app *App) error {
	slog.Info("starting mcp server", "name", serverName, "version", serverVersion)
	return server.ServeStdio(NewMCPServer(app))
}

type detectResponse struct {
	Success bool `json:"success"`
	*detector.Report
}

type inspectResponse struct {
	Success bool `json:"success"`
	*SchemaInspection
}

type sendEmailResponse struct {
	Success bool `json:"success"`
	*notify.Receipt
}

// errorResponse is the body of every failed tool call.
type errorResponse struct {
	Success    bool           `json:"success"`
	Error      errs.Kind      `json:"error"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      string         `json:"cause,omitempty"`
}

func (a *App) handleDetectMissingInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := a.DefaultRequest()
	req.IncludeRecovery = request.GetBool("includeRecoveryAnalysis", req.IncludeRecovery)
	req.Limit = request.GetInt("limitResults", req.Limit)
	req.PriorityFilter = detector.Priority(request.GetString("priorityFilter", ""))
	req.AutoDiscover = request.GetBool("autoDiscoverTables", req.AutoDiscover)

	slog.Info("detect-missing-info called",
		"include_recovery", req.IncludeRecovery,
		"limit", req.Limit,
		"priority_filter", req.PriorityFilter,
		"auto_discover", req.AutoDiscover)

	report, err := a.Detect(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(detectResponse{Success: true, Report: report})
}

func (a *App) handleInspectSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	insp, err := a.Inspect(ctx, request.GetBool("autoDiscoverTables", true))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(inspectResponse{Success: true, SchemaInspection: insp})
}

func (a *App) handleSendEmail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg := notify.Message{
		To:      request.GetString("to", ""),
		Subject: request.GetString("subject", ""),
		Body:    request.GetString("body", ""),
	}

	receipt, err := a.SendEmail(ctx, msg)
	if err != nil {
		return errorResult(err), nil
	}
	slog.Info("email sent", "to", receipt.To, "message_id", receipt.MessageID)
	return jsonResult(sendEmailResponse{Success: true, Receipt: receipt})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result to JSON: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult renders err as a structured tool error. Errors outside the
// errs taxonomy are reported with kind unknown.
func errorResult(err error) *mcp.CallToolResult {
	resp := errorResponse{Error: errs.KindUnknown, Message: err.Error()}
	if e, ok := errs.As(err); ok {
		resp.Error = e.Kind
		resp.Message = e.Message
		resp.Suggestion = e.Suggestion
		resp.Details = e.Details
		if e.Cause != nil {
			resp.Cause = e.Cause.Error()
		}
	}

	slog.Error("tool call failed", "error", resp.Error, "message", resp.Message)

	data, mErr := json.Marshal(resp)
	if mErr != nil {
		return mcp.NewToolResultError(resp.Message)
	}
	result := mcp.NewToolResultText(string(data))
	result.IsError = true
	return result
}
