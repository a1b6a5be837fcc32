package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/CAPITALETECH-MA/AI-agent/detector"
	"github.com/CAPITALETECH-MA/AI-agent/detector/mocks"
	"github.com/CAPITALETECH-MA/AI-agent/errs"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"information_schema", "pg_catalog"}, r.Names())

	p, ok := r.Get("information_schema")
	require.True(t, ok)
	assert.Equal(t, "information_schema", p.Name())

	_, ok = r.Get("pg_dump")
	assert.False(t, ok)
}

func TestProviderStatements(t *testing.T) {
	tests := []struct {
		provider CatalogProvider
		schema   string
		wantArg  string
		wantFrom string
	}{
		{NewInformationSchemaProvider(), "", "public", "information_schema.columns"},
		{NewInformationSchemaProvider(), "crm", "crm", "information_schema.columns"},
		{NewPgCatalogProvider(), "", "public", "pg_catalog.pg_attribute"},
	}

	for _, tt := range tests {
		t.Run(tt.provider.Name()+"/"+tt.wantArg, func(t *testing.T) {
			stmt := tt.provider.Statement(tt.schema)
			assert.Equal(t, []any{tt.wantArg}, stmt.Args)
			assert.Contains(t, stmt.SQL, tt.wantFrom)
			assert.Contains(t, stmt.SQL, "$1")
			assert.Contains(t, stmt.SQL, "ORDER BY")
			for _, alias := range []string{colTableName, colColumnName, colDataType, colIsNullable} {
				assert.Contains(t, stmt.SQL, "AS "+alias)
			}
			assert.NotContains(t, stmt.SQL, tt.wantArg+"'", "schema must be bound")
		})
	}
}

func TestCatalogReadColumns(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes_rows", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exec := mocks.NewMockQueryExecutor(ctrl)
		provider := NewInformationSchemaProvider()

		exec.EXPECT().Query(gomock.Any(), provider.Statement("public")).Return([]map[string]any{
			{"table_name": "candidates", "column_name": "id", "data_type": "integer", "is_nullable": "NO"},
			{"table_name": []byte("candidates"), "column_name": []byte("email"), "data_type": []byte("text"), "is_nullable": []byte("YES")},
			{"table_name": "resume_uploads", "column_name": "parsed_data", "data_type": "jsonb", "is_nullable": true},
		}, nil)

		cat := NewCatalog(provider, exec, "")
		assert.Equal(t, "public", cat.Schema())

		cols, err := cat.ReadColumns(ctx)
		require.NoError(t, err)
		assert.Equal(t, []detector.ColumnDescriptor{
			{Table: "candidates", Column: "id", DataType: "integer", Nullable: false},
			{Table: "candidates", Column: "email", DataType: "text", Nullable: true},
			{Table: "resume_uploads", Column: "parsed_data", DataType: "jsonb", Nullable: true},
		}, cols)
	})

	t.Run("executor_error_keeps_kind", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exec := mocks.NewMockQueryExecutor(ctrl)
		exec.EXPECT().Query(gomock.Any(), gomock.Any()).
			Return(nil, errs.Wrap(errs.KindConnectionFailed, "dial failed", errors.New("connection refused")))

		_, err := NewCatalog(NewPgCatalogProvider(), exec, "public").ReadColumns(ctx)
		assert.True(t, errs.IsConnectionFailed(err))
	})

	t.Run("malformed_row", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exec := mocks.NewMockQueryExecutor(ctrl)
		exec.EXPECT().Query(gomock.Any(), gomock.Any()).
			Return([]map[string]any{{"table_name": "candidates"}}, nil)

		_, err := NewCatalog(NewInformationSchemaProvider(), exec, "public").ReadColumns(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog row 0")
	})

	t.Run("empty_schema", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exec := mocks.NewMockQueryExecutor(ctrl)
		exec.EXPECT().Query(gomock.Any(), gomock.Any()).Return([]map[string]any{}, nil)

		cols, err := NewCatalog(NewInformationSchemaProvider(), exec, "empty").ReadColumns(ctx)
		require.NoError(t, err)
		assert.Empty(t, cols)
	})
}

func TestFormatCatalog(t *testing.T) {
	cols := []detector.ColumnDescriptor{
		{Table: "candidates", Column: "id", DataType: "integer"},
		{Table: "candidates", Column: "email", DataType: "character varying(255)", Nullable: true},
		{Table: "resume_uploads", Column: "parsed_data", DataType: "jsonb", Nullable: true},
	}

	want := "Table: candidates\n" +
		"Columns:\n" +
		"  - id INTEGER NOT NULL\n" +
		"  - email VARCHAR(255) NULL\n" +
		"\n" +
		"Table: resume_uploads\n" +
		"Columns:\n" +
		"  - parsed_data JSONB NULL\n"

	assert.Equal(t, want, FormatCatalog(cols))
	assert.Empty(t, FormatCatalog(nil))
}

func TestMapDataType(t *testing.T) {
	tests := map[string]string{
		"character varying":           "VARCHAR",
		"character varying(64)":       "VARCHAR(64)",
		"numeric(10,2)":               "DECIMAL(10,2)",
		"timestamp with time zone":    "TIMESTAMPTZ",
		"jsonb":                       "JSONB",
		"citext":                      "CITEXT",
		"timestamp(3) with time zone": "TIMESTAMP(3) WITH TIME ZONE",
	}
	for in, want := range tests {
		assert.Equal(t, want, mapDataType(in), in)
	}
}
