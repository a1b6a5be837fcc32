package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CAPITALETECH-MA/AI-agent/detector"
)

// Catalog reads the column catalog of one schema through a provider.
type Catalog struct {
	provider CatalogProvider
	exec     detector.QueryExecutor
	schema   string
}

// NewCatalog returns a detector.CatalogReader backed by provider and exec.
func NewCatalog(provider CatalogProvider, exec detector.QueryExecutor, schema string) *Catalog {
	return &Catalog{provider: provider, exec: exec, schema: schemaOrDefault(schema)}
}

// Schema returns the schema the catalog reads.
func (c *Catalog) Schema() string {
	return c.schema
}

// ReadColumns runs the provider statement once and decodes every row.
// Executor errors are returned unwrapped so their kind survives.
func (c *Catalog) ReadColumns(ctx context.Context) ([]detector.ColumnDescriptor, error) {
	slog.Debug("reading column catalog", "provider", c.provider.Name(), "schema", c.schema)

	rows, err := c.exec.Query(ctx, c.provider.Statement(c.schema))
	if err != nil {
		return nil, err
	}

	columns := make([]detector.ColumnDescriptor, 0, len(rows))
	for i, row := range rows {
		col, err := decodeColumn(row)
		if err != nil {
			return nil, fmt.Errorf("catalog row %d: %w", i, err)
		}
		columns = append(columns, col)
	}

	slog.Info("column catalog read", "provider", c.provider.Name(), "schema", c.schema, "columns", len(columns))
	return columns, nil
}

func decodeColumn(row map[string]any) (detector.ColumnDescriptor, error) {
	table := text(row[colTableName])
	column := text(row[colColumnName])
	if table == "" || column == "" {
		return detector.ColumnDescriptor{}, fmt.Errorf("missing %s or %s", colTableName, colColumnName)
	}
	return detector.ColumnDescriptor{
		Table:    table,
		Column:   column,
		DataType: text(row[colDataType]),
		Nullable: nullable(row[colIsNullable]),
	}, nil
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

// nullable accepts the YES/NO strings of information_schema and plain booleans.
func nullable(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return strings.EqualFold(text(v), "YES")
}
