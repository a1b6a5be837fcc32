package providers

import (
	"github.com/CAPITALETECH-MA/AI-agent/detector"
)

// InformationSchemaProvider reads the catalog through the SQL-standard views.
type InformationSchemaProvider struct{}

// NewInformationSchemaProvider creates the default provider.
func NewInformationSchemaProvider() CatalogProvider {
	return &InformationSchemaProvider{}
}

// Name returns the provider name.
func (p *InformationSchemaProvider) Name() string {
	return "information_schema"
}

// Statement lists the columns of every base table in schema.
func (p *InformationSchemaProvider) Statement(schema string) detector.Statement {
	return detector.Statement{
		SQL: `SELECT c.table_name::text AS table_name,
	c.column_name::text AS column_name,
	c.data_type::text AS data_type,
	c.is_nullable::text AS is_nullable
FROM information_schema.columns c
JOIN information_schema.tables t
	ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = $1
AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`,
		Args: []any{schemaOrDefault(schema)},
	}
}

func schemaOrDefault(schema string) string {
	if schema == "" {
		return DefaultSchema
	}
	return schema
}
