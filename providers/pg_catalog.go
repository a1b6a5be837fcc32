package providers

import (
	"github.com/CAPITALETECH-MA/AI-agent/detector"
)

// PgCatalogProvider reads the system catalogs directly. It sees partitioned
// tables and reports types with their modifiers, e.g. character varying(255).
type PgCatalogProvider struct{}

// NewPgCatalogProvider creates a new pg_catalog provider.
func NewPgCatalogProvider() CatalogProvider {
	return &PgCatalogProvider{}
}

// Name returns the provider name.
func (p *PgCatalogProvider) Name() string {
	return "pg_catalog"
}

// Statement lists the live columns of ordinary and partitioned tables in schema.
func (p *PgCatalogProvider) Statement(schema string) detector.Statement {
	return detector.Statement{
		SQL: `SELECT c.relname::text AS table_name,
	a.attname::text AS column_name,
	format_type(a.atttypid, a.atttypmod) AS data_type,
	CASE WHEN a.attnotnull THEN 'NO' ELSE 'YES' END AS is_nullable
FROM pg_catalog.pg_attribute a
JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1
AND c.relkind IN ('r', 'p')
AND a.attnum > 0
AND NOT a.attisdropped
ORDER BY c.relname, a.attnum`,
		Args: []any{schemaOrDefault(schema)},
	}
}
