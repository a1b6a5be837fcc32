package detector

import "context"

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// QueryExecutor runs read-only statements against the relational schema.
type QueryExecutor interface {
	// Query executes stmt and returns each row as a column-to-value map
	Query(ctx context.Context, stmt Statement) ([]map[string]any, error)
}

// CatalogReader fetches the full column catalog of the schema under analysis.
type CatalogReader interface {
	// ReadColumns returns one descriptor per physical column, ordered by table then position
	ReadColumns(ctx context.Context) ([]ColumnDescriptor, error)
}
