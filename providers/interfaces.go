package providers

import (
	"sort"

	"github.com/CAPITALETECH-MA/AI-agent/detector"
)

// DefaultSchema is queried when no schema is configured.
const DefaultSchema = "public"

// Result column aliases every provider statement must return.
const (
	colTableName  = "table_name"
	colColumnName = "column_name"
	colDataType   = "data_type"
	colIsNullable = "is_nullable"
)

// CatalogProvider defines how the column catalog of a schema is read.
type CatalogProvider interface {
	// Name returns the provider name used in configuration.
	Name() string

	// Statement returns the catalog query for schema. Rows must carry
	// table_name, column_name, data_type and is_nullable, ordered by table
	// name then ordinal position.
	Statement(schema string) detector.Statement
}

// Registry manages available catalog providers.
type Registry struct {
	providers map[string]CatalogProvider
}

// NewRegistry creates a registry holding the built-in providers.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]CatalogProvider)}
	r.Register(NewInformationSchemaProvider())
	r.Register(NewPgCatalogProvider())
	return r
}

// Register adds a provider, replacing any provider with the same name.
func (r *Registry) Register(provider CatalogProvider) {
	r.providers[provider.Name()] = provider
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (CatalogProvider, bool) {
	provider, exists := r.providers[name]
	return provider, exists
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
