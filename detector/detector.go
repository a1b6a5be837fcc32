// Package detector finds candidate records with missing contact information
// in a relational schema it has never seen before.
//
// A run reads the column catalog, picks the table that most likely holds
// candidates or contacts, binds its id/email/phone/name columns, issues a
// summary and a detail statement through a QueryExecutor and assembles a
// prioritised report. Nothing is cached between runs.
package detector

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CAPITALETECH-MA/AI-agent/errs"
)

const (
	// DefaultLimit caps the detail statement when the caller does not.
	DefaultLimit = 50
	// DefaultTable is consulted when table auto-discovery is turned off.
	DefaultTable = "candidates"

	suggestCheckDatabase = "check that the database service is running and DATABASE_URL is correct"
)

// Options configure a Detector for the lifetime of the process.
type Options struct {
	// Schema qualifies generated table references; empty leaves them unqualified.
	Schema       string
	Policy       SelectionPolicy
	DefaultTable string
	// MaxLimit bounds Request.Limit; 0 means unbounded.
	MaxLimit int
}

// Request is one detect-missing-info invocation.
type Request struct {
	IncludeRecovery bool
	Limit           int
	PriorityFilter  Priority
	AutoDiscover    bool
}

// DefaultRequest mirrors the tool's parameter defaults.
func DefaultRequest() Request {
	return Request{
		IncludeRecovery: true,
		Limit:           DefaultLimit,
		AutoDiscover:    true,
	}
}

// Inspection is the structural view of the schema without running detection.
type Inspection struct {
	Model   StructuralModel    `json:"model" yaml:"model"`
	Columns []ColumnDescriptor `json:"columns" yaml:"columns"`
}

// Detector runs detection against one catalog and executor.
type Detector struct {
	catalog CatalogReader
	exec    QueryExecutor
	opts    Options

	now   func() time.Time
	newID func() string
}

// New returns a Detector. The catalog and executor are owned by the caller.
func New(catalog CatalogReader, exec QueryExecutor, opts Options) *Detector {
	if opts.DefaultTable == "" {
		opts.DefaultTable = DefaultTable
	}
	if opts.Policy == "" {
		opts.Policy = SelectFirstMatch
	}
	return &Detector{
		catalog: catalog,
		exec:    exec,
		opts:    opts,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// Detect runs the full pipeline. Failures are *errs.Error values; nothing is retried.
func (d *Detector) Detect(ctx context.Context, req Request) (*Report, error) {
	req, err := d.validate(req)
	if err != nil {
		return nil, err
	}

	insp, err := d.Inspect(ctx, req.AutoDiscover)
	if err != nil {
		return nil, err
	}
	model := insp.Model

	if !model.HasMainTable() {
		return nil, errs.New(errs.KindNoMainTable, "no primary entity table found").
			WithSuggestion("none of the tables has an email, phone or name column; check that the right schema is configured").
			WithDetails(map[string]any{"tables": model.AllTables, "schema": d.opts.Schema})
	}

	slog.Info("main table identified",
		"table", model.MainTable,
		"recovery_tables", model.RecoveryTables,
		"policy", d.opts.Policy)

	summaryStmt, err := BuildSummary(model, d.opts.Schema)
	if err != nil {
		return nil, err
	}
	summaryRows, err := d.exec.Query(ctx, summaryStmt)
	if err != nil {
		return nil, queryFailure("summary query failed", err)
	}

	detailStmt, err := BuildDetail(model, d.opts.Schema, req.IncludeRecovery, req.Limit)
	if err != nil {
		return nil, err
	}
	detailRows, err := d.exec.Query(ctx, detailStmt)
	if err != nil {
		return nil, queryFailure("detail query failed", err)
	}

	var summaryRow map[string]any
	if len(summaryRows) > 0 {
		summaryRow = summaryRows[0]
	}

	recoveryUsed := req.IncludeRecovery && model.Recovery != nil
	assembly := Assemble(model, detailRows, summaryRow, recoveryUsed, req.PriorityFilter)

	report := &Report{
		RunID:       d.newID(),
		GeneratedAt: d.now().UTC(),
		MainTable:   model.MainTable,
		FieldMapping: FieldMapping{
			ID:    model.IDField,
			Email: model.EmailField,
			Phone: model.PhoneField,
			Name:  model.NameField,
		},
		RecoveryTables:  model.RecoveryTables,
		RecoveryEnabled: recoveryUsed,
		PriorityFilter:  req.PriorityFilter,
		Summary:         assembly.Summary,
		ReturnedRecords: len(assembly.Records),
		Records:         assembly.Records,
		Warnings:        model.Warnings,
		Recommendations: recommendations(assembly.Summary, recoveryUsed),
	}
	if recoveryUsed {
		report.RecoveryTable = model.Recovery.Table
	}
	if req.IncludeRecovery && model.Recovery == nil {
		report.Warnings = append(report.Warnings, "recovery analysis requested but no usable recovery table was found")
	}

	slog.Info("detection completed",
		"run_id", report.RunID,
		"total", report.Summary.TotalCandidates,
		"returned", report.ReturnedRecords)
	return report, nil
}

// Inspect reads the catalog and analyses it. A missing main table is not an
// error here; only catalog failures are.
func (d *Detector) Inspect(ctx context.Context, autoDiscover bool) (*Inspection, error) {
	columns, err := d.catalog.ReadColumns(ctx)
	if err != nil {
		return nil, catalogFailure(err)
	}
	if len(columns) == 0 {
		return nil, errs.New(errs.KindSchemaDiscovery, "schema catalog returned no tables").
			WithSuggestion("check the configured schema name and that the database user can read it").
			WithDetails(map[string]any{"schema": d.opts.Schema})
	}

	slog.Debug("catalog read", "columns", len(columns), "auto_discover", autoDiscover)

	var model StructuralModel
	if autoDiscover {
		model = Analyze(columns, AnalyzeOptions{Policy: d.opts.Policy})
	} else {
		model = AnalyzeTable(columns, d.opts.DefaultTable)
	}
	return &Inspection{Model: model, Columns: columns}, nil
}

// validate checks req and returns it with the priority filter normalised.
func (d *Detector) validate(req Request) (Request, error) {
	if req.Limit <= 0 {
		return req, errs.Newf(errs.KindInvalidInput, "limit must be positive, got %d", req.Limit)
	}
	if d.opts.MaxLimit > 0 && req.Limit > d.opts.MaxLimit {
		return req, errs.Newf(errs.KindInvalidInput, "limit must not exceed %d, got %d", d.opts.MaxLimit, req.Limit)
	}
	if req.PriorityFilter != "" {
		p, err := ParsePriority(string(req.PriorityFilter))
		if err != nil {
			return req, err
		}
		req.PriorityFilter = p
	}
	return req, nil
}

// catalogFailure classifies the first contact with the executor. Errors that
// carry no kind are treated as connectivity failures.
func catalogFailure(err error) error {
	kind := errs.KindOf(err)
	if kind == errs.KindUnknown {
		kind = errs.KindConnectionFailed
	}
	e := errs.Wrap(kind, "failed to read schema catalog", err)
	if kind == errs.KindConnectionFailed || kind == errs.KindTimeout {
		e.Suggestion = suggestCheckDatabase
	}
	return e
}

func queryFailure(msg string, err error) error {
	kind := errs.KindOf(err)
	if kind == errs.KindUnknown {
		kind = errs.KindQueryFailed
	}
	e := errs.Wrap(kind, msg, err)
	if kind == errs.KindConnectionFailed || kind == errs.KindTimeout {
		e.Suggestion = suggestCheckDatabase
	}
	return e
}
