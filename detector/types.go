package detector

import (
	"fmt"
	"strings"
	"time"

	"github.com/CAPITALETECH-MA/AI-agent/errs"
)

// Logical field names used in missing/recoverable sets.
const (
	FieldEmail = "email"
	FieldPhone = "phone_number"
	FieldName  = "full_name"
)

// fieldOrder is the canonical ordering of logical fields in reports.
var fieldOrder = []string{FieldEmail, FieldPhone, FieldName}

// ColumnDescriptor is one physical column of the catalog.
type ColumnDescriptor struct {
	Table    string `json:"table" yaml:"table"`
	Column   string `json:"column" yaml:"column"`
	DataType string `json:"data_type" yaml:"data_type"`
	Nullable bool   `json:"nullable" yaml:"nullable"`
}

// TableScore records how a table with contact-like columns scored.
type TableScore struct {
	Table string `json:"table" yaml:"table"`
	Score int    `json:"score" yaml:"score"`
}

// RecoveryBinding describes how the first recovery table is consulted.
type RecoveryBinding struct {
	Table         string `json:"table" yaml:"table"`
	JoinColumn    string `json:"join_column" yaml:"join_column"`
	PayloadColumn string `json:"payload_column" yaml:"payload_column"`
	PayloadIsJSON bool   `json:"payload_is_json" yaml:"payload_is_json"`
}

// StructuralModel is the outcome of one schema analysis. Empty strings mean
// the binding was not found. It is never mutated after Analyze returns.
type StructuralModel struct {
	MainTable      string           `json:"main_table" yaml:"main_table"`
	IDField        string           `json:"id_field" yaml:"id_field"`
	EmailField     string           `json:"email_field" yaml:"email_field"`
	PhoneField     string           `json:"phone_field" yaml:"phone_field"`
	NameField      string           `json:"name_field" yaml:"name_field"`
	AllTables      []string         `json:"all_tables" yaml:"all_tables"`
	RecoveryTables []string         `json:"recovery_tables" yaml:"recovery_tables"`
	Scores         []TableScore     `json:"scores,omitempty" yaml:"scores,omitempty"`
	Recovery       *RecoveryBinding `json:"recovery,omitempty" yaml:"recovery,omitempty"`
	Warnings       []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	columns map[string][]ColumnDescriptor
}

// HasMainTable reports whether a primary entity table was identified.
func (m StructuralModel) HasMainTable() bool {
	return m.MainTable != ""
}

// Columns returns the catalog columns of a table as seen during analysis.
func (m StructuralModel) Columns(table string) []ColumnDescriptor {
	return m.columns[table]
}

// boundFields maps each logical field to its bound column, skipping unbound ones.
func (m StructuralModel) boundFields() map[string]string {
	bound := make(map[string]string, 3)
	if m.EmailField != "" {
		bound[FieldEmail] = m.EmailField
	}
	if m.PhoneField != "" {
		bound[FieldPhone] = m.PhoneField
	}
	if m.NameField != "" {
		bound[FieldName] = m.NameField
	}
	return bound
}

// Priority ranks how urgently a record needs follow-up.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority converts a case-insensitive name to a Priority.
func ParsePriority(s string) (Priority, error) {
	for _, p := range Priorities {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", errs.Newf(errs.KindInvalidInput, "unknown priority %q", s).
		WithSuggestion("use one of Critical, High, Medium, Low")
}

// CandidateRecord is one main-table row with at least one missing field.
type CandidateRecord struct {
	RecordID          string            `json:"record_id" yaml:"record_id"`
	FullName          *string           `json:"full_name" yaml:"full_name"`
	Email             *string           `json:"email" yaml:"email"`
	PhoneNumber       *string           `json:"phone_number" yaml:"phone_number"`
	MissingFields     []string          `json:"missing_fields" yaml:"missing_fields"`
	RecoverableFields []string          `json:"recoverable_fields" yaml:"recoverable_fields"`
	RecoverySources   map[string]string `json:"recovery_sources" yaml:"recovery_sources"`
	Priority          Priority          `json:"priority" yaml:"priority"`
}

// IsMissing reports whether field is in the record's missing set.
func (r CandidateRecord) IsMissing(field string) bool {
	return contains(r.MissingFields, field)
}

// IsRecoverable reports whether field is in the record's recoverable set.
func (r CandidateRecord) IsRecoverable(field string) bool {
	return contains(r.RecoverableFields, field)
}

// Summary aggregates counts over the whole main table and the assembled records.
type Summary struct {
	TotalCandidates   int              `json:"total_candidates" yaml:"total_candidates"`
	MissingEmail      int              `json:"missing_email" yaml:"missing_email"`
	MissingPhone      int              `json:"missing_phone" yaml:"missing_phone"`
	MissingName       int              `json:"missing_name" yaml:"missing_name"`
	MissingEmailPct   float64          `json:"missing_email_pct" yaml:"missing_email_pct"`
	MissingPhonePct   float64          `json:"missing_phone_pct" yaml:"missing_phone_pct"`
	MissingNamePct    float64          `json:"missing_name_pct" yaml:"missing_name_pct"`
	RecoverablePhone  int              `json:"recoverable_phone" yaml:"recoverable_phone"`
	RecoverableName   int              `json:"recoverable_name" yaml:"recoverable_name"`
	PhoneRecoveryRate int              `json:"phone_recovery_rate" yaml:"phone_recovery_rate"`
	NameRecoveryRate  int              `json:"name_recovery_rate" yaml:"name_recovery_rate"`
	PriorityBreakdown map[Priority]int `json:"priority_breakdown" yaml:"priority_breakdown"`
}

// FieldMapping is the report's view of the bound columns.
type FieldMapping struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone string `json:"phone_number,omitempty" yaml:"phone_number,omitempty"`
	Name  string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
}

// Report is the result of one detection run.
type Report struct {
	RunID           string            `json:"run_id" yaml:"run_id"`
	GeneratedAt     time.Time         `json:"generated_at" yaml:"generated_at"`
	MainTable       string            `json:"main_table" yaml:"main_table"`
	FieldMapping    FieldMapping      `json:"field_mapping" yaml:"field_mapping"`
	RecoveryTables  []string          `json:"recovery_tables" yaml:"recovery_tables"`
	RecoveryTable   string            `json:"recovery_table,omitempty" yaml:"recovery_table,omitempty"`
	RecoveryEnabled bool              `json:"recovery_enabled" yaml:"recovery_enabled"`
	PriorityFilter  Priority          `json:"priority_filter,omitempty" yaml:"priority_filter,omitempty"`
	Summary         Summary           `json:"summary" yaml:"summary"`
	ReturnedRecords int               `json:"returned_records" yaml:"returned_records"`
	Records         []CandidateRecord `json:"records" yaml:"records"`
	Warnings        []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}

// Statement is a parameterised SQL statement. Args bind to $1, $2, ...
type Statement struct {
	SQL  string
	Args []any
}

func (s Statement) String() string {
	return fmt.Sprintf("%s %v", s.SQL, s.Args)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
