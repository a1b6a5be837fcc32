package detector

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinzhu/inflection"
)

// Pattern families matched as lower-case substrings of column names.
var (
	emailPatterns = []string{"email", "email_address", "contact_email", "mail"}
	phonePatterns = []string{"phone", "phone_number", "contact_phone", "mobile", "telephone"}
	namePatterns  = []string{"name", "full_name", "first_name", "last_name", "contact_name"}
)

// idPatterns are matched exactly (case-insensitive); "id" as a substring
// would bind to columns such as "email_valid".
var idPatterns = []string{"id", "candidate_id", "contact_id", "user_id", "person_id"}

// entityHints are matched as substrings of the table name, +10 each.
var entityHints = []string{"candidates", "contacts", "users", "people", "customers", "clients"}

// recoveryHints mark auxiliary tables that may hold copies of contact data.
var recoveryHints = []string{"resume", "form", "application", "profile", "information"}

// payloadHints mark text columns likely to hold parsed or raw documents.
var payloadHints = []string{"parsed", "data", "content", "text", "raw", "json", "body", "payload"}

const (
	defaultIDField    = "id"
	defaultJoinColumn = "candidate_id"
	entityHintBonus   = 10
)

// SelectionPolicy decides which scoring table becomes the main table.
type SelectionPolicy string

const (
	// SelectFirstMatch picks the first table in discovery order with a
	// positive score. A better-scoring table found later is ignored.
	SelectFirstMatch SelectionPolicy = "first_match"
	// SelectBestScore picks the highest score, ties broken by discovery order.
	SelectBestScore SelectionPolicy = "best_score"
)

// ParseSelectionPolicy validates a policy name; empty means first_match.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch SelectionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SelectFirstMatch:
		return SelectFirstMatch, nil
	case SelectBestScore:
		return SelectBestScore, nil
	default:
		return "", fmt.Errorf("unknown selection policy %q", s)
	}
}

// AnalyzeOptions tune Analyze.
type AnalyzeOptions struct {
	Policy SelectionPolicy
}

// tableGroup is one table's columns in catalog order.
type tableGroup struct {
	name    string
	columns []ColumnDescriptor
}

// groupByTable groups columns by table, preserving first-appearance order.
func groupByTable(columns []ColumnDescriptor) []tableGroup {
	index := make(map[string]int)
	var groups []tableGroup
	for _, col := range columns {
		i, ok := index[col.Table]
		if !ok {
			i = len(groups)
			index[col.Table] = i
			groups = append(groups, tableGroup{name: col.Table})
		}
		groups[i].columns = append(groups[i].columns, col)
	}
	return groups
}

// Analyze derives the structural model from a column catalog.
func Analyze(columns []ColumnDescriptor, opts AnalyzeOptions) StructuralModel {
	groups := groupByTable(columns)
	model := newModel(groups)

	var chosen *tableGroup
	best := 0
	for i := range groups {
		g := &groups[i]
		score := scoreTable(*g)
		if score == 0 {
			continue
		}
		model.Scores = append(model.Scores, TableScore{Table: g.name, Score: score})

		if opts.Policy == SelectBestScore {
			if score > best {
				best, chosen = score, g
			}
			continue
		}
		if chosen == nil {
			chosen = g
		}
	}

	if chosen == nil {
		slog.Debug("no table with contact-like columns", "tables", len(groups))
		return model
	}

	bindMainTable(&model, *chosen)
	return model
}

// AnalyzeTable binds fields in the named table without scoring. The model has
// no main table when the table is absent or lacks every contact-like column.
func AnalyzeTable(columns []ColumnDescriptor, table string) StructuralModel {
	groups := groupByTable(columns)
	model := newModel(groups)

	for _, g := range groups {
		if !strings.EqualFold(g.name, table) {
			continue
		}
		if !hasContactColumn(g) {
			break
		}
		bindMainTable(&model, g)
		return model
	}

	model.Warnings = append(model.Warnings, fmt.Sprintf("table %q not found or has no contact columns", table))
	return model
}

func newModel(groups []tableGroup) StructuralModel {
	model := StructuralModel{
		AllTables:      make([]string, 0, len(groups)),
		RecoveryTables: []string{},
		columns:        make(map[string][]ColumnDescriptor, len(groups)),
	}
	for _, g := range groups {
		model.AllTables = append(model.AllTables, g.name)
		model.columns[g.name] = g.columns
		if containsAny(strings.ToLower(g.name), recoveryHints) {
			model.RecoveryTables = append(model.RecoveryTables, g.name)
		}
	}
	return model
}

// scoreTable returns 0 for tables with no contact-like column.
func scoreTable(g tableGroup) int {
	if !hasContactColumn(g) {
		return 0
	}
	lower := strings.ToLower(g.name)
	score := len(g.columns)
	for _, hint := range entityHints {
		if strings.Contains(lower, hint) {
			score += entityHintBonus
		}
	}
	return score
}

func hasContactColumn(g tableGroup) bool {
	for _, col := range g.columns {
		lower := strings.ToLower(col.Column)
		if containsAny(lower, emailPatterns) || containsAny(lower, phonePatterns) || containsAny(lower, namePatterns) {
			return true
		}
	}
	return false
}

func bindMainTable(model *StructuralModel, g tableGroup) {
	model.MainTable = g.name
	model.EmailField = firstColumn(g.columns, func(lower string) bool { return containsAny(lower, emailPatterns) })
	model.PhoneField = firstColumn(g.columns, func(lower string) bool { return containsAny(lower, phonePatterns) })
	model.NameField = firstColumn(g.columns, func(lower string) bool { return containsAny(lower, namePatterns) })
	model.IDField = firstColumn(g.columns, func(lower string) bool { return equalsAny(lower, idPatterns) })
	if model.IDField == "" {
		model.IDField = defaultIDField
	}

	if len(model.RecoveryTables) > 0 {
		binding, reason := bindRecovery(*model, model.RecoveryTables[0])
		if binding == nil {
			model.Warnings = append(model.Warnings,
				fmt.Sprintf("recovery table %q skipped: %s", model.RecoveryTables[0], reason))
		}
		model.Recovery = binding
	}

	slog.Debug("main table bound",
		"table", model.MainTable,
		"id", model.IDField,
		"email", model.EmailField,
		"phone", model.PhoneField,
		"name", model.NameField,
		"recovery_tables", model.RecoveryTables)
}

// bindRecovery infers the join and payload columns of a recovery table.
// A nil binding comes with the reason it could not be built.
func bindRecovery(model StructuralModel, table string) (*RecoveryBinding, string) {
	cols := model.columns[table]

	payload, isJSON := payloadColumn(cols)
	if payload == "" {
		return nil, "no text or json column to recover from"
	}

	joinCandidates := []string{
		inflection.Singular(strings.ToLower(model.MainTable)) + "_id",
		"candidate_id", "contact_id", "user_id", "person_id",
	}
	join := ""
	for _, want := range joinCandidates {
		join = firstColumn(cols, func(lower string) bool { return lower == want })
		if join != "" {
			break
		}
	}
	if join == "" {
		return nil, fmt.Sprintf("no column linking it to %s.%s (expected %s)", model.MainTable, model.IDField, defaultJoinColumn)
	}

	return &RecoveryBinding{
		Table:         table,
		JoinColumn:    join,
		PayloadColumn: payload,
		PayloadIsJSON: isJSON,
	}, ""
}

func payloadColumn(cols []ColumnDescriptor) (string, bool) {
	for _, col := range cols {
		if isJSONType(col.DataType) {
			return col.Column, true
		}
	}
	var firstText string
	for _, col := range cols {
		if !isTextType(col.DataType) {
			continue
		}
		if containsAny(strings.ToLower(col.Column), payloadHints) {
			return col.Column, false
		}
		if firstText == "" {
			firstText = col.Column
		}
	}
	return firstText, false
}

func isJSONType(dataType string) bool {
	t := strings.ToLower(dataType)
	return t == "json" || t == "jsonb"
}

func isTextType(dataType string) bool {
	t := strings.ToLower(dataType)
	return t == "text" || strings.HasPrefix(t, "character") || strings.HasPrefix(t, "varchar")
}

func firstColumn(cols []ColumnDescriptor, match func(lower string) bool) string {
	for _, col := range cols {
		if match(strings.ToLower(col.Column)) {
			return col.Column
		}
	}
	return ""
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func equalsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if s == p {
			return true
		}
	}
	return false
}
