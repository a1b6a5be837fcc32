package detector

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/CAPITALETECH-MA/AI-agent/errs"
)

// PhonePattern extracts a phone-number-shaped run from recovery payloads:
// digits, spaces, hyphens and parentheses with an optional leading '+',
// at least 8 characters. Bound as a statement argument, never inlined.
const PhonePattern = `(\+?[0-9 ()-]{8,})`

// Column aliases shared between the builder and the assembler. Both
// statements always return every alias regardless of which fields are bound.
const (
	colTotalRecords     = "total_records"
	colEmailPresent     = "email_present"
	colPhonePresent     = "phone_present"
	colNamePresent      = "name_present"
	colRecordID         = "record_id"
	colMissingEmail     = "missing_email"
	colMissingPhone     = "missing_phone"
	colMissingName      = "missing_name"
	colRecoverableName  = "recoverable_name"
	colRecoverablePhone = "recoverable_phone"
)

const (
	mainAlias     = "m"
	recoveryAlias = "rec"
	payloadAlias  = "recovery_payload"
)

// field ties a logical field to its bound column and its fixed aliases.
type field struct {
	name         string
	column       string
	presentAlias string
	missingAlias string
}

func fieldsOf(model StructuralModel) []field {
	return []field{
		{FieldEmail, model.EmailField, colEmailPresent, colMissingEmail},
		{FieldPhone, model.PhoneField, colPhonePresent, colMissingPhone},
		{FieldName, model.NameField, colNamePresent, colMissingName},
	}
}

// BuildSummary returns the aggregate statement: the total row count and, per
// logical field, the count of non-null values (0 for unbound fields).
func BuildSummary(model StructuralModel, schema string) (Statement, error) {
	if err := checkModel(model, schema); err != nil {
		return Statement{}, err
	}

	selects := []string{"COUNT(*) AS " + colTotalRecords}
	for _, f := range fieldsOf(model) {
		if f.column == "" {
			selects = append(selects, "0 AS "+f.presentAlias)
			continue
		}
		selects = append(selects, fmt.Sprintf("COUNT(%s) AS %s", mainColumn(f.column), f.presentAlias))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(tableRef(schema, model.MainTable))
	sb.WriteString(" " + mainAlias)

	return Statement{SQL: sb.String()}, nil
}

// BuildDetail returns the per-record statement for rows with at least one
// bound field NULL, worst first, capped at limit. With includeRecovery, the
// first recovery table only is joined to supply recoverable name and phone.
func BuildDetail(model StructuralModel, schema string, includeRecovery bool, limit int) (Statement, error) {
	if err := checkModel(model, schema); err != nil {
		return Statement{}, err
	}
	if limit <= 0 {
		return Statement{}, errs.Newf(errs.KindInvalidInput, "limit must be positive, got %d", limit)
	}

	recovery := model.Recovery
	if !includeRecovery {
		recovery = nil
	}
	if recovery != nil {
		if err := checkIdentifiers(recovery.Table, recovery.JoinColumn, recovery.PayloadColumn); err != nil {
			return Statement{}, err
		}
	}

	args := []any{limit}

	selects := []string{fmt.Sprintf("CAST(%s AS TEXT) AS %s", mainColumn(model.IDField), colRecordID)}
	var missingExprs, nullChecks []string
	for _, f := range fieldsOf(model) {
		if f.column == "" {
			selects = append(selects, "CAST(NULL AS TEXT) AS "+f.name)
			continue
		}
		selects = append(selects, fmt.Sprintf("CAST(%s AS TEXT) AS %s", mainColumn(f.column), f.name))
	}
	for _, f := range fieldsOf(model) {
		if f.column == "" {
			selects = append(selects, "0 AS "+f.missingAlias)
			continue
		}
		flag := fmt.Sprintf("CASE WHEN %s IS NULL THEN 1 ELSE 0 END", mainColumn(f.column))
		selects = append(selects, flag+" AS "+f.missingAlias)
		missingExprs = append(missingExprs, flag)
		nullChecks = append(nullChecks, mainColumn(f.column)+" IS NULL")
	}

	if recovery == nil {
		selects = append(selects,
			"CAST(NULL AS TEXT) AS "+colRecoverableName,
			"CAST(NULL AS TEXT) AS "+colRecoverablePhone)
	} else {
		payload := recoveryAlias + "." + quoteIdent(payloadAlias)
		if recovery.PayloadIsJSON {
			selects = append(selects, fmt.Sprintf(
				"NULLIF(TRIM(COALESCE(%[1]s->>'full_name', %[1]s->>'name')), '') AS %[2]s", payload, colRecoverableName))
		} else {
			selects = append(selects, "CAST(NULL AS TEXT) AS "+colRecoverableName)
		}
		args = append(args, PhonePattern)
		selects = append(selects, fmt.Sprintf(
			"SUBSTRING(CAST(%s AS TEXT) FROM $%d) AS %s", payload, len(args), colRecoverablePhone))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(tableRef(schema, model.MainTable))
	sb.WriteString(" " + mainAlias)

	if recovery != nil {
		sb.WriteString(fmt.Sprintf(
			" LEFT JOIN LATERAL (SELECT r.%s AS %s FROM %s r WHERE r.%s = %s LIMIT 1) %s ON TRUE",
			quoteIdent(recovery.PayloadColumn), quoteIdent(payloadAlias),
			tableRef(schema, recovery.Table),
			quoteIdent(recovery.JoinColumn), mainColumn(model.IDField),
			recoveryAlias))
	}

	sb.WriteString(" WHERE (")
	sb.WriteString(strings.Join(nullChecks, " OR "))
	sb.WriteString(")")

	sb.WriteString(" ORDER BY (")
	sb.WriteString(strings.Join(missingExprs, " + "))
	sb.WriteString(") DESC, ")
	sb.WriteString(mainColumn(model.IDField))
	sb.WriteString(" ASC")

	sb.WriteString(" LIMIT $1")

	return Statement{SQL: sb.String(), Args: args}, nil
}

// checkModel rejects models the builder cannot turn into a statement.
func checkModel(model StructuralModel, schema string) error {
	if !model.HasMainTable() {
		return errs.New(errs.KindNoMainTable, "no primary entity table to query")
	}
	if len(model.boundFields()) == 0 {
		return errs.Newf(errs.KindNoMainTable, "table %q has no bound contact fields", model.MainTable)
	}
	idents := []string{model.MainTable, model.IDField, model.EmailField, model.PhoneField, model.NameField}
	if schema != "" {
		idents = append(idents, schema)
	}
	return checkIdentifiers(idents...)
}

// checkIdentifiers screens catalog-sourced identifiers before they are
// composed into statement text.
func checkIdentifiers(idents ...string) error {
	for _, ident := range idents {
		if ident == "" {
			continue
		}
		if strings.ContainsRune(ident, 0) {
			return errs.Newf(errs.KindInvalidInput, "identifier %q contains a NUL byte", ident)
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(ident); isSQLi {
			return errs.Newf(errs.KindInvalidInput, "identifier %q rejected as a possible injection", ident).
				WithDetails(map[string]any{"fingerprint": string(fingerprint)})
		}
	}
	return nil
}

func mainColumn(column string) string {
	return mainAlias + "." + quoteIdent(column)
}

func tableRef(schema, table string) string {
	if schema == "" {
		return quoteIdent(table)
	}
	return quoteIdent(schema) + "." + quoteIdent(table)
}

// quoteIdent wraps a SQL identifier in double quotes, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
