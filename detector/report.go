package detector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Recovery source keys recorded on a CandidateRecord.
const (
	SourceRecoveredPhone = "recovered_phone_number"
	SourceRecoveredName  = "recovered_full_name"
)

// Assembly is the output of Assemble.
type Assembly struct {
	Summary Summary
	// Records passed the priority filter; Summary is computed before filtering.
	Records []CandidateRecord
}

// Assemble turns detail and summary rows into prioritised records. filter is
// an exact-match priority filter; empty means no filter.
func Assemble(model StructuralModel, detailRows []map[string]any, summaryRow map[string]any, recoveryEnabled bool, filter Priority) Assembly {
	bound := model.boundFields()

	all := make([]CandidateRecord, 0, len(detailRows))
	for _, row := range detailRows {
		rec, ok := assembleRecord(row, bound, recoveryEnabled)
		if !ok {
			continue
		}
		all = append(all, rec)
	}

	summary := summarize(summaryRow, bound, all)

	records := all
	if filter != "" {
		records = make([]CandidateRecord, 0, len(all))
		for _, rec := range all {
			if rec.Priority == filter {
				records = append(records, rec)
			}
		}
	}

	return Assembly{Summary: summary, Records: records}
}

// assembleRecord returns false for rows without any missing flag set.
func assembleRecord(row map[string]any, bound map[string]string, recoveryEnabled bool) (CandidateRecord, bool) {
	flags := map[string]string{
		FieldEmail: colMissingEmail,
		FieldPhone: colMissingPhone,
		FieldName:  colMissingName,
	}

	rec := CandidateRecord{
		RecordID:          stringValue(row[colRecordID]),
		Email:             optionalString(row[FieldEmail]),
		PhoneNumber:       optionalString(row[FieldPhone]),
		FullName:          optionalString(row[FieldName]),
		MissingFields:     []string{},
		RecoverableFields: []string{},
		RecoverySources:   map[string]string{},
	}

	for _, name := range fieldOrder {
		if _, ok := bound[name]; !ok {
			continue
		}
		if intValue(row[flags[name]]) == 1 {
			rec.MissingFields = append(rec.MissingFields, name)
		}
	}
	if len(rec.MissingFields) == 0 {
		return CandidateRecord{}, false
	}

	if recoveryEnabled {
		recoverable := []struct {
			field, column, source string
		}{
			{FieldPhone, colRecoverablePhone, SourceRecoveredPhone},
			{FieldName, colRecoverableName, SourceRecoveredName},
		}
		for _, r := range recoverable {
			value := strings.TrimSpace(stringValue(row[r.column]))
			if value == "" || !rec.IsMissing(r.field) {
				continue
			}
			rec.RecoverableFields = append(rec.RecoverableFields, r.field)
			rec.RecoverySources[r.source] = value
		}
		rec.RecoverableFields = canonicalOrder(rec.RecoverableFields)
	}

	rec.Priority = assignPriority(rec)
	return rec, true
}

// assignPriority applies the decision order; the first matching rule wins.
func assignPriority(rec CandidateRecord) Priority {
	phoneMissing := rec.IsMissing(FieldPhone)
	nameMissing := rec.IsMissing(FieldName)

	switch {
	case rec.IsMissing(FieldEmail):
		return PriorityCritical
	case phoneMissing && nameMissing:
		return PriorityHigh
	case (phoneMissing && !rec.IsRecoverable(FieldPhone)) || (nameMissing && !rec.IsRecoverable(FieldName)):
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func summarize(summaryRow map[string]any, bound map[string]string, records []CandidateRecord) Summary {
	total := intValue(summaryRow[colTotalRecords])

	missing := func(field, presentCol string) int {
		if _, ok := bound[field]; !ok {
			return 0
		}
		return total - intValue(summaryRow[presentCol])
	}

	s := Summary{
		TotalCandidates:   total,
		MissingEmail:      missing(FieldEmail, colEmailPresent),
		MissingPhone:      missing(FieldPhone, colPhonePresent),
		MissingName:       missing(FieldName, colNamePresent),
		PriorityBreakdown: make(map[Priority]int, len(Priorities)),
	}
	s.MissingEmailPct = percentage(s.MissingEmail, total)
	s.MissingPhonePct = percentage(s.MissingPhone, total)
	s.MissingNamePct = percentage(s.MissingName, total)

	for _, p := range Priorities {
		s.PriorityBreakdown[p] = 0
	}

	var phoneMissing, nameMissing int
	for _, rec := range records {
		s.PriorityBreakdown[rec.Priority]++
		if rec.IsMissing(FieldPhone) {
			phoneMissing++
		}
		if rec.IsMissing(FieldName) {
			nameMissing++
		}
		if rec.IsRecoverable(FieldPhone) {
			s.RecoverablePhone++
		}
		if rec.IsRecoverable(FieldName) {
			s.RecoverableName++
		}
	}
	s.PhoneRecoveryRate = RecoveryRate(s.RecoverablePhone, phoneMissing)
	s.NameRecoveryRate = RecoveryRate(s.RecoverableName, nameMissing)

	return s
}

// RecoveryRate is round(recoverable/missing*100), and 0 when missing is 0.
func RecoveryRate(recoverable, missing int) int {
	if missing == 0 {
		return 0
	}
	return int(math.Round(float64(recoverable) / float64(missing) * 100))
}

// percentage is rounded to one decimal; 0 when total is 0.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

// recommendations turns a summary into short follow-up suggestions.
func recommendations(s Summary, recoveryEnabled bool) []string {
	var out []string
	if s.MissingEmail > 0 {
		out = append(out, fmt.Sprintf("%d record(s) have no email address; they cannot be contacted by email and need manual follow-up", s.MissingEmail))
	}
	if n := s.PriorityBreakdown[PriorityHigh]; n > 0 {
		out = append(out, fmt.Sprintf("%d record(s) are missing both phone number and name; request both in a follow-up email", n))
	}
	if recoveryEnabled && s.RecoverablePhone+s.RecoverableName > 0 {
		out = append(out, fmt.Sprintf("%d phone number(s) and %d name(s) can be restored from the recovery table; review and backfill them",
			s.RecoverablePhone, s.RecoverableName))
	}
	if len(out) == 0 && s.TotalCandidates > 0 {
		out = append(out, "no missing contact information detected")
	}
	return out
}

func canonicalOrder(fields []string) []string {
	ordered := make([]string, 0, len(fields))
	for _, name := range fieldOrder {
		if contains(fields, name) {
			ordered = append(ordered, name)
		}
	}
	return ordered
}

// stringValue renders a driver value as text; nil becomes "".
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func optionalString(v any) *string {
	if v == nil {
		return nil
	}
	s := stringValue(v)
	return &s
}

// intValue converts the numeric shapes drivers return; unknown shapes are 0.
func intValue(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case []byte:
		n, _ := strconv.Atoi(strings.TrimSpace(string(t)))
		return n
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	default:
		return 0
	}
}
