package providers

import (
	"fmt"
	"strings"

	"github.com/CAPITALETECH-MA/AI-agent/detector"
)

// FormatCatalog formats the column catalog as human-readable text, one block
// per table in catalog order.
func FormatCatalog(columns []detector.ColumnDescriptor) string {
	var sb strings.Builder

	current := ""
	for i, col := range columns {
		if col.Table != current {
			if i > 0 {
				sb.WriteString("\n")
			}
			current = col.Table
			sb.WriteString(fmt.Sprintf("Table: %s\n", col.Table))
			sb.WriteString("Columns:\n")
		}

		nullable := "NOT NULL"
		if col.Nullable {
			nullable = "NULL"
		}
		sb.WriteString(fmt.Sprintf("  - %s %s %s\n", col.Column, mapDataType(col.DataType), nullable))
	}

	return sb.String()
}

// mapDataType normalises catalog type names. Modifiers reported by
// pg_catalog, as in "character varying(64)", are kept.
func mapDataType(dataType string) string {
	base, modifier := dataType, ""
	if i := strings.IndexByte(dataType, '('); i >= 0 {
		base, modifier = strings.TrimSpace(dataType[:i]), dataType[i:]
	}

	switch base {
	case "character varying":
		if modifier == "" {
			return "VARCHAR"
		}
		return "VARCHAR" + modifier
	case "character", "char":
		return "CHAR" + modifier
	case "text":
		return "TEXT"
	case "integer":
		return "INTEGER"
	case "bigint":
		return "BIGINT"
	case "smallint":
		return "SMALLINT"
	case "boolean":
		return "BOOLEAN"
	case "real":
		return "REAL"
	case "double precision":
		return "DOUBLE PRECISION"
	case "numeric", "decimal":
		return "DECIMAL" + modifier
	case "timestamp without time zone":
		return "TIMESTAMP"
	case "timestamp with time zone":
		return "TIMESTAMPTZ"
	case "date":
		return "DATE"
	case "time without time zone":
		return "TIME"
	case "time with time zone":
		return "TIMETZ"
	case "uuid":
		return "UUID"
	case "json":
		return "JSON"
	case "jsonb":
		return "JSONB"
	case "bytea":
		return "BYTEA"
	default:
		return strings.ToUpper(dataType)
	}
}
