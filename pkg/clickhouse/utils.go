package clickhouse

import (
	"regexp"
	"strings"
)

// systemDatabases are managed by ClickHouse itself and never reported as user objects.
var systemDatabases = []string{
	"system",
	"information_schema",
	"INFORMATION_SCHEMA",
}

var (
	decimal64Pattern  = regexp.MustCompile(`Decimal\(18,\s*(\d+)\)`)
	dateTime64Pattern = regexp.MustCompile(`DateTime64\((\d+),\s*'([^']+)'\)`)
	backtickPattern   = regexp.MustCompile("`([^`]+)`")
	createViewPattern = regexp.MustCompile(`(?is)^CREATE\s+(?:MATERIALIZED\s+)?VIEW\s+.*?\s+AS\s+(.*)$`)
)

// buildSystemDatabaseExclusion creates a parameterized "NOT IN" condition excluding the
// system databases from columnName. Returns the condition and its parameters.
func buildSystemDatabaseExclusion(columnName string) (string, []any) {
	placeholders := make([]string, len(systemDatabases))
	params := make([]any, len(systemDatabases))

	for i, db := range systemDatabases {
		placeholders[i] = "?"
		params[i] = db
	}

	condition := columnName + " NOT IN (" + strings.Join(placeholders, ", ") + ")"
	return condition, params
}

// normalizeType rewrites ClickHouse's expanded spellings of column types into the short
// forms written in DDL, e.g. Decimal(18, 2) becomes Decimal64(2).
func normalizeType(typ string) string {
	typ = decimal64Pattern.ReplaceAllString(typ, "Decimal64($1)")
	typ = dateTime64Pattern.ReplaceAllString(typ, "DateTime($1, '$2')")
	return typ
}

// cleanCreateStatement trims whitespace and the trailing semicolon and removes the
// backticks ClickHouse puts around identifiers.
func cleanCreateStatement(createQuery string) string {
	cleaned := strings.TrimSuffix(strings.TrimSpace(createQuery), ";")
	return backtickPattern.ReplaceAllString(cleaned, "$1")
}

// viewDefinition returns the SELECT of a CREATE VIEW statement. ClickHouse includes the
// column list and, for materialized views, the target and engine before AS.
func viewDefinition(createQuery string) string {
	cleaned := cleanCreateStatement(createQuery)
	if m := createViewPattern.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}

	return cleaned
}
