// Package sqlutil provides SQL dialect utilities: identifier quoting and
// placeholder formats for the supported databases.
package sqlutil

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect selects the quoting and placeholder rules for a connection.
type Dialect int

const (
	// MySQL quotes identifiers with backticks and uses ? placeholders.
	MySQL Dialect = iota
	// Postgres quotes identifiers with double quotes and uses $N placeholders.
	Postgres
)

// String returns the dialect's canonical configuration name.
func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	default:
		return "mysql"
	}
}

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// and escapes any quote characters within it.
func (d Dialect) QuoteIdentifier(name string) string {
	if d == Postgres {
		escaped := strings.ReplaceAll(name, `"`, `""`)
		return `"` + escaped + `"`
	}
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// Qualify returns a quoted table.column reference.
func (d Dialect) Qualify(table, column string) string {
	return d.QuoteIdentifier(table) + "." + d.QuoteIdentifier(column)
}

// Placeholder returns the squirrel placeholder format for the dialect.
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// QuoteString quotes a SQL string literal with single quotes and escapes
// any single quotes within the string by doubling them.
func QuoteString(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	return "'" + escaped + "'"
}
