package db

import (
	"fmt"
	"strings"
)

// Dialect covers the SQL differences the query builder has to care about.
type Dialect interface {
	// Placeholder returns the bind parameter for the 1-based index.
	Placeholder(index int) string
	// QuoteIdent quotes a possibly schema-qualified identifier.
	QuoteIdent(name string) string
	// Paginate renders the row-limiting suffix. limit <= 0 means no limit.
	// ordered reports whether the statement already has an ORDER BY.
	Paginate(limit, offset int, ordered bool) string
}

// quoteParts quotes every dot-separated part of name with open/close,
// doubling any embedded close character.
func quoteParts(name, open, close string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = open + strings.ReplaceAll(p, close, close+close) + close
	}
	return strings.Join(parts, ".")
}

func limitOffset(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

// PostgresDialect uses $1, $2 placeholders and double quotes.
type PostgresDialect struct{}

func (PostgresDialect) Placeholder(index int) string { return fmt.Sprintf("$%d", index) }
func (PostgresDialect) QuoteIdent(name string) string {
	return quoteParts(name, `"`, `"`)
}
func (PostgresDialect) Paginate(limit, offset int, _ bool) string {
	return limitOffset(limit, offset)
}

// MySQLDialect uses ? placeholders and backticks.
type MySQLDialect struct{}

func (MySQLDialect) Placeholder(int) string { return "?" }
func (MySQLDialect) QuoteIdent(name string) string {
	return quoteParts(name, "`", "`")
}

// Paginate emits LIMIT offset, count since MySQL rejects OFFSET without LIMIT.
func (MySQLDialect) Paginate(limit, offset int, _ bool) string {
	switch {
	case limit <= 0 && offset <= 0:
		return ""
	case limit <= 0:
		return fmt.Sprintf(" LIMIT %d, 18446744073709551615", offset)
	case offset <= 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	default:
		return fmt.Sprintf(" LIMIT %d, %d", offset, limit)
	}
}

// SQLiteDialect uses ? placeholders and double quotes.
type SQLiteDialect struct{}

func (SQLiteDialect) Placeholder(int) string { return "?" }
func (SQLiteDialect) QuoteIdent(name string) string {
	return quoteParts(name, `"`, `"`)
}

// Paginate emits LIMIT -1 when only an offset is set; sqlite needs a LIMIT
// before OFFSET.
func (SQLiteDialect) Paginate(limit, offset int, _ bool) string {
	if limit <= 0 && offset > 0 {
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	}
	return limitOffset(limit, offset)
}

// MSSQLDialect uses @p1 placeholders, brackets and OFFSET/FETCH paging.
type MSSQLDialect struct{}

func (MSSQLDialect) Placeholder(index int) string { return fmt.Sprintf("@p%d", index) }
func (MSSQLDialect) QuoteIdent(name string) string {
	return quoteParts(name, "[", "]")
}
func (MSSQLDialect) Paginate(limit, offset int, ordered bool) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	var b strings.Builder
	if !ordered {
		b.WriteString(" ORDER BY (SELECT NULL)")
	}
	fmt.Fprintf(&b, " OFFSET %d ROWS", max(offset, 0))
	if limit > 0 {
		fmt.Fprintf(&b, " FETCH NEXT %d ROWS ONLY", limit)
	}
	return b.String()
}
