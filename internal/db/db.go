package db

import (
	"context"
	"database/sql"
	"errors"
)

// ErrTableNotFound is returned by DescribeTable when the table has no columns
// visible to the connection.
var ErrTableNotFound = errors.New("table not found")

// Column describes one column of a table or of a result set. Result-set
// columns only carry Ordinal, Name and Type.
type Column struct {
	Ordinal    int
	Name       string
	Type       string
	Nullable   bool
	Default    sql.NullString
	PrimaryKey bool
}

type Row []any

type Rows struct {
	Columns []Column
	Data    []Row
}

type DB interface {
	Close() error
	Driver() string
	Dialect() Dialect
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) ([]Column, error)
	// Query runs a statement and materializes every row.
	Query(ctx context.Context, query string, args ...any) (*Rows, error)
	// QueryRows runs a statement and hands the open cursor to the caller,
	// who must close it.
	QueryRows(ctx context.Context, query string, args ...any) (*Cursor, error)
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}
