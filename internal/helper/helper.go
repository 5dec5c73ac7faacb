// Package helper is a small fluent layer over a db.DB connection.
//
// A Helper is bound to one connection. Queries are described with
// Select(...).From(...) and then executed once, either by pushing every row
// through a RowHandler:
//
//	err := h.Select("*").From("test2").Query(ctx, func(r *helper.Row) error {
//		a, _ := r.Get(1)
//		b, _ := r.Get(2)
//		fmt.Println(a, b)
//		return nil
//	})
//
// or by pulling rows with a range loop, which allows stopping early:
//
//	for row, err := range h.Select("a", "b").From("test2").Rows(ctx) {
//		if err != nil {
//			return err
//		}
//		...
//	}
//
// GetTableInfo describes a table's columns in their natural order.
package helper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bgunnarsson/dbhelper/internal/db"
)

var (
	// ErrNoTable is returned when a query is executed before From was called.
	ErrNoTable = errors.New("query has no table, call From first")
	// ErrQueryExecuted is returned when a query is executed a second time.
	ErrQueryExecuted = errors.New("query already executed")
	// ErrNoRows is returned by QueryOne when the statement yields no rows.
	ErrNoRows = errors.New("no rows in result set")
)

// Helper builds and runs statements against a single connection. It holds
// no per-query state and may be shared as freely as the underlying db.DB.
type Helper struct {
	conn db.DB
	log  *slog.Logger
}

type Option func(*Helper)

func WithLogger(log *slog.Logger) Option {
	return func(h *Helper) {
		if log != nil {
			h.log = log
		}
	}
}

func New(conn db.DB, opts ...Option) *Helper {
	h := &Helper{
		conn: conn,
		log:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With("driver", conn.Driver())
	return h
}

func (h *Helper) DB() db.DB { return h.conn }

func (h *Helper) Close() error { return h.conn.Close() }

// Select starts a new query. No columns, or a single "*", selects every
// column.
func (h *Helper) Select(columns ...string) *Query {
	return newQuery(h, columns)
}

// GetTableInfo returns one descriptor per column of table, in column order.
// A table that does not exist yields an error wrapping db.ErrTableNotFound.
func (h *Helper) GetTableInfo(ctx context.Context, table string) ([]db.Column, error) {
	h.log.Debug("describe table", "table", table)
	cols, err := h.conn.DescribeTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	return cols, nil
}

func (h *Helper) Tables(ctx context.Context) ([]string, error) {
	return h.conn.ListTables(ctx)
}

// QueryOne runs a raw statement and returns the first column of its first
// row.
func (h *Helper) QueryOne(ctx context.Context, query string, args ...any) (any, error) {
	h.log.Debug("query one", "sql", query, "args", len(args))

	cur, err := h.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoRows
	}
	row, err := cur.Row()
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, ErrNoRows
	}
	return row[0], nil
}

// Execute runs a statement that returns no rows and reports the number of
// rows affected.
func (h *Helper) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	h.log.Debug("execute", "sql", query, "args", len(args))

	res, err := h.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
