package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Options controls pool sizing and the initial connectivity check.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectTimeout bounds the retried ping performed by Open.
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// DefaultOptions are small pool defaults suited to a CLI or test process.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = d.MaxOpenConns
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = o.MaxOpenConns
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = d.ConnMaxLifetime
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Open opens a pool for driverName and pings it until it answers or
// opts.ConnectTimeout elapses.
func Open(ctx context.Context, driverName, dsn string, opts Options) (*sql.DB, error) {
	opts = opts.withDefaults()

	sqldb, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(opts.MaxOpenConns)
	sqldb.SetMaxIdleConns(opts.MaxIdleConns)
	sqldb.SetConnMaxLifetime(opts.ConnMaxLifetime)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		pctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
		return struct{}{}, sqldb.PingContext(pctx)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(opts.ConnectTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			opts.Logger.Debug("ping failed, retrying", "driver", driverName, "error", err, "next", next)
		}),
	)
	if err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("connect %s: %w", driverName, err)
	}

	return sqldb, nil
}

// Normalizer rewrites a scanned value for display and comparison. dbType is
// the lower-cased DatabaseTypeName of the column.
type Normalizer func(dbType string, v any) any

// Conn implements the statement half of DB on top of a *sql.DB. Driver
// packages embed it and add the catalog queries.
type Conn struct {
	SQL       *sql.DB
	Normalize Normalizer
}

func (c *Conn) Close() error {
	if c.SQL == nil {
		return nil
	}
	return c.SQL.Close()
}

func (c *Conn) QueryRows(ctx context.Context, query string, args ...any) (*Cursor, error) {
	rows, err := c.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	header, err := Header(rows)
	if err != nil {
		rows.Close()
		return nil, err
	}

	return &Cursor{rows: rows, header: header, normalize: c.Normalize}, nil
}

func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.SQL.ExecContext(ctx, query, args...)
}

func (c *Conn) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	cur, err := c.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var data []Row
	for cur.Next() {
		values, err := cur.Row()
		if err != nil {
			return nil, err
		}
		data = append(data, values)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return &Rows{Columns: cur.Columns(), Data: data}, nil
}

// Cursor walks an open result set one normalized row at a time.
type Cursor struct {
	rows      *sql.Rows
	header    []Column
	normalize Normalizer
}

func (c *Cursor) Columns() []Column { return c.header }
func (c *Cursor) Next() bool        { return c.rows.Next() }
func (c *Cursor) Err() error        { return c.rows.Err() }
func (c *Cursor) Close() error      { return c.rows.Close() }

// Row scans the current row.
func (c *Cursor) Row() (Row, error) {
	return ScanRow(c.rows, c.header, c.normalize)
}

// Header describes the columns of an open result set.
func Header(rows *sql.Rows) ([]Column, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	header := make([]Column, len(colTypes))
	for i, ct := range colTypes {
		nullable, _ := ct.Nullable()
		header[i] = Column{
			Ordinal:  i + 1,
			Name:     ct.Name(),
			Type:     strings.ToLower(ct.DatabaseTypeName()),
			Nullable: nullable,
		}
	}
	return header, nil
}

// ScanRow scans the current row of rows into a Row, passing every value
// through normalize when it is not nil.
func ScanRow(rows *sql.Rows, header []Column, normalize Normalizer) (Row, error) {
	values := make([]any, len(header))
	ptrs := make([]any, len(header))
	for i := range values {
		ptrs[i] = &values[i]
	}

	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	if normalize != nil {
		for i, v := range values {
			values[i] = normalize(header[i].Type, v)
		}
	}
	return Row(values), nil
}

// SplitQualified splits "schema.table" into its parts, falling back to
// defaultSchema when no schema is given.
func SplitQualified(table, defaultSchema string) (schema, name string) {
	if dot := strings.Index(table, "."); dot != -1 {
		return table[:dot], table[dot+1:]
	}
	return defaultSchema, table
}

// CollectColumns scans catalog rows shaped as (ordinal, name, type,
// nullable, default, primary key). An empty result means the table does not
// exist and yields ErrTableNotFound.
func CollectColumns(rows *sql.Rows, table string) ([]Column, error) {
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Ordinal, &c.Name, &c.Type, &c.Nullable, &c.Default, &c.PrimaryKey); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return cols, nil
}

// CollectNames scans a single string column.
func CollectNames(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// TextBytes turns []byte values into strings; drivers that hand back text
// columns as bytes use it as their Normalizer.
func TextBytes(_ string, v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
