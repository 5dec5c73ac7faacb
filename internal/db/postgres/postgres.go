package postgres

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx stdlib driver

	"github.com/bgunnarsson/dbhelper/internal/db"
)

const driverName = "pgx"

type PostgresDB struct {
	db.Conn
}

func Open(ctx context.Context, dsn string, opts db.Options) (*PostgresDB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres DSN")
	}

	sqldb, err := db.Open(ctx, driverName, dsn, opts)
	if err != nil {
		return nil, err
	}

	return &PostgresDB{Conn: db.Conn{SQL: sqldb, Normalize: db.TextBytes}}, nil
}

func (p *PostgresDB) Driver() string      { return "postgres" }
func (p *PostgresDB) Dialect() db.Dialect { return db.PostgresDialect{} }

func (p *PostgresDB) ListTables(ctx context.Context) ([]string, error) {
	const q = `
SELECT table_schema || '.' || table_name AS name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name;
`
	rows, err := p.SQL.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return db.CollectNames(rows)
}

// DescribeTable accepts either "table" or "schema.table"; the schema
// defaults to public.
func (p *PostgresDB) DescribeTable(ctx context.Context, table string) ([]db.Column, error) {
	schema, name := db.SplitQualified(table, "public")

	const q = `
SELECT c.ordinal_position,
       c.column_name,
       c.data_type,
       c.is_nullable = 'YES',
       c.column_default,
       EXISTS (
           SELECT 1
           FROM information_schema.table_constraints tc
           JOIN information_schema.key_column_usage k
             ON k.constraint_name = tc.constraint_name
            AND k.table_schema = tc.table_schema
           WHERE tc.constraint_type = 'PRIMARY KEY'
             AND tc.table_schema = c.table_schema
             AND tc.table_name = c.table_name
             AND k.column_name = c.column_name
       )
FROM information_schema.columns c
WHERE c.table_schema = $1
  AND c.table_name = $2
ORDER BY c.ordinal_position;
`
	rows, err := p.SQL.QueryContext(ctx, q, schema, name)
	if err != nil {
		return nil, err
	}
	return db.CollectColumns(rows, table)
}
