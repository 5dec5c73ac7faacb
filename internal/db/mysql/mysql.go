package mysql

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/bgunnarsson/dbhelper/internal/db"
)

type MysqlDB struct {
	db.Conn
}

func Open(ctx context.Context, dsn string, opts db.Options) (*MysqlDB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty mysql DSN")
	}

	sqldb, err := db.Open(ctx, "mysql", dsn, opts)
	if err != nil {
		return nil, err
	}

	// MySQL returns TEXT/VARCHAR as []byte
	return &MysqlDB{Conn: db.Conn{SQL: sqldb, Normalize: db.TextBytes}}, nil
}

func (m *MysqlDB) Driver() string      { return "mysql" }
func (m *MysqlDB) Dialect() db.Dialect { return db.MySQLDialect{} }

func (m *MysqlDB) ListTables(ctx context.Context) ([]string, error) {
	const q = `
SELECT table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema = DATABASE()
ORDER BY table_name;
`
	rows, err := m.SQL.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return db.CollectNames(rows)
}

func (m *MysqlDB) DescribeTable(ctx context.Context, table string) ([]db.Column, error) {
	const q = `
SELECT ordinal_position,
       column_name,
       data_type,
       is_nullable = 'YES',
       column_default,
       column_key = 'PRI'
FROM information_schema.columns
WHERE table_schema = DATABASE()
  AND table_name = ?
ORDER BY ordinal_position;
`
	rows, err := m.SQL.QueryContext(ctx, q, table)
	if err != nil {
		return nil, err
	}
	return db.CollectColumns(rows, table)
}
