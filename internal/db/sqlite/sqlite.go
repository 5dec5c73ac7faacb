package sqlite

import (
	"context"
	"strings"

	_ "modernc.org/sqlite" // register driver

	"github.com/bgunnarsson/dbhelper/internal/db"
)

type SqliteDB struct {
	db.Conn
}

// Open opens a database file by plain path. In-memory databases (":memory:",
// mode=memory) are pinned to a single connection so every statement sees the
// same data; file databases use the pool sizes in opts.
func Open(ctx context.Context, path string, opts db.Options) (*SqliteDB, error) {
	if path == "" {
		path = ":memory:"
	}
	if IsMemory(path) {
		opts.MaxOpenConns = 1
		opts.MaxIdleConns = 1
	}

	sqldb, err := db.Open(ctx, "sqlite", withPragmas(path), opts)
	if err != nil {
		return nil, err
	}

	return &SqliteDB{Conn: db.Conn{SQL: sqldb}}, nil
}

// IsMemory reports whether path names a private in-memory database.
func IsMemory(path string) bool {
	p := strings.TrimPrefix(path, "file:")
	return p == "" || strings.HasPrefix(p, ":memory:") || strings.Contains(path, "mode=memory")
}

// withPragmas adds the per-connection pragmas: foreign keys on, and a busy
// timeout so pooled connections wait for a writer instead of failing.
func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *SqliteDB) Driver() string      { return "sqlite" }
func (s *SqliteDB) Dialect() db.Dialect { return db.SQLiteDialect{} }

// ListTables includes tables and views and hides internal sqlite_% objects.
func (s *SqliteDB) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT name
		FROM sqlite_master
		WHERE type IN ('table', 'view')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY lower(name);
	`
	rows, err := s.SQL.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return db.CollectNames(rows)
}

func (s *SqliteDB) DescribeTable(ctx context.Context, table string) ([]db.Column, error) {
	const q = `
		SELECT cid + 1, name, type, "notnull" = 0, dflt_value, pk > 0
		FROM pragma_table_info(?)
		ORDER BY cid;
	`
	rows, err := s.SQL.QueryContext(ctx, q, table)
	if err != nil {
		return nil, err
	}
	return db.CollectColumns(rows, table)
}
