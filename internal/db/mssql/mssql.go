package mssql

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/azuread"

	"github.com/bgunnarsson/dbhelper/internal/db"
)

type MssqlDB struct {
	db.Conn
}

// Open opens a MSSQL connection.
// If the DSN contains "fedauth=", we use the Azure AD driver (azuresql)
// so things like ActiveDirectoryInteractive / AzCli work.
func Open(ctx context.Context, dsn string, opts db.Options) (*MssqlDB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty mssql DSN")
	}

	sqldb, err := db.Open(ctx, driverName(dsn), dsn, opts)
	if err != nil {
		return nil, err
	}

	return &MssqlDB{Conn: db.Conn{SQL: sqldb, Normalize: normalize}}, nil
}

func driverName(dsn string) string {
	if strings.Contains(strings.ToLower(dsn), "fedauth=") {
		return azuread.DriverName // "azuresql"
	}
	return "sqlserver"
}

func (m *MssqlDB) Driver() string      { return "mssql" }
func (m *MssqlDB) Dialect() db.Dialect { return db.MSSQLDialect{} }

func (m *MssqlDB) ListTables(ctx context.Context) ([]string, error) {
	const q = `
SELECT TABLE_SCHEMA + '.' + TABLE_NAME AS name
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_SCHEMA, TABLE_NAME;
`
	rows, err := m.SQL.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return db.CollectNames(rows)
}

// DescribeTable accepts either "table" or "schema.table"; the schema
// defaults to dbo.
func (m *MssqlDB) DescribeTable(ctx context.Context, table string) ([]db.Column, error) {
	schema, name := db.SplitQualified(table, "dbo")

	const q = `
SELECT c.ORDINAL_POSITION,
       c.COLUMN_NAME,
       c.DATA_TYPE,
       CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END,
       c.COLUMN_DEFAULT,
       CASE WHEN EXISTS (
           SELECT 1
           FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
           JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
             ON k.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
            AND k.TABLE_SCHEMA = tc.TABLE_SCHEMA
           WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
             AND tc.TABLE_SCHEMA = c.TABLE_SCHEMA
             AND tc.TABLE_NAME = c.TABLE_NAME
             AND k.COLUMN_NAME = c.COLUMN_NAME
       ) THEN 1 ELSE 0 END
FROM INFORMATION_SCHEMA.COLUMNS c
WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
ORDER BY c.ORDINAL_POSITION;
`
	rows, err := m.SQL.QueryContext(ctx, q, schema, name)
	if err != nil {
		return nil, err
	}
	return db.CollectColumns(rows, table)
}

func normalize(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	switch dbType {
	case "uniqueidentifier":
		return formatUniqueIdentifier(b)
	case "decimal", "numeric", "money", "smallmoney":
		return string(b)
	default:
		// NEVER string() binary; it wrecks the table.
		return fmt.Sprintf("0x%x", b)
	}
}

// formatUniqueIdentifier renders SQL Server's mixed-endian GUID bytes in
// canonical form.
func formatUniqueIdentifier(b []byte) string {
	if len(b) != 16 {
		return fmt.Sprintf("%x", b)
	}

	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		b[3], b[2], b[1], b[0],
		b[5], b[4],
		b[7], b[6],
		b[8], b[9],
		b[10], b[11], b[12], b[13], b[14], b[15],
	)
}
