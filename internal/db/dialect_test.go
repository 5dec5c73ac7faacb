package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDialect_Placeholder(t *testing.T) {
	require.Equal(t, "$2", PostgresDialect{}.Placeholder(2))
	require.Equal(t, "?", MySQLDialect{}.Placeholder(2))
	require.Equal(t, "?", SQLiteDialect{}.Placeholder(2))
	require.Equal(t, "@p2", MSSQLDialect{}.Placeholder(2))
}

func TestDialect_QuoteIdent(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"postgres plain", PostgresDialect{}, "users", `"users"`},
		{"postgres qualified", PostgresDialect{}, "public.users", `"public"."users"`},
		{"postgres embedded quote", PostgresDialect{}, `we"ird`, `"we""ird"`},
		{"mysql", MySQLDialect{}, "users", "`users`"},
		{"mysql embedded backtick", MySQLDialect{}, "a`b", "`a``b`"},
		{"sqlite", SQLiteDialect{}, "t.c", `"t"."c"`},
		{"mssql", MSSQLDialect{}, "dbo.users", "[dbo].[users]"},
		{"mssql embedded bracket", MSSQLDialect{}, "a]b", "[a]]b]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.dialect.QuoteIdent(tt.in))
		})
	}
}

func TestDialect_Paginate(t *testing.T) {
	tests := []struct {
		name          string
		dialect       Dialect
		limit, offset int
		ordered       bool
		want          string
	}{
		{"postgres none", PostgresDialect{}, 0, 0, false, ""},
		{"postgres limit", PostgresDialect{}, 10, 0, false, " LIMIT 10"},
		{"postgres both", PostgresDialect{}, 10, 20, false, " LIMIT 10 OFFSET 20"},
		{"postgres offset only", PostgresDialect{}, 0, 5, false, " OFFSET 5"},
		{"mysql both", MySQLDialect{}, 10, 20, false, " LIMIT 20, 10"},
		{"mysql offset only", MySQLDialect{}, 0, 5, false, " LIMIT 5, 18446744073709551615"},
		{"sqlite offset only", SQLiteDialect{}, 0, 5, false, " LIMIT -1 OFFSET 5"},
		{"sqlite limit", SQLiteDialect{}, 3, 0, false, " LIMIT 3"},
		{"mssql none", MSSQLDialect{}, 0, 0, false, ""},
		{"mssql unordered", MSSQLDialect{}, 10, 0, false, " ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY"},
		{"mssql ordered offset", MSSQLDialect{}, 0, 4, true, " OFFSET 4 ROWS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.dialect.Paginate(tt.limit, tt.offset, tt.ordered))
		})
	}
}

func TestSplitQualified(t *testing.T) {
	schema, name := SplitQualified("sales.orders", "public")
	require.Equal(t, "sales", schema)
	require.Equal(t, "orders", name)

	schema, name = SplitQualified("orders", "public")
	require.Equal(t, "public", schema)
	require.Equal(t, "orders", name)
}

func TestTextBytes(t *testing.T) {
	require.Equal(t, "abc", TextBytes("text", []byte("abc")))
	require.Equal(t, int64(3), TextBytes("int", int64(3)))
	require.Nil(t, TextBytes("text", nil))
}
