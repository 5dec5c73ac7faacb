package mssql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMSSQL_FormatUniqueIdentifier(t *testing.T) {
	b := []byte{0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	require.Equal(t, "00112233-4455-6677-8899-aabbccddeeff", formatUniqueIdentifier(b))
	require.Equal(t, "0102", formatUniqueIdentifier([]byte{1, 2}))
}

func TestMSSQL_Normalize(t *testing.T) {
	require.Equal(t, "0x0102", normalize("varbinary", []byte{1, 2}))
	require.Equal(t, "12.50", normalize("decimal", []byte("12.50")))
	require.Equal(t, int64(7), normalize("int", int64(7)))
}

func TestMSSQL_DriverName(t *testing.T) {
	require.Equal(t, "sqlserver", driverName("sqlserver://sa:pw@localhost:1433?database=app"))
	require.Equal(t, "azuresql", driverName("sqlserver://host?database=app&fedauth=ActiveDirectoryAzCli"))
}
