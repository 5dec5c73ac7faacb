package app

import (
	"context"
	"fmt"

	"github.com/bgunnarsson/dbhelper/internal/config"
	"github.com/bgunnarsson/dbhelper/internal/db"
	"github.com/bgunnarsson/dbhelper/internal/db/mssql"
	"github.com/bgunnarsson/dbhelper/internal/db/mysql"
	"github.com/bgunnarsson/dbhelper/internal/db/postgres"
	"github.com/bgunnarsson/dbhelper/internal/db/sqlite"
	"github.com/bgunnarsson/dbhelper/internal/helper"
	"github.com/bgunnarsson/dbhelper/internal/ui"
)

// OpenDB is the helper.Opener for every supported driver.
func OpenDB(ctx context.Context, s config.Settings, opts db.Options) (db.DB, error) {
	driver, err := s.Driver()
	if err != nil {
		return nil, err
	}
	dsn, err := s.ConnString()
	if err != nil {
		return nil, err
	}

	switch driver {
	case config.DriverSqlite:
		return sqlite.Open(ctx, dsn, opts)
	case config.DriverPostgres:
		return postgres.Open(ctx, dsn, opts)
	case config.DriverMssql:
		return mssql.Open(ctx, dsn, opts)
	case config.DriverMysql:
		return mysql.Open(ctx, dsn, opts)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func RunInteractive(ctx context.Context, h *helper.Helper, label string) error {
	return ui.Run(ctx, h, label)
}
