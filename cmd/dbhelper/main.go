package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"github.com/bgunnarsson/dbhelper/internal/app"
	"github.com/bgunnarsson/dbhelper/internal/config"
	"github.com/bgunnarsson/dbhelper/internal/helper"
	"github.com/bgunnarsson/dbhelper/internal/print"
)

func main() {
	var (
		helperName string
		columns    string
		req        app.Request
		maxWidth   int
		verbose    bool
	)

	flag.StringVar(&helperName, "helper", config.DefaultHelper, "name of the helper in db.config")
	flag.StringVar(&columns, "select", "*", "comma separated columns to select")
	flag.StringVar(&req.From, "from", "", "table to select from")
	flag.StringVar(&req.Where, "where", "", "WHERE condition")
	flag.StringVar(&req.OrderBy, "order", "", `ORDER BY column, e.g. "id desc"`)
	flag.IntVar(&req.Limit, "limit", 0, "maximum number of rows")
	flag.StringVar(&req.Describe, "describe", "", "print column info for a table")
	flag.IntVar(&maxWidth, "width", 60, "maximum printed column width")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	if columns != "" {
		req.Select = strings.Split(columns, ",")
	}

	log := newLogger(verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, helperName, req, maxWidth); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, helperName string, req app.Request, maxWidth int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	factory := helper.NewFactory(cfg, app.OpenDB, log)
	defer func() {
		if err := factory.Close(); err != nil {
			log.Warn("closing helpers", "error", err)
		}
	}()

	h, err := factory.Helper(ctx, helperName)
	if err != nil {
		return err
	}

	stdoutIsTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if req.From != "" || req.Describe != "" || !stdoutIsTTY {
		return app.RunNonInteractive(ctx, h, req, os.Stdout, print.Options{
			MaxWidth: maxWidth,
			Color:    stdoutIsTTY,
		})
	}

	return app.RunInteractive(ctx, h, fmt.Sprintf("%s (%s)", helperName, h.DB().Driver()))
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
	}))
}
