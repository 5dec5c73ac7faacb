package app

import (
	"context"
	"io"
	"strings"

	"github.com/bgunnarsson/dbhelper/internal/db"
	"github.com/bgunnarsson/dbhelper/internal/helper"
	"github.com/bgunnarsson/dbhelper/internal/print"
)

// Request describes one non-interactive run.
type Request struct {
	Select   []string
	From     string
	Where    string
	OrderBy  string
	Limit    int
	Describe string
}

// RunNonInteractive describes a table, runs a select, or, when neither is
// asked for, lists the tables.
func RunNonInteractive(ctx context.Context, h *helper.Helper, req Request, w io.Writer, opts print.Options) error {
	switch {
	case req.Describe != "":
		cols, err := h.GetTableInfo(ctx, req.Describe)
		if err != nil {
			return err
		}
		print.RenderColumns(w, cols, opts)
		return nil

	case req.From != "":
		q := h.Select(req.Select...).From(req.From)
		if req.Where != "" {
			q.Where(req.Where)
		}
		if req.OrderBy != "" {
			col, dir, _ := strings.Cut(strings.TrimSpace(req.OrderBy), " ")
			q.OrderBy(col, dir)
		}
		if req.Limit > 0 {
			q.Limit(req.Limit)
		}

		rows := &db.Rows{}
		err := q.Query(ctx, func(r *helper.Row) error {
			if rows.Columns == nil {
				rows.Columns = r.Columns()
			}
			rows.Data = append(rows.Data, r.Values())
			return nil
		})
		if err != nil {
			return err
		}
		print.RenderTable(w, rows, opts)
		return nil
	}

	tables, err := h.Tables(ctx)
	if err != nil {
		return err
	}
	rows := &db.Rows{Columns: []db.Column{{Ordinal: 1, Name: "table"}}}
	for _, t := range tables {
		rows.Data = append(rows.Data, db.Row{t})
	}
	print.RenderTable(w, rows, opts)
	return nil
}
