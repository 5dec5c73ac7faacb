package print

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bgunnarsson/dbhelper/internal/db"
)

type Options struct {
	MaxWidth int  // max width for each column, 0 = 40
	Color    bool // style the header row
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// RenderTable writes rows as an ASCII grid.
func RenderTable(w io.Writer, rows *db.Rows, opts Options) {
	if len(rows.Columns) == 0 {
		if len(rows.Data) == 0 {
			fmt.Fprintln(w, "(no rows)")
		} else {
			fmt.Fprintln(w, "(no columns)")
		}
		return
	}

	header := make([]string, len(rows.Columns))
	for i, col := range rows.Columns {
		header[i] = col.Name
	}

	body := make([][]string, len(rows.Data))
	for r, row := range rows.Data {
		cells := make([]string, len(header))
		for i := range cells {
			if i < len(row) {
				cells[i] = formatCell(row[i])
			}
		}
		body[r] = cells
	}

	renderGrid(w, header, body, opts)
	fmt.Fprintf(w, "(%d rows)\n", len(rows.Data))
}

// RenderColumns writes table metadata, one line per column.
func RenderColumns(w io.Writer, cols []db.Column, opts Options) {
	header := []string{"#", "column", "type", "null", "default", "pk"}
	body := make([][]string, len(cols))
	for i, c := range cols {
		def := ""
		if c.Default.Valid {
			def = c.Default.String
		}
		body[i] = []string{
			strconv.Itoa(c.Ordinal),
			c.Name,
			c.Type,
			yesNo(c.Nullable),
			def,
			yesNo(c.PrimaryKey),
		}
	}
	renderGrid(w, header, body, opts)
}

func renderGrid(w io.Writer, header []string, body [][]string, opts Options) {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = 40
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = min(lipgloss.Width(h), opts.MaxWidth)
	}
	for _, cells := range body {
		for i, c := range cells {
			widths[i] = max(widths[i], min(lipgloss.Width(c), opts.MaxWidth))
		}
	}

	sep := func(ch string) string {
		var b strings.Builder
		b.WriteString("+")
		for i := range widths {
			b.WriteString(strings.Repeat(ch, widths[i]+2))
			b.WriteString("+")
		}
		return b.String()
	}

	writeRow := func(cells []string, style bool) {
		var b strings.Builder
		b.WriteString("|")
		for i, c := range cells {
			cell := padRight(truncate(c, widths[i]), widths[i])
			if style {
				cell = headerStyle.Render(cell)
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		fmt.Fprintln(w, b.String())
	}

	fmt.Fprintln(w, sep("-"))
	writeRow(header, opts.Color)
	fmt.Fprintln(w, sep("="))
	for _, cells := range body {
		writeRow(cells, false)
	}
	fmt.Fprintln(w, sep("-"))
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case []byte:
		// heuristic: treat as string if printable, else show len
		s := string(t)
		if isPrintable(s) {
			return s
		}
		return fmt.Sprintf("<blob %d bytes>", len(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\t' {
			return false
		}
	}
	return true
}

// padRight and truncate measure display cells, so wide runes count twice.
func padRight(s string, w int) string {
	n := lipgloss.Width(s)
	if n >= w {
		return s
	}
	return s + strings.Repeat(" ", w-n)
}

func truncate(s string, w int) string {
	if lipgloss.Width(s) <= w {
		return s
	}
	if w <= 3 {
		return ansi.Truncate(s, w, "")
	}
	return ansi.Truncate(s, w, "...")
}
