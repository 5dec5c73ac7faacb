package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bgunnarsson/dbhelper/internal/db"
	"github.com/bgunnarsson/dbhelper/internal/helper"
)

const (
	pageSize     = 200
	maxCellWidth = 30
)

type pane int

const (
	paneTables pane = iota
	paneRows
	paneColumns
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type (
	tablesMsg struct {
		names []string
		err   error
	}
	rowsMsg struct {
		table string
		rows  *db.Rows
		err   error
	}
	columnsMsg struct {
		table string
		cols  []db.Column
		err   error
	}
)

type model struct {
	ctx   context.Context
	h     *helper.Helper
	label string

	pane    pane
	tables  table.Model
	detail  table.Model
	current string
	status  string
	err     error
	height  int
}

// Run starts the interactive table browser.
func Run(ctx context.Context, h *helper.Helper, label string) error {
	_, err := tea.NewProgram(newModel(ctx, h, label), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func newModel(ctx context.Context, h *helper.Helper, label string) model {
	return model{
		ctx:    ctx,
		h:      h,
		label:  label,
		tables: newTable([]table.Column{{Title: "table", Width: 40}}, nil, 20),
		detail: newTable(nil, nil, 20),
		height: 24,
	}
}

func newTable(cols []table.Column, rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	t.SetStyles(s)
	return t
}

func (m model) Init() tea.Cmd {
	return m.loadTables
}

func (m model) loadTables() tea.Msg {
	names, err := m.h.Tables(m.ctx)
	return tablesMsg{names: names, err: err}
}

func (m model) loadRows(name string) tea.Cmd {
	return func() tea.Msg {
		rows, err := m.h.Select("*").From(name).Limit(pageSize).All(m.ctx)
		return rowsMsg{table: name, rows: rows, err: err}
	}
}

func (m model) loadColumns(name string) tea.Cmd {
	return func() tea.Msg {
		cols, err := m.h.GetTableInfo(m.ctx, name)
		return columnsMsg{table: name, cols: cols, err: err}
	}
}

func (m model) tableHeight() int {
	return max(m.height-4, 3)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.tables.SetHeight(m.tableHeight())
		m.detail.SetHeight(m.tableHeight())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "ctrl+r":
			m.status = "reloading tables"
			return m, m.loadTables
		case "esc":
			m.pane = paneTables
			m.err = nil
			return m, nil
		case "enter":
			if m.pane == paneTables {
				if row := m.tables.SelectedRow(); len(row) > 0 {
					m.status = "loading " + row[0]
					return m, m.loadRows(row[0])
				}
				return m, nil
			}
		case "tab":
			switch m.pane {
			case paneRows:
				return m, m.loadColumns(m.current)
			case paneColumns:
				return m, m.loadRows(m.current)
			}
		}

	case tablesMsg:
		m.err = msg.err
		rows := make([]table.Row, len(msg.names))
		for i, n := range msg.names {
			rows[i] = table.Row{n}
		}
		m.tables.SetRows(rows)
		m.status = fmt.Sprintf("%d tables", len(msg.names))
		return m, nil

	case rowsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.current = msg.table
		m.pane = paneRows
		m.detail = newTable(rowColumns(msg.rows), rowCells(msg.rows), m.tableHeight())
		m.status = fmt.Sprintf("%s: %d rows (first %d)", msg.table, len(msg.rows.Data), pageSize)
		return m, nil

	case columnsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.current = msg.table
		m.pane = paneColumns
		m.detail = newTable(columnInfoColumns(), columnInfoCells(msg.cols), m.tableHeight())
		m.status = fmt.Sprintf("%s: %d columns", msg.table, len(msg.cols))
		return m, nil
	}

	var cmd tea.Cmd
	if m.pane == paneTables {
		m.tables, cmd = m.tables.Update(msg)
	} else {
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	title := m.label
	if m.pane != paneTables {
		title += " / " + m.current
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if m.pane == paneTables {
		b.WriteString(m.tables.View())
	} else {
		b.WriteString(m.detail.View())
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	} else {
		b.WriteString(statusStyle.Render(m.status + "  ·  enter open  tab rows/columns  esc back  ctrl+r reload  q quit"))
	}
	return b.String()
}

func rowColumns(rows *db.Rows) []table.Column {
	cols := make([]table.Column, len(rows.Columns))
	for i, c := range rows.Columns {
		w := lipgloss.Width(c.Name)
		for _, r := range rows.Data {
			if i < len(r) {
				w = max(w, lipgloss.Width(formatValue(r[i])))
			}
		}
		cols[i] = table.Column{Title: c.Name, Width: min(w, maxCellWidth)}
	}
	return cols
}

func rowCells(rows *db.Rows) []table.Row {
	out := make([]table.Row, len(rows.Data))
	for r, row := range rows.Data {
		cells := make(table.Row, len(rows.Columns))
		for i := range cells {
			if i < len(row) {
				cells[i] = formatValue(row[i])
			}
		}
		out[r] = cells
	}
	return out
}

func columnInfoColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 3},
		{Title: "column", Width: maxCellWidth},
		{Title: "type", Width: 20},
		{Title: "null", Width: 4},
		{Title: "default", Width: 20},
		{Title: "pk", Width: 3},
	}
}

func columnInfoCells(cols []db.Column) []table.Row {
	out := make([]table.Row, len(cols))
	for i, c := range cols {
		def := ""
		if c.Default.Valid {
			def = c.Default.String
		}
		out[i] = table.Row{
			strconv.Itoa(c.Ordinal),
			c.Name,
			c.Type,
			flag(c.Nullable),
			def,
			flag(c.PrimaryKey),
		}
	}
	return out
}

func flag(b bool) string {
	if b {
		return "✓"
	}
	return ""
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	switch x := v.(type) {
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(x))
	case string:
		return strings.ReplaceAll(x, "\n", "⏎")
	default:
		return fmt.Sprint(x)
	}
}
