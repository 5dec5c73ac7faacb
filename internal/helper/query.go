package helper

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/bgunnarsson/dbhelper/internal/db"
)

// Stop may be returned by a RowHandler to end iteration early without an
// error.
var Stop = errors.New("stop iteration")

// RowHandler is called once per result row. Returning a non-nil error other
// than Stop aborts the query and the error is returned to the caller of
// Query. A handler that wants to skip bad rows should handle the error
// itself and return nil.
//
// The result set holds a connection until Query returns. A handler may call
// back into the Helper only when the pool has a spare connection; in-memory
// sqlite databases have exactly one, so nested calls there block until ctx
// is done.
type RowHandler func(row *Row) error

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

type clause struct {
	cond string
	args []any
}

type order struct {
	column string
	dir    string
}

// Query is the accumulated, not yet executed description of a SELECT. It is
// single use: once executed, further executions return ErrQueryExecuted.
type Query struct {
	h        *Helper
	columns  []string
	table    string
	where    []clause
	groupBy  []string
	having   []clause
	orders   []order
	limit    int
	offset   int
	errs     []error
	executed bool
}

func newQuery(h *Helper, columns []string) *Query {
	q := &Query{h: h}
	for _, c := range columns {
		if c = strings.TrimSpace(c); c != "" {
			q.columns = append(q.columns, c)
		}
	}
	return q
}

func (q *Query) From(table string) *Query {
	q.table = strings.TrimSpace(table)
	return q
}

// Where adds a condition; several conditions are joined with AND. Use ? for
// parameters, it is rewritten to the connection's placeholder style.
func (q *Query) Where(cond string, args ...any) *Query {
	q.where = append(q.where, clause{cond: cond, args: args})
	return q
}

func (q *Query) GroupBy(columns ...string) *Query {
	q.groupBy = append(q.groupBy, columns...)
	return q
}

func (q *Query) Having(cond string, args ...any) *Query {
	q.having = append(q.having, clause{cond: cond, args: args})
	return q
}

// OrderBy adds a sort key. dir is ASC or DESC, empty means ASC.
func (q *Query) OrderBy(column, dir string) *Query {
	dir = strings.ToUpper(strings.TrimSpace(dir))
	if dir == "" {
		dir = "ASC"
	}
	if dir != "ASC" && dir != "DESC" {
		q.errs = append(q.errs, fmt.Errorf("invalid sort direction %q", dir))
		return q
	}
	q.orders = append(q.orders, order{column: column, dir: dir})
	return q
}

func (q *Query) Limit(n int) *Query {
	if n < 0 {
		q.errs = append(q.errs, fmt.Errorf("invalid limit %d", n))
		return q
	}
	q.limit = n
	return q
}

func (q *Query) Offset(n int) *Query {
	if n < 0 {
		q.errs = append(q.errs, fmt.Errorf("invalid offset %d", n))
		return q
	}
	q.offset = n
	return q
}

// Build renders the statement and its arguments for the helper's dialect.
func (q *Query) Build() (string, []any, error) {
	if len(q.errs) > 0 {
		return "", nil, errors.Join(q.errs...)
	}
	if q.table == "" {
		return "", nil, ErrNoTable
	}

	d := q.h.conn.Dialect()
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	b.WriteString(q.projection(d))
	b.WriteString(" FROM ")
	b.WriteString(d.QuoteIdent(q.table))

	writeClauses := func(keyword string, cs []clause) error {
		if len(cs) == 0 {
			return nil
		}
		b.WriteString(keyword)
		for i, c := range cs {
			if i > 0 {
				b.WriteString(" AND ")
			}
			sql, err := rebind(d, c.cond, len(args), len(c.args))
			if err != nil {
				return err
			}
			if len(cs) > 1 {
				b.WriteString("(" + sql + ")")
			} else {
				b.WriteString(sql)
			}
			args = append(args, c.args...)
		}
		return nil
	}

	if err := writeClauses(" WHERE ", q.where); err != nil {
		return "", nil, err
	}
	if len(q.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(identList(d, q.groupBy))
	}
	if err := writeClauses(" HAVING ", q.having); err != nil {
		return "", nil, err
	}
	if len(q.orders) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range q.orders {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ident(d, o.column) + " " + o.dir)
		}
	}
	b.WriteString(d.Paginate(q.limit, q.offset, len(q.orders) > 0))

	return b.String(), args, nil
}

func (q *Query) projection(d db.Dialect) string {
	if len(q.columns) == 0 || (len(q.columns) == 1 && q.columns[0] == "*") {
		return "*"
	}
	return identList(d, q.columns)
}

// Rows executes the query and yields its rows in result order. Breaking
// out of the loop closes the result set.
func (q *Query) Rows(ctx context.Context) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		cur, err := q.open(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer cur.Close()

		for i := 0; cur.Next(); i++ {
			values, err := cur.Row()
			if err != nil {
				yield(nil, fmt.Errorf("scan row %d: %w", i, err))
				return
			}
			if !yield(&Row{index: i, columns: cur.Columns(), values: values}, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Query executes the query and calls handler for each row.
func (q *Query) Query(ctx context.Context, handler RowHandler) error {
	for row, err := range q.Rows(ctx) {
		if err != nil {
			return err
		}
		if err := handler(row); err != nil {
			if errors.Is(err, Stop) {
				return nil
			}
			return fmt.Errorf("row %d: %w", row.Index(), err)
		}
	}
	return nil
}

// All executes the query and materializes every row.
func (q *Query) All(ctx context.Context) (*db.Rows, error) {
	sql, args, err := q.prepare()
	if err != nil {
		return nil, err
	}
	return q.h.conn.Query(ctx, sql, args...)
}

func (q *Query) open(ctx context.Context) (*db.Cursor, error) {
	sql, args, err := q.prepare()
	if err != nil {
		return nil, err
	}
	return q.h.conn.QueryRows(ctx, sql, args...)
}

func (q *Query) prepare() (string, []any, error) {
	if q.executed {
		return "", nil, ErrQueryExecuted
	}
	sql, args, err := q.Build()
	if err != nil {
		return "", nil, err
	}
	q.executed = true
	q.h.log.Debug("query", "sql", sql, "args", len(args))
	return sql, args, nil
}

// ident quotes plain identifiers and leaves expressions untouched. Table
// names never go through it: From always quotes.
func ident(d db.Dialect, name string) string {
	if identRe.MatchString(name) {
		return d.QuoteIdent(name)
	}
	return name
}

func identList(d db.Dialect, names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ident(d, strings.TrimSpace(n))
	}
	return strings.Join(out, ", ")
}

// rebind replaces every ? outside string literals with the dialect's
// placeholder, numbering from offset+1. want is the number of arguments the
// caller supplied for cond.
func rebind(d db.Dialect, cond string, offset, want int) (string, error) {
	var b strings.Builder
	n := 0
	inQuote := false
	for _, r := range cond {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteString(d.Placeholder(offset + n))
		default:
			b.WriteRune(r)
		}
	}
	if n != want {
		return "", fmt.Errorf("condition %q has %d placeholders but %d arguments", cond, n, want)
	}
	return b.String(), nil
}
