package helper

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bgunnarsson/dbhelper/internal/db"
)

var (
	ErrColumnIndex = errors.New("column index out of range")
	ErrNoColumn    = errors.New("no such column")
	ErrNullValue   = errors.New("value is NULL")
)

// Row is the cursor handed to a RowHandler. Column ordinals are 1-based.
type Row struct {
	index   int
	columns []db.Column
	values  db.Row
}

// Index is the 0-based position of the row in the result set.
func (r *Row) Index() int { return r.index }

func (r *Row) Columns() []db.Column { return r.columns }

func (r *Row) Values() db.Row { return r.values }

func (r *Row) Get(ordinal int) (any, error) {
	if ordinal < 1 || ordinal > len(r.values) {
		return nil, fmt.Errorf("%w: %d of %d", ErrColumnIndex, ordinal, len(r.values))
	}
	return r.values[ordinal-1], nil
}

// GetByName looks a column up case-insensitively.
func (r *Row) GetByName(name string) (any, error) {
	for i, c := range r.columns {
		if strings.EqualFold(c.Name, name) {
			return r.values[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
}

// String formats the value at ordinal. NULL becomes the empty string.
func (r *Row) String(ordinal int) (string, error) {
	v, err := r.Get(ordinal)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	default:
		return fmt.Sprint(x), nil
	}
}

func (r *Row) Int64(ordinal int) (int64, error) {
	v, err := r.Get(ordinal)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("column %d: %w", ordinal, ErrNullValue)
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("column %d: %v is not an integer", ordinal, x)
		}
		if x < -(1<<63) || x >= 1<<63 {
			return 0, fmt.Errorf("column %d: %v overflows int64", ordinal, x)
		}
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
	default:
		return 0, fmt.Errorf("column %d: cannot convert %T to int64", ordinal, v)
	}
}
