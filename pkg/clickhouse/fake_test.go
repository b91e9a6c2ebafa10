package clickhouse

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"
)

type (
	// fakeConn answers queries with canned rows. The first response whose match string
	// appears in the query wins.
	fakeConn struct {
		mu        sync.Mutex
		responses []fakeResponse
		calls     []fakeCall
		closed    bool
	}

	fakeResponse struct {
		match string
		rows  [][]any
		err   error
	}

	fakeCall struct {
		query string
		args  []any
	}

	fakeRows struct {
		rows [][]any
		pos  int
		err  error
	}
)

func (c *fakeConn) on(match string, rows ...[]any) *fakeConn {
	c.responses = append(c.responses, fakeResponse{match: match, rows: rows})
	return c
}

func (c *fakeConn) fail(match string, err error) *fakeConn {
	c.responses = append(c.responses, fakeResponse{match: match, err: err})
	return c
}

func (c *fakeConn) Query(_ context.Context, query string, args ...any) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, fakeCall{query: query, args: args})
	for _, r := range c.responses {
		if strings.Contains(query, r.match) {
			if r.err != nil {
				return nil, r.err
			}
			return &fakeRows{rows: r.rows, pos: -1}, nil
		}
	}

	return &fakeRows{pos: -1}, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos]
	if len(row) != len(dest) {
		return errors.Errorf("scan: expected %d destinations, got %d", len(row), len(dest))
	}

	for i, v := range row {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}

	return nil
}

func (r *fakeRows) ScanStruct(any) error             { return errors.New("not supported") }
func (r *fakeRows) ColumnTypes() []driver.ColumnType { return nil }
func (r *fakeRows) Totals(...any) error              { return nil }
func (r *fakeRows) Columns() []string                { return nil }
func (r *fakeRows) Close() error                     { return nil }
func (r *fakeRows) Err() error                       { return r.err }
