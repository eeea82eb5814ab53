package mapper

import (
	"context"
	"strings"

	"github.com/ridoystarlord/relmap/motor"
)

type call struct {
	kind string
	sql  string
	args []any
}

// fakeMotor keeps a result set for loads and a link relation in memory.
type fakeMotor struct {
	calls []call

	rows      [][]any
	rowsErr   error
	lastRows  *fakeRows
	pairQuery string
	pairs     map[Pair]bool

	keys    []any
	keyErr  error
	execErr error
}

func newFakeMotor() *fakeMotor {
	return &fakeMotor{pairs: map[Pair]bool{}}
}

func (m *fakeMotor) Query(ctx context.Context, sql string, args ...any) (motor.Rows, error) {
	m.calls = append(m.calls, call{"query", sql, args})
	if sql == m.pairQuery {
		var rows [][]any
		for p := range m.pairs {
			rows = append(rows, []any{p.Own, p.Peer})
		}
		m.lastRows = &fakeRows{rows: rows}
		return m.lastRows, nil
	}
	m.lastRows = &fakeRows{rows: m.rows, err: m.rowsErr}
	return m.lastRows, nil
}

func (m *fakeMotor) Execute(ctx context.Context, sql string, args ...any) error {
	m.calls = append(m.calls, call{"execute", sql, args})
	return m.execErr
}

func (m *fakeMotor) ExecuteBatch(ctx context.Context, sql string, params [][]any) error {
	var args []any
	for _, p := range params {
		args = append(args, p)
	}
	m.calls = append(m.calls, call{"batch", sql, args})
	if m.execErr != nil {
		return m.execErr
	}
	for _, p := range params {
		pair := Pair{Own: p[0], Peer: p[1]}
		switch {
		case strings.HasPrefix(sql, "INSERT"):
			m.pairs[pair] = true
		case strings.HasPrefix(sql, "DELETE"):
			delete(m.pairs, pair)
		}
	}
	return nil
}

func (m *fakeMotor) NextKey(ctx context.Context, sql string) (any, error) {
	m.calls = append(m.calls, call{"key", sql, nil})
	if m.keyErr != nil {
		return nil, m.keyErr
	}
	key := m.keys[0]
	m.keys = m.keys[1:]
	return key, nil
}

func (m *fakeMotor) kinds() []string {
	var res []string
	for _, c := range m.calls {
		res = append(res, c.kind)
	}
	return res
}

type fakeRows struct {
	rows    [][]any
	pos     int
	fetched int
	err     error
	closed  bool
}

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	r.fetched++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.pos-1], nil }
func (r *fakeRows) Err() error             { return r.err }
func (r *fakeRows) Close()                 { r.closed = true }
