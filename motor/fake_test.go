package motor

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeConn records transactions it hands out.
type fakeConn struct {
	txs      []*fakeTx
	beginErr error
	closed   bool
	// next configures every transaction started afterwards
	next fakeTx
}

func (c *fakeConn) Begin(ctx context.Context) (Tx, error) {
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	tx := c.next
	tx.execs = nil
	tx.batches = nil
	c.txs = append(c.txs, &tx)
	return &tx, nil
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

type execCall struct {
	sql  string
	args []any
}

type fakeTx struct {
	execs      []execCall
	batches    [][]execCall
	rows       [][]any
	key        any
	noKey      bool
	scanErr    error
	execErr    error
	batchErr   error
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, execCall{sql, args})
	return pgconn.CommandTag{}, tx.execErr
}

func (tx *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	tx.execs = append(tx.execs, execCall{sql, args})
	return &fakeRows{rows: tx.rows}, nil
}

func (tx *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	tx.execs = append(tx.execs, execCall{sql, args})
	return fakeRow{tx: tx}
}

func (tx *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	var calls []execCall
	for _, q := range b.QueuedQueries {
		calls = append(calls, execCall{q.SQL, q.Arguments})
	}
	tx.batches = append(tx.batches, calls)
	return fakeBatchResults{err: tx.batchErr}
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	tx.rolledBack = true
	return nil
}

type fakeRow struct {
	tx *fakeTx
}

func (r fakeRow) Scan(dest ...any) error {
	if r.tx.scanErr != nil {
		return r.tx.scanErr
	}
	if r.tx.noKey {
		return pgx.ErrNoRows
	}
	p, ok := dest[0].(*any)
	if !ok {
		return errors.New("unexpected scan destination")
	}
	*p = r.tx.key
	return nil
}

type fakeRows struct {
	rows   [][]any
	pos    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return errors.New("not supported")
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos-1], nil
}

type fakeBatchResults struct {
	err error
}

func (b fakeBatchResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, b.err }
func (b fakeBatchResults) Query() (pgx.Rows, error)         { return nil, b.err }
func (b fakeBatchResults) QueryRow() pgx.Row                { return nil }
func (b fakeBatchResults) Close() error                     { return b.err }
