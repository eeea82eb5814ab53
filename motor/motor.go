// Package motor is the database access boundary: it runs statements over
// a single PostgreSQL connection, streams rows and allocates keys. It makes
// no decisions about SQL text.
package motor

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ridoystarlord/relmap/database"
	"github.com/sirupsen/logrus"
)

// Querier is the statement surface shared by pgx connections and
// transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Tx is an open transaction. pgx.Tx implements it.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Conn is a database connection able to start transactions.
type Conn interface {
	Begin(ctx context.Context) (Tx, error)
	Close(ctx context.Context) error
}

// Rows is a forward-only cursor over a query result. pgx.Rows implements it.
type Rows interface {
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// PgxConn adapts *pgx.Conn to Conn.
type PgxConn struct {
	*pgx.Conn
}

func (c PgxConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.Conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Motor executes statements over one connection. Statements run inside a
// transaction which is started by the first statement after connecting,
// committing or rolling back; callers decide where transactions end.
//
// A Motor is not safe for concurrent use. Holding an open Rows while
// issuing another statement is not supported.
type Motor struct {
	conn   Conn
	tx     Tx
	closed bool
	log    logrus.FieldLogger
}

// Option configures a Motor.
type Option func(*Motor)

// WithLogger sets the logger used for debug output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Motor) {
		m.log = l
	}
}

// New creates a Motor without a connection, see Connect.
func New(opts ...Option) *Motor {
	m := &Motor{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithField("component", "motor")
	return m
}

// NewWithConn creates a Motor using an already open connection.
func NewWithConn(conn Conn, opts ...Option) *Motor {
	m := New(opts...)
	m.conn = conn
	return m
}

// Connect opens the database connection.
func (m *Motor) Connect(ctx context.Context, dsn string) error {
	conn, err := database.Connect(ctx, dsn)
	if err != nil {
		return &ConnectionError{Op: "connect", Err: err}
	}
	m.conn = PgxConn{conn}
	m.closed = false
	m.log.Info("connected to database")
	return nil
}

// Connected reports whether there is an active connection.
func (m *Motor) Connected() bool {
	return m.conn != nil
}

// Close closes the connection, discarding an uncommitted transaction.
// Closing twice is fine; closing a Motor that never connected is not.
func (m *Motor) Close(ctx context.Context) error {
	if m.conn == nil {
		if m.closed {
			return nil
		}
		return &ConnectionError{Op: "close"}
	}
	var err error
	if m.tx != nil {
		err = m.tx.Rollback(ctx)
		m.tx = nil
	}
	err = errors.Join(err, m.conn.Close(ctx))
	m.conn = nil
	m.closed = true
	m.log.Debug("database connection closed")
	return err
}

// querier returns the current transaction, starting one when needed.
func (m *Motor) querier(ctx context.Context, op string) (Querier, error) {
	if m.conn == nil {
		return nil, &ConnectionError{Op: op}
	}
	if m.tx == nil {
		tx, err := m.conn.Begin(ctx)
		if err != nil {
			return nil, &ConnectionError{Op: op, Err: err}
		}
		m.tx = tx
	}
	return m.tx, nil
}

// Query runs a query and returns its rows. The rows are fetched lazily
// while iterating and must be closed by the caller.
func (m *Motor) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	q, err := m.querier(ctx, "query")
	if err != nil {
		return nil, err
	}
	m.log.WithField("query", sql).Debug("executing query")
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, &ExecutionError{Query: sql, Err: err}
	}
	return rows, nil
}

// Execute runs a single statement.
func (m *Motor) Execute(ctx context.Context, sql string, args ...any) error {
	q, err := m.querier(ctx, "execute")
	if err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{"query": sql, "args": args}).Debug("executing statement")
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return &ExecutionError{Query: sql, Err: err}
	}
	return nil
}

// ExecuteBatch runs the statement once per parameter tuple, sending all
// of them in a single round trip.
func (m *Motor) ExecuteBatch(ctx context.Context, sql string, params [][]any) error {
	q, err := m.querier(ctx, "execute batch")
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range params {
		batch.Queue(sql, p...)
	}
	m.log.WithFields(logrus.Fields{"query": sql, "size": len(params)}).Debug("executing batch")
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return &ExecutionError{Query: sql, Err: err}
	}
	return nil
}

// NextKey runs the sequencer query and returns the single value it yields.
func (m *Motor) NextKey(ctx context.Context, sql string) (any, error) {
	q, err := m.querier(ctx, "next key")
	if err != nil {
		return nil, err
	}
	var key any
	if err := q.QueryRow(ctx, sql).Scan(&key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &KeyAllocationError{Query: sql}
		}
		return nil, &ExecutionError{Query: sql, Err: err}
	}
	if key == nil {
		return nil, &KeyAllocationError{Query: sql}
	}
	m.log.WithFields(logrus.Fields{"query": sql, "key": key}).Debug("key allocated")
	return key, nil
}

// Commit commits the current transaction, if any.
func (m *Motor) Commit(ctx context.Context) error {
	if m.conn == nil {
		return &ConnectionError{Op: "commit"}
	}
	if m.tx == nil {
		return nil
	}
	tx := m.tx
	m.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return &ExecutionError{Query: "COMMIT", Err: err}
	}
	m.log.Debug("transaction committed")
	return nil
}

// Rollback rolls the current transaction back, if any.
func (m *Motor) Rollback(ctx context.Context) error {
	if m.conn == nil {
		return &ConnectionError{Op: "rollback"}
	}
	if m.tx == nil {
		return nil
	}
	tx := m.tx
	m.tx = nil
	if err := tx.Rollback(ctx); err != nil {
		return &ExecutionError{Query: "ROLLBACK", Err: err}
	}
	m.log.Debug("transaction rolled back")
	return nil
}
