package introspect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ridoystarlord/relmap/motor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogRows struct {
	rows [][]any
	pos  int
}

func (r *catalogRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *catalogRows) Values() ([]any, error) { return r.rows[r.pos-1], nil }
func (r *catalogRows) Err() error             { return nil }
func (r *catalogRows) Close()                 {}

// catalog answers the catalog queries from in-memory tables.
type catalog struct {
	columns map[string][][]any
	fks     map[string][][]any
	seqs    []string
	fail    error
}

func (c *catalog) Query(ctx context.Context, sql string, args ...any) (motor.Rows, error) {
	if c.fail != nil {
		return nil, c.fail
	}
	var rows [][]any
	switch sql {
	case tablesQuery:
		for _, name := range []string{"employee_orders", "order"} {
			rows = append(rows, []any{name})
		}
	case columnsQuery:
		rows = c.columns[args[0].(string)]
	case foreignKeysQuery:
		rows = c.fks[args[0].(string)]
	case sequencesQuery:
		for _, s := range c.seqs {
			rows = append(rows, []any{s})
		}
	default:
		return nil, errors.New("unexpected query: " + strings.TrimSpace(sql))
	}
	return &catalogRows{rows: rows}, nil
}

func TestIntrospectDatabase(t *testing.T) {
	c := &catalog{
		columns: map[string][][]any{
			"order": {
				{"__key__", "integer", false, true},
				{"no", "integer", true, false},
			},
			"employee_orders": {
				{"employee", "integer", false, true},
				{"order", "integer", false, true},
			},
		},
		fks: map[string][][]any{
			"employee_orders": {
				{"employee_orders_order_fkey", "order", "order", "__key__", true},
			},
		},
		seqs: []string{"order_seq"},
	}

	snap, err := IntrospectDatabase(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, snap.Tables, 2)

	order, ok := snap.Table("order")
	require.True(t, ok)
	assert.Equal(t, []ExistingColumn{
		{ColumnName: "__key__", DataType: "integer", IsPrimaryKey: true},
		{ColumnName: "no", DataType: "integer", IsNullable: true},
	}, order.Columns)
	assert.Empty(t, order.ForeignKeys)

	link, ok := snap.Table("employee_orders")
	require.True(t, ok)
	assert.Equal(t, []ExistingForeignKey{{
		ConstraintName:   "employee_orders_order_fkey",
		ColumnName:       "order",
		ReferencesTable:  "order",
		ReferencesColumn: "__key__",
		Deferrable:       true,
	}}, link.ForeignKeys)

	assert.True(t, snap.HasSequence("order_seq"))
	assert.False(t, snap.HasSequence("employee_seq"))
	_, ok = snap.Table("employee")
	assert.False(t, ok)
}

func TestIntrospectDatabaseErrors(t *testing.T) {
	lost := errors.New("connection lost")
	_, err := IntrospectDatabase(context.Background(), &catalog{fail: lost})
	assert.ErrorIs(t, err, lost)

	c := &catalog{columns: map[string][][]any{"order": {{"no", "integer"}}}}
	_, err = IntrospectDatabase(context.Background(), c)
	assert.ErrorContains(t, err, "expected 4 values")
}
