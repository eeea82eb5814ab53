package mapper

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ridoystarlord/relmap/schema"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConvertor(t *testing.T, cls *schema.ClassSchema, m Motor) *Convertor {
	t.Helper()
	logger, _ := test.NewNullLogger()
	c, err := New(cls, m, WithLogger(logger))
	require.NoError(t, err)
	return c
}

func TestNewReportsCompileErrors(t *testing.T) {
	employee, err := schema.New("Employee")
	require.NoError(t, err)
	order := orderClass(t)
	_, err = employee.AddColumn(schema.ColumnSpec{
		Attr: "orders", Col: "employee", VClass: order,
		Link: "employee_orders", VCol: "order", VAttr: "employees",
	})
	require.NoError(t, err)

	_, err = New(employee, newFakeMotor())
	var ae *schema.AssociationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "orders", ae.Attr)
}

func TestNewLogsStatements(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	_, err := New(orderClass(t), newFakeMotor(), WithLogger(logger))
	require.NoError(t, err)

	require.Len(t, hook.Entries, 5)
	assert.Equal(t, `SELECT "__key__", "no", "finished" FROM "order"`, hook.Entries[0].Data["query"])
	assert.Equal(t, "Order", hook.Entries[0].Data["class"])
}

func TestAddOrder(t *testing.T) {
	ctx := context.Background()
	m := newFakeMotor()
	m.keys = []any{int64(7)}
	c := newConvertor(t, orderClass(t), m)

	obj := c.Class().New()
	obj.SetAttr("no", 5)
	obj.SetAttr("finished", false)
	require.NoError(t, c.Add(ctx, obj))

	assert.Equal(t, int64(7), obj.Key())
	require.Equal(t, []string{"key", "execute"}, m.kinds())
	assert.Equal(t, `SELECT nextval('"order_seq"')`, m.calls[0].sql)
	assert.Equal(t, c.Statements().Insert, m.calls[1].sql)
	assert.Equal(t, []any{pgx.NamedArgs{"__key__": int64(7), "no": 5, "finished": false}}, m.calls[1].args)
}

func TestAddKeepsKeyUnsetOnFailure(t *testing.T) {
	ctx := context.Background()

	m := newFakeMotor()
	m.keyErr = errors.New("sequence missing")
	c := newConvertor(t, orderClass(t), m)
	obj := c.Class().New()
	require.ErrorIs(t, c.Add(ctx, obj), m.keyErr)
	assert.Nil(t, obj.Key())
	assert.Equal(t, []string{"key"}, m.kinds(), "no insert without a key")

	m = newFakeMotor()
	m.keys = []any{int64(8)}
	m.execErr = errors.New("not null violation")
	c = newConvertor(t, orderClass(t), m)
	obj = c.Class().New()
	require.ErrorIs(t, c.Add(ctx, obj), m.execErr)
	assert.Nil(t, obj.Key())
}

func TestUpdateAndDeleteTargetKey(t *testing.T) {
	ctx := context.Background()
	m := newFakeMotor()
	c := newConvertor(t, orderClass(t), m)

	obj := c.Class().New()
	obj.SetKey(int64(3))
	obj.SetAttr("no", 9)
	obj.SetAttr("finished", true)

	require.NoError(t, c.Update(ctx, obj))
	require.NoError(t, c.Delete(ctx, obj))
	require.Len(t, m.calls, 2)
	assert.Equal(t, call{"execute", `UPDATE "order" SET "no" = $1, "finished" = $2 WHERE "__key__" = $3`, []any{9, true, int64(3)}}, m.calls[0])
	assert.Equal(t, call{"execute", `DELETE FROM "order" WHERE "__key__" = $1`, []any{int64(3)}}, m.calls[1])
	assert.Equal(t, int64(3), obj.Key(), "delete leaves the key alone")
}

func TestUpdateAndDeleteRequireKey(t *testing.T) {
	ctx := context.Background()
	m := newFakeMotor()
	c := newConvertor(t, orderClass(t), m)

	obj := c.Class().New()
	assert.ErrorIs(t, c.Update(ctx, obj), ErrKeyUnset)
	assert.ErrorIs(t, c.Delete(ctx, obj), ErrKeyUnset)
	assert.Empty(t, m.calls)
}

func TestUpdateWithoutColumns(t *testing.T) {
	cls, err := schema.New("Tag")
	require.NoError(t, err)
	m := newFakeMotor()
	c := newConvertor(t, cls, m)

	obj := cls.New()
	obj.SetKey(1)
	require.NoError(t, c.Update(context.Background(), obj))
	assert.Empty(t, m.calls)
}

func TestExtractRowFlattensReferences(t *testing.T) {
	customer, err := schema.New("Customer")
	require.NoError(t, err)
	cls, err := schema.NewBuilder("Invoice").
		Column(schema.ColumnSpec{Attr: "amount"}).
		Column(schema.ColumnSpec{Attr: "customer", Col: "customer_fkey", VClass: customer}).
		Build()
	require.NoError(t, err)
	c := newConvertor(t, cls, newFakeMotor())

	ref := customer.New()
	ref.SetKey(int64(11))
	obj := cls.New()
	obj.SetAttr("amount", 250)
	obj.SetAttr("customer", ref)
	assert.Equal(t, Row{"amount": 250, "customer_fkey": int64(11)}, c.ExtractRow(obj))

	obj.SetAttr("customer", nil)
	assert.Equal(t, Row{"amount": 250, "customer_fkey": nil}, c.ExtractRow(obj))

	obj.SetAttr("customer", int64(12))
	assert.Equal(t, Row{"amount": 250, "customer_fkey": int64(12)}, c.ExtractRow(obj))

	obj.SetAttr("customer", (*schema.Instance)(nil))
	assert.NotPanics(t, func() {
		assert.Equal(t, Row{"amount": 250, "customer_fkey": nil}, c.ExtractRow(obj))
	})

	loaded := cls.New()
	loaded.SetAttr("amount", 250)
	loaded.SetAttr("customer_fkey", int64(13))
	assert.Equal(t, Row{"amount": 250, "customer_fkey": int64(13)}, c.ExtractRow(loaded))
	loaded.SetAttr("customer", ref)
	assert.Equal(t, Row{"amount": 250, "customer_fkey": int64(11)}, c.ExtractRow(loaded), "the reference wins over the raw key")
}

func TestUpdateKeepsLoadedForeignKeys(t *testing.T) {
	ctx := context.Background()
	customer, err := schema.New("Customer")
	require.NoError(t, err)
	cls, err := schema.NewBuilder("Invoice").
		Column(schema.ColumnSpec{Attr: "customer", Col: "customer_fkey", VClass: customer}).
		Column(schema.ColumnSpec{Attr: "amount"}).
		Build()
	require.NoError(t, err)

	m := newFakeMotor()
	m.rows = [][]any{{int64(1), 100, int64(11)}}
	c := newConvertor(t, cls, m)

	var loaded []schema.Object
	for obj, err := range c.LoadAll(ctx) {
		require.NoError(t, err)
		loaded = append(loaded, obj)
	}
	require.Len(t, loaded, 1)
	assert.Equal(t, Row{"amount": 100, "customer_fkey": int64(11)}, c.ExtractRow(loaded[0]))

	require.NoError(t, c.Update(ctx, loaded[0]))
	last := m.calls[len(m.calls)-1]
	assert.Equal(t, c.Statements().Update, last.sql)
	assert.Equal(t, []any{100, int64(11), int64(1)}, last.args)
}

func TestLoadAll(t *testing.T) {
	customer, err := schema.New("Customer")
	require.NoError(t, err)
	cls, err := schema.NewBuilder("Invoice").
		Column(schema.ColumnSpec{Attr: "customer", Col: "customer_fkey", VClass: customer}).
		Column(schema.ColumnSpec{Attr: "amount"}).
		Build()
	require.NoError(t, err)

	m := newFakeMotor()
	m.rows = [][]any{
		{int64(1), 100, int64(11)},
		{int64(2), 200, nil},
	}
	c := newConvertor(t, cls, m)

	var got []*schema.Instance
	for obj, err := range c.LoadAll(context.Background()) {
		require.NoError(t, err)
		got = append(got, obj.(*schema.Instance))
	}
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Key())
	assert.Equal(t, 100, got[0].Attr("amount"))
	assert.Equal(t, int64(11), got[0].Attr("customer_fkey"), "foreign keys are left unresolved")
	assert.Nil(t, got[0].Attr("customer"))
	assert.Nil(t, got[1].Attr("customer_fkey"))
	assert.True(t, m.lastRows.closed)
}

func TestLoadAllEmpty(t *testing.T) {
	c := newConvertor(t, orderClass(t), newFakeMotor())
	n := 0
	for range c.LoadAll(context.Background()) {
		n++
	}
	assert.Zero(t, n)
}

func TestLoadAllStopsEarly(t *testing.T) {
	m := newFakeMotor()
	m.rows = [][]any{{int64(1), 1, false}, {int64(2), 2, false}, {int64(3), 3, false}}
	c := newConvertor(t, orderClass(t), m)

	seq := c.LoadAll(context.Background())
	for obj, err := range seq {
		require.NoError(t, err)
		assert.Equal(t, int64(1), obj.Key())
		break
	}
	assert.Equal(t, 1, m.lastRows.fetched, "rows are fetched on demand")
	assert.True(t, m.lastRows.closed)

	for _, err := range seq {
		assert.ErrorIs(t, err, ErrSequenceConsumed)
	}

	n := 0
	for _, err := range c.LoadAll(context.Background()) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 3, n)
}

func TestLoadAllErrors(t *testing.T) {
	m := newFakeMotor()
	m.rows = [][]any{{int64(1), 1}}
	c := newConvertor(t, orderClass(t), m)
	for _, err := range c.LoadAll(context.Background()) {
		assert.ErrorIs(t, err, ErrRowShape)
	}

	m = newFakeMotor()
	m.rowsErr = errors.New("connection lost")
	c = newConvertor(t, orderClass(t), m)
	var errs []error
	for _, err := range c.LoadAll(context.Background()) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], m.rowsErr)
}

func TestPairs(t *testing.T) {
	ctx := context.Background()
	employee, _ := employeeOrders(t)
	m := newFakeMotor()
	c := newConvertor(t, employee, m)
	m.pairQuery = c.Statements().Pairs["orders"].Load

	require.NoError(t, c.AddPairs(ctx, "orders", []Pair{{1, 10}, {1, 11}, {2, 10}}))
	require.NoError(t, c.DeletePairs(ctx, "orders", []Pair{{1, 10}}))
	assert.Equal(t, []string{"batch", "batch"}, m.kinds(), "one round trip per call")

	var got []Pair
	for p, err := range c.LoadPairs(ctx, "orders") {
		require.NoError(t, err)
		got = append(got, p)
	}
	assert.ElementsMatch(t, []Pair{{1, 11}, {2, 10}}, got)
}

func TestPairsUnknownAssociation(t *testing.T) {
	ctx := context.Background()
	employee, _ := employeeOrders(t)
	c := newConvertor(t, employee, newFakeMotor())

	assert.ErrorIs(t, c.AddPairs(ctx, "name", []Pair{{1, 2}}), ErrUnknownAssociation)
	assert.ErrorIs(t, c.DeletePairs(ctx, "missing", nil), ErrUnknownAssociation)
	for _, err := range c.LoadPairs(ctx, "name") {
		assert.ErrorIs(t, err, ErrUnknownAssociation)
	}
}

// Objects written with Add come back from LoadAll with the same key and
// attribute values.
func TestRoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("load restores extracted rows", prop.ForAll(
		func(no int, finished bool, note string) bool {
			cls, err := schema.NewBuilder("Order").
				Relation("order").
				Column(schema.ColumnSpec{Attr: "no"}).
				Column(schema.ColumnSpec{Attr: "finished"}).
				Column(schema.ColumnSpec{Attr: "note", Col: "remark"}).
				Build()
			if err != nil {
				return false
			}
			m := newFakeMotor()
			m.keys = []any{int64(no)}
			c, err := New(cls, m, WithLogger(logrus.New()))
			if err != nil {
				return false
			}
			obj := cls.New()
			obj.SetAttr("no", no)
			obj.SetAttr("finished", finished)
			obj.SetAttr("note", note)
			if err := c.Add(context.Background(), obj); err != nil {
				return false
			}

			row := c.ExtractRow(obj)
			stored := []any{obj.Key()}
			for _, col := range c.Columns() {
				stored = append(stored, row[col])
			}
			m.rows = [][]any{stored}

			for loaded, err := range c.LoadAll(context.Background()) {
				if err != nil {
					return false
				}
				return loaded.Key() == obj.Key() &&
					loaded.Attr("no") == no &&
					loaded.Attr("finished") == finished &&
					loaded.Attr("note") == note
			}
			return false
		},
		gen.Int(),
		gen.Bool(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
