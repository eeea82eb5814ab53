// Package mapper turns class schemas into SQL and moves objects between
// memory and relations through a Motor.
package mapper

import (
	"context"
	"fmt"
	"iter"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/ridoystarlord/relmap/motor"
	"github.com/ridoystarlord/relmap/schema"
	"github.com/sirupsen/logrus"
)

// Motor is the database boundary the mapper drives. *motor.Motor
// implements it.
type Motor interface {
	Query(ctx context.Context, sql string, args ...any) (motor.Rows, error)
	Execute(ctx context.Context, sql string, args ...any) error
	ExecuteBatch(ctx context.Context, sql string, params [][]any) error
	NextKey(ctx context.Context, sql string) (any, error)
}

var _ Motor = (*motor.Motor)(nil)

// Row maps relation column names to values.
type Row map[string]any

// Pair is one row of a many-to-many link relation. Own is the key of an
// object of the mapped class, Peer the key of the associated object.
type Pair struct {
	Own  any
	Peer any
}

// Convertor maps objects of one class. Statements are compiled when the
// Convertor is created and never change afterwards.
type Convertor struct {
	stmts *Statements
	motor Motor
	log   logrus.FieldLogger
}

// Option configures a Convertor.
type Option func(*Convertor)

// WithLogger sets the logger used for debug output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Convertor) {
		c.log = l
	}
}

// New compiles the statements for cls and binds them to m.
func New(cls *schema.ClassSchema, m Motor, opts ...Option) (*Convertor, error) {
	stmts, err := Compile(cls)
	if err != nil {
		return nil, err
	}
	c := &Convertor{
		stmts: stmts,
		motor: m,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithFields(logrus.Fields{"component": "mapper", "class": cls.Name})
	for _, sql := range stmts.All() {
		c.log.WithField("query", sql).Debug("compiled statement")
	}
	return c, nil
}

// Class returns the mapped class.
func (c *Convertor) Class() *schema.ClassSchema { return c.stmts.Class }

// Statements returns the compiled statements.
func (c *Convertor) Statements() *Statements { return c.stmts }

// Columns returns the relation column names in statement order.
func (c *Convertor) Columns() []string {
	return append([]string(nil), c.stmts.Columns...)
}

// LoadAll streams every object stored in the class relation. Rows are
// fetched while ranging; stopping early closes the cursor. The returned
// sequence can be ranged once, call LoadAll again to reload.
//
// Plain columns are assigned to their attribute. One-to-one columns are
// assigned, as raw keys, to the attribute named by the relation column;
// resolving them into objects is left to the caller.
func (c *Convertor) LoadAll(ctx context.Context) iter.Seq2[schema.Object, error] {
	used := false
	return func(yield func(schema.Object, error) bool) {
		if used {
			yield(nil, ErrSequenceConsumed)
			return
		}
		used = true

		rows, err := c.motor.Query(ctx, c.stmts.Load)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				yield(nil, err)
				return
			}
			obj, err := c.hydrate(values)
			if !yield(obj, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (c *Convertor) hydrate(values []any) (schema.Object, error) {
	if len(values) != len(c.stmts.ordered)+1 {
		return nil, fmt.Errorf("%w: %d values for %d columns of %s", ErrRowShape, len(values), len(c.stmts.ordered)+1, c.stmts.Class.Relation)
	}
	obj := c.stmts.Class.New()
	obj.SetKey(values[0])
	for i, col := range c.stmts.ordered {
		if col.IsOneToOne() {
			obj.SetAttr(col.Col, values[i+1])
		} else {
			obj.SetAttr(col.Attr, values[i+1])
		}
	}
	return obj, nil
}

// keyer is anything carrying a primary key, such as a schema.Object.
type keyer interface {
	Key() any
}

// ExtractRow returns the relation row of obj. One-to-one attributes are
// flattened to the key of the referenced object; an unset reference gives
// nil and a value which is not an object is taken as the key itself. When
// the attribute is unset the raw foreign key stored under the column name,
// as LoadAll leaves it, is used.
func (c *Convertor) ExtractRow(obj schema.Object) Row {
	row := make(Row, len(c.stmts.ordered))
	for _, col := range c.stmts.ordered {
		v := obj.Attr(col.Attr)
		if col.IsOneToOne() {
			if v == nil && col.Attr != col.Col {
				v = obj.Attr(col.Col)
			}
			v = referenceKey(v)
		}
		row[col.Col] = v
	}
	return row
}

// referenceKey returns the key of a referenced object, nil for a nil
// object pointer, and v itself for anything else.
func referenceKey(v any) any {
	k, ok := v.(keyer)
	if !ok {
		return v
	}
	if rv := reflect.ValueOf(k); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return k.Key()
}

func (c *Convertor) values(obj schema.Object) []any {
	row := c.ExtractRow(obj)
	values := make([]any, 0, len(c.stmts.Columns)+1)
	for _, col := range c.stmts.Columns {
		values = append(values, row[col])
	}
	return values
}

// Add stores a new object. A key is allocated from the sequencer first and
// assigned to obj once the insert succeeded.
func (c *Convertor) Add(ctx context.Context, obj schema.Object) error {
	key, err := c.motor.NextKey(ctx, c.stmts.NextKey)
	if err != nil {
		return err
	}
	args := pgx.NamedArgs{keyParam: key}
	for i, v := range c.values(obj) {
		args[c.stmts.params[i]] = v
	}
	if err := c.motor.Execute(ctx, c.stmts.Insert, args); err != nil {
		return err
	}
	obj.SetKey(key)
	c.log.WithField("key", key).Debug("object added")
	return nil
}

// Update writes all mapped columns of a stored object.
func (c *Convertor) Update(ctx context.Context, obj schema.Object) error {
	key := obj.Key()
	if key == nil {
		return ErrKeyUnset
	}
	if c.stmts.Update == "" {
		return nil
	}
	args := append(c.values(obj), key)
	return c.motor.Execute(ctx, c.stmts.Update, args...)
}

// Delete removes a stored object. Its key is left untouched.
func (c *Convertor) Delete(ctx context.Context, obj schema.Object) error {
	key := obj.Key()
	if key == nil {
		return ErrKeyUnset
	}
	return c.motor.Execute(ctx, c.stmts.Delete, key)
}

func (c *Convertor) pairs(attr string) (*PairStatements, error) {
	ps, ok := c.stmts.Pairs[attr]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAssociation, c.stmts.Class.Name, attr)
	}
	return ps, nil
}

// LoadPairs streams all rows of the link relation of a many-to-many
// association. Like LoadAll, the sequence can be ranged once.
func (c *Convertor) LoadPairs(ctx context.Context, attr string) iter.Seq2[Pair, error] {
	used := false
	return func(yield func(Pair, error) bool) {
		ps, err := c.pairs(attr)
		if err != nil {
			yield(Pair{}, err)
			return
		}
		if used {
			yield(Pair{}, ErrSequenceConsumed)
			return
		}
		used = true

		rows, err := c.motor.Query(ctx, ps.Load)
		if err != nil {
			yield(Pair{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			values, err := rows.Values()
			if err == nil && len(values) != 2 {
				err = fmt.Errorf("%w: %d values for link relation %s", ErrRowShape, len(values), ps.Column.Link)
			}
			if err != nil {
				yield(Pair{}, err)
				return
			}
			if !yield(Pair{Own: values[0], Peer: values[1]}, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Pair{}, err)
		}
	}
}

// AddPairs inserts link rows in one batch.
func (c *Convertor) AddPairs(ctx context.Context, attr string, pairs []Pair) error {
	ps, err := c.pairs(attr)
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"association": attr, "link": ps.Column.Link, "count": len(pairs)}).Debug("adding pairs")
	return c.motor.ExecuteBatch(ctx, ps.Insert, pairParams(pairs))
}

// DeletePairs removes link rows in one batch.
func (c *Convertor) DeletePairs(ctx context.Context, attr string, pairs []Pair) error {
	ps, err := c.pairs(attr)
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"association": attr, "link": ps.Column.Link, "count": len(pairs)}).Debug("deleting pairs")
	return c.motor.ExecuteBatch(ctx, ps.Delete, pairParams(pairs))
}

func pairParams(pairs []Pair) [][]any {
	params := make([][]any, len(pairs))
	for i, p := range pairs {
		params[i] = []any{p.Own, p.Peer}
	}
	return params
}
