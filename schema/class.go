package schema

import (
	"fmt"
	"maps"
)

// ClassSchema is the relational identity of an application class: the
// relation it is stored in, the sequencer generating its primary keys and
// the attribute descriptions, own and inherited.
//
// A ClassSchema is configured once and is read-only afterwards, except
// for AddColumn calls appending new columns. Configuration must be done
// before the schema is shared between goroutines.
type ClassSchema struct {
	Name      string
	Relation  string
	Sequencer string
	Module    string
	Cache     CacheStrategy

	bases    []*ClassSchema
	columns  []*Column
	byAttr   map[string]*Column
	defaults map[string]any
}

// Option configures a ClassSchema created with New.
type Option func(*ClassSchema)

// WithRelation sets the relation name. The class name is used by default.
func WithRelation(relation string) Option {
	return func(c *ClassSchema) {
		c.Relation = relation
	}
}

// WithSequencer sets the primary key sequencer name, <relation>_seq by default.
func WithSequencer(sequencer string) Option {
	return func(c *ClassSchema) {
		c.Sequencer = sequencer
	}
}

// WithBases sets the classes the new class inherits columns and defaults from.
func WithBases(bases ...*ClassSchema) Option {
	return func(c *ClassSchema) {
		c.bases = append(c.bases, bases...)
	}
}

// WithModule tags the class with the module it belongs to.
func WithModule(module string) Option {
	return func(c *ClassSchema) {
		c.Module = module
	}
}

// WithDefaults sets extra default attribute values.
func WithDefaults(defaults map[string]any) Option {
	return func(c *ClassSchema) {
		maps.Copy(c.defaults, defaults)
	}
}

// New configures a class. Defaults given with WithDefaults are applied on
// top of the defaults of the base classes.
func New(name string, opts ...Option) (*ClassSchema, error) {
	c := &ClassSchema{
		Name:     name,
		Relation: name,
		Cache:    FullObject,
		byAttr:   map[string]*Column{},
		defaults: map[string]any{},
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, b := range c.bases {
		if b == nil {
			return nil, &SchemaError{Class: name, Msg: "nil base class"}
		}
	}

	if c.Relation == "" {
		return nil, &SchemaError{Class: name, Msg: "missing relation name"}
	}
	if c.Sequencer == "" {
		c.Sequencer = fmt.Sprintf("%s_seq", c.Relation)
	}
	return c, nil
}

// AddColumn adds an attribute description to the class. This is the only
// way associations are declared; for a bi-directional association the
// caller declares the mirrored column on the referenced class too.
func (c *ClassSchema) AddColumn(spec ColumnSpec) (*Column, error) {
	col := newColumn(spec)

	if col.Attr == "" {
		return nil, &ColumnError{Class: c.Name, Msg: "missing attribute name"}
	}
	if _, ok := c.byAttr[col.Attr]; ok {
		return nil, &ColumnError{Class: c.Name, Attr: col.Attr, Msg: "column already defined"}
	}
	if err := c.checkKind(col); err != nil {
		return nil, err
	}

	c.defaults[col.Attr] = nil
	if col.IsOneToOne() && col.Attr != col.Col {
		c.defaults[col.Col] = nil
	}
	if col.IsMany() {
		col.Cache = FullAssociation
	}

	c.columns = append(c.columns, col)
	c.byAttr[col.Attr] = col
	return col, nil
}

func (c *ClassSchema) checkKind(col *Column) error {
	if col.Kind() != Invalid {
		return nil
	}
	var msg string
	switch {
	case col.VClass == nil:
		msg = "association fields given without referenced class"
	case col.Link != "" && col.VCol == "":
		msg = "many-to-many association requires link relation column"
	case col.Link == "" && col.VCol != "" && col.VAttr == "":
		msg = "one-to-many association must be bi-directional"
	default:
		msg = "ambiguous association"
	}
	return &ColumnError{Class: c.Name, Attr: col.Attr, Msg: msg}
}

// Bases returns the classes this class inherits from.
func (c *ClassSchema) Bases() []*ClassSchema {
	return append([]*ClassSchema(nil), c.bases...)
}

// OwnColumns returns columns declared on this class, in declaration order.
func (c *ClassSchema) OwnColumns() []*Column {
	return append([]*Column(nil), c.columns...)
}

// Columns returns all columns including inherited ones. Base classes are
// visited depth-first in declaration order, then own columns; a later
// declaration of the same attribute replaces the earlier one in place.
func (c *ClassSchema) Columns() []*Column {
	var order []string
	cols := map[string]*Column{}
	c.collect(&order, cols)

	res := make([]*Column, len(order))
	for i, attr := range order {
		res[i] = cols[attr]
	}
	return res
}

// ColumnMap returns all columns including inherited ones keyed by attribute.
func (c *ClassSchema) ColumnMap() map[string]*Column {
	var order []string
	cols := map[string]*Column{}
	c.collect(&order, cols)
	return cols
}

func (c *ClassSchema) collect(order *[]string, cols map[string]*Column) {
	for _, b := range c.bases {
		b.collect(order, cols)
	}
	for _, col := range c.columns {
		if _, ok := cols[col.Attr]; !ok {
			*order = append(*order, col.Attr)
		}
		cols[col.Attr] = col
	}
}

// Column looks up a column, own or inherited, by attribute name.
func (c *ClassSchema) Column(attr string) (*Column, bool) {
	if col, ok := c.byAttr[attr]; ok {
		return col, true
	}
	col, ok := c.ColumnMap()[attr]
	return col, ok
}

// Defaults returns the default attribute values: those of every base, in
// declaration order, then own ones.
func (c *ClassSchema) Defaults() map[string]any {
	res := map[string]any{}
	for _, b := range c.bases {
		maps.Copy(res, b.Defaults())
	}
	maps.Copy(res, c.defaults)
	return res
}

// New creates an instance with every default attribute set and no key.
func (c *ClassSchema) New() *Instance {
	return &Instance{
		class: c,
		attrs: c.Defaults(),
	}
}

func (c *ClassSchema) String() string {
	return c.Name
}
