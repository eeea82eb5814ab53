package schema

// KeyColumn is the primary key column carried by every mapped relation.
const KeyColumn = "__key__"

// Kind classifies what a column describes.
type Kind string

const (
	Plain      Kind = "plain"
	OneToOne   Kind = "one-to-one"
	OneToMany  Kind = "one-to-many"
	ManyToMany Kind = "many-to-many"
	Invalid    Kind = "invalid"
)

// CacheStrategy tells an external identity map how to keep objects or
// association extents around. The core only selects it.
type CacheStrategy string

const (
	FullObject      CacheStrategy = "full-object"
	FullAssociation CacheStrategy = "full-association"
)

// ColumnSpec declares one class attribute. Leaving VClass nil declares a
// plain attribute; the remaining association fields pick the topology.
type ColumnSpec struct {
	Attr     string
	Col      string
	VClass   *ClassSchema
	Link     string
	VCol     string
	VAttr    string
	NoUpdate bool
	Type     string
}

// Column describes an application class attribute: either a plain value
// stored in a relation column or an association with another class.
type Column struct {
	Attr string // application attribute name
	Col  string // relation column name, Attr by default

	VClass *ClassSchema // referenced class
	Link   string       // many-to-many link relation
	VCol   string       // column of referenced or link relation
	VAttr  string       // attribute of referenced class glueing a bi-directional association

	// Update is used with one-to-many associations. When set, changing the
	// collection rewrites foreign keys of referenced rows, otherwise rows
	// are only added and removed.
	Update bool

	// Cache is the association cache strategy, set for "many" columns only.
	Cache CacheStrategy

	// Type is the SQL type used when generating DDL.
	Type string
}

func newColumn(spec ColumnSpec) *Column {
	col := &Column{
		Attr:   spec.Attr,
		Col:    spec.Col,
		VClass: spec.VClass,
		Link:   spec.Link,
		VCol:   spec.VCol,
		VAttr:  spec.VAttr,
		Update: !spec.NoUpdate,
		Type:   spec.Type,
	}
	if col.Col == "" {
		col.Col = col.Attr
	}
	return col
}

func (c *Column) IsPlain() bool {
	return c.VClass == nil
}

func (c *Column) IsOneToOne() bool {
	return c.VClass != nil && c.Link == "" && c.VCol == ""
}

func (c *Column) IsOneToMany() bool {
	return c.VClass != nil && c.Link == "" && c.VCol != "" && c.VAttr != ""
}

func (c *Column) IsManyToMany() bool {
	return c.VClass != nil && c.Col != "" && c.Link != "" && c.VCol != ""
}

func (c *Column) IsBidir() bool {
	return c.VClass != nil && c.VAttr != ""
}

// IsMany reports one-to-many and many-to-many associations.
func (c *Column) IsMany() bool {
	return c.IsOneToMany() || c.IsManyToMany()
}

// Kind returns the classification computed from the current field values.
func (c *Column) Kind() Kind {
	switch {
	case c.IsPlain():
		if c.Link != "" || c.VCol != "" || c.VAttr != "" {
			return Invalid
		}
		return Plain
	case c.IsOneToOne():
		return OneToOne
	case c.IsOneToMany():
		return OneToMany
	case c.IsManyToMany():
		return ManyToMany
	}
	return Invalid
}

// Partner returns the column on the referenced class mirroring this
// association, if the association is bi-directional and the mirror is declared.
func (c *Column) Partner() (*Column, bool) {
	if !c.IsBidir() {
		return nil, false
	}
	return c.VClass.Column(c.VAttr)
}
