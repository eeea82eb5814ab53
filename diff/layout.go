package diff

import (
	"fmt"

	"github.com/ridoystarlord/relmap/mapper"
	"github.com/ridoystarlord/relmap/schema"
)

const (
	// KeyType is the SQL type of primary and foreign key columns.
	KeyType = "integer"
	// DefaultType is used for plain columns declaring no type.
	DefaultType = "text"
)

// Table is a relation the mapped classes need.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

type Column struct {
	Name    string
	Type    string
	NotNull bool
}

// ForeignKey references the primary key of another relation. All foreign
// keys are deferred to the end of the transaction, so objects referencing
// each other can be stored in any order.
type ForeignKey struct {
	Name       string
	Table      string
	Column     string
	References string
}

// Target is the complete layout of a registry: a sequence and a relation
// per class, a link relation per many-to-many association and the foreign
// keys between them.
type Target struct {
	Sequences   []string
	Tables      []Table
	ForeignKeys []ForeignKey
}

// Table returns the named table.
func (t *Target) Table(name string) (*Table, bool) {
	for i := range t.Tables {
		if t.Tables[i].Name == name {
			return &t.Tables[i], true
		}
	}
	return nil, false
}

func foreignKey(table, column, references string) ForeignKey {
	return ForeignKey{
		Name:       fmt.Sprintf("%s_%s_fkey", table, column),
		Table:      table,
		Column:     column,
		References: references,
	}
}

// Layout derives the relational layout of all registered classes. The
// relation of a derived class holds inherited columns too.
func Layout(reg *schema.Registry) (*Target, error) {
	t := &Target{}
	owners := map[string]string{}
	claim := func(cls *schema.ClassSchema, relation string) error {
		if owner, ok := owners[relation]; ok {
			return &schema.SchemaError{Class: cls.Name, Msg: fmt.Sprintf("relation %q already used by %s", relation, owner)}
		}
		owners[relation] = cls.Name
		return nil
	}

	links := map[string]bool{}
	for _, cls := range reg.Classes() {
		stmts, err := mapper.Compile(cls)
		if err != nil {
			return nil, err
		}
		if err := claim(cls, cls.Relation); err != nil {
			return nil, err
		}
		t.Sequences = append(t.Sequences, cls.Sequencer)

		table := Table{
			Name:       cls.Relation,
			Columns:    []Column{{Name: schema.KeyColumn, Type: KeyType, NotNull: true}},
			PrimaryKey: []string{schema.KeyColumn},
		}
		for _, col := range stmts.OrderedColumns() {
			if col.IsOneToOne() {
				table.Columns = append(table.Columns, Column{Name: col.Col, Type: KeyType})
				t.ForeignKeys = append(t.ForeignKeys, foreignKey(cls.Relation, col.Col, col.VClass.Relation))
				continue
			}
			typ := col.Type
			if typ == "" {
				typ = DefaultType
			}
			table.Columns = append(table.Columns, Column{Name: col.Col, Type: typ})
		}
		t.Tables = append(t.Tables, table)
	}

	// link relations come after class relations; both sides of a
	// bi-directional association share one
	for _, cls := range reg.Classes() {
		for _, col := range cls.Columns() {
			if !col.IsManyToMany() || links[col.Link] {
				continue
			}
			if err := claim(cls, col.Link); err != nil {
				return nil, err
			}
			links[col.Link] = true
			t.Tables = append(t.Tables, Table{
				Name: col.Link,
				Columns: []Column{
					{Name: col.Col, Type: KeyType, NotNull: true},
					{Name: col.VCol, Type: KeyType, NotNull: true},
				},
				PrimaryKey: []string{col.Col, col.VCol},
			})
			t.ForeignKeys = append(t.ForeignKeys,
				foreignKey(col.Link, col.Col, declaring(cls, col).Relation),
				foreignKey(col.Link, col.VCol, col.VClass.Relation),
			)
		}
	}
	return t, nil
}

// declaring returns the class in the hierarchy of cls which declares col.
func declaring(cls *schema.ClassSchema, col *schema.Column) *schema.ClassSchema {
	for _, own := range cls.OwnColumns() {
		if own == col {
			return cls
		}
	}
	for _, b := range cls.Bases() {
		if _, ok := b.Column(col.Attr); ok {
			if d := declaring(b, col); d != nil {
				return d
			}
		}
	}
	return nil
}
