package loader

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/relmap/schema"
)

// ClassDef is the declarative form of a class, as read from a schema file
// or from tagged structs.
type ClassDef struct {
	Name      string         `yaml:"name"`
	Relation  string         `yaml:"relation,omitempty"`
	Sequencer string         `yaml:"sequencer,omitempty"`
	Module    string         `yaml:"module,omitempty"`
	Bases     []string       `yaml:"bases,omitempty"`
	Defaults  map[string]any `yaml:"defaults,omitempty"`
	Columns   []ColumnDef    `yaml:"columns,omitempty"`
}

// ColumnDef declares one attribute. Class names the referenced class of an
// association.
type ColumnDef struct {
	Attr     string `yaml:"attr"`
	Col      string `yaml:"col,omitempty"`
	Class    string `yaml:"class,omitempty"`
	Link     string `yaml:"link,omitempty"`
	VCol     string `yaml:"vcol,omitempty"`
	VAttr    string `yaml:"vattr,omitempty"`
	NoUpdate bool   `yaml:"no_update,omitempty"`
	Type     string `yaml:"type,omitempty"`
}

// Build configures every class and registers it. Classes are created
// first, bases before the classes deriving from them, so that columns
// added afterwards may reference any class, including cyclic associations.
func Build(defs []ClassDef) (*schema.Registry, error) {
	reg := schema.NewRegistry()

	pending := append([]ClassDef(nil), defs...)
	for len(pending) > 0 {
		var next []ClassDef
		for _, def := range pending {
			bases, ok := lookupAll(reg, def.Bases)
			if !ok {
				next = append(next, def)
				continue
			}
			cls, err := schema.New(def.Name,
				schema.WithRelation(orDefault(def.Relation, def.Name)),
				schema.WithSequencer(def.Sequencer),
				schema.WithModule(def.Module),
				schema.WithBases(bases...),
				schema.WithDefaults(def.Defaults),
			)
			if err != nil {
				return nil, err
			}
			if err := reg.Register(cls); err != nil {
				return nil, err
			}
		}
		if len(next) == len(pending) {
			names := make([]string, len(next))
			for i, def := range next {
				names[i] = def.Name
			}
			return nil, &schema.SchemaError{
				Class: next[0].Name,
				Msg:   fmt.Sprintf("unknown or cyclic base classes for %s", strings.Join(names, ", ")),
			}
		}
		pending = next
	}

	for _, def := range defs {
		cls, _ := reg.Lookup(def.Name)
		for _, c := range def.Columns {
			spec := schema.ColumnSpec{
				Attr:     c.Attr,
				Col:      c.Col,
				Link:     c.Link,
				VCol:     c.VCol,
				VAttr:    c.VAttr,
				NoUpdate: c.NoUpdate,
				Type:     c.Type,
			}
			if c.Class != "" {
				ref, ok := reg.Lookup(c.Class)
				if !ok {
					return nil, &schema.ColumnError{Class: def.Name, Attr: c.Attr, Msg: fmt.Sprintf("unknown class %q", c.Class)}
				}
				spec.VClass = ref
			}
			if _, err := cls.AddColumn(spec); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

func lookupAll(reg *schema.Registry, names []string) ([]*schema.ClassSchema, bool) {
	var res []*schema.ClassSchema
	for _, n := range names {
		cls, ok := reg.Lookup(n)
		if !ok {
			return nil, false
		}
		res = append(res, cls)
	}
	return res, true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
