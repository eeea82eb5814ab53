package mapper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ridoystarlord/relmap/schema"
)

// keyParam is the named placeholder of the primary key in insert statements.
const keyParam = schema.KeyColumn

var paramNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PairStatements hold the link relation statements of one many-to-many
// association.
type PairStatements struct {
	Column *schema.Column
	Load   string
	Insert string
	Delete string
}

// Statements is the SQL compiled once for a class. Columns fixes the
// order of relation columns for every statement: plain columns, then
// one-to-one foreign key columns, each in declaration order.
type Statements struct {
	Class   *schema.ClassSchema
	Columns []string

	Load    string
	Insert  string
	Update  string // empty when the relation has no mapped column
	Delete  string
	NextKey string

	Pairs map[string]*PairStatements // keyed by association attribute

	ordered []*schema.Column
	params  []string
}

// quote returns a double quoted identifier.
func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteAll(names []string) []string {
	res := make([]string, len(names))
	for i, n := range names {
		res[i] = quote(n)
	}
	return res
}

// paramName returns the insert placeholder name for a column. Column
// names which cannot be placeholder names get a positional one.
func paramName(i int, col string) string {
	if paramNameRe.MatchString(col) && col != keyParam {
		return col
	}
	return fmt.Sprintf("col%d", i+1)
}

// Compile builds all statements needed to load, insert, update and delete
// objects of the class and to maintain its many-to-many link relations.
func Compile(cls *schema.ClassSchema) (*Statements, error) {
	s := &Statements{
		Class: cls,
		Pairs: map[string]*PairStatements{},
	}

	var plain, oto, mtm []*schema.Column
	for _, col := range cls.Columns() {
		switch col.Kind() {
		case schema.Plain:
			plain = append(plain, col)
		case schema.OneToOne:
			oto = append(oto, col)
		case schema.ManyToMany:
			mtm = append(mtm, col)
		}
	}
	s.ordered = append(plain, oto...)

	seen := map[string]string{}
	for i, col := range s.ordered {
		if col.Col == schema.KeyColumn {
			return nil, &schema.ColumnError{Class: cls.Name, Attr: col.Attr, Msg: "column name is reserved for the primary key"}
		}
		if other, ok := seen[col.Col]; ok {
			return nil, &schema.ColumnError{Class: cls.Name, Attr: col.Attr, Msg: fmt.Sprintf("relation column %q already mapped by %q", col.Col, other)}
		}
		seen[col.Col] = col.Attr
		s.Columns = append(s.Columns, col.Col)
		s.params = append(s.params, paramName(i, col.Col))
	}

	relation := quote(cls.Relation)
	key := quote(schema.KeyColumn)
	cols := quoteAll(s.Columns)

	s.Load = fmt.Sprintf("SELECT %s FROM %s", strings.Join(append([]string{key}, cols...), ", "), relation)

	placeholders := []string{"@" + keyParam}
	for _, p := range s.params {
		placeholders = append(placeholders, "@"+p)
	}
	s.Insert = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		relation,
		strings.Join(append([]string{key}, cols...), ", "),
		strings.Join(placeholders, ", "),
	)

	if len(cols) > 0 {
		set := make([]string, len(cols))
		for i, c := range cols {
			set[i] = fmt.Sprintf("%s = $%d", c, i+1)
		}
		s.Update = fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", relation, strings.Join(set, ", "), key, len(cols)+1)
	}

	s.Delete = fmt.Sprintf("DELETE FROM %s WHERE %s = $1", relation, key)

	s.NextKey = fmt.Sprintf("SELECT nextval('%s')", strings.ReplaceAll(quote(cls.Sequencer), "'", "''"))

	for _, col := range mtm {
		if err := checkPartner(cls, col); err != nil {
			return nil, err
		}
		link := quote(col.Link)
		own, peer := quote(col.Col), quote(col.VCol)
		s.Pairs[col.Attr] = &PairStatements{
			Column: col,
			Load:   fmt.Sprintf("SELECT %s, %s FROM %s", own, peer, link),
			Insert: fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ($1, $2)", link, own, peer),
			Delete: fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2", link, own, peer),
		}
	}
	return s, nil
}

// checkPartner verifies that both sides of a bi-directional many-to-many
// association describe the same link relation.
func checkPartner(cls *schema.ClassSchema, col *schema.Column) error {
	if !col.IsBidir() {
		return nil
	}
	fail := func(msg string) error {
		return &schema.AssociationError{Class: cls.Name, Attr: col.Attr, Partner: col.VClass.Name, Msg: msg}
	}
	partner, ok := col.Partner()
	switch {
	case !ok:
		return fail(fmt.Sprintf("partner attribute %q is not declared", col.VAttr))
	case !partner.IsManyToMany():
		return fail(fmt.Sprintf("partner attribute %q is not a many-to-many association", col.VAttr))
	case partner.Link != col.Link:
		return fail(fmt.Sprintf("link relation %q differs from partner's %q", col.Link, partner.Link))
	case partner.Col != col.VCol || partner.VCol != col.Col:
		return fail(fmt.Sprintf("link columns (%s, %s) do not mirror partner's (%s, %s)", col.Col, col.VCol, partner.Col, partner.VCol))
	case partner.VAttr != "" && partner.VAttr != col.Attr:
		return fail(fmt.Sprintf("partner refers back to %q", partner.VAttr))
	case !inherits(cls, partner.VClass):
		return fail(fmt.Sprintf("partner references class %s", partner.VClass.Name))
	}
	return nil
}

// inherits reports whether cls is base or derives from it.
func inherits(cls, base *schema.ClassSchema) bool {
	if cls == base {
		return true
	}
	for _, b := range cls.Bases() {
		if inherits(b, base) {
			return true
		}
	}
	return false
}

// OrderedColumns returns the column descriptors in statement order.
func (s *Statements) OrderedColumns() []*schema.Column {
	return append([]*schema.Column(nil), s.ordered...)
}

// All returns every compiled statement in a stable order, for display.
func (s *Statements) All() []string {
	res := []string{s.Load, s.Insert}
	if s.Update != "" {
		res = append(res, s.Update)
	}
	res = append(res, s.Delete, s.NextKey)
	for _, attr := range s.pairAttrs() {
		p := s.Pairs[attr]
		res = append(res, p.Load, p.Insert, p.Delete)
	}
	return res
}

func (s *Statements) pairAttrs() []string {
	var attrs []string
	for _, col := range s.Class.Columns() {
		if _, ok := s.Pairs[col.Attr]; ok {
			attrs = append(attrs, col.Attr)
		}
	}
	return attrs
}
