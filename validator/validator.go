package validator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/relmap/diff"
	"github.com/ridoystarlord/relmap/introspect"
	"github.com/ridoystarlord/relmap/mapper"
	"github.com/ridoystarlord/relmap/schema"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Type     string `json:"type"`
	Class    string `json:"class,omitempty"`
	Relation string `json:"relation,omitempty"`
	Attr     string `json:"attr,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning", "info"
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Info     []ValidationError `json:"info"`
}

func (r *ValidationResult) add(e ValidationError) {
	switch e.Severity {
	case "error":
		r.Errors = append(r.Errors, e)
	case "warning":
		r.Warnings = append(r.Warnings, e)
	default:
		r.Info = append(r.Info, e)
	}
}

// SchemaValidator checks a class registry before its layout is generated
// or its statements are compiled.
type SchemaValidator struct {
	// Snapshot of the database, optional. When set, the result also
	// reports which relations exist already.
	Snapshot *introspect.Snapshot
}

// ValidateRegistry validates every class of reg and the associations
// between them.
func (v *SchemaValidator) ValidateRegistry(reg *schema.Registry) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
		Info:     []ValidationError{},
	}

	relations := map[string]string{}
	claim := func(cls *schema.ClassSchema, relation string) {
		if owner, ok := relations[relation]; ok {
			result.add(ValidationError{
				Type:     "duplicate_relation",
				Class:    cls.Name,
				Relation: relation,
				Message:  fmt.Sprintf("Relation '%s' is already used by %s", relation, owner),
				Severity: "error",
			})
			return
		}
		relations[relation] = cls.Name
	}

	links := map[string]bool{}
	for _, cls := range reg.Classes() {
		v.validateClass(cls, result)
		claim(cls, cls.Relation)
		for _, col := range cls.OwnColumns() {
			if col.IsManyToMany() && !links[col.Link] {
				links[col.Link] = true
				claim(cls, col.Link)
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (v *SchemaValidator) validateClass(cls *schema.ClassSchema, result *ValidationResult) {
	if err := validateIdentifier("relation", cls.Relation); err != nil {
		result.add(ValidationError{
			Type:     "relation_name",
			Class:    cls.Name,
			Relation: cls.Relation,
			Message:  err.Error(),
			Severity: "error",
		})
	} else if isReserved(cls.Relation) {
		result.add(ValidationError{
			Type:     "reserved_keyword",
			Class:    cls.Name,
			Relation: cls.Relation,
			Message:  fmt.Sprintf("Relation '%s' is a reserved keyword and is always quoted", cls.Relation),
			Severity: "warning",
		})
	}

	if v.Snapshot != nil {
		if _, ok := v.Snapshot.Table(cls.Relation); ok {
			result.add(ValidationError{
				Type:     "relation_exists",
				Class:    cls.Name,
				Relation: cls.Relation,
				Message:  fmt.Sprintf("Relation '%s' already exists in database", cls.Relation),
				Severity: "info",
			})
		}
	}

	cols := cls.Columns()
	if len(cols) == 0 {
		result.add(ValidationError{
			Type:     "no_columns",
			Class:    cls.Name,
			Relation: cls.Relation,
			Message:  fmt.Sprintf("Class '%s' maps no attributes, only its key is stored", cls.Name),
			Severity: "warning",
		})
	}

	for _, col := range cls.OwnColumns() {
		for _, name := range []string{col.Col, col.VCol} {
			if name == "" {
				continue
			}
			if err := validateIdentifier("column", name); err != nil {
				result.add(ValidationError{
					Type:     "column_name",
					Class:    cls.Name,
					Attr:     col.Attr,
					Message:  err.Error(),
					Severity: "error",
				})
			}
		}
		if col.IsPlain() && col.Type != "" {
			if err := validateDataType(col.Type); err != nil {
				result.add(ValidationError{
					Type:     "data_type",
					Class:    cls.Name,
					Attr:     col.Attr,
					Message:  err.Error(),
					Severity: "error",
				})
			}
		}
		if err := validateAssociation(cls, col); err != nil {
			result.add(ValidationError{
				Type:     "association",
				Class:    cls.Name,
				Attr:     col.Attr,
				Message:  err.Error(),
				Severity: "error",
			})
		}
	}

	// column clashes and many-to-many symmetry surface at compile time
	if _, err := mapper.Compile(cls); err != nil {
		result.add(ValidationError{
			Type:     "statements",
			Class:    cls.Name,
			Relation: cls.Relation,
			Message:  err.Error(),
			Severity: "error",
		})
	}
}

// validateAssociation checks that a bi-directional one-to-one or
// one-to-many association is mirrored by the referenced class.
func validateAssociation(cls *schema.ClassSchema, col *schema.Column) error {
	if !col.IsBidir() || col.IsManyToMany() {
		return nil
	}
	partner, ok := col.Partner()
	if !ok {
		if col.IsOneToMany() {
			return fmt.Errorf("attribute '%s' of %s backing the association is not declared", col.VAttr, col.VClass.Name)
		}
		return nil
	}
	if partner.VClass == nil || !inherits(cls, partner.VClass) {
		return fmt.Errorf("attribute '%s' of %s does not reference %s", col.VAttr, col.VClass.Name, cls.Name)
	}
	if partner.VAttr != "" && partner.VAttr != col.Attr {
		return fmt.Errorf("attribute '%s' of %s mirrors '%s', not '%s'", col.VAttr, col.VClass.Name, partner.VAttr, col.Attr)
	}

	switch {
	case col.IsOneToMany():
		if !partner.IsOneToOne() || partner.Col != col.VCol {
			return fmt.Errorf("attribute '%s' of %s must be a one-to-one association stored in '%s'", col.VAttr, col.VClass.Name, col.VCol)
		}
	case col.IsOneToOne():
		if partner.IsOneToMany() && partner.VCol != col.Col {
			return fmt.Errorf("attribute '%s' of %s expects column '%s', not '%s'", col.VAttr, col.VClass.Name, partner.VCol, col.Col)
		}
		if !partner.IsOneToOne() && !partner.IsOneToMany() {
			return fmt.Errorf("attribute '%s' of %s is a %s association", col.VAttr, col.VClass.Name, partner.Kind())
		}
	}
	return nil
}

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

// validateIdentifier checks PostgreSQL identifier rules.
func validateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}

	if len(name) > 63 {
		return fmt.Errorf("%s name '%s' is too long (max 63 characters)", kind, name)
	}

	for _, char := range name {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_') {
			return fmt.Errorf("%s name '%s' contains invalid character '%c'", kind, name, char)
		}
	}

	return nil
}

var reservedKeywords = map[string]bool{
	"user": true, "order": true, "group": true, "table": true,
	"index": true, "view": true, "schema": true, "select": true,
}

func isReserved(name string) bool {
	return reservedKeywords[strings.ToLower(name)]
}

var validTypes = map[string]bool{
	"smallint": true, "integer": true, "bigint": true,
	"numeric": true, "real": true, "double precision": true,

	"character varying": true, "character": true, "text": true,

	"bytea": true,

	"timestamp without time zone": true, "timestamp with time zone": true,
	"date": true, "time without time zone": true, "time with time zone": true,
	"interval": true,

	"boolean": true,

	"json": true, "jsonb": true,

	"uuid": true,

	"cidr": true, "inet": true, "macaddr": true,

	"integer[]": true, "text[]": true,
}

// validateDataType validates PostgreSQL data type
func validateDataType(dataType string) error {
	if !validTypes[diff.NormalizeType(dataType)] {
		return fmt.Errorf("unsupported data type '%s'", dataType)
	}
	return nil
}
