package schema

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrSchema      = errors.New("relmap: schema error")
	ErrColumn      = errors.New("relmap: column error")
	ErrAssociation = errors.New("relmap: association error")
)

// SchemaError is returned when a class cannot be configured.
type SchemaError struct {
	Class string
	Msg   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("relmap: class %q: %s", e.Class, e.Msg)
}

// Is reports whether the target is ErrSchema.
func (e *SchemaError) Is(err error) bool {
	return err == ErrSchema
}

// ColumnError is returned when a column declaration is rejected.
type ColumnError struct {
	Class string
	Attr  string
	Msg   string
}

func (e *ColumnError) Error() string {
	if e.Attr == "" {
		return fmt.Sprintf("relmap: class %q: %s", e.Class, e.Msg)
	}
	return fmt.Sprintf("relmap: column %s.%s: %s", e.Class, e.Attr, e.Msg)
}

// Is reports whether the target is ErrColumn.
func (e *ColumnError) Is(err error) bool {
	return err == ErrColumn
}

// AssociationError is returned when the two sides of a bi-directional
// association disagree.
type AssociationError struct {
	Class   string
	Attr    string
	Partner string
	Msg     string
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("relmap: association %s.%s -> %s: %s", e.Class, e.Attr, e.Partner, e.Msg)
}

// Is reports whether the target is ErrAssociation.
func (e *AssociationError) Is(err error) bool {
	return err == ErrAssociation
}

// IsColumnError returns true if the error is a ColumnError.
func IsColumnError(err error) bool {
	var e *ColumnError
	return errors.As(err, &e)
}
