package mapper

import "errors"

var (
	// ErrKeyUnset is returned by Update and Delete for objects never stored.
	ErrKeyUnset = errors.New("relmap: object key is not set")

	// ErrUnknownAssociation is returned by pair operations for attributes
	// that are not many-to-many associations of the class.
	ErrUnknownAssociation = errors.New("relmap: unknown many-to-many association")

	// ErrSequenceConsumed is yielded when a load sequence is ranged twice.
	ErrSequenceConsumed = errors.New("relmap: load sequence already consumed")

	// ErrRowShape is returned when a loaded row does not match the columns.
	ErrRowShape = errors.New("relmap: unexpected row shape")
)
