package reflection

import (
	"errors"
	"fmt"
)

// Kind is the structural category a resolved entity is expected to have.
type Kind string

const (
	KindMessage Kind = "message"
	KindService Kind = "service"
)

// ErrTypeKindMismatch is matched by every *TypeKindMismatchError.
var ErrTypeKindMismatch = errors.New("type kind mismatch")

// TypeKindMismatchError reports an entity that exists at Path but is not of kind Want.
type TypeKindMismatchError struct {
	Path string
	Want Kind
}

func (e *TypeKindMismatchError) Error() string {
	return fmt.Sprintf("type at path is not a %s: '%s'", e.Want, e.Path)
}

func (e *TypeKindMismatchError) Unwrap() error {
	return ErrTypeKindMismatch
}
