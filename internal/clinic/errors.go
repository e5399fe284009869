package clinic

import (
	"errors"
	"fmt"

	"github.com/savegress/clinicore/pkg/models"
)

// Kind classifies a failed registry operation
type Kind string

const (
	// KindValidation covers missing or malformed fields and references to
	// entities that do not exist
	KindValidation Kind = "validation"
	// KindConstraint covers uniqueness violations, scheduling conflicts and
	// deletes blocked by a restrict rule
	KindConstraint Kind = "constraint"
	// KindNotFound covers operations on a nonexistent id
	KindNotFound Kind = "not_found"
	// KindStorage covers failures of the persistence backend
	KindStorage Kind = "storage"
)

// Error is the error type returned by all registry operations
type Error struct {
	Kind    Kind
	Entity  models.EntityType
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newValidation(entity models.EntityType, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

func newConstraint(entity models.EntityType, format string, args ...any) *Error {
	return &Error{Kind: KindConstraint, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

func newNotFound(entity models.EntityType, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, Message: fmt.Sprintf("id %q not found", id)}
}

func newStorage(entity models.EntityType, err error) *Error {
	return &Error{Kind: KindStorage, Entity: entity, Message: err.Error(), Err: err}
}

func isKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsConstraint reports whether err is a constraint violation
func IsConstraint(err error) bool { return isKind(err, KindConstraint) }

// IsNotFound reports whether err is a missing-id failure
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsStorage reports whether err is a persistence failure
func IsStorage(err error) bool { return isKind(err, KindStorage) }
