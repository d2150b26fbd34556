package storeerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the machine-readable category of a StoreError, per the
// taxonomy in the error handling design: NotFound, AlreadyExists,
// MissingParent, InvalidGenesis, MissingHead, ForkTooDeep, Corruption, and
// BackendFailure.
type Kind string

// The error kinds surfaced by this store.
const (
	KindNotFound       Kind = "NotFound"
	KindAlreadyExists  Kind = "AlreadyExists"
	KindMissingParent  Kind = "MissingParent"
	KindInvalidGenesis Kind = "InvalidGenesis"
	KindMissingHead    Kind = "MissingHead"
	KindForkTooDeep    Kind = "ForkTooDeep"
	KindCorruption     Kind = "Corruption"
	KindBackendFailure Kind = "BackendFailure"
)

// StoreError identifies a failure of one of this store's operations. The
// caller can use Kind() or errors.Is against the Err* sentinels below to
// determine what happened, and Error() for the human-readable message.
type StoreError struct {
	kind      Kind
	operation string
	subject   string
	inner     error
}

// Error satisfies the error interface.
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.operation, e.kind)
	if e.subject != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.subject)
	}
	if e.inner != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.inner.Error())
	}
	return msg
}

// Unwrap satisfies errors.Unwrap so errors.Is/errors.As see through to the
// wrapped cause.
func (e *StoreError) Unwrap() error {
	return e.inner
}

// Kind returns the machine-readable category of this error.
func (e *StoreError) Kind() Kind {
	return e.kind
}

// Is allows errors.Is(err, storeerrors.ErrNotFound) to match any StoreError
// of the same kind, regardless of operation/subject/inner.
func (e *StoreError) Is(target error) bool {
	other, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.kind == other.kind
}

// sentinels, matched by kind only (see Is above); use New(kind, ...) to build
// a concrete, context-carrying instance to return from an operation.
var (
	ErrNotFound       = &StoreError{kind: KindNotFound}
	ErrAlreadyExists  = &StoreError{kind: KindAlreadyExists}
	ErrMissingParent  = &StoreError{kind: KindMissingParent}
	ErrInvalidGenesis = &StoreError{kind: KindInvalidGenesis}
	ErrMissingHead    = &StoreError{kind: KindMissingHead}
	ErrForkTooDeep    = &StoreError{kind: KindForkTooDeep}
	ErrCorruption     = &StoreError{kind: KindCorruption}
	ErrBackendFailure = &StoreError{kind: KindBackendFailure}
)

// New builds a StoreError of the given kind, naming the operation that
// failed and the subject (a ref name, a hash, a height) that caused it.
func New(kind Kind, operation, subject string) error {
	return errors.WithStack(&StoreError{kind: kind, operation: operation, subject: subject})
}

// Wrap builds a StoreError of the given kind around an underlying cause,
// preserving it for Unwrap/errors.As while still reporting the kind via Is.
func Wrap(kind Kind, operation, subject string, cause error) error {
	return errors.WithStack(&StoreError{kind: kind, operation: operation, subject: subject, inner: cause})
}

// IsNotFound reports whether err is (or wraps) a NotFound StoreError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is (or wraps) an AlreadyExists StoreError.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsMissingParent reports whether err is (or wraps) a MissingParent StoreError.
func IsMissingParent(err error) bool {
	return errors.Is(err, ErrMissingParent)
}
