package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure so the transport layer can map it to a
// status code without parsing messages.
type Kind int

const (
	// KindInternal is the zero value: an unexpected storage or system failure.
	KindInternal Kind = iota
	// KindValidation covers malformed or missing input, including bad path segments.
	KindValidation
	// KindUnauthorized means no valid identity was presented.
	KindUnauthorized
	// KindForbidden covers role and invariant violations (last admin, root
	// deletion, last page deletion).
	KindForbidden
	// KindNotFound means the addressed item or user does not exist.
	KindNotFound
	// KindConflict covers path and username collisions.
	KindConflict
)

// Error is a service failure with a client-presentable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validationf builds a KindValidation error.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Unauthorizedf builds a KindUnauthorized error.
func Unauthorizedf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// Forbiddenf builds a KindForbidden error.
func Forbiddenf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a KindConflict error.
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind of err, defaulting to KindInternal for errors
// that did not originate in this package.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
