// internal/service/errors.go
package service

import (
	"errors"
	"strings"
)

// Kind classifies a service failure so transports can map it to a status
// code without inspecting messages.
type Kind uint8

const (
	KindStorage Kind = iota
	KindValidation
	KindUnauthenticated
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "storage"
	}
}

// kindError is the sentinel type behind ErrValidation and friends.
type kindError Kind

func (k kindError) Error() string {
	return Kind(k).String() + " error"
}

// Sentinels for errors.Is checks against an *Error of the matching kind.
var (
	ErrValidation      error = kindError(KindValidation)
	ErrUnauthenticated error = kindError(KindUnauthenticated)
	ErrAuthorization   error = kindError(KindAuthorization)
	ErrNotFound        error = kindError(KindNotFound)
	ErrConflict        error = kindError(KindConflict)
	ErrStorage         error = kindError(KindStorage)
)

// Error is returned by every TaskService operation.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// NewError builds an *Error.
func NewError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	k, ok := target.(kindError)
	return ok && Kind(k) == e.Kind
}

// KindOf returns the kind of err. Errors that did not originate in this
// package count as KindStorage.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// MessageOf returns the caller-facing message of err. Storage failures get
// a generic message so internals do not leak.
func MessageOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	if e.Kind == KindStorage {
		return "internal error"
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

func validationError(op, message string) *Error {
	return NewError(KindValidation, op, message, nil)
}

func authorizationError(op, message string) *Error {
	return NewError(KindAuthorization, op, message, nil)
}

func notFoundError(op, message string) *Error {
	return NewError(KindNotFound, op, message, nil)
}

func conflictError(op, message string, err error) *Error {
	return NewError(KindConflict, op, message, err)
}

func storageError(op string, err error) *Error {
	return NewError(KindStorage, op, "", err)
}
