package services

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindStorage      ErrorKind = "storage"
)

// RevisionError is returned by every failing RevisionService call.
type RevisionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RevisionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RevisionError) Unwrap() error { return e.Err }

// Is matches any *RevisionError of the same kind, so callers can write
// errors.Is(err, services.ErrNotFound).
func (e *RevisionError) Is(target error) bool {
	t, ok := target.(*RevisionError)
	return ok && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation   = &RevisionError{Kind: KindValidation}
	ErrUnauthorized = &RevisionError{Kind: KindUnauthorized}
	ErrNotFound     = &RevisionError{Kind: KindNotFound}
	ErrStorage      = &RevisionError{Kind: KindStorage}
)

func validationError(msg string) error {
	return &RevisionError{Kind: KindValidation, Message: msg}
}

func storageError(msg string, err error) error {
	return &RevisionError{Kind: KindStorage, Message: msg, Err: err}
}

// KindOf returns the kind of a RevisionError, or KindStorage for anything else.
func KindOf(err error) ErrorKind {
	var re *RevisionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindStorage
}
