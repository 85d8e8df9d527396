package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorises failures so the transport layer can map them to status codes.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindForbidden       ErrorKind = "forbidden"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindStore           ErrorKind = "store"
)

// Sentinel errors returned by repositories and services. Match with errors.Is.
var (
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "session not found"}
	ErrUserNotFound    = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "access denied: you can only manage your own sessions"}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrEmailTaken      = &Error{Kind: KindConflict, Message: "email is already registered"}
)

// FieldError names one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    ErrorKind
	Message string
	Fields  []FieldError
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by kind and message so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// ValidationError builds a validation failure listing every offending field.
func ValidationError(fields ...FieldError) *Error {
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	msg := "validation failed"
	if len(msgs) > 0 {
		msg = strings.Join(msgs, "; ")
	}
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// StoreError wraps a persistence failure. Callers surface it as a 5xx and never retry server-side.
func StoreError(op string, cause error) *Error {
	return &Error{Kind: KindStore, Message: op, Cause: cause}
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
