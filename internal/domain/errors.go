package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// ValidationErrors maps a field name to an ordered list of violation messages.
// Rules append unconditionally; a field accumulates every message for every
// rule it violates, and the map is returned as a whole rather than
// short-circuiting on the first failure.
type ValidationErrors map[string][]string

// Add appends a violation message for field. The list is created on first use.
func (v ValidationErrors) Add(field, msg string) {
	v[field] = append(v[field], msg)
}

// Empty reports whether no rule was violated.
func (v ValidationErrors) Empty() bool { return len(v) == 0 }

func (v ValidationErrors) Error() string {
	var parts []string
	for field, msgs := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	return "input invalid: " + strings.Join(parts, ", ")
}

func (v ValidationErrors) Unwrap() error { return ErrBadRequest }

// ConflictError is returned when a username or email uniqueness constraint
// is violated at insert time. The offending values are echoed back to the
// caller in the 409 payload.
type ConflictError struct {
	Username string
	Email    string
}

func (e *ConflictError) Error() string {
	return "username or email already exists"
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InactiveAccountError signals a login attempt against a not-yet-activated
// account. It carries the freshly issued verification handle so the client
// can resume activation.
type InactiveAccountError struct {
	User         *User
	Verification *VerificationHandle
}

func (e *InactiveAccountError) Error() string { return "user inactive" }

func (e *InactiveAccountError) Unwrap() error { return ErrForbidden }
