// Package client implements the synchronization layer between the QubicBall
// UI surfaces and the remote API: typed CRUD operations for projects and
// tasks, optimistic-concurrency conflict detection, and write-triggered
// cache invalidation.
package client

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure. Callers branch on Kind to decide
// what to tell the user; Conflict and NotFound must stay distinguishable
// from generic transport failures.
type Kind string

const (
	// KindNotFound means the server reports no such entity.
	KindNotFound Kind = "not_found"
	// KindConflict means the submitted version no longer matches the
	// server's stored version. The caller must refetch and re-apply.
	KindConflict Kind = "conflict"
	// KindUnauthorized means the credential is missing or expired. The
	// session has already been cleared by the time the caller sees this.
	KindUnauthorized Kind = "unauthorized"
	// KindForbidden means the local role gate blocked a write before any
	// request was issued.
	KindForbidden Kind = "forbidden"
	// KindRateLimited means the server answered 429. No automatic retry.
	KindRateLimited Kind = "rate_limited"
	// KindValidation means client-side input constraints failed; nothing
	// reached the network.
	KindValidation Kind = "validation_failed"
	// KindTransport covers everything else: connectivity loss, 5xx,
	// malformed responses.
	KindTransport Kind = "transport_failure"
)

// Error is the failure type returned by all client operations.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status that produced the error, 0 if the request
	// never left the process.
	Status int
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone, so the
// sentinel errors below work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrRateLimited  = &Error{Kind: KindRateLimited}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrTransport    = &Error{Kind: KindTransport}
)

// KindOf extracts the Kind from err, returning KindTransport for errors
// that did not originate in this package.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransport
}

// IsConflict reports whether err is a version conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err is a missing-entity failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func newError(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

func transportErr(err error, message string) *Error {
	return &Error{Kind: KindTransport, Message: message, Err: err}
}
