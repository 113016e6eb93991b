package api

import (
	"errors"
	"fmt"
)

// Kind classifies a remote failure so callers can decide between
// serving cached data, surfacing a message, or forcing re-login.
type Kind int

const (
	// KindTransient covers network failures and server-side errors that
	// may succeed on retry.
	KindTransient Kind = iota
	// KindAuth covers rejected credentials.
	KindAuth
	// KindMalformed covers responses whose envelope could not be decoded.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindMalformed:
		return "malformed"
	default:
		return "transient"
	}
}

// Error is the single error type surfaced by the gateway.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsAuth reports whether err is a gateway error caused by rejected credentials.
func IsAuth(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
