package service

import (
	"errors"
	"fmt"
)

// Kind classifies a remote failure. The sync engine branches on Kind,
// never on error text.
type Kind int

const (
	// KindTransient covers network errors, rate limits and timeouts.
	// Retryable; a run that exhausts retries aborts without advancing
	// the checkpoint.
	KindTransient Kind = iota

	// KindFatalAuth covers expired or revoked credentials. The run
	// aborts and the caller must re-authenticate.
	KindFatalAuth

	// KindFatalRequest covers remote-side validation rejections and
	// missing resources. The offending task is skipped; the batch
	// continues.
	KindFatalRequest
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatalAuth:
		return "auth"
	case KindFatalRequest:
		return "request"
	}
	return "unknown"
}

// Error is a remote failure carrying its classification.
type Error struct {
	Kind Kind
	Op   string // the remote operation, e.g. "list", "create"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind and operation name.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ErrorKind extracts the Kind from err. Unclassified errors are reported
// as transient so they abort the run without advancing the checkpoint,
// which is the safe direction to be wrong in.
func ErrorKind(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool { return ErrorKind(err) == KindTransient }

// IsAuth reports whether err requires re-authentication.
func IsAuth(err error) bool { return ErrorKind(err) == KindFatalAuth }

// IsFatalRequest reports whether err is a per-task rejection.
func IsFatalRequest(err error) bool { return ErrorKind(err) == KindFatalRequest }
