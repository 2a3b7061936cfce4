package chat

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	ExtractionUnavailable
	EmptyExtraction
	InvalidCredential
	RateLimited
	RemoteFailure
	Unreachable
	StorageFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ExtractionUnavailable:
		return "extraction unavailable"
	case EmptyExtraction:
		return "empty extraction"
	case InvalidCredential:
		return "invalid credential"
	case RateLimited:
		return "rate limited"
	case RemoteFailure:
		return "remote failure"
	case Unreachable:
		return "unreachable"
	case StorageFailure:
		return "storage failure"
	default:
		return "none"
	}
}

// Error is a classified failure. The kind selects the message shown to the
// user; Err carries the details for the log.
type Error struct {
	Kind ErrorKind
	Err  error
}

func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or KindNone.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}
