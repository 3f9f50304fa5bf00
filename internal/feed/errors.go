package feed

import (
	"errors"
	"fmt"
)

// ErrorKind classifies fetch failures
type ErrorKind int

const (
	KindInvalidIdentifier ErrorKind = iota + 1
	KindTransportFailure
	KindDecodeFailure
)

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrTransportFailure  = errors.New("transport failure")
	ErrDecodeFailure     = errors.New("decode failure")
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidIdentifier:
		return "invalid_identifier"
	case KindTransportFailure:
		return "transport_failure"
	case KindDecodeFailure:
		return "decode_failure"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidIdentifier:
		return ErrInvalidIdentifier
	case KindTransportFailure:
		return ErrTransportFailure
	case KindDecodeFailure:
		return ErrDecodeFailure
	default:
		return nil
	}
}

// Error is returned by every Fetcher operation that fails
type Error struct {
	Kind     ErrorKind
	Category string
	FeedID   string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidIdentifier:
		if e.Err != nil {
			return fmt.Sprintf("invalid %s id %q: %v", e.Category, e.FeedID, e.Err)
		}
		return fmt.Sprintf("invalid %s id %q", e.Category, e.FeedID)
	case KindTransportFailure:
		return fmt.Sprintf("fetch %s/%s: %v", e.Category, e.FeedID, e.Err)
	default:
		return fmt.Sprintf("decode %s/%s: %v", e.Category, e.FeedID, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Retryable reports whether trying again later may succeed. Only upstream
// failures qualify.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransportFailure
}

// StatusError is a non-2xx upstream response
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// InvalidIdentifier builds the error for an id outside the registry
func InvalidIdentifier(category, id string, err error) *Error {
	return &Error{Kind: KindInvalidIdentifier, Category: category, FeedID: id, Err: err}
}
