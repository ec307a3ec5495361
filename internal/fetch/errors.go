package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a retrieval failure.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindIO          Kind = "io_error"
	KindFetchFailed Kind = "fetch_failed"
)

// ErrBodyTooLarge is returned when a document exceeds the configured size cap.
var ErrBodyTooLarge = errors.New("document exceeds maximum size limit")

// Error is returned by Fetcher.Fetch for every failed retrieval.
type Error struct {
	Source   string
	Kind     Kind
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindFetchFailed:
		if e.Attempts == 0 {
			return fmt.Sprintf("refusing to fetch %s: %v", e.Source, e.Err)
		}
		return fmt.Sprintf("failed to fetch %s after %d attempts: %v", e.Source, e.Attempts, e.Err)
	case KindNotFound:
		return fmt.Sprintf("%s not found: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("cannot read %s: %v", e.Source, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a fetch Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// StatusError is a failed attempt caused by a non-success HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}
