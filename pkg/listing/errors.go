package listing

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures on the list path.
type ErrorKind string

const (
	// KindCacheUnavailable is a store connectivity or timeout failure, recovered as a miss.
	KindCacheUnavailable ErrorKind = "cache_unavailable"

	// KindCacheWrite is a failed population after a miss, logged only.
	KindCacheWrite ErrorKind = "cache_write"

	// KindSourceQuery is a source-of-record failure, surfaced as a 500.
	KindSourceQuery ErrorKind = "source_query"

	// KindSerialization is a response encoding failure, surfaced as a 500.
	KindSerialization ErrorKind = "serialization"

	// KindInvalidation is a failed invalidation, logged only.
	KindInvalidation ErrorKind = "invalidation"

	// KindMalformedConditional is an unparseable If-None-Match, treated as no match.
	KindMalformedConditional ErrorKind = "malformed_conditional"
)

// ErrUnknownEntity is returned when a request names an entity that has no list endpoint.
var ErrUnknownEntity = errors.New("unknown entity")

// QueryError is a list failure that reaches the client.
type QueryError struct {
	Kind   ErrorKind
	Entity string
	Err    error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("list %s: %s: %v", e.Entity, e.Kind, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a QueryError anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}
