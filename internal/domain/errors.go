package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNetworkUnreachable: the link layer reports no connectivity.
	ErrNetworkUnreachable = errors.New("network unreachable")
	// ErrServer covers HTTP failures and rejected requests while the link is up.
	ErrServer = errors.New("server error")
	// ErrNotFound is returned when an entity is absent from both the backend and the cache.
	ErrNotFound = errors.New("not found")
	// ErrSyncReplayFailed wraps the cause of a queued operation that could not be replayed.
	ErrSyncReplayFailed = errors.New("sync replay failed")
)

// ValidationError carries per-field messages, either produced locally or
// decoded verbatim from a backend 400 response.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add records a message for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// OrNil returns nil when no field failed, so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
