package cleanup

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnreachable matches every *TransportError.
var ErrUnreachable = errors.New("could not reach server")

// RemoteError is a rejection returned by the Cleanup backend. Message is the
// backend's own text; Fields maps form fields to their first validation message.
type RemoteError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *RemoteError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("cleanup api: %d: %s", e.StatusCode, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("cleanup api: %d: %s (%s)", e.StatusCode, e.Message, strings.Join(parts, "; "))
}

// TransportError is a failure to complete the HTTP exchange at all: DNS,
// connection refused, timeout, cancelled context.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUnreachable, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrUnreachable }

// ParseError is a 2xx response whose body does not match the expected schema.
type ParseError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cleanup api: %s: unexpected response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("cleanup api: %s: unexpected response: %s", e.Op, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }
