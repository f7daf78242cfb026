package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// APIError is returned when a resource call comes back with a non-2xx
// status, regardless of transport. The direct transport fills Body and
// leaves Message empty; the proxy transport fills Message from the
// intermediary's error envelope.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, e.Status, e.Body)
}

// TransportError is a network-level failure: timeout, DNS, refused or reset
// connection. Unlike APIError the request never produced an HTTP status.
type TransportError struct {
	Op      string
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s: timed out: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call may succeed.
func (e *TransportError) Retryable() bool { return true }

// ClassifyTransport wraps a client.Do failure in a TransportError. A
// cancelled parent context is returned unchanged since the caller asked for
// it.
func ClassifyTransport(op, url string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	te := &TransportError{Op: op, URL: url, Err: err}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		te.Timeout = true
	}
	return te
}
