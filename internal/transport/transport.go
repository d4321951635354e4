// Package transport defines the network sender contract the sync core
// depends on, together with the classified error taxonomy the conflict
// policy is built on.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request is a single remote call: method, endpoint path, and an opaque
// JSON body (may be nil for bodyless methods).
type Request struct {
	Method   string
	Endpoint string
	Body     json.RawMessage
}

// Response is a successful remote call result.
type Response struct {
	Status int
	Body   json.RawMessage
}

// Sender executes remote requests. Implementations classify failures
// into *SendError values; any other error is treated as unclassified.
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// ErrorKind classifies a failed send.
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindNotFound
	KindConflict
	KindClientError
	KindServerError
	KindTimeout
	KindNetwork
	KindUnauthorized
	KindForbidden
	KindDecoding
)

// String returns the wire/display name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network_failure"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindDecoding:
		return "decoding_error"
	default:
		return "unclassified"
	}
}

// SendError is a classified transport failure.
type SendError struct {
	Kind    ErrorKind
	Status  int // HTTP status when applicable, else 0
	Message string
	Err     error // underlying cause, may be nil
}

func (e *SendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d", e.Kind, e.Status)
	}
	return e.Kind.String()
}

func (e *SendError) Unwrap() error { return e.Err }

// ClassifyStatus maps an HTTP status code to an error kind.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == 401:
		return KindUnauthorized
	case status == 403:
		return KindForbidden
	case status == 404:
		return KindNotFound
	case status == 409:
		return KindConflict
	case status >= 400 && status < 500:
		return KindClientError
	case status >= 500 && status < 600:
		return KindServerError
	default:
		return KindUnclassified
	}
}
