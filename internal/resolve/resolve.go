// Package resolve holds the fixed conflict policy applied when a queued
// mutation fails against the server. It is a pure mapping from the
// transport's error classification to a resolution action; it has no
// state and performs no I/O.
package resolve

import (
	"errors"

	"github.com/marcus/offsync/internal/queue"
	"github.com/marcus/offsync/internal/transport"
)

// Resolution is the action the sync engine takes for a failed mutation.
type Resolution int

const (
	// ApplyLocal retries the local mutation immediately: the local
	// intent still stands, last write wins.
	ApplyLocal Resolution = iota
	// SkipSilently treats the mutation as already satisfied and drops it.
	SkipSilently
	// Retry backs off and tries again later; the failure is transient.
	Retry
	// Fail stops retrying; the failure is permanent.
	Fail
)

// String returns the display name of the resolution.
func (r Resolution) String() string {
	switch r {
	case ApplyLocal:
		return "apply_local"
	case SkipSilently:
		return "skip_silently"
	case Retry:
		return "retry"
	default:
		return "fail"
	}
}

// Resolve maps a failed mutation and its server error to a resolution.
//
// Policy: 404 means the entity is already gone server-side, so the
// mutation is moot; 409 means the local intent is still valid and is
// forced through; 400 cannot be fixed by retrying; 5xx, timeouts and
// network failures are transient; everything else (401, 403, decoding
// failures, unclassified errors) is permanent.
func Resolve(_ queue.Mutation, err error) Resolution {
	var se *transport.SendError
	if !errors.As(err, &se) {
		return Fail
	}

	switch se.Kind {
	case transport.KindNotFound:
		return SkipSilently
	case transport.KindConflict:
		return ApplyLocal
	case transport.KindServerError, transport.KindTimeout, transport.KindNetwork:
		return Retry
	default:
		// KindClientError (400 and friends), KindUnauthorized,
		// KindForbidden, KindDecoding, KindUnclassified.
		return Fail
	}
}
