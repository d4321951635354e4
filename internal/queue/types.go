// Package queue implements the durable, deduplicating FIFO of pending
// write operations. Entries survive restarts via a pluggable Store and
// are keyed by (endpoint, method): re-enqueueing a key replaces the
// payload but keeps the original queue position.
package queue

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a queued mutation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSyncing    Status = "syncing"
	StatusFailed     Status = "failed"
	StatusConflicted Status = "conflicted"
)

// DefaultMaxRetries is the retry budget for a new mutation.
const DefaultMaxRetries = 3

const idPrefix = "mu-"

// Mutation is a captured write intent awaiting delivery to the server.
// JSON field names are the stable wire format used by the stores.
type Mutation struct {
	ID              string          `json:"id"`
	Endpoint        string          `json:"endpoint"`
	Method          string          `json:"method"`
	Body            json.RawMessage `json:"body,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	RetryCount      int             `json:"retry_count"`
	MaxRetries      int             `json:"max_retries"`
	Status          Status          `json:"status"`
	EntityUpdatedAt string          `json:"entity_updated_at,omitempty"`
}

// Key identifies a mutation's dedupe slot in the queue.
type Key struct {
	Endpoint string
	Method   string
}

// Key returns the mutation's (endpoint, method) dedupe key.
func (m Mutation) Key() Key {
	return Key{Endpoint: m.Endpoint, Method: m.Method}
}

// NewMutation builds a pending mutation with a fresh id and the default
// retry budget.
func NewMutation(endpoint, method string, body json.RawMessage) Mutation {
	return Mutation{
		ID:         newID(),
		Endpoint:   endpoint,
		Method:     method,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: DefaultMaxRetries,
		Status:     StatusPending,
	}
}

// newID creates a random mutation id (8 bytes hex with prefix).
func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand read failing means the platform is broken;
		// fall back to a timestamp so ids stay non-empty.
		return idPrefix + time.Now().UTC().Format("20060102150405.000000000")
	}
	return idPrefix + hex.EncodeToString(b)
}

// Store persists the ordered mutation list under a fixed namespace.
type Store interface {
	Save(mutations []Mutation) error
	Load() ([]Mutation, error)
}

// Namespace is the fixed key the stores persist under.
const Namespace = "offsync.pending_mutations"
