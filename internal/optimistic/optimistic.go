// Package optimistic tracks provisional UI changes awaiting server
// confirmation. Every registered update resolves exactly once:
// confirmed, rolled back, or timed out — and rollback paths carry the
// snapshot needed to restore the prior UI state.
package optimistic

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/offsync/internal/stream"
)

// Status is the lifecycle state of an update.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusRolledBack Status = "rolled_back"
	StatusTimedOut   Status = "timed_out"
)

// DefaultTimeout is how long an update may stay unconfirmed.
const DefaultTimeout = 30 * time.Second

const idPrefix = "ou-"

// Update is a provisional UI change. PreviousItems is the rollback
// snapshot; OptimisticItems is what the UI is currently showing.
type Update struct {
	ID              string
	ScreenKey       string
	Event           string
	PreviousItems   []any
	OptimisticItems []any
	FieldValues     map[string]any
	CreatedAt       time.Time
	Timeout         time.Duration
	Status          Status
}

// Event is a terminal transition on an update. PreviousItems is set for
// rollback and timeout events so subscribers can restore UI state.
type Event struct {
	ID            string
	ScreenKey     string
	Status        Status
	PreviousItems []any
}

type entry struct {
	update Update
	timer  *time.Timer
}

// Manager owns the pending update set. All access is serialized through
// an internal mutex; timeout callbacks re-check presence so a late
// timer firing after confirm/rollback is a no-op.
type Manager struct {
	mu      sync.Mutex
	updates map[string]*entry
	events  *stream.Broadcaster[Event]
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		updates: make(map[string]*entry),
		events:  stream.NewBroadcaster[Event](),
	}
}

// Events returns an observable sequence of terminal transitions.
func (m *Manager) Events() (<-chan Event, func()) {
	return m.events.Subscribe()
}

// Register stores the update, schedules its timeout, and returns its
// id (generated when absent).
func (m *Manager) Register(u Update) string {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.Timeout <= 0 {
		u.Timeout = DefaultTimeout
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Status = StatusPending

	m.mu.Lock()
	defer m.mu.Unlock()

	id := u.ID
	if prev, ok := m.updates[id]; ok {
		// Re-registering supersedes the pending entry; its timer must
		// not keep running against the new update's lifetime.
		prev.timer.Stop()
		slog.Debug("optimistic update superseded", "id", id)
	}
	e := &entry{update: u}
	e.timer = time.AfterFunc(u.Timeout, func() { m.expire(id) })
	m.updates[id] = e

	slog.Debug("optimistic update registered", "id", id, "screen", u.ScreenKey, "timeout", u.Timeout)
	return id
}

// Confirm resolves the update as confirmed. Unknown or already-resolved
// ids are no-ops; the return value reports whether this call resolved it.
func (m *Manager) Confirm(id string) bool {
	e, ok := m.take(id)
	if !ok {
		return false
	}
	slog.Debug("optimistic update confirmed", "id", id)
	m.events.Publish(Event{ID: id, ScreenKey: e.update.ScreenKey, Status: StatusConfirmed})
	return true
}

// Rollback resolves the update as rolled back and returns the stored
// snapshot so the caller can restore prior UI state. Unknown or
// already-resolved ids return (nil, false).
func (m *Manager) Rollback(id string) ([]any, bool) {
	e, ok := m.take(id)
	if !ok {
		return nil, false
	}
	slog.Debug("optimistic update rolled back", "id", id)
	m.events.Publish(Event{
		ID:            id,
		ScreenKey:     e.update.ScreenKey,
		Status:        StatusRolledBack,
		PreviousItems: e.update.PreviousItems,
	})
	return e.update.PreviousItems, true
}

// expire is the timeout path: identical in effect to a rollback, with a
// timed_out status on the event.
func (m *Manager) expire(id string) {
	e, ok := m.take(id)
	if !ok {
		return // resolved before the timer fired
	}
	slog.Info("optimistic update timed out", "id", id, "screen", e.update.ScreenKey)
	m.events.Publish(Event{
		ID:            id,
		ScreenKey:     e.update.ScreenKey,
		Status:        StatusTimedOut,
		PreviousItems: e.update.PreviousItems,
	})
}

// take removes and returns the entry, stopping its timer. It is the
// single point enforcing one terminal transition per id.
func (m *Manager) take(id string) (*entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.updates[id]
	if !ok {
		return nil, false
	}
	delete(m.updates, id)
	e.timer.Stop()
	return e, true
}

// IsPending reports whether the id is registered and unresolved.
func (m *Manager) IsPending(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.updates[id]
	return ok
}

// HasPendingUpdates reports whether any update for the screen is
// unresolved.
func (m *Manager) HasPendingUpdates(screenKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.updates {
		if e.update.ScreenKey == screenKey {
			return true
		}
	}
	return false
}

// PendingCount reports the number of unresolved updates.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

// Close stops all timers and releases event subscribers.
func (m *Manager) Close() {
	m.mu.Lock()
	for id, e := range m.updates {
		e.timer.Stop()
		delete(m.updates, id)
	}
	m.mu.Unlock()
	m.events.Close()
}

func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return idPrefix + time.Now().UTC().Format("20060102150405.000000000")
	}
	return idPrefix + hex.EncodeToString(b)
}
