package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/marcus/offsync/internal/stream"
)

// MaxEntries is the capacity of the queue in distinct (endpoint, method)
// keys. Enqueues beyond this fail unless they replace an existing key.
const MaxEntries = 50

var (
	// ErrQueueFull is returned by Enqueue when the queue is at capacity
	// and the incoming mutation is not a replacement.
	ErrQueueFull = errors.New("mutation queue full")

	// ErrNotFound is returned by status transitions on unknown ids.
	ErrNotFound = errors.New("mutation not found")
)

// Queue is the durable FIFO of pending mutations. All access is
// serialized through an internal mutex; every mutating call persists
// the full list to the store before returning, and a failed persist
// leaves the in-memory state as it was.
type Queue struct {
	mu     sync.Mutex
	items  []Mutation // FIFO order among distinct keys
	store  Store
	counts *stream.Broadcaster[int]
}

// Open loads the persisted queue state from the store.
func Open(store Store) (*Queue, error) {
	items, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load mutation queue: %w", err)
	}
	// Interrupted syncs leave entries marked syncing; they are still
	// unconfirmed, so they go back to pending on reload.
	for i := range items {
		if items[i].Status == StatusSyncing {
			items[i].Status = StatusPending
		}
	}
	return &Queue{
		items:  items,
		store:  store,
		counts: stream.NewBroadcaster[int](),
	}, nil
}

// Enqueue inserts the mutation, or replaces an existing entry with the
// same (endpoint, method) key while keeping its queue position.
func (q *Queue) Enqueue(m Mutation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if m.MaxRetries <= 0 {
		m.MaxRetries = DefaultMaxRetries
	}
	if m.Status == "" {
		m.Status = StatusPending
	}

	key := m.Key()
	for i := range q.items {
		if q.items[i].Key() == key {
			prev := q.items[i]
			q.items[i] = m
			if err := q.persistLocked(); err != nil {
				q.items[i] = prev
				return err
			}
			slog.Debug("mutation replaced", "id", m.ID, "endpoint", m.Endpoint, "method", m.Method)
			return nil
		}
	}

	if len(q.items) >= MaxEntries {
		return fmt.Errorf("%w: %d entries", ErrQueueFull, len(q.items))
	}

	q.items = append(q.items, m)
	if err := q.persistLocked(); err != nil {
		q.items = q.items[:len(q.items)-1]
		return err
	}
	slog.Debug("mutation enqueued", "id", m.ID, "endpoint", m.Endpoint, "method", m.Method)
	return nil
}

// AllPending returns copies of the entries with pending status, in
// queue order, without removing them.
func (q *Queue) AllPending() []Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Mutation
	for _, m := range q.items {
		if m.Status == StatusPending {
			out = append(out, m)
		}
	}
	return out
}

// All returns copies of every entry in queue order.
func (q *Queue) All() []Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Mutation, len(q.items))
	copy(out, q.items)
	return out
}

// Get returns the entry with the given id.
func (q *Queue) Get(id string) (Mutation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, m := range q.items {
		if m.ID == id {
			return m, true
		}
	}
	return Mutation{}, false
}

// MarkSyncing flags the mutation as in flight.
func (q *Queue) MarkSyncing(id string) error {
	return q.setStatus(id, StatusSyncing)
}

// MarkPending returns the mutation to the pending state, e.g. after an
// attempt that should be retried on a later pass.
func (q *Queue) MarkPending(id string) error {
	return q.setStatus(id, StatusPending)
}

// MarkFailed flags the mutation as permanently failed. Failed entries
// stay in the queue for visibility until explicitly cleared.
func (q *Queue) MarkFailed(id string) error {
	return q.setStatus(id, StatusFailed)
}

// MarkConflicted flags the mutation as conflicted.
func (q *Queue) MarkConflicted(id string) error {
	return q.setStatus(id, StatusConflicted)
}

// MarkCompleted removes the mutation from the queue.
func (q *Queue) MarkCompleted(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, m := range q.items {
		if m.ID == id {
			snapshot := append([]Mutation(nil), q.items...)
			q.items = append(q.items[:i], q.items[i+1:]...)
			if err := q.persistLocked(); err != nil {
				q.items = snapshot
				return err
			}
			slog.Debug("mutation completed", "id", id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// IncrementRetry bumps the retry count. When the count reaches the
// mutation's retry budget the entry is marked failed and false is
// returned to signal "stop retrying"; otherwise the entry returns to
// pending and true is returned.
func (q *Queue) IncrementRetry(id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].ID != id {
			continue
		}
		prev := q.items[i]
		q.items[i].RetryCount++
		again := q.items[i].RetryCount < q.items[i].MaxRetries
		if again {
			q.items[i].Status = StatusPending
		} else {
			q.items[i].Status = StatusFailed
		}
		if err := q.persistLocked(); err != nil {
			q.items[i] = prev
			return false, err
		}
		if !again {
			slog.Info("mutation retry budget exhausted", "id", id, "retries", prev.RetryCount+1)
		}
		return again, nil
	}
	return false, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ClearFailed removes entries with failed status and reports how many
// were removed.
func (q *Queue) ClearFailed() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var kept []Mutation
	removed := 0
	for _, m := range q.items {
		if m.Status == StatusFailed {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	if removed == 0 {
		return 0, nil
	}
	snapshot := q.items
	q.items = kept
	if err := q.persistLocked(); err != nil {
		q.items = snapshot
		return 0, err
	}
	return removed, nil
}

// PendingCount reports the number of pending entries.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingLocked()
}

// Counts returns an observable sequence of the pending entry count,
// published after every mutating call.
func (q *Queue) Counts() (<-chan int, func()) {
	return q.counts.Subscribe()
}

// Close releases the count subscribers.
func (q *Queue) Close() {
	q.counts.Close()
}

func (q *Queue) setStatus(id string, s Status) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].ID == id {
			prev := q.items[i].Status
			q.items[i].Status = s
			if err := q.persistLocked(); err != nil {
				q.items[i].Status = prev
				return err
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (q *Queue) pendingLocked() int {
	n := 0
	for _, m := range q.items {
		if m.Status == StatusPending {
			n++
		}
	}
	return n
}

// persistLocked saves the full list and publishes the pending count.
// Callers must hold q.mu.
func (q *Queue) persistLocked() error {
	if err := q.store.Save(q.items); err != nil {
		return fmt.Errorf("persist mutation queue: %w", err)
	}
	q.counts.Publish(q.pendingLocked())
	return nil
}
