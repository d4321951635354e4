package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// memStore is an in-memory Store for queue behavior tests. Setting
// failErr makes every Save fail until it is cleared.
type memStore struct {
	mu      sync.Mutex
	saved   []Mutation
	saves   int
	failErr error
}

func (s *memStore) Save(mutations []Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.saved = append([]Mutation(nil), mutations...)
	s.saves++
	return nil
}

func (s *memStore) setFailErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *memStore) Load() ([]Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Mutation(nil), s.saved...), nil
}

func openTestQueue(t *testing.T) (*Queue, *memStore) {
	t.Helper()
	store := &memStore{}
	q, err := Open(store)
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	t.Cleanup(q.Close)
	return q, store
}

func TestEnqueueReplacesByKeyKeepingPosition(t *testing.T) {
	q, _ := openTestQueue(t)

	first := NewMutation("/items/1", "PUT", json.RawMessage(`{"v":1}`))
	middle := NewMutation("/items/2", "POST", json.RawMessage(`{"v":2}`))
	replacement := NewMutation("/items/1", "PUT", json.RawMessage(`{"v":3}`))

	for _, m := range []Mutation{first, middle, replacement} {
		if err := q.Enqueue(m); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	all := q.All()
	if len(all) != 2 {
		t.Fatalf("got %d entries, want 2", len(all))
	}
	if all[0].ID != replacement.ID {
		t.Errorf("position 0: got id %s, want replacement %s", all[0].ID, replacement.ID)
	}
	if string(all[0].Body) != `{"v":3}` {
		t.Errorf("position 0 body: got %s", all[0].Body)
	}
	if all[1].ID != middle.ID {
		t.Errorf("position 1: got id %s, want %s", all[1].ID, middle.ID)
	}
}

func TestEnqueueCapacity(t *testing.T) {
	q, _ := openTestQueue(t)

	for i := 0; i < MaxEntries; i++ {
		m := NewMutation(fmt.Sprintf("/items/%d", i), "POST", nil)
		if err := q.Enqueue(m); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	err := q.Enqueue(NewMutation("/items/overflow", "POST", nil))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if n := len(q.All()); n != MaxEntries {
		t.Errorf("queue size after overflow: got %d, want %d", n, MaxEntries)
	}

	// Replacement of an existing key still works at capacity.
	if err := q.Enqueue(NewMutation("/items/0", "POST", json.RawMessage(`{}`))); err != nil {
		t.Errorf("replacement at capacity: %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	q, _ := openTestQueue(t)

	m := NewMutation("/items/1", "DELETE", nil)
	if err := q.Enqueue(m); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := q.MarkSyncing(m.ID); err != nil {
		t.Fatalf("mark syncing: %v", err)
	}
	got, _ := q.Get(m.ID)
	if got.Status != StatusSyncing {
		t.Errorf("status: got %s", got.Status)
	}
	if len(q.AllPending()) != 0 {
		t.Error("syncing entry still reported pending")
	}

	if err := q.MarkCompleted(m.ID); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if _, ok := q.Get(m.ID); ok {
		t.Error("completed entry still present")
	}

	if err := q.MarkFailed("mu-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIncrementRetry(t *testing.T) {
	q, _ := openTestQueue(t)

	m := NewMutation("/items/1", "PUT", nil)
	m.MaxRetries = 2
	if err := q.Enqueue(m); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	again, err := q.IncrementRetry(m.ID)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if !again {
		t.Fatal("first retry should continue")
	}
	got, _ := q.Get(m.ID)
	if got.RetryCount != 1 || got.Status != StatusPending {
		t.Errorf("after first retry: count=%d status=%s", got.RetryCount, got.Status)
	}

	again, err = q.IncrementRetry(m.ID)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if again {
		t.Fatal("retry budget exhausted but told to continue")
	}
	got, _ = q.Get(m.ID)
	if got.Status != StatusFailed {
		t.Errorf("after exhaustion: status=%s", got.Status)
	}
}

func TestPersistedOnEveryMutatingCall(t *testing.T) {
	q, store := openTestQueue(t)

	m := NewMutation("/items/1", "POST", nil)
	q.Enqueue(m)
	q.MarkSyncing(m.ID)
	q.IncrementRetry(m.ID)
	q.MarkCompleted(m.ID)

	if store.saves != 4 {
		t.Errorf("saves: got %d, want 4", store.saves)
	}
}

func TestPersistFailureLeavesMemoryUnchanged(t *testing.T) {
	q, store := openTestQueue(t)

	m := NewMutation("/items/1", "PUT", json.RawMessage(`{"v":1}`))
	if err := q.Enqueue(m); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	saveErr := errors.New("disk gone")
	store.setFailErr(saveErr)

	// Append path: the new entry must not survive a failed save.
	if err := q.Enqueue(NewMutation("/items/2", "POST", nil)); !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
	if n := len(q.All()); n != 1 {
		t.Errorf("entries after failed append: got %d, want 1", n)
	}

	// Replacement path: the old entry must keep its payload.
	if err := q.Enqueue(NewMutation("/items/1", "PUT", json.RawMessage(`{"v":2}`))); !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
	got, _ := q.Get(m.ID)
	if string(got.Body) != `{"v":1}` {
		t.Errorf("replaced body survived failed save: %s", got.Body)
	}

	// Status and removal paths roll back the same way.
	if err := q.MarkSyncing(m.ID); !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
	got, _ = q.Get(m.ID)
	if got.Status != StatusPending {
		t.Errorf("status after failed save: got %s, want pending", got.Status)
	}
	if err := q.MarkCompleted(m.ID); !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
	if _, ok := q.Get(m.ID); !ok {
		t.Error("entry removed despite failed save")
	}
	if again, err := q.IncrementRetry(m.ID); again || !errors.Is(err, saveErr) {
		t.Fatalf("increment during failed save: again=%v err=%v", again, err)
	}
	got, _ = q.Get(m.ID)
	if got.RetryCount != 0 {
		t.Errorf("retry count after failed save: got %d, want 0", got.RetryCount)
	}

	// Once the store recovers everything proceeds from the intact state.
	store.setFailErr(nil)
	if err := q.MarkSyncing(m.ID); err != nil {
		t.Fatalf("mark syncing after recovery: %v", err)
	}
}

func TestSyncingResetToPendingOnOpen(t *testing.T) {
	store := &memStore{}
	m := NewMutation("/items/1", "POST", nil)
	m.Status = StatusSyncing
	store.Save([]Mutation{m})

	q, err := Open(store)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer q.Close()

	got, _ := q.Get(m.ID)
	if got.Status != StatusPending {
		t.Errorf("reloaded status: got %s, want pending", got.Status)
	}
}

func TestClearFailed(t *testing.T) {
	q, _ := openTestQueue(t)

	ok := NewMutation("/a", "POST", nil)
	bad := NewMutation("/b", "POST", nil)
	q.Enqueue(ok)
	q.Enqueue(bad)
	q.MarkFailed(bad.ID)

	n, err := q.ClearFailed()
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if n != 1 {
		t.Errorf("removed: got %d, want 1", n)
	}
	if len(q.All()) != 1 {
		t.Errorf("remaining: got %d, want 1", len(q.All()))
	}
}

func TestCountsStream(t *testing.T) {
	q, _ := openTestQueue(t)

	counts, cancel := q.Counts()
	defer cancel()

	m1 := NewMutation("/a", "POST", nil)
	m2 := NewMutation("/b", "POST", nil)
	q.Enqueue(m1)
	q.Enqueue(m2)
	q.MarkCompleted(m1.ID)

	want := []int{1, 2, 1}
	for i, w := range want {
		if got := <-counts; got != w {
			t.Errorf("count %d: got %d, want %d", i, got, w)
		}
	}
}
