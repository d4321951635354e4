package optimistic

import (
	"testing"
	"time"
)

func TestConfirmBeforeTimeout(t *testing.T) {
	m := NewManager()
	defer m.Close()

	events, cancel := m.Events()
	defer cancel()

	id := m.Register(Update{
		ScreenKey:       "orders",
		Event:           "saveNew",
		PreviousItems:   []any{"a"},
		OptimisticItems: []any{"a", "b"},
		Timeout:         time.Hour,
	})

	if !m.IsPending(id) {
		t.Fatal("update not pending after register")
	}
	if !m.HasPendingUpdates("orders") {
		t.Error("screen should have pending updates")
	}

	if !m.Confirm(id) {
		t.Fatal("confirm did not resolve")
	}
	if m.IsPending(id) {
		t.Error("update still pending after confirm")
	}

	ev := <-events
	if ev.ID != id || ev.Status != StatusConfirmed {
		t.Errorf("event: %+v", ev)
	}
	if ev.PreviousItems != nil {
		t.Error("confirmation must not carry a rollback snapshot")
	}

	// Second confirm and a late rollback are no-ops.
	if m.Confirm(id) {
		t.Error("second confirm acted")
	}
	if _, ok := m.Rollback(id); ok {
		t.Error("rollback after confirm acted")
	}

	select {
	case ev := <-events:
		t.Errorf("unexpected second event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRollbackReturnsSnapshot(t *testing.T) {
	m := NewManager()
	defer m.Close()

	events, cancel := m.Events()
	defer cancel()

	id := m.Register(Update{
		ScreenKey:     "orders",
		PreviousItems: []any{"x", "y"},
		Timeout:       time.Hour,
	})

	snapshot, ok := m.Rollback(id)
	if !ok {
		t.Fatal("rollback did not resolve")
	}
	if len(snapshot) != 2 || snapshot[0] != "x" {
		t.Errorf("snapshot: %+v", snapshot)
	}

	ev := <-events
	if ev.Status != StatusRolledBack || len(ev.PreviousItems) != 2 {
		t.Errorf("event: %+v", ev)
	}
}

func TestTimeoutEmitsRollbackSnapshot(t *testing.T) {
	m := NewManager()
	defer m.Close()

	events, cancel := m.Events()
	defer cancel()

	id := m.Register(Update{
		ScreenKey:     "orders",
		PreviousItems: []any{"orig"},
		Timeout:       20 * time.Millisecond,
	})

	select {
	case ev := <-events:
		if ev.ID != id || ev.Status != StatusTimedOut {
			t.Errorf("event: %+v", ev)
		}
		if len(ev.PreviousItems) != 1 || ev.PreviousItems[0] != "orig" {
			t.Errorf("snapshot on timeout: %+v", ev.PreviousItems)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no timeout event")
	}

	if m.IsPending(id) {
		t.Error("timed-out update still pending")
	}
	if m.Confirm(id) {
		t.Error("confirm after timeout acted")
	}

	select {
	case ev := <-events:
		t.Errorf("second terminal event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReregisterSupersedesOldTimer(t *testing.T) {
	m := NewManager()
	defer m.Close()

	events, cancel := m.Events()
	defer cancel()

	m.Register(Update{ID: "dup", ScreenKey: "orders", Timeout: 20 * time.Millisecond})
	m.Register(Update{ID: "dup", ScreenKey: "orders", Timeout: time.Hour})

	// The superseded entry's timer must not expire the replacement.
	select {
	case ev := <-events:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}

	if !m.IsPending("dup") {
		t.Fatal("replacement resolved by the superseded timer")
	}
	if m.PendingCount() != 1 {
		t.Errorf("pending count: %d", m.PendingCount())
	}
	if !m.Confirm("dup") {
		t.Error("replacement could not be confirmed")
	}
}

func TestDefaultsApplied(t *testing.T) {
	m := NewManager()
	defer m.Close()

	id := m.Register(Update{ScreenKey: "s"})
	if id == "" {
		t.Fatal("empty id")
	}
	if !m.IsPending(id) {
		t.Fatal("not pending")
	}
	if m.PendingCount() != 1 {
		t.Errorf("pending count: %d", m.PendingCount())
	}
}

func TestUpdatesAreIndependent(t *testing.T) {
	m := NewManager()
	defer m.Close()

	a := m.Register(Update{ScreenKey: "s1", Timeout: time.Hour})
	b := m.Register(Update{ScreenKey: "s2", Timeout: time.Hour})

	m.Confirm(b)

	if !m.IsPending(a) {
		t.Error("confirming b resolved a")
	}
	if m.HasPendingUpdates("s2") {
		t.Error("s2 still has pending updates")
	}
	if !m.HasPendingUpdates("s1") {
		t.Error("s1 lost its pending update")
	}
}
