package connectivity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/marcus/offsync/internal/deltasync"
	"github.com/marcus/offsync/internal/stream"
)

// Drainer drains the mutation queue. *engine.Engine satisfies this.
type Drainer interface {
	ProcessQueue(ctx context.Context) error
}

// Config wires a Manager.
type Config struct {
	Observer Observer
	Engine   Drainer
	Syncer   deltasync.Syncer

	// Hashes supplies the locally known per-collection state hashes
	// for the reconnect delta fetch. Nil means no delta fetch.
	Hashes func() map[string]string

	// OnDelta receives the changed bundles from a reconnect delta
	// fetch. Nil means the result is only logged.
	OnDelta func(*deltasync.Result)
}

// Manager turns raw connectivity flips into reconciliation work. It is
// decoupled from app lifecycle: Start/Stop any number of times, Start
// is idempotent while running.
type Manager struct {
	mu          sync.Mutex
	cfg         Config
	online      bool
	transitions *stream.Broadcaster[bool]
	cancel      context.CancelFunc
	unsubscribe func()
	done        chan struct{}
}

// NewManager creates a manager; call Start to begin observing.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:         cfg,
		transitions: stream.NewBroadcaster[bool](),
	}
}

// IsOnline reports the last observed connectivity state.
func (m *Manager) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Transitions returns an observable sequence of online/offline flips.
func (m *Manager) Transitions() (<-chan bool, func()) {
	return m.transitions.Subscribe()
}

// Start subscribes to the observer and begins reacting to transitions.
// Calling Start on a running manager is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	changes, unsubscribe := m.cfg.Observer.Changes()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.unsubscribe = unsubscribe
	m.done = make(chan struct{})
	m.online = m.cfg.Observer.IsOnline()

	go m.watch(ctx, changes, m.done)
}

// Stop releases the observer subscription and waits for the watch loop.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, unsubscribe, done := m.cancel, m.unsubscribe, m.done
	m.cancel, m.unsubscribe, m.done = nil, nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	unsubscribe()
	<-done
}

func (m *Manager) watch(ctx context.Context, changes <-chan bool, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-changes:
			if !ok {
				return
			}
			m.handle(ctx, online)
		}
	}
}

// handle processes one observed connectivity value. Repeats of the
// current state are dropped; a flip is published, and a flip to online
// triggers queue drain followed by a delta re-fetch.
func (m *Manager) handle(ctx context.Context, online bool) {
	m.mu.Lock()
	if online == m.online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.mu.Unlock()

	m.transitions.Publish(online)
	if !online {
		slog.Info("went offline")
		return
	}

	slog.Info("back online, reconciling")
	if err := m.cfg.Engine.ProcessQueue(ctx); err != nil {
		slog.Warn("reconnect drain interrupted", "err", err)
	}
	m.deltaFetch(ctx)
}

func (m *Manager) deltaFetch(ctx context.Context) {
	if m.cfg.Syncer == nil || m.cfg.Hashes == nil {
		return
	}

	result, err := m.cfg.Syncer.DeltaSync(ctx, m.cfg.Hashes())
	if err != nil {
		slog.Warn("reconnect delta sync failed", "err", err)
		return
	}
	slog.Info("delta sync complete", "changed", len(result.Bundles))
	if m.cfg.OnDelta != nil {
		m.cfg.OnDelta(result)
	}
}

// Close releases transition subscribers. Call after Stop.
func (m *Manager) Close() {
	m.transitions.Close()
}
