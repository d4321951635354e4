// Package connectivity watches the network state and drives
// reconciliation when the connection comes back: drain the mutation
// queue, then delta-fetch whatever changed server-side while offline.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/offsync/internal/stream"
)

// Observer is the connectivity source the manager watches. Hosts with a
// platform reachability API implement this directly; Probe below is the
// fallback built on the server health endpoint.
type Observer interface {
	IsOnline() bool
	Changes() (<-chan bool, func())
}

// HealthChecker reports whether the server answers its health endpoint.
// *transport.HTTPSender satisfies this.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DefaultProbeInterval is how often Probe polls the health endpoint.
const DefaultProbeInterval = 15 * time.Second

// Probe is an Observer that derives connectivity from periodic health
// checks. It publishes a value only when the state actually flips.
type Probe struct {
	mu       sync.Mutex
	checker  HealthChecker
	interval time.Duration
	online   bool
	changes  *stream.Broadcaster[bool]
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewProbe creates a probe; interval <= 0 uses DefaultProbeInterval.
func NewProbe(checker HealthChecker, interval time.Duration) *Probe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Probe{
		checker:  checker,
		interval: interval,
		changes:  stream.NewBroadcaster[bool](),
	}
}

// IsOnline implements Observer.
func (p *Probe) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Changes implements Observer.
func (p *Probe) Changes() (<-chan bool, func()) {
	return p.changes.Subscribe()
}

// Start begins polling. Starting an already-started probe is a no-op.
func (p *Probe) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop halts polling and waits for the poll loop to exit.
func (p *Probe) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Probe) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

// check runs one health probe and publishes on a state flip.
func (p *Probe) check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()
	online := p.checker.HealthCheck(probeCtx) == nil

	p.mu.Lock()
	flipped := online != p.online
	p.online = online
	p.mu.Unlock()

	if flipped {
		slog.Info("connectivity changed", "online", online)
		p.changes.Publish(online)
	}
}
