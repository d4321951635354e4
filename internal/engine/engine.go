// Package engine drains the mutation queue against the remote server,
// applying the conflict policy and exponential backoff, and reports its
// progress as an observable state stream.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/offsync/internal/queue"
	"github.com/marcus/offsync/internal/resolve"
	"github.com/marcus/offsync/internal/stream"
	"github.com/marcus/offsync/internal/transport"
)

// Phase is the coarse engine state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSyncing
	PhaseCompleted
	PhaseError
)

// String returns the display name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseSyncing:
		return "syncing"
	case PhaseCompleted:
		return "completed"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// State is a point-in-time engine status. Progress is meaningful only
// in the syncing phase; Message only in the error phase.
type State struct {
	Phase    Phase
	Progress float64
	Message  string
}

// Engine owns one drain loop over the queue. Passes are serialized:
// a ProcessQueue call while another is running waits its turn and then
// operates on whatever is pending at that point.
type Engine struct {
	mu     sync.Mutex
	queue  *queue.Queue
	sender transport.Sender
	states *stream.Broadcaster[State]

	// sleep is swapped out by tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an engine over the queue and sender.
func New(q *queue.Queue, sender transport.Sender) *Engine {
	return &Engine{
		queue:  q,
		sender: sender,
		states: stream.NewBroadcaster[State](),
		sleep:  sleepCtx,
	}
}

// States returns an observable sequence of engine state transitions.
func (e *Engine) States() (<-chan State, func()) {
	return e.states.Subscribe()
}

// Close releases state subscribers.
func (e *Engine) Close() {
	e.states.Close()
}

// BackoffDelay returns the delay before the given retry attempt:
// 1s, 2s, 4s, 8s, ... for attempts 1, 2, 3, 4.
func BackoffDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	return time.Duration(1<<(retryCount-1)) * time.Second
}

// ProcessQueue runs one drain pass over every currently pending
// mutation. Individual failures never abort the pass; cancellation
// between mutations does, leaving the remainder pending.
func (e *Engine) ProcessQueue(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := e.queue.AllPending()
	if len(pending) == 0 {
		e.states.Publish(State{Phase: PhaseCompleted, Progress: 1})
		return nil
	}

	slog.Info("sync pass started", "pending", len(pending))
	e.states.Publish(State{Phase: PhaseSyncing})

	for i, m := range pending {
		if err := ctx.Err(); err != nil {
			slog.Info("sync pass cancelled", "processed", i, "remaining", len(pending)-i)
			e.states.Publish(State{Phase: PhaseIdle})
			return err
		}

		if err := e.processOne(ctx, m); err != nil {
			e.states.Publish(State{Phase: PhaseError, Message: err.Error()})
			return err
		}

		e.states.Publish(State{
			Phase:    PhaseSyncing,
			Progress: float64(i+1) / float64(len(pending)),
		})
	}

	slog.Info("sync pass completed", "processed", len(pending))
	e.states.Publish(State{Phase: PhaseCompleted, Progress: 1})
	return nil
}

// processOne sends a single mutation and applies the conflict policy to
// its failure. The returned error is reserved for queue/storage faults;
// server-side failures are fully absorbed here.
func (e *Engine) processOne(ctx context.Context, m queue.Mutation) error {
	if err := e.queue.MarkSyncing(m.ID); err != nil {
		return err
	}

	_, sendErr := e.sender.Send(ctx, requestFor(m))
	if sendErr == nil {
		return e.queue.MarkCompleted(m.ID)
	}

	resolution := resolve.Resolve(m, sendErr)
	slog.Debug("mutation failed", "id", m.ID, "resolution", resolution.String(), "err", sendErr)

	switch resolution {
	case resolve.ApplyLocal:
		// Local intent wins: force it once, immediately. A failure of
		// this forced attempt is terminal; re-classifying it risks a
		// conflict livelock within a single pass.
		if _, err := e.sender.Send(ctx, requestFor(m)); err != nil {
			slog.Warn("apply-local retry failed", "id", m.ID, "err", err)
			return e.queue.MarkFailed(m.ID)
		}
		return e.queue.MarkCompleted(m.ID)

	case resolve.SkipSilently:
		// Already satisfied server-side (e.g. entity deleted).
		return e.queue.MarkCompleted(m.ID)

	case resolve.Retry:
		again, err := e.queue.IncrementRetry(m.ID)
		if err != nil {
			return err
		}
		if !again {
			return nil // budget exhausted, queue marked it failed
		}
		updated, ok := e.queue.Get(m.ID)
		if !ok {
			return fmt.Errorf("mutation %s vanished during retry", m.ID)
		}
		if err := e.sleep(ctx, BackoffDelay(updated.RetryCount)); err != nil {
			return nil // cancelled mid-backoff; entry stays pending
		}
		if err := e.queue.MarkSyncing(m.ID); err != nil {
			return err
		}
		if _, err := e.sender.Send(ctx, requestFor(m)); err != nil {
			// Still failing; leave it pending for the next pass.
			return e.queue.MarkPending(m.ID)
		}
		return e.queue.MarkCompleted(m.ID)

	default: // resolve.Fail
		return e.queue.MarkFailed(m.ID)
	}
}

func requestFor(m queue.Mutation) transport.Request {
	return transport.Request{Method: m.Method, Endpoint: m.Endpoint, Body: m.Body}
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
