package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marcus/offsync/internal/optimistic"
	"github.com/marcus/offsync/internal/queue"
	"github.com/marcus/offsync/internal/transport"
)

// Config wires an Orchestrator. Queue and Updates are optional: without
// a queue, failed writes surface as errors; without an update manager,
// ExecuteOptimistic degrades to Execute.
type Config struct {
	Registry Registry
	Sender   transport.Sender
	Loader   Loader
	Queue    *queue.Queue
	Updates  *optimistic.Manager
}

// Orchestrator holds no mutable state of its own; it may be called
// concurrently, each call independent.
type Orchestrator struct {
	cfg Config
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

// Execute runs one UI event through its fixed dispatch path and always
// returns a Result; network and server failures never escape as bare
// errors.
func (o *Orchestrator) Execute(ctx context.Context, event Kind, ec Context) Result {
	contract, ok := o.cfg.Registry.Contract(ec.ScreenKey)
	if !ok {
		return Errorf(nil, fmt.Sprintf("no contract for screen %q", ec.ScreenKey))
	}

	if perm, required := contract.PermissionFor(event); required && !ec.HasPermission(perm) {
		slog.Debug("permission denied", "screen", ec.ScreenKey, "event", event, "permission", perm)
		return Result{
			Kind:    ResultPermissionDenied,
			Message: fmt.Sprintf("missing permission %q", perm),
		}
	}

	switch {
	case event.IsRead():
		return o.read(ctx, event, contract, ec)
	case event.IsWrite():
		return o.write(ctx, event, contract, ec)
	case event == KindSelectItem:
		return o.selectItem(ec)
	case event == KindCreate:
		return Result{Kind: ResultNavigateTo, TargetScreen: ec.ScreenKey + "/new"}
	default:
		return Errorf(nil, fmt.Sprintf("unknown event kind %q", event))
	}
}

// ExecuteCustom invokes a contract-registered handler for behavior not
// covered by the fixed event set.
func (o *Orchestrator) ExecuteCustom(ctx context.Context, eventID string, ec Context) Result {
	contract, ok := o.cfg.Registry.Contract(ec.ScreenKey)
	if !ok {
		return Errorf(nil, fmt.Sprintf("no contract for screen %q", ec.ScreenKey))
	}
	handler, ok := contract.CustomHandler(eventID)
	if !ok {
		return Errorf(nil, fmt.Sprintf("no handler for event %q on screen %q", eventID, ec.ScreenKey))
	}
	return handler(ctx, ec)
}

// ExecuteOptimistic registers the provisional UI change, runs the
// event, and resolves the update from the outcome: success confirms,
// failure (other than an offline-queued write) rolls back. The result
// carries the update id so the UI can track it.
func (o *Orchestrator) ExecuteOptimistic(ctx context.Context, event Kind, ec Context, previous, provisional []any) Result {
	if o.cfg.Updates == nil {
		return o.Execute(ctx, event, ec)
	}

	id := o.cfg.Updates.Register(optimistic.Update{
		ScreenKey:       ec.ScreenKey,
		Event:           string(event),
		PreviousItems:   previous,
		OptimisticItems: provisional,
		FieldValues:     ec.FieldValues,
	})

	result := o.Execute(ctx, event, ec)
	switch result.Kind {
	case ResultSuccess, ResultPendingDelete:
		o.cfg.Updates.Confirm(id)
		result.Kind = ResultOptimisticSuccess
		result.UpdateID = id
	default:
		o.cfg.Updates.Rollback(id)
	}
	return result
}

func (o *Orchestrator) read(ctx context.Context, event Kind, contract Contract, ec Context) Result {
	endpoint, ok := contract.EndpointFor(event, ec)
	if !ok {
		return Errorf(nil, fmt.Sprintf("no endpoint for %s on screen %q", event, ec.ScreenKey))
	}

	cfg, _ := contract.DataConfig()
	data, err := o.cfg.Loader.Load(ctx, endpoint, cfg, ec)
	if err != nil {
		// Read failures, decoding included, are retryable by the UI.
		return Errorf(err, "failed to load data, pull to retry")
	}
	return Result{Kind: ResultSuccess, Data: data}
}

func (o *Orchestrator) write(ctx context.Context, event Kind, contract Contract, ec Context) Result {
	endpoint, ok := contract.EndpointFor(event, ec)
	if !ok {
		return Errorf(nil, fmt.Sprintf("no endpoint for %s on screen %q", event, ec.ScreenKey))
	}

	var body json.RawMessage
	if event != KindDelete && ec.FieldValues != nil {
		data, err := json.Marshal(ec.FieldValues)
		if err != nil {
			return Errorf(err, "could not encode form values")
		}
		body = data
	}

	_, err := o.cfg.Sender.Send(ctx, transport.Request{
		Method:   event.Method(),
		Endpoint: endpoint,
		Body:     body,
	})
	if err == nil {
		return Result{Kind: ResultSuccess, Message: successMessage(event)}
	}

	if o.cfg.Queue == nil {
		slog.Warn("write failed with no offline queue", "screen", ec.ScreenKey, "event", event, "err", err)
		return Errorf(err, "could not save changes")
	}

	// Never lose a write over a merely-unavailable network: capture it
	// and report deferred completion.
	m := queue.NewMutation(endpoint, event.Method(), body)
	if qerr := o.cfg.Queue.Enqueue(m); qerr != nil {
		if errors.Is(qerr, queue.ErrQueueFull) {
			return Errorf(qerr, "too many unsynced changes, reconnect to continue")
		}
		return Errorf(qerr, "could not save changes")
	}
	slog.Info("write queued offline", "screen", ec.ScreenKey, "event", event, "endpoint", endpoint)

	if event == KindDelete {
		return Result{
			Kind:          ResultPendingDelete,
			Message:       "deleted locally, will sync when back online",
			QueuedOffline: true,
		}
	}
	return Result{
		Kind:          ResultSuccess,
		Message:       "saved offline, will sync when back online",
		QueuedOffline: true,
	}
}

func (o *Orchestrator) selectItem(ec Context) Result {
	id := ec.SelectedItemID()
	if id == "" {
		return Result{Kind: ResultNoOp, Message: "nothing selected"}
	}
	return Result{Kind: ResultNavigateTo, TargetScreen: ec.ScreenKey + "/" + id}
}

func successMessage(event Kind) string {
	switch event {
	case KindSaveNew:
		return "created"
	case KindSaveExisting:
		return "saved"
	case KindDelete:
		return "deleted"
	}
	return "done"
}
