package cmd

import (
	"fmt"

	"github.com/marcus/offsync/internal/connectivity"
	"github.com/marcus/offsync/internal/deltasync"
	"github.com/marcus/offsync/internal/engine"
	"github.com/marcus/offsync/internal/optimistic"
	"github.com/marcus/offsync/internal/queue"
	"github.com/marcus/offsync/internal/syncconfig"
	"github.com/marcus/offsync/internal/transport"
)

// core wires the sync components from the on-disk config for CLI use.
type core struct {
	cfg     *syncconfig.Config
	store   *queue.SQLiteStore
	queue   *queue.Queue
	sender  *transport.HTTPSender
	engine  *engine.Engine
	probe   *connectivity.Probe
	manager *connectivity.Manager
	updates *optimistic.Manager
}

func openCore() (*core, error) {
	cfg, err := syncconfig.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	queuePath, err := cfg.QueuePath()
	if err != nil {
		return nil, err
	}
	store, err := queue.OpenSQLiteStore(queuePath)
	if err != nil {
		return nil, err
	}

	q, err := queue.Open(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	var apiKey, deviceID string
	if creds, err := syncconfig.LoadAuth(); err == nil && creds != nil {
		apiKey = creds.APIKey
		deviceID = creds.DeviceID
	}
	sender := transport.NewHTTPSender(cfg.ServerURL(), apiKey, deviceID)

	eng := engine.New(q, sender)
	probe := connectivity.NewProbe(sender, cfg.ProbeInterval())
	manager := connectivity.NewManager(connectivity.Config{
		Observer: probe,
		Engine:   eng,
		Syncer:   deltasync.NewClient(sender),
		// The CLI has no read-side cache; an empty hash set asks the
		// server for everything that changed.
		Hashes: func() map[string]string { return map[string]string{} },
	})

	return &core{
		cfg:     cfg,
		store:   store,
		queue:   q,
		sender:  sender,
		engine:  eng,
		probe:   probe,
		manager: manager,
		updates: optimistic.NewManager(),
	}, nil
}

func (c *core) close() {
	c.manager.Stop()
	c.probe.Stop()
	c.manager.Close()
	c.updates.Close()
	c.engine.Close()
	c.queue.Close()
	c.store.Close()
}
