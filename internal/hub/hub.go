// Package hub runs the hub's long-lived tasks: heartbeat, command dispatch,
// device discovery, and connection reconciliation with relay to peer hubs.
//
// All tasks share one executor, so exactly one of them runs at a time and
// they only hand over control while sleeping. State shared between tasks is
// the device registry, guarded by an async mutex, and the discovery flag.
package hub

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/blehub/internal/asyncmutex"
	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/registry"
)

// Task names, as they appear in logs.
const (
	TaskHeartbeat  = "heartbeat"
	TaskDispatcher = "dispatcher"
	TaskDiscovery  = "discovery"
	TaskReconcile  = "reconcile"
)

// Hub is the composition root.
type Hub struct {
	host   host.Host
	cfg    Config
	logger *logrus.Logger

	registry    *asyncmutex.Mutex[registry.Registry]
	discovering *atomic.Bool
}

// New creates a hub on h. A nil logger means logrus.New().
func New(h host.Host, cfg Config, logger *logrus.Logger) (*Hub, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		host:        h,
		cfg:         cfg,
		logger:      logger,
		registry:    asyncmutex.New(*registry.New(cfg.MaxDevices)),
		discovering: new(atomic.Bool),
	}, nil
}

// Discovering exposes the discovery flag.
func (h *Hub) Discovering() *atomic.Bool {
	return h.discovering
}

// Run boots the hub and drives its tasks until ctx is done or a task exits.
// A task exit is reported to the host and returned as an
// *executor.TaskExitError; cancellation returns ctx.Err().
func (h *Hub) Run(ctx context.Context) error {
	h.boot()

	ex := executor.New(h.host,
		executor.WithLogger(h.logger),
		executor.WithIdle(h.idle),
	)
	ex.Add(TaskHeartbeat, h.heartbeat)
	ex.Add(TaskDispatcher, h.dispatch)
	ex.Add(TaskDiscovery, h.discover)
	ex.Add(TaskReconcile, h.reconcile)

	h.logger.WithFields(logrus.Fields{
		"max_devices":           h.cfg.MaxDevices,
		"max_connected_devices": h.cfg.MaxConnectedDevices,
	}).Info("Hub started")

	err := ex.Run(ctx)
	if errors.Is(err, executor.ErrTaskExited) {
		h.report("executor", host.StatusOf(err), err)
	}
	return err
}

// Devices returns a copy of the registry. It is meant for callers outside
// the executor and fails if a task holds the registry.
func (h *Hub) Devices() (registry.State, bool) {
	g := h.registry.TryLock()
	if g == nil {
		return registry.State{}, false
	}
	defer g.Release()
	return g.Value().Snapshot(), true
}

func (h *Hub) idle() {
	h.hostSleep("executor", h.cfg.IdleSleep)
}

// hostSleep blocks the whole hub for d.
func (h *Hub) hostSleep(task string, d time.Duration) {
	if err := h.host.Sleep(d); err != nil {
		h.report(task, host.StatusOf(err), err)
	}
}

// snapshot copies the registry and its update time under the lock.
func (h *Hub) snapshot(t *executor.Task) registry.State {
	return asyncmutex.With(t, h.registry, func(r *registry.Registry) registry.State {
		return r.Snapshot()
	})
}
