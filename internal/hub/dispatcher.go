package hub

import (
	"github.com/sirupsen/logrus"

	"github.com/srg/blehub/internal/asyncmutex"
	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/registry"
	"github.com/srg/blehub/internal/wire"
)

// DispatchBufferSize is the largest inbound message the hub accepts.
const DispatchBufferSize = 256

// dispatch handles inbound backend commands, one message per iteration.
func (h *Hub) dispatch(t *executor.Task) error {
	buf := make([]byte, DispatchBufferSize)
	for {
		if more := h.dispatchOnce(t, buf); !more {
			h.hostSleep(t.Name(), h.cfg.DispatchPace)
		}
		t.Yield()
	}
}

// dispatchOnce reads and applies at most one command. It reports whether
// more inbound data is already waiting.
func (h *Hub) dispatchOnce(t *executor.Task, buf []byte) bool {
	n, more, err := h.host.ReadTransport(buf)
	if err != nil {
		h.report(t.Name(), host.StatusOf(err), err)
		return more
	}
	if n == 0 {
		return more
	}

	cmd, err := wire.DecodeCommand(buf[:n])
	if err != nil {
		h.report(t.Name(), host.ProtobufDecodeError, err)
		return more
	}

	switch c := cmd.(type) {
	case wire.ReplaceDevices:
		h.replaceDevices(t, c.Devices)
	case wire.StopDiscovery:
		h.discovering.Store(false)
		h.logger.Debug("Discovery stop requested")
	case wire.StartDiscovery:
		h.discovering.Store(true)
		h.logger.Debug("Discovery start requested")
	}
	return more
}

func (h *Hub) replaceDevices(t *executor.Task, list []wire.DeviceInfo) {
	now := h.host.Now()
	err := asyncmutex.With(t, h.registry, func(r *registry.Registry) error {
		return r.Replace(list, now)
	})
	if err != nil {
		h.report(t.Name(), host.StatusOf(err), err)
		return
	}
	h.logger.WithFields(logrus.Fields{
		"devices": len(list),
		"at":      now,
	}).Info("Device list replaced")
}
