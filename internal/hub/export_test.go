package hub

import (
	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/hubtime"
)

func (h *Hub) DiscoverySession(t *executor.Task) error {
	return h.discoverySession(t)
}

func (h *Hub) DispatchOnce(t *executor.Task, buf []byte) bool {
	return h.dispatchOnce(t, buf)
}

func (h *Hub) Relay(t *executor.Task, devices []device.Device, updatedAt hubtime.Time) {
	h.relay(t, devices, updatedAt)
}
