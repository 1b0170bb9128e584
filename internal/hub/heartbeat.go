package hub

import (
	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/wire"
)

// heartbeat pings the backend, then waits HeartbeatInterval.
func (h *Hub) heartbeat(t *executor.Task) error {
	for {
		if h.sendPacket(t.Name(), wire.Ping{}) {
			h.logger.Debug("Ping sent")
		}
		t.Sleep(h.cfg.HeartbeatInterval)
	}
}
