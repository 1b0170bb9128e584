package hub

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/wire"
)

// boot runs once before the tasks start. It blinks the status LED and
// registers the hub with the backend when an id is configured.
func (h *Hub) boot() {
	for i := 0; i < h.cfg.BootFlashes; i++ {
		h.host.SetLED(host.LEDStatus, true)
		h.hostSleep("boot", h.cfg.BootFlashInterval)
		h.host.SetLED(host.LEDStatus, false)
		h.hostSleep("boot", h.cfg.BootFlashInterval)
	}

	if h.cfg.HubID == uuid.Nil {
		return
	}
	reg := Registration(h.cfg.HubID, h.cfg.UserID)
	if h.sendPacket("boot", reg) {
		h.logger.WithFields(logrus.Fields{
			"hub_id":  h.cfg.HubID,
			"user_id": h.cfg.UserID,
		}).Info("Registration sent")
	}
}

// Registration builds the registration packet for a hub and its owner. The
// user is omitted when it is the nil UUID.
func Registration(hubID, userID uuid.UUID) wire.Registration {
	self := UUIDToWire(hubID)
	reg := wire.Registration{Self: &self}
	if userID != uuid.Nil {
		user := UUIDToWire(userID)
		reg.User = &user
	}
	return reg
}

// UUIDToWire splits u into its big-endian high and low halves.
func UUIDToWire(u uuid.UUID) wire.UUID {
	return wire.UUID{
		Higher: int64(binary.BigEndian.Uint64(u[:8])),
		Lower:  int64(binary.BigEndian.Uint64(u[8:])),
	}
}

// UUIDFromWire is the inverse of UUIDToWire.
func UUIDFromWire(w wire.UUID) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[:8], uint64(w.Higher))
	binary.BigEndian.PutUint64(u[8:], uint64(w.Lower))
	return u
}
