package hub

import (
	"github.com/sirupsen/logrus"

	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/wire"
)

// report logs a condition and forwards its status code to the host.
func (h *Hub) report(task string, code host.Status, err error) {
	h.logger.WithFields(logrus.Fields{
		"task":   task,
		"status": code.String(),
		"error":  err,
	}).Warn("Reporting status")
	h.host.SendStatus(code)
}

// sendPacket encodes p and sends it to the backend. Any failure is reported
// as ProtobufEncodeError.
func (h *Hub) sendPacket(task string, p wire.Packet) bool {
	data, err := wire.EncodePacket(p)
	if err != nil {
		h.report(task, host.ProtobufEncodeError, err)
		return false
	}
	if err := h.host.SendPacket(data); err != nil {
		h.report(task, host.ProtobufEncodeError, err)
		return false
	}
	return true
}
