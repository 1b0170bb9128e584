package hub

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/hubtime"
	"github.com/srg/blehub/internal/registry"
	"github.com/srg/blehub/internal/wire"
)

// reconcile keeps the radio connected to the registry's devices in
// rotating batches and relays the device list to peer hubs.
//
// A cycle whose snapshot differs from the working queue only reloads the
// queue. A cycle with no membership change connects one batch, relays,
// then dwells for RelayDwell.
func (h *Hub) reconcile(t *executor.Task) error {
	queue := registry.NewQueue(h.cfg.MaxDevices)
	if err := queue.Refill(h.snapshot(t).Devices); err != nil {
		return fmt.Errorf("seed queue: %w", err)
	}

	for {
		snap := h.snapshot(t)
		if !queue.SameMembers(snap.Devices) {
			if err := queue.Refill(snap.Devices); err != nil {
				return fmt.Errorf("refill queue: %w", err)
			}
			h.logger.WithField("devices", queue.Len()).Debug("Working queue reloaded")
			continue
		}

		if err := ConnectBatch(h.host, queue, h.cfg.MaxConnectedDevices); err != nil {
			h.report(t.Name(), host.StatusOf(err), err)
		}
		if err := queue.Merge(snap.Devices); err != nil {
			return fmt.Errorf("merge snapshot: %w", err)
		}
		h.relay(t, queue.Devices(), snap.UpdatedAt)

		t.Sleep(h.cfg.RelayDwell)
	}
}

// relay sends the device list to every Hub among devices. A failed send is
// reported and the remaining peers are still tried.
func (h *Hub) relay(t *executor.Task, devices []device.Device, updatedAt hubtime.Time) {
	infos, err := device.ListToWire(devices)
	if err != nil {
		code := host.StatusOf(err)
		if errors.Is(err, device.ErrUnknownDevice) {
			code = host.GenericAssertionError
		}
		h.report(t.Name(), code, err)
		return
	}

	var peers []wire.DeviceInfo
	for i, d := range devices {
		if d.Kind() == device.KindHub {
			peers = append(peers, infos[i])
		}
	}
	if len(peers) == 0 {
		return
	}

	data, err := wire.EncodeRelay(wire.RelayPacket{
		Timestamp: updatedAt.Unix(),
		Devices:   wire.DevicesList{Devices: infos, Timestamp: updatedAt.Unix()},
	})
	if err != nil {
		h.report(t.Name(), host.ProtobufEncodeError, err)
		return
	}

	sent := 0
	for _, peer := range peers {
		if err := h.host.SendPeer(peer, data); err != nil {
			if !errors.Is(err, host.ErrPeerSend) {
				err = fmt.Errorf("%w: %w", host.ErrPeerSend, err)
			}
			h.report(t.Name(), host.PeerSendError, err)
			continue
		}
		sent++
	}
	h.logger.WithFields(logrus.Fields{
		"peers":   len(peers),
		"sent":    sent,
		"devices": len(infos),
	}).Debug("Device list relayed")
}
