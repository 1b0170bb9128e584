package hub

import (
	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/registry"
	"github.com/srg/blehub/internal/wire"
)

// discover waits for the discovery flag and runs one scan session each
// time it is raised.
func (h *Hub) discover(t *executor.Task) error {
	raised := func() (bool, struct{}) {
		return h.discovering.Load(), struct{}{}
	}
	for {
		if !h.discovering.Load() {
			executor.Wait(t, h.cfg.DiscoveryIdle, raised)
			continue
		}
		if err := h.discoverySession(t); err != nil {
			h.report(t.Name(), host.StatusOf(err), err)
		}
	}
}

// discoverySession scans until the window closes, the flag is cleared, or
// MaxFoundDevices distinct addresses have been seen. Each new address is
// sent to the backend once. The scan is always stopped and the flag cleared
// on return.
func (h *Hub) discoverySession(t *executor.Task) error {
	h.host.StartScan()
	h.host.SetLED(host.LEDActivity, true)
	defer func() {
		h.host.StopScan()
		h.host.SetLED(host.LEDActivity, false)
		h.discovering.Store(false)
	}()

	found := hashmap.New[uint64, struct{}]()
	start := h.host.Now()
	log := h.logger.WithField("task", t.Name())
	log.Info("Discovery started")

	for h.host.Now().Sub(start) <= h.cfg.DiscoveryWindow &&
		h.discovering.Load() &&
		found.Len() < h.cfg.MaxFoundDevices {
		if res, ok := h.host.PollScanResult(); ok {
			if err := h.onScanResult(t, found, res); err != nil {
				return err
			}
		}
		t.Sleep(h.cfg.DiscoveryPoll)
	}

	log.WithField("found", found.Len()).Info("Discovery finished")
	return nil
}

func (h *Hub) onScanResult(t *executor.Task, found *hashmap.Map[uint64, struct{}], res host.ScanResult) error {
	if res.NameErr != nil {
		h.report(t.Name(), host.BLENameUTF8Error, res.NameErr)
		return nil
	}

	key := res.Address.Key()
	if _, seen := found.Get(key); seen {
		return nil
	}
	if found.Len() >= h.cfg.MaxFoundDevices {
		return &registry.CapacityError{Capacity: h.cfg.MaxFoundDevices, Accepted: found.Len()}
	}
	found.Set(key, struct{}{})

	info, err := device.InfoToWire(device.Info{Address: res.Address, Name: string(res.Name)})
	if err != nil {
		h.report(t.Name(), host.StatusOf(err), err)
		return nil
	}
	if h.sendPacket(t.Name(), wire.FoundDevice{Device: info}) {
		h.logger.WithFields(logrus.Fields{
			"address": res.Address,
			"name":    info.Name,
		}).Debug("Device found")
	}
	return nil
}
