// Package goble is the production host.Host: go-ble for the radio, a
// websocket link to the backend and GPIO LEDs.
package goble

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/blehub/internal/groutine"
	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/hubtime"
	"github.com/srg/blehub/internal/wire"
	"github.com/srg/blehub/pkg/config"
)

// Host runs the hub on real hardware.
type Host struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *logrus.Logger

	dev       ble.Device
	transport *Transport
	scan      *scanner
	conns     *connections
	peers     *peerWriter
	leds      *LEDs

	// start keeps the monotonic reading Now is measured from
	start time.Time
}

var _ host.Host = (*Host)(nil)

// New opens the BLE device, sets up the LEDs and starts the backend link.
// Close releases all of it.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Host, error) {
	if logger == nil {
		logger = logrus.New()
	}

	leds := LogOnlyLEDs(logger)
	if cfg.LED.Enabled {
		var err error
		if leds, err = NewLEDs(cfg.LED.StatusPin, cfg.LED.ActivityPin, logger); err != nil {
			return nil, err
		}
	}

	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", err)
	}

	h, err := newHost(ctx, dev, cfg, leds, logger)
	if err != nil {
		_ = dev.Stop()
		return nil, err
	}
	groutine.Go(h.ctx, "backend", h.transport.Run)
	return h, nil
}

func newHost(ctx context.Context, dev ble.Device, cfg *config.Config, leds *LEDs, logger *logrus.Logger) (*Host, error) {
	conns := newConnections(dev, cfg.BLE.ConnectTimeout, logger)
	peers, err := newPeerWriter(conns, cfg.BLE.RelayService, cfg.BLE.RelayCharacteristic,
		cfg.BLE.PeerRate, cfg.BLE.PeerBurst, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Host{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		dev:    dev,
		transport: NewTransport(TransportConfig{
			URL:           cfg.Backend.URL,
			DialTimeout:   cfg.Backend.DialTimeout,
			RetryInterval: cfg.Backend.RetryInterval,
			InboundBuffer: cfg.Backend.InboundBuffer,
			MaxFailures:   cfg.Backend.MaxFailures,
		}, logger),
		scan:  newScanner(dev, cfg.BLE.ScanBuffer, logger),
		conns: conns,
		peers: peers,
		leds:  leds,
		start: time.Now(),
	}, nil
}

// Close stops scanning, drops every connection and the backend link.
func (h *Host) Close() error {
	h.scan.stop()
	h.conns.closeAll()
	h.cancel()
	for _, led := range []host.LED{host.LEDStatus, host.LEDActivity} {
		h.leds.Set(led, false)
	}
	return h.dev.Stop()
}

func (h *Host) ReadTransport(buf []byte) (int, bool, error) {
	return h.transport.Read(buf)
}

func (h *Host) SendPacket(data []byte) error {
	return h.transport.Send(data)
}

// SendStatus logs code; the backend protocol has no status message.
func (h *Host) SendStatus(code host.Status) {
	h.logger.WithField("status", code).Warn("Hub status")
}

// Now is wall time at start plus monotonic time since, so a wall clock
// step never moves it backwards.
func (h *Host) Now() hubtime.Time {
	return hubtime.FromTime(h.start).Add(time.Since(h.start))
}

func (h *Host) Sleep(d time.Duration) error {
	if err := host.CheckSleep(d); err != nil {
		return err
	}
	time.Sleep(d)
	return nil
}

func (h *Host) SetLED(led host.LED, on bool) {
	h.leds.Set(led, on)
}

func (h *Host) StartScan() {
	h.scan.start(h.ctx)
}

func (h *Host) StopScan() {
	h.scan.stop()
}

func (h *Host) PollScanResult() (host.ScanResult, bool) {
	return h.scan.poll()
}

func (h *Host) ConnectDevices(keys []uint64) {
	h.conns.set(h.ctx, keys)
}

func (h *Host) SendPeer(target wire.DeviceInfo, data []byte) error {
	return h.peers.send(h.ctx, target, data)
}
