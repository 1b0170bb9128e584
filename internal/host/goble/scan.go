package goble

import (
	"context"
	"errors"
	"sync"
	"unicode/utf8"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/groutine"
	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/ringchan"
)

// scanner runs go-ble scans in the background. Advertisements cross from
// the go-ble callback goroutine to PollScanResult through a ring that
// overwrites the oldest result when the hub falls behind.
type scanner struct {
	dev    ble.Device
	ring   *ringchan.Ring[host.ScanResult]
	logger *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newScanner(dev ble.Device, buffer int, logger *logrus.Logger) *scanner {
	return &scanner{
		dev:    dev,
		ring:   ringchan.New[host.ScanResult](buffer),
		logger: logger,
	}
}

func (s *scanner) start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	s.ring.Drain()
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	groutine.Go(ctx, "ble-scan", func(ctx context.Context) {
		defer close(done)
		err := s.dev.Scan(ctx, false, s.handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.WithField("error", err).Warn("BLE scan stopped")
		}
	})
	s.logger.Debug("BLE scan started")
}

func (s *scanner) stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	pushed, dropped, polled := s.ring.Counters()
	s.logger.WithFields(logrus.Fields{
		"seen":    pushed,
		"dropped": dropped,
		"polled":  polled,
	}).Debug("BLE scan stopped")
}

func (s *scanner) poll() (host.ScanResult, bool) {
	return s.ring.Poll()
}

func (s *scanner) handle(adv ble.Advertisement) {
	res, err := scanResult(adv.Addr().String(), adv.LocalName())
	if err != nil {
		s.logger.WithField("error", err).Debug("Advertisement skipped")
		return
	}
	if s.ring.Push(res) {
		s.logger.Debug("Scan buffer full, oldest result dropped")
	}
}

// scanResult converts an advertisement. Darwin reports peripheral UUIDs
// instead of MAC addresses; those cannot be keyed and are rejected.
func scanResult(addr, name string) (host.ScanResult, error) {
	a, err := device.ParseAddress(addr)
	if err != nil {
		return host.ScanResult{}, err
	}
	res := host.ScanResult{Address: a, Name: []byte(name)}
	if !utf8.ValidString(name) {
		res.NameErr = device.ErrNameEncoding
	}
	return res, nil
}
