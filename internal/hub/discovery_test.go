package hub_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/hub"
	"github.com/srg/blehub/internal/hubtime"
	"github.com/srg/blehub/internal/testutils"
)

type DiscoveryTestSuite struct {
	suite.Suite
	helper *testutils.TestHelper
	host   *testutils.FakeHost
	cfg    hub.Config
}

func (s *DiscoveryTestSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	s.host = testutils.NewFakeHost(epoch)
	s.cfg = hub.DefaultConfig()
}

func (s *DiscoveryTestSuite) newHub() *hub.Hub {
	h, err := hub.New(s.host, s.cfg, s.helper.Logger)
	s.Require().NoError(err, "hub MUST accept the config")
	return h
}

func (s *DiscoveryTestSuite) runSession(h *hub.Hub) error {
	return executor.BlockOn(context.Background(), s.host, func(t *executor.Task) error {
		return h.DiscoverySession(t)
	}, idleOn(s.host))
}

func (s *DiscoveryTestSuite) TestSessionIsBoundedByWindow() {
	// GOAL: Verify a session with an endless stream of results ends after the discovery window
	//
	// TEST SCENARIO: clock ticks 1s per read, the same device is always visible → session ends after 15s → scan started and stopped once, one device reported

	s.host.WithTick(time.Second).WithScanSource(func() (host.ScanResult, bool) {
		return host.ScanResult{Address: device.Address{1, 2, 3, 4, 5, 6, 0, 0}, Name: []byte("abcdefgh")}, true
	})
	h := s.newHub()
	h.Discovering().Store(true)

	s.Require().NoError(s.runSession(h))

	elapsed := s.host.Clock().Sub(ts(epoch))
	s.Greater(elapsed, 15*time.Second, "clock MUST pass the discovery window")
	starts, stops := s.host.ScanCalls()
	s.Equal(1, starts, "scan MUST start exactly once")
	s.Equal(1, stops, "scan MUST stop exactly once")
	s.False(h.Discovering().Load(), "flag MUST be cleared on exit")
	s.False(s.host.Scanning())

	testutils.NewJSONAsserter(s.T()).AssertHost(s.host, `{
		"packets": ["found_device"],
		"found": [{"address": 6618611909121, "name": "abcdefgh", "device_type": 0}],
		"statuses": null,
		"leds": [{"led": "activity", "on": true}, {"led": "activity", "on": false}]
	}`)
}

func (s *DiscoveryTestSuite) TestSessionEndsWhenFlagCleared() {
	next := uint64(0)
	var h *hub.Hub
	s.host.WithScanSource(func() (host.ScanResult, bool) {
		next++
		if next == 3 {
			h.Discovering().Store(false)
		}
		return scanResult(next, "d"), true
	})
	h = s.newHub()
	h.Discovering().Store(true)

	s.Require().NoError(s.runSession(h))

	packets, err := s.host.Packets()
	s.Require().NoError(err)
	s.Len(packets, 3, "results polled before the flag dropped MUST be reported")
	starts, stops := s.host.ScanCalls()
	s.Equal([2]int{1, 1}, [2]int{starts, stops})
	s.Less(s.host.Clock().Sub(ts(epoch)), time.Second, "session MUST end well before the window")
}

func (s *DiscoveryTestSuite) TestSessionEndsWhenFoundSetIsFull() {
	s.cfg.MaxFoundDevices = 3
	next := uint64(100)
	s.host.WithScanSource(func() (host.ScanResult, bool) {
		next++
		return scanResult(next, "n"), true
	})
	h := s.newHub()
	h.Discovering().Store(true)

	s.Require().NoError(s.runSession(h))

	rec := s.host.Record()
	s.Equal([]string{"found_device", "found_device", "found_device"}, rec.Packets)
	s.Empty(rec.Statuses)
	s.Equal(1, rec.ScanStops)
	s.False(h.Discovering().Load())
}

func (s *DiscoveryTestSuite) TestDuplicatesAreReportedOnce() {
	s.host.PushScanResults(scanResult(7, "a"), scanResult(7, "a"), scanResult(8, "b"), scanResult(7, "renamed"))
	s.cfg.DiscoveryWindow = 2 * time.Second
	h := s.newHub()
	h.Discovering().Store(true)

	s.Require().NoError(s.runSession(h))

	rec := s.host.Record()
	s.Require().Len(rec.Found, 2)
	s.Equal(int64(7), rec.Found[0].Address)
	s.Equal(int64(8), rec.Found[1].Address)
}

func (s *DiscoveryTestSuite) TestBadResultsAreReportedAndSkipped() {
	tests := []struct {
		name   string
		result host.ScanResult
		status host.Status
	}{
		{
			name:   "name not utf-8 per radio",
			result: host.ScanResult{Address: device.AddressFromKey(1), Name: []byte{0xff}, NameErr: errors.New("invalid utf-8")},
			status: host.BLENameUTF8Error,
		},
		{
			name:   "name not utf-8 on conversion",
			result: scanResult(2, "\xc3\x28"),
			status: host.BLENameUTF8Error,
		},
		{
			name:   "name too long",
			result: scanResult(3, strings.Repeat("x", device.MaxNameLen+1)),
			status: host.NameTooLong,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.cfg.DiscoveryWindow = time.Second
			s.host.PushScanResults(tt.result)
			h := s.newHub()
			h.Discovering().Store(true)

			s.Require().NoError(s.runSession(h))

			s.Equal([]host.Status{tt.status}, s.host.Statuses())
			packets, err := s.host.Packets()
			s.Require().NoError(err)
			s.Empty(packets, "bad result MUST NOT be sent")
		})
	}
}

func (s *DiscoveryTestSuite) TestSendFailureIsNotFatal() {
	s.cfg.DiscoveryWindow = time.Second
	s.host.WithSendPacketError(errors.New("socket closed"))
	s.host.PushScanResults(scanResult(1, "a"), scanResult(2, "b"))
	h := s.newHub()
	h.Discovering().Store(true)

	s.Require().NoError(s.runSession(h))

	s.Equal([]host.Status{host.ProtobufEncodeError, host.ProtobufEncodeError}, s.host.Statuses())
	_, stops := s.host.ScanCalls()
	s.Equal(1, stops)
}

func (s *DiscoveryTestSuite) TestSessionStopsScanWhenHalted() {
	// GOAL: Verify cancelling the executor mid-session still stops the scan and clears the flag
	//
	// TEST SCENARIO: session running with no results → context cancelled after 1s → StopScan called, flag false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.host.OnSleep(func(now hubtime.Time) {
		if now.Sub(ts(epoch)) > time.Second {
			cancel()
		}
	})
	h := s.newHub()
	h.Discovering().Store(true)

	err := executor.BlockOn(ctx, s.host, func(t *executor.Task) error {
		return h.DiscoverySession(t)
	}, idleOn(s.host))

	s.Require().ErrorIs(err, context.Canceled)
	starts, stops := s.host.ScanCalls()
	s.Equal(1, starts)
	s.Equal(1, stops, "deferred cleanup MUST run on cancellation")
	s.False(h.Discovering().Load())
}

func TestDiscoveryTestSuite(t *testing.T) {
	suite.Run(t, new(DiscoveryTestSuite))
}
