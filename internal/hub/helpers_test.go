package hub_test

import (
	"time"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/hubtime"
	"github.com/srg/blehub/internal/testutils"
)

var epoch = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func ts(t time.Time) hubtime.Time {
	return hubtime.FromTime(t)
}

func scanResult(key uint64, name string) host.ScanResult {
	return host.ScanResult{Address: device.AddressFromKey(key), Name: []byte(name)}
}

// idleOn advances the fake clock by 1ms whenever no task is ready.
func idleOn(h *testutils.FakeHost) executor.Option {
	return executor.WithIdle(func() { _ = h.Sleep(time.Millisecond) })
}

func deviceOf(kind device.Kind, key uint64, name string) device.Device {
	d, err := device.New(kind, device.Info{Address: device.AddressFromKey(key), Name: name})
	if err != nil {
		panic(err)
	}
	return d
}
