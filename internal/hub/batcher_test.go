package hub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/hub"
	"github.com/srg/blehub/internal/registry"
	"github.com/srg/blehub/internal/testutils"
)

func queueOf(t *testing.T, devices ...device.Device) *registry.Queue {
	t.Helper()
	q := registry.NewQueue(registry.MaxDevices)
	require.NoError(t, q.Refill(devices))
	return q
}

func queueKeys(q *registry.Queue) []uint64 {
	var out []uint64
	for _, d := range q.Devices() {
		out = append(out, device.Key(d))
	}
	return out
}

func TestConnectBatchRoundRobin(t *testing.T) {
	// GOAL: Verify batches rotate through the queue so every device gets a turn
	//
	// TEST SCENARIO: queue 1000..1003, batch size 2 → {1000,1001}, {1002,1003}, {1000,1001}

	fh := testutils.NewFakeHost(epoch)
	q := queueOf(t,
		deviceOf(device.KindTI, 1000, "a"),
		deviceOf(device.KindNordic, 1001, "b"),
		deviceOf(device.KindPico, 1002, "c"),
		deviceOf(device.KindHub, 1003, "d"),
	)

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.ConnectBatch(fh, q, 2))
	}

	assert.Equal(t, [][]uint64{{1000, 1001}, {1002, 1003}, {1000, 1001}}, fh.Connects())
	assert.Equal(t, []uint64{1002, 1003, 1000, 1001}, queueKeys(q))
}

func TestConnectBatchStopsOnDuplicate(t *testing.T) {
	fh := testutils.NewFakeHost(epoch)
	q := queueOf(t, deviceOf(device.KindTI, 1, "a"), deviceOf(device.KindTI, 2, "b"))

	require.NoError(t, hub.ConnectBatch(fh, q, 4))

	assert.Equal(t, [][]uint64{{1, 2}}, fh.Connects(), "a device MUST NOT be connected twice in one batch")
	assert.Equal(t, []uint64{2, 1}, queueKeys(q), "the duplicate MUST be rotated back")
}

func TestConnectBatchRejectsUnknown(t *testing.T) {
	// GOAL: Verify an Unknown device never reaches the radio
	//
	// TEST SCENARIO: queue [Unknown] → ErrUnknownDevice → no connect call, queue unchanged

	tests := []struct {
		name  string
		queue []device.Device
	}{
		{name: "only unknown", queue: []device.Device{device.Unknown{}}},
		{name: "unknown behind valid devices", queue: []device.Device{deviceOf(device.KindTI, 1, "a"), device.Unknown{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fh := testutils.NewFakeHost(epoch)
			q := queueOf(t, tt.queue...)
			before := queueKeys(q)

			err := hub.ConnectBatch(fh, q, 4)

			require.ErrorIs(t, err, device.ErrUnknownDevice)
			assert.Empty(t, fh.Connects())
			assert.Equal(t, before, queueKeys(q))
		})
	}
}

func TestConnectBatchEmptyQueue(t *testing.T) {
	fh := testutils.NewFakeHost(epoch)

	require.NoError(t, hub.ConnectBatch(fh, registry.NewQueue(1), 4))

	require.Len(t, fh.Connects(), 1, "the connect set MUST still be sent so stale connections drop")
	assert.Empty(t, fh.Connects()[0])
}
