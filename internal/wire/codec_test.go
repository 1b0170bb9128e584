package wire_test

import (
	"testing"

	"github.com/srg/blehub/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestCommandRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cmd  wire.Command
	}{
		{name: "start discovery", cmd: wire.StartDiscovery{}},
		{name: "stop discovery", cmd: wire.StopDiscovery{}},
		{name: "replace devices", cmd: wire.ReplaceDevices{Devices: []wire.DeviceInfo{
			{Address: 1, Name: "one", DeviceType: wire.DeviceTypeTI},
			{Address: 0x0605_0403_0201, Name: "hub", DeviceType: wire.DeviceTypeHub},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := wire.EncodeCommand(tt.cmd)
			require.NoError(t, err)

			got, err := wire.DecodeCommand(data)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, got)
		})
	}
}

func TestDecodeCommandEdgeCases(t *testing.T) {
	t.Run("empty payload decodes to nil", func(t *testing.T) {
		cmd, err := wire.DecodeCommand(nil)
		require.NoError(t, err)
		assert.Nil(t, cmd)
	})

	t.Run("unknown field is skipped", func(t *testing.T) {
		b := protowire.AppendTag(nil, 99, protowire.VarintType)
		b = protowire.AppendVarint(b, 7)
		cmd, err := wire.DecodeCommand(b)
		require.NoError(t, err)
		assert.Nil(t, cmd)
	})

	t.Run("truncated input is malformed", func(t *testing.T) {
		data, err := wire.EncodeCommand(wire.ReplaceDevices{Devices: []wire.DeviceInfo{{Address: 1, Name: "abc"}}})
		require.NoError(t, err)
		_, err = wire.DecodeCommand(data[:len(data)-1])
		require.ErrorIs(t, err, wire.ErrMalformed)
	})

	t.Run("wrong wire type is malformed", func(t *testing.T) {
		b := protowire.AppendTag(nil, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
		_, err := wire.DecodeCommand(b)
		require.ErrorIs(t, err, wire.ErrMalformed)
	})

	t.Run("invalid utf-8 name is refused", func(t *testing.T) {
		info := protowire.AppendTag(nil, 2, protowire.BytesType)
		info = protowire.AppendBytes(info, []byte{0xff, 0xfe})
		list := protowire.AppendTag(nil, 1, protowire.BytesType)
		list = protowire.AppendBytes(list, info)
		b := protowire.AppendTag(nil, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, list)

		_, err := wire.DecodeCommand(b)
		require.ErrorIs(t, err, wire.ErrInvalidUTF8)
	})

	t.Run("trailing zero padding of a fixed buffer is malformed", func(t *testing.T) {
		data, err := wire.EncodeCommand(wire.StartDiscovery{})
		require.NoError(t, err)
		buf := make([]byte, 16)
		copy(buf, data)
		_, err = wire.DecodeCommand(buf)
		require.ErrorIs(t, err, wire.ErrMalformed)
	})
}

func TestPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  wire.Packet
	}{
		{name: "ping", pkt: wire.Ping{}},
		{name: "found device", pkt: wire.FoundDevice{Device: wire.DeviceInfo{Address: 0x0201, Name: "tag"}}},
		{name: "device list", pkt: wire.DeviceListReport{List: wire.DevicesList{
			Devices:   []wire.DeviceInfo{{Address: 3, Name: "n", DeviceType: wire.DeviceTypeNordic}},
			Timestamp: 1700000000,
		}}},
		{name: "registration", pkt: wire.Registration{
			Self: &wire.UUID{Lower: -5, Higher: 9},
			User: &wire.UUID{Lower: 1, Higher: -1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := wire.EncodePacket(tt.pkt)
			require.NoError(t, err)

			got, err := wire.DecodePacket(data)
			require.NoError(t, err)
			assert.Equal(t, tt.pkt, got)
		})
	}
}

func TestPingEncoding(t *testing.T) {
	data, err := wire.EncodePacket(wire.Ping{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x00}, data, "field 1, zero-length message")
}

func TestEncodeRejects(t *testing.T) {
	_, err := wire.EncodePacket(nil)
	require.ErrorIs(t, err, wire.ErrEmptyPacket)

	_, err = wire.EncodeCommand(nil)
	require.ErrorIs(t, err, wire.ErrEmptyPacket)

	_, err = wire.EncodePacket(wire.FoundDevice{Device: wire.DeviceInfo{Name: "\xc3"}})
	require.ErrorIs(t, err, wire.ErrInvalidUTF8)
}

func TestRelayRoundTrip(t *testing.T) {
	in := wire.RelayPacket{
		Timestamp: 1714000000,
		Devices: wire.DevicesList{Devices: []wire.DeviceInfo{
			{Address: 10, Name: "a", DeviceType: wire.DeviceTypeTI},
			{Address: 11, Name: "b", DeviceType: wire.DeviceTypeHub},
		}},
	}

	data, err := wire.EncodeRelay(in)
	require.NoError(t, err)
	out, err := wire.DecodeRelay(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDeviceTypeString(t *testing.T) {
	assert.Equal(t, "DEVICE_TYPE_CUSTOM", wire.DeviceTypeCustom.String())
	assert.Equal(t, "DEVICE_TYPE_UNKNOWN", wire.DeviceType(1000).String())
}
