// Package wire holds the packets exchanged with the backend and with peer
// hubs, and their protobuf encoding.
//
// Field numbers follow the firmware_backend schema shared with the backend.
// The codec is written against protowire directly; the hub never needs
// reflection-based messages and the packets are small and fixed.
package wire

// DeviceType is the device kind as carried on the wire.
type DeviceType int32

const (
	DeviceTypeUnspecified DeviceType = 0
	DeviceTypeTI          DeviceType = 1
	DeviceTypeNordic      DeviceType = 2
	DeviceTypeCustom      DeviceType = 3
	DeviceTypeHub         DeviceType = 4
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeUnspecified:
		return "DEVICE_TYPE_UNSPECIFIED"
	case DeviceTypeTI:
		return "DEVICE_TYPE_TI"
	case DeviceTypeNordic:
		return "DEVICE_TYPE_NORDIC"
	case DeviceTypeCustom:
		return "DEVICE_TYPE_CUSTOM"
	case DeviceTypeHub:
		return "DEVICE_TYPE_HUB"
	default:
		return "DEVICE_TYPE_UNKNOWN"
	}
}

// DeviceInfo identifies one device. Address is the 8-byte little-endian
// packing of the radio address; its top two bytes must be zero.
type DeviceInfo struct {
	Address    int64      `json:"address"`
	Name       string     `json:"name"`
	DeviceType DeviceType `json:"device_type"`
}

// DevicesList is a list of devices with the time it was last changed.
type DevicesList struct {
	Devices   []DeviceInfo `json:"devices"`
	Timestamp int64        `json:"timestamp"`
}

// UUID is a 128-bit identifier split into two signed halves.
type UUID struct {
	Lower  int64 `json:"lower"`
	Higher int64 `json:"higher"`
}

// Command is a decoded backend-to-firmware packet.
type Command interface {
	isCommand()
}

// StartDiscovery asks the hub to scan for nearby devices.
type StartDiscovery struct{}

// StopDiscovery asks the hub to end a running scan.
type StopDiscovery struct{}

// ReplaceDevices carries the authoritative device list.
type ReplaceDevices struct {
	Devices []DeviceInfo `json:"devices"`
}

func (StartDiscovery) isCommand() {}
func (StopDiscovery) isCommand()  {}
func (ReplaceDevices) isCommand() {}

// Packet is a firmware-to-backend packet.
type Packet interface {
	isPacket()
}

// Ping is the heartbeat.
type Ping struct{}

// FoundDevice reports one device seen during discovery.
type FoundDevice struct {
	Device DeviceInfo `json:"device"`
}

// DeviceListReport reports the hub's current device list.
type DeviceListReport struct {
	List DevicesList `json:"list"`
}

// Registration announces the hub and the user that owns it.
type Registration struct {
	Self *UUID `json:"self,omitempty"`
	User *UUID `json:"user,omitempty"`
}

func (Ping) isPacket()             {}
func (FoundDevice) isPacket()      {}
func (DeviceListReport) isPacket() {}
func (Registration) isPacket()     {}

// RelayPacket is sent from hub to hub with the consolidated device list.
type RelayPacket struct {
	Timestamp int64       `json:"timestamp"`
	Devices   DevicesList `json:"devices"`
}
