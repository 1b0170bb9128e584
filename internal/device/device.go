package device

import "bytes"

// Kind identifies a device's protocol and sensor profile.
type Kind int

const (
	KindUnknown Kind = iota
	KindTI
	KindNordic
	KindPico
	KindHub
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindTI:
		return "ti"
	case KindNordic:
		return "nordic"
	case KindPico:
		return "pico"
	case KindHub:
		return "hub"
	default:
		return "invalid"
	}
}

// Device is one of Unknown, TI, Nordic, Pico or Hub.
type Device interface {
	Kind() Kind
	// Identity returns the device's Info. It is false only for Unknown.
	Identity() (Info, bool)

	sealed()
}

// Unknown is a device of unrecognised kind. It has no address and must never
// reach connection logic.
type Unknown struct{}

// TI is a TI LPSTK sensor tag.
type TI struct {
	Info
	Humidity    *SensorData
	Temperature *SensorData
}

// Nordic is a Nordic Thingy:52.
type Nordic struct {
	Info
	Humidity    *SensorData
	Temperature *SensorData
}

// Pico is the custom board with DHT11 and DHT22 sensors attached.
type Pico struct {
	Info
	DHT11Humidity    *SensorData
	DHT22Humidity    *SensorData
	DHT11Temperature *SensorData
	DHT22Temperature *SensorData
	PicoTemperature  *SensorData
}

// Hub is another hub. Hubs receive relayed device lists.
type Hub struct {
	Info
}

func (Unknown) Kind() Kind { return KindUnknown }
func (TI) Kind() Kind      { return KindTI }
func (Nordic) Kind() Kind  { return KindNordic }
func (Pico) Kind() Kind    { return KindPico }
func (Hub) Kind() Kind     { return KindHub }

func (Unknown) Identity() (Info, bool)  { return Info{}, false }
func (d TI) Identity() (Info, bool)     { return d.Info, true }
func (d Nordic) Identity() (Info, bool) { return d.Info, true }
func (d Pico) Identity() (Info, bool)   { return d.Info, true }
func (d Hub) Identity() (Info, bool)    { return d.Info, true }

func (Unknown) sealed() {}
func (TI) sealed()      {}
func (Nordic) sealed()  {}
func (Pico) sealed()    {}
func (Hub) sealed()     {}

// New builds a device of the given kind with empty sensor slots.
func New(kind Kind, info Info) (Device, error) {
	switch kind {
	case KindUnknown:
		return Unknown{}, nil
	case KindTI:
		return TI{Info: info}, nil
	case KindNordic:
		return Nordic{Info: info}, nil
	case KindPico:
		return Pico{Info: info}, nil
	case KindHub:
		return Hub{Info: info}, nil
	default:
		return nil, &InvalidKindError{Code: int32(kind)}
	}
}

// Key returns the address key of d, or UnknownKey for an Unknown device.
func Key(d Device) uint64 {
	info, ok := d.Identity()
	if !ok {
		return UnknownKey
	}
	return info.Address.Key()
}

// Equal reports whether a and b have the same address. Two Unknown devices
// are equal to each other and to nothing else.
func Equal(a, b Device) bool {
	ia, oka := a.Identity()
	ib, okb := b.Identity()
	if !oka || !okb {
		return oka == okb
	}
	return ia.Address == ib.Address
}

// Less orders devices by address. Unknown sorts first.
func Less(a, b Device) bool {
	ia, oka := a.Identity()
	ib, okb := b.Identity()
	if !oka || !okb {
		return !oka && okb
	}
	return bytes.Compare(ia.Address[:], ib.Address[:]) < 0
}
