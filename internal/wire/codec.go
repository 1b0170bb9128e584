package wire

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrInvalidUTF8 is returned when a string field is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("string field contains invalid UTF-8")

	// ErrEmptyPacket is returned when encoding a nil packet or command.
	ErrEmptyPacket = errors.New("packet has no payload")

	// ErrMalformed is returned when bytes cannot be parsed.
	ErrMalformed = errors.New("malformed packet")
)

// Field numbers of the firmware_backend schema.
const (
	deviceInfoAddress protowire.Number = 1
	deviceInfoName    protowire.Number = 2
	deviceInfoType    protowire.Number = 3

	devicesListDevices   protowire.Number = 1
	devicesListTimestamp protowire.Number = 2

	uuidLower  protowire.Number = 1
	uuidHigher protowire.Number = 2

	registrationSelf protowire.Number = 1
	registrationUser protowire.Number = 2

	commandGetDevicesList     protowire.Number = 2
	commandStopGetDevicesList protowire.Number = 3
	commandDevices            protowire.Number = 4

	packetPing         protowire.Number = 1
	packetDeviceInfo   protowire.Number = 3
	packetDevicesList  protowire.Number = 17
	packetRegistration protowire.Number = 18

	relayTimestamp protowire.Number = 1
	relayDevices   protowire.Number = 2
)

// EncodePacket encodes a firmware-to-backend packet.
func EncodePacket(p Packet) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	switch p := p.(type) {
	case Ping:
		b = appendMessage(b, packetPing, nil)
	case FoundDevice:
		var inner []byte
		if inner, err = appendDeviceInfo(nil, p.Device); err == nil {
			b = appendMessage(b, packetDeviceInfo, inner)
		}
	case DeviceListReport:
		var inner []byte
		if inner, err = appendDevicesList(nil, p.List); err == nil {
			b = appendMessage(b, packetDevicesList, inner)
		}
	case Registration:
		b = appendMessage(b, packetRegistration, appendRegistration(nil, p))
	case nil:
		return nil, ErrEmptyPacket
	default:
		return nil, fmt.Errorf("unsupported packet %T", p)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DecodePacket decodes a firmware-to-backend packet. A packet without a
// recognised payload decodes to nil.
func DecodePacket(b []byte) (Packet, error) {
	var p Packet
	err := walk(b, func(f field) error {
		switch f.num {
		case packetPing:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			p = Ping{}
		case packetDeviceInfo:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			info, err := decodeDeviceInfo(f.bytes)
			if err != nil {
				return err
			}
			p = FoundDevice{Device: info}
		case packetDevicesList:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			list, err := decodeDevicesList(f.bytes)
			if err != nil {
				return err
			}
			p = DeviceListReport{List: list}
		case packetRegistration:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			reg, err := decodeRegistration(f.bytes)
			if err != nil {
				return err
			}
			p = reg
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// EncodeCommand encodes a backend-to-firmware packet.
func EncodeCommand(c Command) ([]byte, error) {
	switch c := c.(type) {
	case StartDiscovery:
		return appendMessage(nil, commandGetDevicesList, nil), nil
	case StopDiscovery:
		return appendMessage(nil, commandStopGetDevicesList, nil), nil
	case ReplaceDevices:
		inner, err := appendDevicesList(nil, DevicesList{Devices: c.Devices})
		if err != nil {
			return nil, err
		}
		return appendMessage(nil, commandDevices, inner), nil
	case nil:
		return nil, ErrEmptyPacket
	default:
		return nil, fmt.Errorf("unsupported command %T", c)
	}
}

// DecodeCommand decodes a backend-to-firmware packet. A packet without a
// recognised payload decodes to a nil Command and no error.
func DecodeCommand(b []byte) (Command, error) {
	var c Command
	err := walk(b, func(f field) error {
		switch f.num {
		case commandGetDevicesList:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			c = StartDiscovery{}
		case commandStopGetDevicesList:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			c = StopDiscovery{}
		case commandDevices:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			list, err := decodeDevicesList(f.bytes)
			if err != nil {
				return err
			}
			c = ReplaceDevices{Devices: list.Devices}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// EncodeRelay encodes a hub-to-hub relay packet.
func EncodeRelay(r RelayPacket) ([]byte, error) {
	var b []byte
	if r.Timestamp != 0 {
		b = protowire.AppendTag(b, relayTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.Timestamp))
	}
	inner, err := appendDevicesList(nil, r.Devices)
	if err != nil {
		return nil, err
	}
	return appendMessage(b, relayDevices, inner), nil
}

// DecodeRelay decodes a hub-to-hub relay packet.
func DecodeRelay(b []byte) (RelayPacket, error) {
	var r RelayPacket
	err := walk(b, func(f field) error {
		switch f.num {
		case relayTimestamp:
			if err := f.expect(protowire.VarintType); err != nil {
				return err
			}
			r.Timestamp = int64(f.varint)
		case relayDevices:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			list, err := decodeDevicesList(f.bytes)
			if err != nil {
				return err
			}
			r.Devices = list
		}
		return nil
	})
	return r, err
}

func appendMessage(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

func appendDeviceInfo(b []byte, d DeviceInfo) ([]byte, error) {
	if !utf8.ValidString(d.Name) {
		return nil, fmt.Errorf("device name %q: %w", d.Name, ErrInvalidUTF8)
	}
	if d.Address != 0 {
		b = protowire.AppendTag(b, deviceInfoAddress, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d.Address))
	}
	if d.Name != "" {
		b = protowire.AppendTag(b, deviceInfoName, protowire.BytesType)
		b = protowire.AppendString(b, d.Name)
	}
	if d.DeviceType != DeviceTypeUnspecified {
		b = protowire.AppendTag(b, deviceInfoType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(d.DeviceType)))
	}
	return b, nil
}

func appendDevicesList(b []byte, l DevicesList) ([]byte, error) {
	for _, d := range l.Devices {
		inner, err := appendDeviceInfo(nil, d)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, devicesListDevices, inner)
	}
	if l.Timestamp != 0 {
		b = protowire.AppendTag(b, devicesListTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(l.Timestamp))
	}
	return b, nil
}

func appendUUID(b []byte, u UUID) []byte {
	if u.Lower != 0 {
		b = protowire.AppendTag(b, uuidLower, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(u.Lower))
	}
	if u.Higher != 0 {
		b = protowire.AppendTag(b, uuidHigher, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(u.Higher))
	}
	return b
}

func appendRegistration(b []byte, r Registration) []byte {
	if r.Self != nil {
		b = appendMessage(b, registrationSelf, appendUUID(nil, *r.Self))
	}
	if r.User != nil {
		b = appendMessage(b, registrationUser, appendUUID(nil, *r.User))
	}
	return b
}

func decodeDeviceInfo(b []byte) (DeviceInfo, error) {
	var d DeviceInfo
	err := walk(b, func(f field) error {
		switch f.num {
		case deviceInfoAddress:
			if err := f.expect(protowire.VarintType); err != nil {
				return err
			}
			d.Address = int64(f.varint)
		case deviceInfoName:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			if !utf8.Valid(f.bytes) {
				return fmt.Errorf("device name: %w", ErrInvalidUTF8)
			}
			d.Name = string(f.bytes)
		case deviceInfoType:
			if err := f.expect(protowire.VarintType); err != nil {
				return err
			}
			d.DeviceType = DeviceType(int32(f.varint))
		}
		return nil
	})
	return d, err
}

func decodeDevicesList(b []byte) (DevicesList, error) {
	var l DevicesList
	err := walk(b, func(f field) error {
		switch f.num {
		case devicesListDevices:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			d, err := decodeDeviceInfo(f.bytes)
			if err != nil {
				return err
			}
			l.Devices = append(l.Devices, d)
		case devicesListTimestamp:
			if err := f.expect(protowire.VarintType); err != nil {
				return err
			}
			l.Timestamp = int64(f.varint)
		}
		return nil
	})
	return l, err
}

func decodeUUID(b []byte) (UUID, error) {
	var u UUID
	err := walk(b, func(f field) error {
		switch f.num {
		case uuidLower:
			if err := f.expect(protowire.VarintType); err != nil {
				return err
			}
			u.Lower = int64(f.varint)
		case uuidHigher:
			if err := f.expect(protowire.VarintType); err != nil {
				return err
			}
			u.Higher = int64(f.varint)
		}
		return nil
	})
	return u, err
}

func decodeRegistration(b []byte) (Registration, error) {
	var r Registration
	err := walk(b, func(f field) error {
		if f.num != registrationSelf && f.num != registrationUser {
			return nil
		}
		if err := f.expect(protowire.BytesType); err != nil {
			return err
		}
		u, err := decodeUUID(f.bytes)
		if err != nil {
			return err
		}
		if f.num == registrationSelf {
			r.Self = &u
		} else {
			r.User = &u
		}
		return nil
	})
	return r, err
}

// field is one decoded key/value pair. Only varint and length-delimited
// values are materialised; other wire types are skipped by walk.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func (f field) expect(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrMalformed, f.num, f.typ, typ)
	}
	return nil
}

func walk(b []byte, fn func(field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}
