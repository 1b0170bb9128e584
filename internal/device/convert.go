package device

import (
	"fmt"
	"unicode/utf8"

	"github.com/srg/blehub/internal/wire"
)

// KindFromWire maps a wire device type to a Kind.
func KindFromWire(t wire.DeviceType) (Kind, error) {
	switch t {
	case wire.DeviceTypeUnspecified:
		return KindUnknown, nil
	case wire.DeviceTypeTI:
		return KindTI, nil
	case wire.DeviceTypeNordic:
		return KindNordic, nil
	case wire.DeviceTypeCustom:
		return KindPico, nil
	case wire.DeviceTypeHub:
		return KindHub, nil
	default:
		return KindUnknown, &InvalidKindError{Code: int32(t)}
	}
}

// WireType maps k to its wire device type.
func (k Kind) WireType() wire.DeviceType {
	switch k {
	case KindTI:
		return wire.DeviceTypeTI
	case KindNordic:
		return wire.DeviceTypeNordic
	case KindPico:
		return wire.DeviceTypeCustom
	case KindHub:
		return wire.DeviceTypeHub
	default:
		return wire.DeviceTypeUnspecified
	}
}

// FromWire validates a wire DeviceInfo and converts it. The address padding
// is checked first, then the name length, then the kind code.
func FromWire(info wire.DeviceInfo) (Device, error) {
	addr := AddressFromKey(uint64(info.Address))
	if !addr.Padded() {
		return nil, fmt.Errorf("%w: %#016x", ErrAddressNotPadded, uint64(info.Address))
	}
	if len(info.Name) > MaxNameLen {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrNameTooLong, len(info.Name), MaxNameLen)
	}
	kind, err := KindFromWire(info.DeviceType)
	if err != nil {
		return nil, err
	}
	return New(kind, Info{Address: addr, Name: info.Name})
}

// InfoToWire converts a bare Info, as found during discovery, to its wire
// form. The device type is left unspecified.
func InfoToWire(info Info) (wire.DeviceInfo, error) {
	if !utf8.ValidString(info.Name) {
		return wire.DeviceInfo{}, fmt.Errorf("%s: %w", info.Address, ErrNameEncoding)
	}
	if len(info.Name) > MaxNameLen {
		return wire.DeviceInfo{}, fmt.Errorf("%s: %w: %d bytes", info.Address, ErrNameTooLong, len(info.Name))
	}
	if !info.Address.Padded() {
		return wire.DeviceInfo{}, fmt.Errorf("%s: %w", info.Address, ErrAddressNotPadded)
	}
	return wire.DeviceInfo{
		Address: int64(info.Address.Key()),
		Name:    info.Name,
	}, nil
}

// ToWire converts d to its wire form, kind included.
func ToWire(d Device) (wire.DeviceInfo, error) {
	info, ok := d.Identity()
	if !ok {
		return wire.DeviceInfo{}, ErrUnknownDevice
	}
	w, err := InfoToWire(info)
	if err != nil {
		return wire.DeviceInfo{}, err
	}
	w.DeviceType = d.Kind().WireType()
	return w, nil
}

// ListToWire converts every device, failing on the first that cannot be sent.
func ListToWire(devices []Device) ([]wire.DeviceInfo, error) {
	out := make([]wire.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		w, err := ToWire(d)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
