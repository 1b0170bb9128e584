package device

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/srg/blehub/internal/hubtime"
)

// MaxNameLen is the longest device name, in bytes, the hub will hold.
const MaxNameLen = 29

// UnknownKey is the key used for devices without an address. No padded
// address can produce it.
const UnknownKey = ^uint64(0)

// Address is a 6-byte BLE address stored in 8 bytes. Bytes 6 and 7 are
// always zero for a valid address.
type Address [8]byte

// AddressFromKey unpacks a little-endian key into an Address.
func AddressFromKey(key uint64) Address {
	var a Address
	binary.LittleEndian.PutUint64(a[:], key)
	return a
}

// ParseAddress parses a colon separated MAC string. Octets keep their string
// order, so "01:02:03:04:05:06" has key 0x060504030201.
func ParseAddress(s string) (Address, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return Address{}, fmt.Errorf("parse address %q: %w", s, err)
	}
	if len(hw) != 6 {
		return Address{}, fmt.Errorf("parse address %q: expected 6 octets, got %d", s, len(hw))
	}
	var a Address
	copy(a[:], hw)
	return a, nil
}

// Key is the canonical 64-bit identity of the address.
func (a Address) Key() uint64 {
	return binary.LittleEndian.Uint64(a[:])
}

// Padded reports whether the two unused high bytes are zero.
func (a Address) Padded() bool {
	return a[6] == 0 && a[7] == 0
}

func (a Address) String() string {
	return net.HardwareAddr(a[:6]).String()
}

// Info is what every known device carries.
type Info struct {
	Address Address
	Name    string
}

// SensorData is the latest reading of one sensor.
type SensorData struct {
	TimeObtained hubtime.Time
	Value        float32
}
