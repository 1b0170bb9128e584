package goble

import (
	"errors"

	"github.com/go-ble/ble"
)

// ErrUnsupportedPlatform is returned by DeviceFactory where go-ble has no HCI backend.
var ErrUnsupportedPlatform = errors.New("no BLE backend for this platform")

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func() (ble.Device, error) {
	return newDevice()
}
