package host

import (
	"errors"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/registry"
	"github.com/srg/blehub/internal/wire"
)

// Status is a condition the hub reports to the host.
type Status int

const (
	GenericError Status = iota
	TooMuchData
	TryFromIntError
	PanicErr
	ProtobufEncodeError
	ProtobufDecodeError
	BLENameUTF8Error
	TooManyDevices
	NameTooLong
	WrongDeviceType
	UsingUnknownDevice
	GenericAssertionError
	AddressNotPadded
	PeerSendError
)

var statusNames = [...]string{
	GenericError:          "GenericError",
	TooMuchData:           "TooMuchData",
	TryFromIntError:       "TryFromIntError",
	PanicErr:              "PanicErr",
	ProtobufEncodeError:   "ProtobufEncodeError",
	ProtobufDecodeError:   "ProtobufDecodeError",
	BLENameUTF8Error:      "BLENameUTF8Error",
	TooManyDevices:        "TooManyDevices",
	NameTooLong:           "NameTooLong",
	WrongDeviceType:       "WrongDeviceType",
	UsingUnknownDevice:    "UsingUnknownDevice",
	GenericAssertionError: "GenericAssertionError",
	AddressNotPadded:      "AddressNotPadded",
	PeerSendError:         "PeerSendError",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "Status(?)"
	}
	return statusNames[s]
}

// StatusOf maps an error to the status reported for it. Errors with no
// better match are GenericError.
func StatusOf(err error) Status {
	var panicErr *executor.PanicError

	switch {
	case errors.As(err, &panicErr):
		return PanicErr
	case errors.Is(err, executor.ErrTaskExited):
		return GenericAssertionError
	case errors.Is(err, ErrOutOfMemory):
		return TooMuchData
	case errors.Is(err, ErrDurationTooLarge):
		return TryFromIntError
	case errors.Is(err, ErrPeerSend):
		return PeerSendError
	case errors.Is(err, registry.ErrTooManyDevices):
		return TooManyDevices
	case errors.Is(err, device.ErrAddressNotPadded):
		return AddressNotPadded
	case errors.Is(err, device.ErrNameTooLong):
		return NameTooLong
	case errors.Is(err, device.ErrInvalidKind):
		return WrongDeviceType
	case errors.Is(err, device.ErrUnknownDevice):
		return UsingUnknownDevice
	case errors.Is(err, device.ErrNameEncoding):
		return BLENameUTF8Error
	case errors.Is(err, wire.ErrMalformed), errors.Is(err, wire.ErrInvalidUTF8):
		return ProtobufDecodeError
	case errors.Is(err, wire.ErrEmptyPacket):
		return ProtobufEncodeError
	default:
		return GenericError
	}
}
