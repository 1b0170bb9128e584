// Package host defines the capabilities the hub core needs from the platform
// it runs on: transport, radio, LED and clock.
package host

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/hubtime"
	"github.com/srg/blehub/internal/wire"
)

var (
	// ErrOutOfMemory is returned by ReadTransport when a message does not fit
	// the caller's buffer. The message is dropped.
	ErrOutOfMemory = errors.New("message does not fit buffer")

	// ErrDurationTooLarge is returned by Sleep for a duration the host cannot
	// represent.
	ErrDurationTooLarge = errors.New("duration too large for host")

	// ErrPeerSend wraps any failure to deliver a relay packet to a peer hub.
	ErrPeerSend = errors.New("peer send failed")
)

// MaxSleep is the longest duration a host sleep accepts: the microsecond
// count must fit in 32 bits.
const MaxSleep = time.Duration(math.MaxUint32) * time.Microsecond

// CheckSleep validates d against MaxSleep.
func CheckSleep(d time.Duration) error {
	if d < 0 || d > MaxSleep {
		return fmt.Errorf("%w: %v", ErrDurationTooLarge, d)
	}
	return nil
}

// LED names a status LED.
type LED int

const (
	LEDStatus LED = iota
	LEDActivity
)

func (l LED) String() string {
	switch l {
	case LEDStatus:
		return "status"
	case LEDActivity:
		return "activity"
	default:
		return "led"
	}
}

// ScanResult is one advertisement seen during a scan. NameErr is set when the
// advertised name was not valid UTF-8; Name then holds the raw bytes.
type ScanResult struct {
	Address device.Address
	Name    []byte
	NameErr error
}

// Host is the platform the hub runs on. Every method returns promptly; none
// of them blocks waiting for the network or the radio.
type Host interface {
	// ReadTransport copies the next inbound message into buf. more reports
	// whether another message is already waiting. n is 0 when nothing was
	// available.
	ReadTransport(buf []byte) (n int, more bool, err error)
	SendPacket(data []byte) error
	SendStatus(code Status)

	Now() hubtime.Time
	// Sleep blocks the whole hub for d.
	Sleep(d time.Duration) error

	SetLED(led LED, on bool)

	StartScan()
	StopScan()
	PollScanResult() (ScanResult, bool)

	// ConnectDevices makes keys the set of devices the radio keeps
	// connections to.
	ConnectDevices(keys []uint64)
	SendPeer(target wire.DeviceInfo, data []byte) error
}
