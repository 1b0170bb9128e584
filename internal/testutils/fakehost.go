package testutils

import (
	"sync"
	"time"

	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/hubtime"
	"github.com/srg/blehub/internal/wire"
)

// PeerSend is one relay write recorded by FakeHost.
type PeerSend struct {
	Target wire.DeviceInfo `json:"target"`
	Data   []byte          `json:"-"`
}

// LEDEvent is one SetLED call.
type LEDEvent struct {
	LED string `json:"led"`
	On  bool   `json:"on"`
}

// FakeHost is an in-memory host.Host with a simulated clock. Sleep advances
// the clock instead of blocking, so an executor whose idle hook sleeps on
// the host runs through simulated minutes in milliseconds.
type FakeHost struct {
	mu sync.Mutex

	now  time.Duration
	tick time.Duration

	inbound    [][]byte
	scanQueue  []host.ScanResult
	scanSource func() (host.ScanResult, bool)
	scanning   bool

	sendPacketErr error
	sendPeerErr   func(target wire.DeviceInfo) error
	onSleep       func(now hubtime.Time)

	packets    [][]byte
	statuses   []host.Status
	scanStarts int
	scanStops  int
	connects   [][]uint64
	peerSends  []PeerSend
	leds       []LEDEvent
	slept      time.Duration
}

// NewFakeHost creates a host whose clock starts at start.
func NewFakeHost(start time.Time) *FakeHost {
	return &FakeHost{now: time.Duration(start.UnixNano())}
}

// WithTick makes every Now call advance the clock by d after reading it.
func (f *FakeHost) WithTick(d time.Duration) *FakeHost {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tick = d
	return f
}

// WithScanSource supplies scan results once the queue is empty.
func (f *FakeHost) WithScanSource(fn func() (host.ScanResult, bool)) *FakeHost {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanSource = fn
	return f
}

// WithSendPacketError makes every SendPacket fail with err.
func (f *FakeHost) WithSendPacketError(err error) *FakeHost {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendPacketErr = err
	return f
}

// WithSendPeerError decides per target whether SendPeer fails.
func (f *FakeHost) WithSendPeerError(fn func(target wire.DeviceInfo) error) *FakeHost {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendPeerErr = fn
	return f
}

// OnSleep registers a hook called after every Sleep with the new time.
func (f *FakeHost) OnSleep(fn func(now hubtime.Time)) *FakeHost {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSleep = fn
	return f
}

// PushInbound queues a raw inbound message.
func (f *FakeHost) PushInbound(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, data)
}

// PushCommand encodes cmd and queues it. It panics if cmd cannot be encoded.
func (f *FakeHost) PushCommand(cmd wire.Command) {
	data, err := wire.EncodeCommand(cmd)
	if err != nil {
		panic(err)
	}
	f.PushInbound(data)
}

// PushScanResults queues results for PollScanResult.
func (f *FakeHost) PushScanResults(results ...host.ScanResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanQueue = append(f.scanQueue, results...)
}

// Advance moves the clock forward.
func (f *FakeHost) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += d
}

func (f *FakeHost) ReadTransport(buf []byte) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbound) == 0 {
		return 0, false, nil
	}
	msg := f.inbound[0]
	f.inbound = f.inbound[1:]
	more := len(f.inbound) > 0
	if len(msg) > len(buf) {
		return 0, more, host.ErrOutOfMemory
	}
	return copy(buf, msg), more, nil
}

func (f *FakeHost) SendPacket(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendPacketErr != nil {
		return f.sendPacketErr
	}
	f.packets = append(f.packets, append([]byte(nil), data...))
	return nil
}

func (f *FakeHost) SendStatus(code host.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, code)
}

func (f *FakeHost) Now() hubtime.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now
	f.now += f.tick
	return hubtime.New(now)
}

func (f *FakeHost) Sleep(d time.Duration) error {
	if err := host.CheckSleep(d); err != nil {
		return err
	}
	f.mu.Lock()
	f.now += d
	f.slept += d
	now, hook := hubtime.New(f.now), f.onSleep
	f.mu.Unlock()

	if hook != nil {
		hook(now)
	}
	return nil
}

func (f *FakeHost) SetLED(led host.LED, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leds = append(f.leds, LEDEvent{LED: led.String(), On: on})
}

func (f *FakeHost) StartScan() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanStarts++
	f.scanning = true
}

func (f *FakeHost) StopScan() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanStops++
	f.scanning = false
}

func (f *FakeHost) PollScanResult() (host.ScanResult, bool) {
	f.mu.Lock()
	if !f.scanning {
		f.mu.Unlock()
		return host.ScanResult{}, false
	}
	if len(f.scanQueue) > 0 {
		res := f.scanQueue[0]
		f.scanQueue = f.scanQueue[1:]
		f.mu.Unlock()
		return res, true
	}
	source := f.scanSource
	f.mu.Unlock()

	if source == nil {
		return host.ScanResult{}, false
	}
	return source()
}

func (f *FakeHost) ConnectDevices(keys []uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, append([]uint64{}, keys...))
}

func (f *FakeHost) SendPeer(target wire.DeviceInfo, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendPeerErr != nil {
		if err := f.sendPeerErr(target); err != nil {
			return err
		}
	}
	f.peerSends = append(f.peerSends, PeerSend{Target: target, Data: append([]byte(nil), data...)})
	return nil
}

// Clock returns the current time without ticking.
func (f *FakeHost) Clock() hubtime.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return hubtime.New(f.now)
}

// Slept is the total duration passed to Sleep.
func (f *FakeHost) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}

// Scanning reports whether a scan is in progress.
func (f *FakeHost) Scanning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scanning
}

// ScanCalls returns how many times StartScan and StopScan were called.
func (f *FakeHost) ScanCalls() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scanStarts, f.scanStops
}

// Statuses returns the reported status codes in order.
func (f *FakeHost) Statuses() []host.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]host.Status(nil), f.statuses...)
}

// Packets decodes every packet sent to the backend.
func (f *FakeHost) Packets() ([]wire.Packet, error) {
	f.mu.Lock()
	raw := append([][]byte(nil), f.packets...)
	f.mu.Unlock()

	out := make([]wire.Packet, 0, len(raw))
	for _, data := range raw {
		p, err := wire.DecodePacket(data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Connects returns the key sets passed to ConnectDevices.
func (f *FakeHost) Connects() [][]uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]uint64(nil), f.connects...)
}

// PeerSends returns the recorded relay writes.
func (f *FakeHost) PeerSends() []PeerSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PeerSend(nil), f.peerSends...)
}

// LEDs returns the recorded SetLED calls.
func (f *FakeHost) LEDs() []LEDEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LEDEvent(nil), f.leds...)
}

// HostRecord is the JSON view of everything a FakeHost saw.
type HostRecord struct {
	Statuses   []string          `json:"statuses"`
	Packets    []string          `json:"packets"`
	ScanStarts int               `json:"scan_starts"`
	ScanStops  int               `json:"scan_stops"`
	Connects   [][]uint64        `json:"connects"`
	PeerSends  []PeerSend        `json:"peer_sends"`
	LEDs       []LEDEvent        `json:"leds"`
	Found      []wire.DeviceInfo `json:"found"`
}

// Record summarises the host's calls. Packets are listed by kind; found
// devices are listed separately.
func (f *FakeHost) Record() HostRecord {
	rec := HostRecord{
		Connects:  f.Connects(),
		PeerSends: f.PeerSends(),
		LEDs:      f.LEDs(),
	}
	rec.ScanStarts, rec.ScanStops = f.ScanCalls()
	for _, s := range f.Statuses() {
		rec.Statuses = append(rec.Statuses, s.String())
	}

	packets, err := f.Packets()
	if err != nil {
		rec.Packets = append(rec.Packets, "undecodable: "+err.Error())
		return rec
	}
	for _, p := range packets {
		switch p := p.(type) {
		case wire.Ping:
			rec.Packets = append(rec.Packets, "ping")
		case wire.FoundDevice:
			rec.Packets = append(rec.Packets, "found_device")
			rec.Found = append(rec.Found, p.Device)
		case wire.DeviceListReport:
			rec.Packets = append(rec.Packets, "device_list")
		case wire.Registration:
			rec.Packets = append(rec.Packets, "registration")
		}
	}
	return rec
}

var _ host.Host = (*FakeHost)(nil)
