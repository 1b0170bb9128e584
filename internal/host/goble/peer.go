package goble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/wire"
)

// PeerWriteDelay separates the chunks of one relay write.
const PeerWriteDelay = 10 * time.Millisecond

// attHeader is the ATT write request overhead within one MTU.
const attHeader = 3

// peerWriter writes relay packets to the relay characteristic of peer hubs
// over the links kept by connections.
type peerWriter struct {
	conns          *connections
	limiter        *rate.Limiter
	service        ble.UUID
	characteristic ble.UUID
	logger         *logrus.Logger

	// one relay write at a time
	writeMu sync.Mutex
}

func newPeerWriter(conns *connections, service, characteristic string, perSecond float64, burst int, logger *logrus.Logger) (*peerWriter, error) {
	svc, err := ble.Parse(service)
	if err != nil {
		return nil, fmt.Errorf("relay service %q: %w", service, err)
	}
	char, err := ble.Parse(characteristic)
	if err != nil {
		return nil, fmt.Errorf("relay characteristic %q: %w", characteristic, err)
	}
	return &peerWriter{
		conns:          conns,
		limiter:        rate.NewLimiter(rate.Limit(perSecond), burst),
		service:        svc,
		characteristic: char,
		logger:         logger,
	}, nil
}

// send never waits for the limiter: a write over the rate fails at once.
func (p *peerWriter) send(ctx context.Context, target wire.DeviceInfo, data []byte) error {
	key := uint64(target.Address)
	if !p.limiter.Allow() {
		return fmt.Errorf("%w: peer %d: rate limited", host.ErrPeerSend, key)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	l, release, err := p.link(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: peer %d: not connected: %w", host.ErrPeerSend, key, err)
	}
	defer release()

	char, err := p.relayCharacteristic(l)
	if err != nil {
		return fmt.Errorf("%w: peer %s: %w", host.ErrPeerSend, l.addr, err)
	}

	chunks := chunk(data, l.mtu-attHeader)
	for i, part := range chunks {
		if err := l.client.WriteCharacteristic(char, part, false); err != nil {
			return fmt.Errorf("%w: peer %s: chunk %d/%d: %w", host.ErrPeerSend, l.addr, i+1, len(chunks), err)
		}
		if i < len(chunks)-1 {
			time.Sleep(PeerWriteDelay)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"peer":   l.addr,
		"bytes":  len(data),
		"chunks": len(chunks),
	}).Debug("Relay written")
	return nil
}

// link returns the kept link to key once its dial settles. A peer outside
// the connected set, or one whose link does not come up within the connect
// timeout, is dialed for this write only and released afterwards.
func (p *peerWriter) link(ctx context.Context, key uint64) (*link, func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.conns.timeout)
	l, ok := p.conns.await(waitCtx, key)
	cancel()
	if ok {
		return l, func() {}, nil
	}

	addr := device.AddressFromKey(key)
	client, mtu, err := p.conns.dial(ctx, addr)
	if err != nil {
		return nil, nil, err
	}
	p.logger.WithField("peer", addr).Debug("Peer dialed for relay")

	l = newLink(addr, nil)
	l.client, l.mtu = client, mtu
	return l, func() {
		if err := client.CancelConnection(); err != nil {
			p.logger.WithFields(logrus.Fields{
				"peer":  addr,
				"error": err,
			}).Debug("Failed to release relay connection")
		}
	}, nil
}

// relayCharacteristic discovers the peer's profile once per link.
func (p *peerWriter) relayCharacteristic(l *link) (*ble.Characteristic, error) {
	if l.relay != nil {
		return l.relay, nil
	}
	profile, err := l.client.DiscoverProfile(true)
	if err != nil {
		return nil, fmt.Errorf("discover profile: %w", err)
	}
	svc := profile.FindService(ble.NewService(p.service))
	if svc == nil {
		return nil, fmt.Errorf("relay service %s not found", p.service)
	}
	char := profile.FindCharacteristic(ble.NewCharacteristic(p.characteristic))
	if char == nil {
		return nil, fmt.Errorf("relay characteristic %s not found", p.characteristic)
	}
	l.relay = char
	return char, nil
}

// chunk splits data into pieces of at most size bytes. Empty data is one
// empty chunk.
func chunk(data []byte, size int) [][]byte {
	if size <= 0 {
		size = ble.DefaultMTU - attHeader
	}
	if len(data) == 0 {
		return [][]byte{data}
	}
	var out [][]byte
	for len(data) > 0 {
		n := min(len(data), size)
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}
