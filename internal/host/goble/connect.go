package goble

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/groutine"
)

// link is one wanted connection. client is nil until the dial succeeds.
// ready is closed once the dial has either succeeded or given up.
type link struct {
	addr   device.Address
	cancel context.CancelFunc
	client ble.Client
	mtu    int
	relay  *ble.Characteristic

	ready     chan struct{}
	readyOnce sync.Once
}

func newLink(addr device.Address, cancel context.CancelFunc) *link {
	return &link{addr: addr, cancel: cancel, ready: make(chan struct{})}
}

func (l *link) settle() {
	l.readyOnce.Do(func() { close(l.ready) })
}

// connections keeps the radio connected to a set of devices. Each link is
// dialed and watched by its own named goroutine.
type connections struct {
	dev     ble.Device
	timeout time.Duration
	logger  *logrus.Logger

	mu    sync.Mutex
	links map[uint64]*link
}

func newConnections(dev ble.Device, timeout time.Duration, logger *logrus.Logger) *connections {
	return &connections{
		dev:     dev,
		timeout: timeout,
		logger:  logger,
		links:   make(map[uint64]*link),
	}
}

// set makes keys the wanted set: missing links are dialed, links not in
// keys are cancelled.
func (c *connections) set(parent context.Context, keys []uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	add, drop := diffKeys(c.links, keys)
	for _, k := range drop {
		c.links[k].cancel()
		delete(c.links, k)
	}
	for _, k := range add {
		ctx, cancel := context.WithCancel(parent)
		l := newLink(device.AddressFromKey(k), cancel)
		c.links[k] = l
		groutine.Go(ctx, "ble-link-"+l.addr.String(), func(ctx context.Context) {
			c.run(ctx, k, l)
		})
	}

	if len(add) > 0 || len(drop) > 0 {
		c.logger.WithFields(logrus.Fields{
			"added":   len(add),
			"dropped": len(drop),
			"wanted":  len(keys),
		}).Debug("Connection set changed")
	}
}

// run dials l and holds the connection until it drops or l is cancelled.
// A dropped or failed link leaves the set so the next set call redials it.
func (c *connections) run(ctx context.Context, key uint64, l *link) {
	defer c.forget(key, l)

	client, mtu, err := c.dial(ctx, l.addr)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"address": l.addr,
			"error":   err,
		}).Warn("Failed to dial BLE device")
		return
	}

	c.mu.Lock()
	l.client, l.mtu = client, mtu
	c.mu.Unlock()
	l.settle()
	c.logger.WithFields(logrus.Fields{
		"address": l.addr,
		"mtu":     mtu,
	}).Info("BLE device connected")

	var disconnected <-chan struct{}
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		disconnected = dc.Disconnected()
	}

	select {
	case <-disconnected:
		c.logger.WithField("address", l.addr).Info("BLE device disconnected")
	case <-ctx.Done():
		if err := client.CancelConnection(); err != nil {
			c.logger.WithFields(logrus.Fields{
				"address": l.addr,
				"error":   err,
			}).Debug("Failed to cancel connection")
		}
	}
}

// dial connects to addr within the connect timeout and negotiates the MTU.
func (c *connections) dial(ctx context.Context, addr device.Address) (ble.Client, int, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	client, err := c.dev.Dial(dialCtx, ble.NewAddr(addr.String()))
	if err != nil {
		return nil, 0, err
	}
	mtu, err := client.ExchangeMTU(ble.MaxMTU)
	if err != nil {
		mtu = ble.DefaultMTU
	}
	return client, mtu, nil
}

func (c *connections) forget(key uint64, l *link) {
	c.mu.Lock()
	if c.links[key] == l {
		delete(c.links, key)
	}
	c.mu.Unlock()
	l.cancel()
	l.settle()
}

// await waits for the link to key to finish dialing and returns it when the
// dial succeeded. A key outside the wanted set returns at once.
func (c *connections) await(ctx context.Context, key uint64) (*link, bool) {
	c.mu.Lock()
	l, ok := c.links[key]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	select {
	case <-l.ready:
	case <-ctx.Done():
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if l.client == nil {
		return nil, false
	}
	return l, true
}

func (c *connections) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, l := range c.links {
		l.cancel()
		delete(c.links, k)
	}
}

// diffKeys returns, in ascending order, the keys of want missing from have
// and the keys of have absent from want.
func diffKeys[V any](have map[uint64]V, want []uint64) (add, drop []uint64) {
	wanted := make(map[uint64]struct{}, len(want))
	for _, k := range want {
		if _, dup := wanted[k]; dup {
			continue
		}
		wanted[k] = struct{}{}
		if _, ok := have[k]; !ok {
			add = append(add, k)
		}
	}
	for k := range have {
		if _, ok := wanted[k]; !ok {
			drop = append(drop, k)
		}
	}
	slices.Sort(add)
	slices.Sort(drop)
	return add, drop
}
