package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/srg/blehub/internal/groutine"
	"github.com/srg/blehub/internal/host"
)

var (
	// ErrNotConnected is returned by Send while the backend link is down.
	ErrNotConnected = errors.New("backend not connected")
	// ErrSendQueueFull is returned by Send when the writer is behind.
	ErrSendQueueFull = errors.New("backend send queue full")
)

const (
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second
)

// TransportConfig configures the backend link.
type TransportConfig struct {
	URL           string
	DialTimeout   time.Duration
	RetryInterval time.Duration
	InboundBuffer int
	// MaxFailures consecutive dial failures open the breaker for RetryInterval.
	MaxFailures int
}

// Transport is the websocket link to the backend. A background loop keeps
// it connected; inbound binary frames wait in an overlapped ring until the
// hub reads them, the oldest being overwritten when the hub falls behind.
type Transport struct {
	cfg     TransportConfig
	dialer  *websocket.Dialer
	breaker *gobreaker.CircuitBreaker[*websocket.Conn]
	inbound mpmc.RichOverlappedRingBuffer[[]byte]
	logger  *logrus.Logger

	mu         sync.Mutex
	outbound   chan []byte
	connected  atomic.Bool
	overwrites atomic.Int64
}

// NewTransport creates a transport. Call Run to connect.
func NewTransport(cfg TransportConfig, logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	t := &Transport{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
		inbound: mpmc.NewOverlappedRingBuffer[[]byte](uint32(cfg.InboundBuffer)),
		logger:  logger,
	}
	maxFailures := uint32(cfg.MaxFailures)
	t.breaker = gobreaker.NewCircuitBreaker[*websocket.Conn](gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     cfg.RetryInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return t
}

// Run keeps the link up until ctx is done.
func (t *Transport) Run(ctx context.Context) {
	for ctx.Err() == nil {
		conn, err := t.dial(ctx)
		if err != nil {
			t.logger.WithFields(logrus.Fields{
				"url":   t.cfg.URL,
				"error": err,
			}).Debug("Backend dial failed")
			select {
			case <-ctx.Done():
			case <-time.After(t.retryDelay()):
			}
			continue
		}
		t.serve(ctx, conn)
	}
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, err := t.breaker.Execute(func() (*websocket.Conn, error) {
		dialCtx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
		defer cancel()
		conn, _, err := t.dialer.DialContext(dialCtx, t.cfg.URL, nil)
		return conn, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("backend circuit open: %w", err)
	}
	return conn, err
}

func (t *Transport) retryDelay() time.Duration {
	if t.breaker.State() == gobreaker.StateOpen {
		return t.cfg.RetryInterval
	}
	return t.cfg.RetryInterval / 5
}

// serve pumps one connection until it fails or ctx is done.
func (t *Transport) serve(ctx context.Context, conn *websocket.Conn) {
	out := make(chan []byte, sendQueueSize)
	t.mu.Lock()
	t.outbound = out
	t.mu.Unlock()
	t.connected.Store(true)
	t.logger.WithField("url", t.cfg.URL).Info("Backend connected")

	connCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	groutine.Go(connCtx, "backend-write", func(ctx context.Context) {
		defer wg.Done()
		defer cancel()
		t.writePump(ctx, conn, out)
	})
	groutine.Go(connCtx, "backend-close", func(ctx context.Context) {
		<-ctx.Done()
		_ = conn.Close()
	})

	t.readPump(conn)

	cancel()
	wg.Wait()
	t.connected.Store(false)
	t.mu.Lock()
	t.outbound = nil
	t.mu.Unlock()
	t.logger.WithField("url", t.cfg.URL).Warn("Backend disconnected")
}

func (t *Transport) readPump(conn *websocket.Conn) {
	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logger.WithField("error", err).Warn("Backend read failed")
			}
			return
		}
		if typ != websocket.BinaryMessage {
			t.logger.WithField("type", typ).Debug("Non-binary backend frame ignored")
			continue
		}
		overwrites, err := t.inbound.EnqueueM(msg)
		if err != nil {
			t.logger.WithField("error", err).Warn("Inbound frame dropped")
			continue
		}
		if overwrites > 0 {
			t.overwrites.Add(int64(overwrites))
			t.logger.Debug("Inbound buffer full, oldest frame overwritten")
		}
	}
}

func (t *Transport) writePump(ctx context.Context, conn *websocket.Conn, out <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				t.logger.WithField("error", err).Warn("Backend write failed")
				return
			}
		}
	}
}

// Read copies the oldest inbound frame into buf. It never blocks.
func (t *Transport) Read(buf []byte) (int, bool, error) {
	if t.inbound.IsEmpty() {
		return 0, false, nil
	}
	msg, err := t.inbound.Dequeue()
	if err != nil {
		return 0, false, nil
	}
	more := !t.inbound.IsEmpty()
	if len(msg) > len(buf) {
		return 0, more, fmt.Errorf("%w: frame of %d bytes, buffer %d", host.ErrOutOfMemory, len(msg), len(buf))
	}
	return copy(buf, msg), more, nil
}

// Send queues one binary frame. It never blocks.
func (t *Transport) Send(data []byte) error {
	t.mu.Lock()
	out := t.outbound
	t.mu.Unlock()
	if out == nil {
		return ErrNotConnected
	}
	select {
	case out <- append([]byte(nil), data...):
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Connected reports whether the link is up.
func (t *Transport) Connected() bool {
	return t.connected.Load()
}

// Overwritten is the number of inbound frames lost to the ring.
func (t *Transport) Overwritten() int64 {
	return t.overwrites.Load()
}

// BreakerState exposes the dial circuit breaker state.
func (t *Transport) BreakerState() gobreaker.State {
	return t.breaker.State()
}
