package goble

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/suite"

	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/testutils"
)

type TransportTestSuite struct {
	suite.Suite
	server    *httptest.Server
	toHub     chan []byte
	fromHub   chan []byte
	cancel    context.CancelFunc
	transport *Transport
}

func (s *TransportTestSuite) SetupTest() {
	s.toHub = make(chan []byte, 8)
	s.fromHub = make(chan []byte, 8)

	upgrader := websocket.Upgrader{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		go func() {
			for msg := range s.toHub {
				if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
					return
				}
			}
		}()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.fromHub <- msg
		}
	}))
}

func (s *TransportTestSuite) TearDownTest() {
	if s.cancel != nil {
		s.cancel()
	}
	close(s.toHub)
	s.server.Close()
}

func (s *TransportTestSuite) start(url string, cfg TransportConfig) {
	cfg.URL = url
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = time.Second
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.InboundBuffer == 0 {
		cfg.InboundBuffer = 4
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	s.transport = NewTransport(cfg, testutils.NewTestHelper(s.T()).Logger)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.transport.Run(ctx)
}

func (s *TransportTestSuite) wsURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func (s *TransportTestSuite) read(buf []byte) []byte {
	var got []byte
	s.Require().Eventually(func() bool {
		n, _, err := s.transport.Read(buf)
		if err != nil || n == 0 {
			return false
		}
		got = append([]byte(nil), buf[:n]...)
		return true
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func (s *TransportTestSuite) TestFramesFlowBothWays() {
	// GOAL: Verify binary frames cross the link in both directions
	//
	// TEST SCENARIO: backend pushes two frames, hub sends one → hub reads both in order, backend receives one

	s.start(s.wsURL(), TransportConfig{})
	s.Require().Eventually(s.transport.Connected, 2*time.Second, 5*time.Millisecond, "transport MUST connect")

	s.toHub <- []byte{0x12, 0x00}
	s.toHub <- []byte{0x1a, 0x00}

	buf := make([]byte, 16)
	s.Equal([]byte{0x12, 0x00}, s.read(buf))
	s.Equal([]byte{0x1a, 0x00}, s.read(buf))

	n, more, err := s.transport.Read(buf)
	s.NoError(err)
	s.Zero(n)
	s.False(more)

	s.Require().NoError(s.transport.Send([]byte{0x0a, 0x00}))
	select {
	case msg := <-s.fromHub:
		s.Equal([]byte{0x0a, 0x00}, msg)
	case <-time.After(2 * time.Second):
		s.Fail("backend MUST receive the frame")
	}
}

func (s *TransportTestSuite) TestOversizedFrame() {
	s.start(s.wsURL(), TransportConfig{})
	s.Require().Eventually(s.transport.Connected, 2*time.Second, 5*time.Millisecond)

	s.toHub <- make([]byte, 32)
	small := make([]byte, 8)
	var err error
	s.Require().Eventually(func() bool {
		_, _, err = s.transport.Read(small)
		return err != nil
	}, 2*time.Second, 5*time.Millisecond)
	s.ErrorIs(err, host.ErrOutOfMemory, "frame larger than the buffer MUST be refused")
}

func (s *TransportTestSuite) TestSendWhileDisconnected() {
	s.transport = NewTransport(TransportConfig{URL: s.wsURL(), InboundBuffer: 4, MaxFailures: 1}, nil)

	s.ErrorIs(s.transport.Send([]byte{1}), ErrNotConnected)
	s.False(s.transport.Connected())
}

func (s *TransportTestSuite) TestBreakerOpensOnRepeatedDialFailures() {
	// GOAL: Verify consecutive dial failures open the circuit breaker
	//
	// TEST SCENARIO: backend unreachable, max 2 failures → breaker reaches open state

	dead := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(dead.URL, "http")
	dead.Close()

	s.start(url, TransportConfig{MaxFailures: 2, RetryInterval: 50 * time.Millisecond})

	s.Eventually(func() bool {
		return s.transport.BreakerState() == gobreaker.StateOpen
	}, 2*time.Second, 5*time.Millisecond, "breaker MUST open after repeated failures")
	s.False(s.transport.Connected())
}

func TestTransportTestSuite(t *testing.T) {
	suite.Run(t, new(TransportTestSuite))
}
