// Package ws keeps the duplex controller connection alive.
package ws

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghalamif/AegisFeed/internal/adapters/observability"
	"github.com/ghalamif/AegisFeed/internal/adapters/protocol"
	"github.com/ghalamif/AegisFeed/internal/clock"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

type Config struct {
	URL              string
	ReconnectBackoff time.Duration
	BinaryOutbound   bool
	HandshakeTimeout time.Duration
	// IdleSleep is how long the writer waits when the outbox is empty.
	IdleSleep time.Duration
	MaxBatch  int
}

func (c *Config) applyDefaults() {
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = 3 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = 2 * time.Millisecond
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 64
	}
}

// MessageHandler receives every inbound message. binary is true for
// MessagePack frames.
type MessageHandler func(data []byte, binary bool)

// Session dials the controller, pumps inbound messages to a handler and
// drains the outbound command queue. It reconnects after a fixed backoff
// for as long as its context lives. Commands still queued when the link
// drops are sent after the next connect.
type Session struct {
	cfg       Config
	outbox    ports.CommandQueue
	obs       ports.Observability
	clock     clock.Clock
	dialer    *websocket.Dialer
	onMessage MessageHandler
	onState   func(connected bool)
	connected atomic.Bool
}

func NewSession(cfg Config, outbox ports.CommandQueue, obs ports.Observability, clk clock.Clock, onMessage MessageHandler, onState func(bool)) *Session {
	cfg.applyDefaults()
	if clk == nil {
		clk = clock.Real()
	}
	if onState == nil {
		onState = func(bool) {}
	}
	return &Session{
		cfg:       cfg,
		outbox:    outbox,
		obs:       obs,
		clock:     clk,
		dialer:    &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		onMessage: onMessage,
		onState:   onState,
	}
}

func (s *Session) Connected() bool { return s.connected.Load() }

// Run blocks until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	first := true
	for {
		if !first {
			s.obs.IncCounter(observability.TransportReconnects, 1)
		}
		first = false

		conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.obs.LogWarn("controller dial failed", ports.F("url", s.cfg.URL), ports.F("error", err.Error()))
		} else {
			s.setConnected(true)
			err = s.serve(ctx, conn)
			s.setConnected(false)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.obs.LogWarn("controller connection lost", ports.F("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.cfg.ReconnectBackoff):
		}
	}
}

func (s *Session) setConnected(v bool) {
	s.connected.Store(v)
	if v {
		s.obs.SetGauge(observability.ControllerConnected, 1)
	} else {
		s.obs.SetGauge(observability.ControllerConnected, 0)
	}
	s.onState(v)
}

func (s *Session) serve(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	readErr := make(chan error, 1)
	go func() {
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
				continue
			}
			s.onMessage(data, mt == websocket.BinaryMessage)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"),
				time.Now().Add(time.Second))
			return ctx.Err()
		case err := <-readErr:
			return fmt.Errorf("read: %w", err)
		default:
		}

		batch := s.outbox.DequeueBatch(s.cfg.MaxBatch)
		s.obs.SetGauge(observability.OutboxLength, float64(s.outbox.Len()))
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
			case err := <-readErr:
				return fmt.Errorf("read: %w", err)
			case <-s.clock.After(s.cfg.IdleSleep):
			}
			continue
		}
		for i, cmd := range batch {
			if err := s.write(conn, cmd); err != nil {
				s.requeue(batch[i:])
				return err
			}
		}
	}
}

func (s *Session) write(conn *websocket.Conn, cmd domain.Command) error {
	data, err := protocol.Encode(cmd, s.cfg.BinaryOutbound)
	if err != nil {
		s.obs.LogError("encode outbound frame", err, ports.F("kind", string(cmd.Kind)))
		return nil
	}
	mt := websocket.TextMessage
	if s.cfg.BinaryOutbound {
		mt = websocket.BinaryMessage
	}
	if err := conn.WriteMessage(mt, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

type frontPusher interface {
	PushFront(items ...domain.Command) int
}

// requeue puts unsent frames back at the head so the controller still
// sees commands in admission order. Queues that cannot do that lose them.
func (s *Session) requeue(cmds []domain.Command) {
	fp, ok := s.outbox.(frontPusher)
	if !ok {
		s.obs.IncCounter(observability.OutboxDropped, float64(len(cmds)))
		return
	}
	if dropped := fp.PushFront(cmds...); dropped > 0 {
		s.obs.IncCounter(observability.OutboxDropped, float64(dropped))
	}
}
