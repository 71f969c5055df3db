// Package session implements server side state of a single connected chat client.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wtask/chatrelay/internal/chat/message"
	"github.com/wtask/chatrelay/internal/chat/wire"
)

// ErrDisconnected - the peer is gone or the session was closed, the cause is wrapped.
var ErrDisconnected = errors.New("session: disconnected")

// Inbox - accepts messages received by sessions.
type Inbox interface {
	Submit(ctx context.Context, m message.Message) error
}

// PartReason - describes the type of parting with client.
type PartReason int

const (
	_ PartReason = iota
	// PartLeft - the client closed its connection.
	PartLeft
	// PartProtocol - the client sent data which is not a valid frame of text.
	PartProtocol
	// PartStopped - the session was closed on server side.
	PartStopped
)

func (r PartReason) String() string {
	switch r {
	case PartLeft:
		return "left"
	case PartProtocol:
		return "protocol error"
	case PartStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Session - one connected client: its name, its connection and lifecycle flag.
type Session struct {
	id           string
	name         string
	conn         net.Conn
	writeTimeout time.Duration
	now          func() time.Time

	running   atomic.Bool
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Option - session option.
type Option func(s *Session)

// WithWriteTimeout - limits every Send by the deadline, zero means no deadline.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		if timeout > 0 {
			s.writeTimeout = timeout
		}
	}
}

// WithClock - overrides time source used to stamp received messages.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New - builds running session over handshaked connection.
func New(conn net.Conn, name string, options ...Option) *Session {
	s := &Session{
		id:   uuid.NewString(),
		name: name,
		conn: conn,
		now:  time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(s)
		}
	}
	s.running.Store(true)
	return s
}

// ID - unique session identifier.
func (s *Session) ID() string { return s.id }

// Name - client name announced on handshake.
func (s *Session) Name() string { return s.name }

// RemoteAddr - address of the client.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// Running - reports whether the session is still alive.
func (s *Session) Running() bool { return s.running.Load() }

// Receive - blocks until the next frame arrives and wraps it into message on behalf of the session.
// Returned message may have empty body, it is up to caller to drop it.
func (s *Session) Receive() (message.Message, error) {
	text, err := wire.ReadText(s.conn)
	if err != nil {
		return message.Message{}, fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	return message.Message{Sender: s.name, Body: text, Time: s.now()}, nil
}

// Send - writes rendered message as a single frame.
func (s *Session) Send(m message.Message) error {
	if !s.Running() {
		return ErrDisconnected
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	return wire.WriteText(s.conn, m.Render())
}

// Close - releases the connection, safe to call several times.
func (s *Session) Close() error {
	s.running.Store(false)
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// ReadLoop - receives messages until disconnection and pushes non-empty ones into inbox.
// If the loop detects disconnection before anybody closed the session,
// leave is called exactly once. The connection is always closed on return.
func (s *Session) ReadLoop(ctx context.Context, inbox Inbox, leave func(*Session, PartReason)) {
	reason := PartStopped
	defer func() {
		if s.running.CompareAndSwap(true, false) && leave != nil {
			leave(s, reason)
		}
		s.Close()
	}()

	for s.Running() {
		m, err := s.Receive()
		if err != nil {
			reason = partReason(err)
			return
		}
		if m.Body == "" {
			continue
		}
		if err := inbox.Submit(ctx, m); err != nil {
			return
		}
	}
}

func partReason(err error) PartReason {
	switch {
	case errors.Is(err, wire.ErrInvalidText):
		return PartProtocol
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return PartLeft
	case errors.Is(err, net.ErrClosed):
		return PartStopped
	default:
		return PartLeft
	}
}
