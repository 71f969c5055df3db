package chat

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type serverOption func(s *Server) error

// WithLogger - attaches logger to the server and its broadcast engine.
func WithLogger(logger zerolog.Logger) serverOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

// WithQueueSize - overwrites capacity of inbound message queue.
func WithQueueSize(size int) serverOption {
	return func(s *Server) error {
		if size <= 0 {
			return fmt.Errorf("chat.WithQueueSize: invalid size (%d)", size)
		}
		s.queueSize = size
		return nil
	}
}

// WithWriteTimeout - limits time spent writing one message to one client, zero disables the limit.
func WithWriteTimeout(timeout time.Duration) serverOption {
	return func(s *Server) error {
		if timeout < 0 {
			return fmt.Errorf("chat.WithWriteTimeout: invalid timeout (%v)", timeout)
		}
		s.writeTimeout = timeout
		return nil
	}
}

// WithHandshakeTimeout - limits time a new client has to send its name, zero disables the limit.
func WithHandshakeTimeout(timeout time.Duration) serverOption {
	return func(s *Server) error {
		if timeout < 0 {
			return fmt.Errorf("chat.WithHandshakeTimeout: invalid timeout (%v)", timeout)
		}
		s.handshakeTimeout = timeout
		return nil
	}
}

// WithClock - overwrites time source used to stamp messages.
func WithClock(now func() time.Time) serverOption {
	return func(s *Server) error {
		if now == nil {
			return fmt.Errorf("chat.WithClock: clock is nil")
		}
		s.now = now
		return nil
	}
}
