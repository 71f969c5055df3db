// Package chat implements chat relay server: it accepts TCP clients,
// learns their names and rebroadcasts every received message to the others.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wtask/chatrelay/internal/chat/broker"
	"github.com/wtask/chatrelay/internal/chat/session"
	"github.com/wtask/chatrelay/internal/chat/wire"
	"github.com/wtask/chatrelay/pkg/background"
	"github.com/wtask/chatrelay/pkg/log"
)

const (
	defaultWriteTimeout     = 10 * time.Second
	defaultHandshakeTimeout = 30 * time.Second

	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second

	failureShutdownTimeout = 10 * time.Second
)

// Server - chat server over TCP. A server can be started once, after Shutdown it is closed for good.
type Server struct {
	log              zerolog.Logger
	queueSize        int
	writeTimeout     time.Duration
	handshakeTimeout time.Duration
	now              func() time.Time

	registry *broker.Registry
	engine   *broker.Engine

	mu       sync.Mutex
	state    State
	closed   bool
	// stopPending - Shutdown was requested while server was starting
	stopPending bool
	listener net.Listener
	cancel   context.CancelFunc
	loops    *errgroup.Group
	sessions *background.Scope
	done     chan struct{}
}

// NewServer - builds chat server, call Start or Serve to launch it.
func NewServer(options ...serverOption) (*Server, error) {
	s := &Server{
		log:              zerolog.Nop(),
		queueSize:        broker.DefaultQueueSize,
		writeTimeout:     defaultWriteTimeout,
		handshakeTimeout: defaultHandshakeTimeout,
		now:              time.Now,
		registry:         broker.NewRegistry(),
		done:             make(chan struct{}),
	}
	for _, option := range options {
		if option == nil {
			continue
		}
		if err := option(s); err != nil {
			return nil, err
		}
	}
	engine, err := broker.NewEngine(
		s.registry,
		broker.WithQueueSize(s.queueSize),
		broker.WithLogger(s.log),
	)
	if err != nil {
		return nil, fmt.Errorf("chat.NewServer: can't build broadcast engine: %w", err)
	}
	s.engine = engine
	return s, nil
}

// State - returns current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr - returns listening address or nil if server is not serving.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Sessions - returns number of registered clients.
func (s *Server) Sessions() int {
	return s.registry.Len()
}

// Done - is closed when server has stopped after Shutdown.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Start - binds TCP address and launches the server in background.
// On bind failure the server stays stopped and returned error wraps ErrBind.
func (s *Server) Start(address string) error {
	if err := s.transit(StateStopped, StateStarting); err != nil {
		return err
	}
	listener, err := net.Listen("tcp", address)
	if err != nil {
		s.abortStart()
		return fmt.Errorf("%w %q: %w", ErrBind, address, err)
	}
	return s.serve(listener)
}

// Serve - launches the server in background over given listener, the server owns it from now on.
func (s *Server) Serve(listener net.Listener) error {
	if listener == nil {
		return errors.New("chat.Server.Serve: listener is nil")
	}
	if err := s.transit(StateStopped, StateStarting); err != nil {
		return err
	}
	return s.serve(listener)
}

func (s *Server) transit(from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if s.state != from {
		return ErrAlreadyStarted
	}
	s.state = to
	return nil
}

// abortStart - returns starting server to stopped state,
// the server is closed if Shutdown was requested meanwhile.
func (s *Server) abortStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateStopped
	if s.stopPending {
		s.closed = true
		close(s.done)
	}
}

func (s *Server) serve(listener net.Listener) error {
	s.mu.Lock()
	if s.stopPending {
		s.mu.Unlock()
		listener.Close()
		s.abortStart()
		s.log.Info().Msg("chat server stopped before start")
		return ErrServerClosed
	}
	ctx, cancel := context.WithCancel(context.Background())
	loops, loopCtx := errgroup.WithContext(ctx)
	sessions, _ := background.NewScope(ctx)
	s.listener = listener
	s.cancel = cancel
	s.loops = loops
	s.sessions = sessions
	s.state = StateRunning
	s.mu.Unlock()

	loops.Go(func() error {
		return s.engine.Run(loopCtx)
	})
	loops.Go(func() error {
		return s.acceptLoop(loopCtx, listener, sessions)
	})
	go s.stopOnFailure(loops)
	s.log.Info().Str(log.FieldAddress, listener.Addr().String()).Msg("chat server is running")
	return nil
}

// stopOnFailure - shuts the server down when one of its loops has failed on its own.
func (s *Server) stopOnFailure(loops *errgroup.Group) {
	err := loops.Wait()
	if err == nil {
		return
	}
	s.log.Error().Err(err).Msg("chat server loop failed, stopping")
	ctx, cancel := context.WithTimeout(context.Background(), failureShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.log.Error().Err(err).Msg("chat server stopped with errors")
	}
}

// Shutdown - stops accepting clients, disconnects registered ones, discards pending messages
// and waits for background goroutines until ctx is done.
// Shutdown of a server which was never started just closes it,
// Shutdown of a starting server prevents it from running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateRunning:
		s.state = StateStopping
	case StateStarting, StateStopping:
		if s.state == StateStarting {
			s.stopPending = true
		}
		s.mu.Unlock()
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		neverStarted := s.loops == nil && !s.closed
		s.closed = true
		s.mu.Unlock()
		if neverStarted {
			close(s.done)
		}
		return nil
	}
	s.mu.Unlock()

	from := time.Now()
	s.log.Info().Msg("chat server is stopping")

	s.cancel()
	var errs []error
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, fmt.Errorf("close listener: %w", err))
	}
	disconnected := 0
	for _, member := range s.registry.Snapshot() {
		if s.registry.Remove(member) {
			member.Close()
			disconnected++
		}
	}
	if err := waitGroup(ctx, s.loops); err != nil {
		errs = append(errs, err)
	}
	if err := s.sessions.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("wait sessions: %w", err))
	}

	s.mu.Lock()
	s.state = StateStopped
	s.closed = true
	s.mu.Unlock()
	close(s.done)

	s.log.Info().
		Int("disconnected", disconnected).
		Dur("elapsed", time.Since(from)).
		Msg("chat server stopped")
	return errors.Join(errs...)
}

func waitGroup(ctx context.Context, g *errgroup.Group) error {
	result := make(chan error, 1)
	go func() {
		result <- g.Wait()
	}()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("wait server loops: %w", ctx.Err())
	}
}

// acceptLoop - blocks on Accept only, every connection is handled in its own goroutine.
func (s *Server) acceptLoop(ctx context.Context, listener net.Listener, sessions *background.Scope) error {
	delay := time.Duration(0)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.log.Error().Err(err).Msg("listener closed unexpectedly")
				return fmt.Errorf("chat.Server: accept: %w", err)
			}
			delay = min(max(2*delay, minAcceptDelay), maxAcceptDelay)
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		if !sessions.Go(func(ctx context.Context) { s.handle(ctx, conn) }) {
			conn.Close()
			return nil
		}
	}
}

// handle - introduces the client and keeps its session until disconnection.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	name, err := s.handshake(ctx, conn)
	if err != nil {
		s.log.Warn().Err(err).Str(log.FieldRemote, remote).Msg("client rejected")
		conn.Close()
		return
	}

	sess := session.New(conn, name,
		session.WithWriteTimeout(s.writeTimeout),
		session.WithClock(s.now),
	)
	if !s.register(sess) {
		sess.Close()
		return
	}
	s.log.Info().
		Str(log.FieldSessionID, sess.ID()).
		Str(log.FieldClient, name).
		Str(log.FieldRemote, remote).
		Msg("client connected")

	sess.ReadLoop(ctx, s.engine, s.leave)
}

// handshake - reads the first frame as client name.
func (s *Server) handshake(ctx context.Context, conn net.Conn) (string, error) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	if s.handshakeTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.handshakeTimeout)); err != nil {
			return "", fmt.Errorf("%w: %w", ErrHandshake, err)
		}
		defer conn.SetReadDeadline(time.Time{})
	}
	name, err := wire.ReadText(conn)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrHandshake)
	}
	return name, nil
}

// register - adds session while server is running.
func (s *Server) register(sess *session.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return false
	}
	return s.registry.Add(sess)
}

func (s *Server) leave(sess *session.Session, reason session.PartReason) {
	if !s.registry.Remove(sess) {
		return
	}
	s.log.Info().
		Str(log.FieldSessionID, sess.ID()).
		Str(log.FieldClient, sess.Name()).
		Stringer(log.FieldReason, reason).
		Msg("client disconnected")
}
