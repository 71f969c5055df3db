package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtask/chatrelay/internal/chat/message"
	"github.com/wtask/chatrelay/internal/chat/wire"
)

type inbox chan message.Message

func (i inbox) Submit(ctx context.Context, m message.Message) error {
	select {
	case i <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type parting struct {
	mu      sync.Mutex
	reasons []PartReason
}

func (p *parting) leave(_ *Session, reason PartReason) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reasons = append(p.reasons, reason)
}

func (p *parting) list() []PartReason {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PartReason{}, p.reasons...)
}

var fixedTime = time.Date(2025, time.August, 16, 14, 30, 0, 0, time.Local)

func TestSession_Receive(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	s := New(serverConn, "Alice", WithClock(func() time.Time { return fixedTime }))
	defer s.Close()

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "Alice", s.Name())
	assert.True(t, s.Running())

	go wire.WriteText(clientConn, "hi")
	m, err := s.Receive()
	require.NoError(t, err)
	assert.Equal(t, message.Message{Sender: "Alice", Body: "hi", Time: fixedTime}, m)

	clientConn.Close()
	_, err = s.Receive()
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestSession_Send(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	s := New(serverConn, "Bob", WithWriteTimeout(time.Second))
	defer s.Close()

	m := message.Message{Sender: "Alice", Body: "hi", Time: fixedTime}
	go func() {
		assert.NoError(t, s.Send(m))
	}()
	text, err := wire.ReadText(clientConn)
	require.NoError(t, err)
	assert.Equal(t, "Alice [16-08-25 | 14:30] : hi", text)
}

func TestSession_SendTimeout(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	s := New(serverConn, "Bob", WithWriteTimeout(10*time.Millisecond))
	defer s.Close()

	// nobody reads from client side
	err := s.Send(message.Message{Sender: "Alice", Body: "hi", Time: fixedTime})
	var netErr net.Error
	require.True(t, errors.As(err, &netErr), "unexpected error %v", err)
	assert.True(t, netErr.Timeout())
	assert.True(t, s.Running(), "write failure must not stop the session")
}

func TestSession_CloseIdempotent(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	s := New(serverConn, "Alice")

	require.NoError(t, s.Close())
	assert.False(t, s.Running())
	assert.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send(message.Message{Sender: "Bob", Body: "hi"}), ErrDisconnected)
}

func TestSession_ReadLoop(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	s := New(serverConn, "Alice")
	in := make(inbox, 10)
	p := &parting{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ReadLoop(context.Background(), in, p.leave)
	}()

	for _, body := range []string{"one", "", "two", "three"} {
		require.NoError(t, wire.WriteText(clientConn, body))
	}
	clientConn.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read loop did not stop on disconnect")
	}
	close(in)
	received := []string{}
	for m := range in {
		assert.Equal(t, "Alice", m.Sender)
		received = append(received, m.Body)
	}
	assert.Equal(t, []string{"one", "two", "three"}, received, "empty bodies must be dropped, order kept")
	assert.Equal(t, []PartReason{PartLeft}, p.list())
	assert.False(t, s.Running())
}

func TestSession_ReadLoop_InvalidText(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	s := New(serverConn, "Mallory")
	p := &parting{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ReadLoop(context.Background(), make(inbox), p.leave)
	}()

	require.NoError(t, wire.WriteFrame(clientConn, []byte{0xff, 0xfe}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read loop did not stop on protocol error")
	}
	assert.Equal(t, []PartReason{PartProtocol}, p.list())
}

func TestSession_ReadLoop_ClosedLocally(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	s := New(serverConn, "Alice")
	p := &parting{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ReadLoop(context.Background(), make(inbox), p.leave)
	}()

	s.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read loop was not unblocked by Close")
	}
	assert.Empty(t, p.list(), "leave must not be called when session was closed by owner")
}

func TestPartReason_String(t *testing.T) {
	assert.Equal(t, "left", PartLeft.String())
	assert.Equal(t, "protocol error", PartProtocol.String())
	assert.Equal(t, "stopped", PartStopped.String())
	assert.Equal(t, "unknown", PartReason(0).String())
}
