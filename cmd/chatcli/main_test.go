package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtask/chatrelay/internal/chat"
	"github.com/wtask/chatrelay/internal/chat/client"
)

func TestRun_Usage(t *testing.T) {
	assert.Error(t, run(nil, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}))
	assert.Error(t, run([]string{"127.0.0.1"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}))
}

func TestRun_Chat(t *testing.T) {
	s, err := chat.NewServer()
	require.NoError(t, err)
	require.NoError(t, s.Start("127.0.0.1:0"))
	defer s.Shutdown(context.Background())
	host, port, err := net.SplitHostPort(s.Addr().String())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	bob, err := client.Dial(ctx, s.Addr().String(), "Bob")
	require.NoError(t, err)
	defer bob.Close()
	require.Eventually(t, func() bool { return s.Sessions() == 1 }, time.Second, 5*time.Millisecond)

	stdout := &bytes.Buffer{}
	input := strings.NewReader("hi\n\n/history\n/quit\nnever sent\n")
	require.NoError(t, run([]string{host, port, "Alice"}, input, stdout, &bytes.Buffer{}))

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(time.Second)))
	m, err := bob.Receive()
	require.NoError(t, err)
	assert.Equal(t, "Alice", m.Sender)
	assert.Equal(t, "hi", m.Body)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Connected as Alice", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Alice ["), "history prints own message: %q", lines[1])
	assert.True(t, strings.HasSuffix(lines[1], "] : hi"), "history prints own message: %q", lines[1])
}
