package console

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func stopped(ch <-chan struct{}, within time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(within):
		return false
	}
}

func TestWatch_Stop(test *testing.T) {
	cases := []string{
		"stop\n",
		"STOP\n",
		"  Stop  \n",
		"help\n\nstop\n",
		"stop", // no trailing newline
	}
	for _, input := range cases {
		ch := Watch(context.Background(), strings.NewReader(input), zerolog.Nop())
		assert.True(test, stopped(ch, time.Second), "input %q", input)
	}
}

func TestWatch_NoStop(test *testing.T) {
	cases := []string{
		"",
		"stopp\n",
		"please stop\n",
		"exit\nquit\n",
	}
	for _, input := range cases {
		ch := Watch(context.Background(), strings.NewReader(input), zerolog.Nop())
		assert.False(test, stopped(ch, 50*time.Millisecond), "input %q", input)
	}
}

func TestWatch_Cancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	ch := Watch(ctx, r, zerolog.Nop())
	cancel()
	go w.Write([]byte("stop\n"))
	assert.False(t, stopped(ch, 50*time.Millisecond), "command read after cancel must be ignored")
}
