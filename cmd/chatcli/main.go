// Package `chatcli` implements terminal client for chat relay server.
//
// Usage:
//
//	chatcli host port [name]
//
// Without name the client introduces itself with random one.
// Every typed line is sent to the chat, "/history" prints messages seen so far, "/quit" exits.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wtask/chatrelay/internal/chat/client"
	"github.com/wtask/chatrelay/pkg/log"
)

const (
	commandHistory = "/history"
	commandQuit    = "/quit"

	dialTimeout = 10 * time.Second
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "chatcli error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) < 2 {
		return errors.New("usage: chatcli host port [name]")
	}
	name := client.RandomName()
	if len(args) > 2 && strings.TrimSpace(args[2]) != "" {
		name = strings.TrimSpace(args[2])
	}
	logger := log.New(log.Config{Level: "warn", Pretty: true}, stderr)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	c, err := client.Dial(ctx, net.JoinHostPort(args[0], args[1]), name)
	cancel()
	if err != nil {
		return err
	}
	defer c.Close()
	fmt.Fprintf(stdout, "Connected as %s\n", name)

	go printIncoming(c, stdout, logger)
	return converse(c, stdin, stdout, logger)
}

// printIncoming - prints messages from other participants until connection is closed.
func printIncoming(c *client.Client, out io.Writer, logger zerolog.Logger) {
	for {
		m, err := c.Receive()
		switch {
		case err == nil:
			fmt.Fprintln(out, m.Render())
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out, "Server closed the connection")
			return
		case errors.Is(err, net.ErrClosed):
			return
		default:
			var netErr net.Error
			if errors.As(err, &netErr) {
				logger.Error().Err(err).Msg("connection lost")
				return
			}
			logger.Warn().Err(err).Msg("unreadable message skipped")
		}
	}
}

// converse - sends typed lines until quit command or end of input.
func converse(c *client.Client, in io.Reader, out io.Writer, logger zerolog.Logger) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case commandQuit:
			return nil
		case commandHistory:
			for _, m := range c.History(math.MaxInt) {
				fmt.Fprintln(out, m.Render())
			}
			continue
		case "":
			continue
		}
		if err := c.Send(line); err != nil {
			if errors.Is(err, client.ErrEmptyBody) {
				continue
			}
			return fmt.Errorf("send: %w", err)
		}
	}
	return scanner.Err()
}
