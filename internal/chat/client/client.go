// Package client implements chat client side: handshake, sending and receiving of messages
// and local history of the conversation.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wtask/chatrelay/internal/chat/history"
	"github.com/wtask/chatrelay/internal/chat/message"
	"github.com/wtask/chatrelay/internal/chat/wire"
)

// NameLength - length of generated client name.
const NameLength = 18

var (
	// ErrEmptyBody - empty messages are not sent.
	ErrEmptyBody = errors.New("client: empty message body")
	// ErrBodyTooLarge - rendered message would not fit a single frame.
	ErrBodyTooLarge = errors.New("client: message body is too large")
	// ErrEmptyName - client can't connect without name.
	ErrEmptyName = errors.New("client: empty name")
)

// Client - connection to chat server on behalf of a named participant.
type Client struct {
	name    string
	conn    net.Conn
	now     func() time.Time
	history *history.Stack
	writeMu sync.Mutex
}

type config struct {
	historySize int
	now         func() time.Time
	dialer      net.Dialer
}

// Option - client option.
type Option func(c *config)

// WithHistorySize - overwrites number of messages kept locally.
func WithHistorySize(size int) Option {
	return func(c *config) { c.historySize = size }
}

// WithClock - overwrites time source used to stamp own messages.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// RandomName - generates name of NameLength upper-case alphanumeric characters.
func RandomName() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:NameLength]
}

// Dial - connects to chat server and introduces the client with name.
func Dial(ctx context.Context, address, name string, options ...Option) (*Client, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	cfg := config{historySize: history.DefaultSize, now: time.Now}
	for _, option := range options {
		if option != nil {
			option(&cfg)
		}
	}
	h, err := history.NewStack(cfg.historySize)
	if err != nil {
		return nil, fmt.Errorf("client.Dial: %w", err)
	}
	conn, err := cfg.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("client.Dial: %w", err)
	}
	if err := wire.WriteText(conn, name); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client.Dial: handshake: %w", err)
	}
	return &Client{name: name, conn: conn, now: cfg.now, history: h}, nil
}

// Name - returns client name.
func (c *Client) Name() string { return c.name }

// Send - sends message body to the server and keeps it in history.
func (c *Client) Send(body string) error {
	m, err := message.New(c.name, body, c.now())
	if err != nil {
		if errors.Is(err, message.ErrEmptyBody) {
			return ErrEmptyBody
		}
		return err
	}
	if len(m.Render()) > wire.MaxPayload {
		return ErrBodyTooLarge
	}
	c.writeMu.Lock()
	err = wire.WriteText(c.conn, body)
	c.writeMu.Unlock()
	if err != nil {
		return err
	}
	c.history.Push(m)
	return nil
}

// Receive - blocks until the next message from other participants arrives.
// Frames which can't be parsed are returned as error, the connection stays usable.
func (c *Client) Receive() (message.Message, error) {
	text, err := wire.ReadText(c.conn)
	if err != nil {
		return message.Message{}, err
	}
	m, err := message.Parse(text)
	if err != nil {
		return message.Message{}, err
	}
	c.history.Push(m)
	return m, nil
}

// ReceiveRaw - blocks until the next frame and returns it as is.
func (c *Client) ReceiveRaw() (string, error) {
	return wire.ReadText(c.conn)
}

// History - returns last n messages, both sent and received, the oldest first.
func (c *Client) History(n int) []message.Message {
	return c.history.Tail(n)
}

// SetReadDeadline - limits waiting in Receive.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close - disconnects from the server.
func (c *Client) Close() error {
	return c.conn.Close()
}
