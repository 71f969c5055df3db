package broker

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DefaultQueueSize - default capacity of inbound message queue.
const DefaultQueueSize = 256

type engineOption func(e *Engine) error

func setup(e *Engine, options ...engineOption) error {
	if e == nil {
		return nil
	}
	for _, option := range options {
		if option == nil {
			continue
		}
		if err := option(e); err != nil {
			return err
		}
	}
	return nil
}

// WithQueueSize - overwrites default capacity of inbound queue.
// Submit blocks while the queue is full.
func WithQueueSize(size int) engineOption {
	return func(e *Engine) error {
		if size <= 0 {
			return fmt.Errorf("broker.WithQueueSize: invalid size (%d)", size)
		}
		e.queueSize = size
		return nil
	}
}

// WithLogger - attaches logger to report dispatching issues.
func WithLogger(logger zerolog.Logger) engineOption {
	return func(e *Engine) error {
		e.log = logger
		return nil
	}
}
