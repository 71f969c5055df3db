// Package broker keeps registered chat members and routes messages between them.
package broker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/wtask/chatrelay/internal/chat/message"
	"github.com/wtask/chatrelay/internal/chat/wire"
	"github.com/wtask/chatrelay/pkg/log"
)

// Audience - source of broadcast recipients.
type Audience interface {
	Snapshot() []Member
}

// Engine - fans out submitted messages to every member except those named as the sender.
// Messages are dispatched one by one in submission order by the single Run loop.
type Engine struct {
	audience  Audience
	queueSize int
	log       zerolog.Logger

	queue   chan message.Message
	stopped chan struct{}
	stop    sync.Once
	running atomic.Bool
}

// NewEngine - builds broadcast engine for the audience.
func NewEngine(audience Audience, options ...engineOption) (*Engine, error) {
	e := &Engine{
		audience:  audience,
		queueSize: DefaultQueueSize,
		log:       zerolog.Nop(),
		stopped:   make(chan struct{}),
	}
	if err := setup(e, options...); err != nil {
		return nil, err
	}
	e.queue = make(chan message.Message, e.queueSize)
	return e, nil
}

// Submit - puts message into dispatch queue.
// Blocks while the queue is full until ctx is done or engine is stopped.
func (e *Engine) Submit(ctx context.Context, m message.Message) error {
	select {
	case <-e.stopped:
		return ErrEngineStopped
	default:
	}
	select {
	case e.queue <- m:
		return nil
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run - dispatch loop, returns when ctx is done.
// Messages still queued at that moment are discarded.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}
	defer e.shutdown()
	for {
		select {
		case m := <-e.queue:
			e.broadcast(m)
		case <-ctx.Done():
			return nil
		}
	}
}

// broadcast - sends message to all members with a name different from the sender
// and waits for every send to finish. A message whose rendering does not fit a frame is dropped.
func (e *Engine) broadcast(m message.Message) {
	if size := len(m.Render()); size > wire.MaxPayload {
		e.log.Error().
			Str(log.FieldSender, m.Sender).
			Int("size", size).
			Msg("message is too large to relay, dropped")
		return
	}
	recipients := lo.Filter(e.audience.Snapshot(), func(member Member, _ int) bool {
		return member.Name() != m.Sender
	})
	e.log.Info().
		Str(log.FieldSender, m.Sender).
		Str("body", m.Body).
		Int("recipients", len(recipients)).
		Msg("broadcast")
	wg := sync.WaitGroup{}
	for _, member := range recipients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := member.Send(m); err != nil {
				e.log.Warn().Err(err).
					Str(log.FieldSender, m.Sender).
					Str(log.FieldClient, member.Name()).
					Msg("message dropped for recipient")
			}
		}()
	}
	wg.Wait()
}

func (e *Engine) shutdown() {
	e.stop.Do(func() {
		close(e.stopped)
	})
	discarded := 0
	for {
		select {
		case <-e.queue:
			discarded++
		default:
			if discarded > 0 {
				e.log.Info().Int("discarded", discarded).Msg("pending messages discarded on stop")
			}
			return
		}
	}
}
