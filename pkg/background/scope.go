// Package background groups goroutines which must be cancelled and awaited together.
package background

import (
	"context"
	"sync"
)

// Scope - concurrency scope: a cancellable context plus the goroutines living under it.
type Scope struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	scope     sync.WaitGroup
}

// NewScope - concurrency scope builder derived from parent context.
// The returned cancel func cancels the scope context and waits until all members are done.
func NewScope(parent context.Context) (scope *Scope, cancel func()) {
	ctx, cancelFunc := context.WithCancel(parent)
	s := &Scope{
		ctx:       ctx,
		ctxCancel: cancelFunc,
	}
	return s,
		func() {
			s.ctxCancel()
			s.scope.Wait()
		}
}

// Context - return scope context.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Go - runs f in a new goroutine registered in the scope.
// It returns false without running f when the scope is already cancelled.
func (s *Scope) Go(f func(ctx context.Context)) bool {
	if s.ctx.Err() != nil {
		return false
	}
	s.scope.Add(1)
	go func() {
		defer s.scope.Done()
		f(s.ctx)
	}()
	return true
}

// Wait - blocks until all scope members are done or ctx is expired.
func (s *Scope) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.scope.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
