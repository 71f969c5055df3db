// Package history keeps a bounded, chronologically ordered log of chat messages.
package history

import (
	"fmt"
	"sync"

	"github.com/wtask/chatrelay/internal/chat/message"
)

// DefaultSize - number of messages kept by client by default.
const DefaultSize = 1000

// Stack - accumulates a limited number of messages in FIFO order.
// When stack length has reached max value, it drops the oldest item on every push.
type Stack struct {
	mu   sync.RWMutex
	max  int
	head int // index of the oldest item once data is full
	data []message.Message
}

// NewStack - builds history stack.
func NewStack(max int) (*Stack, error) {
	if max <= 0 {
		return nil, fmt.Errorf("history.NewStack: max (%d) must be greater than 0", max)
	}
	return &Stack{max: max, data: make([]message.Message, 0, max)}, nil
}

// Len - returns number of currently kept messages.
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Push - adds message to history, the oldest one is replaced when the stack is full.
func (s *Stack) Push(m message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) < s.max {
		s.data = append(s.data, m)
		return
	}
	s.data[s.head] = m
	s.head = (s.head + 1) % s.max
}

// Tail - makes copy of last n messages into resulting slice.
// The first item in resulting slice is the oldest one. Negative n is treated as its absolute value.
func (s *Stack) Tail(n int) []message.Message {
	if n < 0 {
		n *= -1
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := len(s.data)
	if n > l {
		n = l
	}
	tail := make([]message.Message, n)
	for i := range tail {
		tail[i] = s.data[(s.head+l-n+i)%l]
	}
	return tail
}
