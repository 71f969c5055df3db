package broker

import (
	"sync"

	"github.com/wtask/chatrelay/internal/chat/message"
)

// Member - registered chat participant able to receive broadcast messages.
type Member interface {
	Name() string
	Send(message.Message) error
	Close() error
}

// Registry - set of live members keyed by identity, names may repeat.
type Registry struct {
	mu   sync.RWMutex
	list map[Member]struct{}
}

// NewRegistry - builds empty registry.
func NewRegistry() *Registry {
	return &Registry{
		list: make(map[Member]struct{}),
	}
}

// Len - number of registered members.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.list)
}

// Add - registers member, returns false if it is registered already.
func (r *Registry) Add(m Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.list[m]; ok {
		return false
	}
	r.list[m] = struct{}{}
	return true
}

// Remove - deregisters member, returns true only for the call which actually removed it.
func (r *Registry) Remove(m Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.list[m]; !ok {
		return false
	}
	delete(r.list, m)
	return true
}

// Snapshot - returns point-in-time copy of members in no particular order.
func (r *Registry) Snapshot() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]Member, 0, len(r.list))
	for m := range r.list {
		snapshot = append(snapshot, m)
	}
	return snapshot
}
