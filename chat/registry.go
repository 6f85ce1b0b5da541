// Package chat implements the generation pipeline: enrichment, streaming,
// cancellation, persistence and event emission for one outgoing message.
package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type generation struct {
	id     string
	cancel context.CancelFunc
}

// Registry tracks the in-flight generation per conversation. It is the
// single coordination point between stop requests and running generations.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]*generation
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int64]*generation)}
}

// Start registers a new generation for a conversation and returns its
// cancellation context and generation id. When a generation is already in
// flight for the conversation it is cancelled and replaced: the latest
// send wins, no signal is orphaned.
func (r *Registry) Start(conversationID int64) (context.Context, string) {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	r.mu.Lock()
	prev := r.entries[conversationID]
	r.entries[conversationID] = &generation{id: id, cancel: cancel}
	r.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}

	return ctx, id
}

// RequestCancel triggers the active generation's signal and reports whether
// one existed.
func (r *Registry) RequestCancel(conversationID int64) bool {
	r.mu.RLock()
	entry := r.entries[conversationID]
	r.mu.RUnlock()

	if entry == nil {
		return false
	}
	entry.cancel()
	return true
}

// End removes the conversation's entry if it still belongs to the given
// generation. A stale end, from a generation that was already replaced by a
// newer one, leaves the active entry alone.
func (r *Registry) End(conversationID int64, generationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[conversationID]
	if !ok || entry.id != generationID {
		return
	}
	entry.cancel()
	delete(r.entries, conversationID)
}

// Active reports whether a generation is in flight for the conversation
func (r *Registry) Active(conversationID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[conversationID]
	return ok
}
