package chat

import (
	"sync"

	"light-chat-engine/db"
)

// EventKind identifies a pipeline notification
type EventKind string

const (
	EventDecisionStarted    EventKind = "decision_started"
	EventDecisionFinished   EventKind = "decision_finished"
	EventSearchStarted      EventKind = "search_started"
	EventSearchFinished     EventKind = "search_finished"
	EventFetchProgress      EventKind = "fetch_progress"
	EventFetchComplete      EventKind = "fetch_complete"
	EventReasoningStarted   EventKind = "reasoning_started"
	EventStreamChunk        EventKind = "stream_chunk"
	EventGenerationComplete EventKind = "generation_complete"
	EventGenerationStopped  EventKind = "generation_stopped"
	EventTitleUpdated       EventKind = "title_updated"
)

// Event is one pipeline notification. ConversationID is always set;
// MessageID refers to the user message that anchors the generation. The
// remaining fields are filled per kind: Chunk/Reasoning carry the
// incremental delta on stream_chunk, Assistant and Cancelled the outcome on
// generation_complete, Title the new name on title_updated.
type Event struct {
	Kind           EventKind
	ConversationID int64
	MessageID      int64
	Chunk          string
	Reasoning      string
	Decision       *db.SearchDecision
	SearchResult   *db.SearchResult
	FetchResult    *db.FetchResult
	Assistant      *db.Message
	Cancelled      bool
	Title          string
	Err            string
}

const eventBufferSize = 64

// Bus fans pipeline events out to subscribers. Publishing never blocks; a
// subscriber that stops draining loses events instead of stalling the
// pipeline.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBus creates an event bus with no subscribers
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a buffered event channel and an unsubscribe function.
// Unsubscribing closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, eventBufferSize)
	b.subs[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish delivers an event to every subscriber, dropping it for any whose
// buffer is full.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
