package chat

import "testing"

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	a, unsubA := bus.Subscribe()
	b, unsubB := bus.Subscribe()
	defer unsubA()
	defer unsubB()

	bus.Publish(Event{Kind: EventStreamChunk, ConversationID: 3, Chunk: "hi"})

	for _, ch := range []<-chan Event{a, b} {
		ev := <-ch
		if ev.Kind != EventStreamChunk || ev.Chunk != "hi" {
			t.Errorf("unexpected event: %+v", ev)
		}
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	// Publishing past the buffer must not block
	for i := 0; i < eventBufferSize+10; i++ {
		bus.Publish(Event{Kind: EventStreamChunk})
	}

	if len(ch) != eventBufferSize {
		t.Errorf("buffered %d events, want %d", len(ch), eventBufferSize)
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()

	unsubscribe()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic
	bus.Publish(Event{Kind: EventStreamChunk})
	unsubscribe()
}
