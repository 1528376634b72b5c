package progress

import "testing"

func TestSubscribePublishDeliversToMatchingUser(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(EmbeddingProgressChannel, "user-1")
	defer cancel()

	bus.Publish(EmbeddingProgressChannel, Event{Channel: EmbeddingProgressChannel, UserID: "user-1", Payload: EmbeddingProgress{Completed: 1, Total: 10}})

	select {
	case ev := <-ch:
		p, ok := ev.Payload.(EmbeddingProgress)
		if !ok || p.Completed != 1 {
			t.Fatalf("unexpected payload: %+v", ev.Payload)
		}
	default:
		t.Fatal("expected event to be delivered")
	}
}

func TestPublishSkipsMismatchedUser(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(EmbeddingProgressChannel, "user-1")
	defer cancel()

	bus.Publish(EmbeddingProgressChannel, Event{Channel: EmbeddingProgressChannel, UserID: "user-2", Payload: EmbeddingProgress{}})

	select {
	case ev := <-ch:
		t.Fatalf("expected no event for mismatched user, got %+v", ev)
	default:
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(EmbeddingProgressChannel, "")
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(EmbeddingProgressChannel, Event{Channel: EmbeddingProgressChannel, Payload: EmbeddingProgress{Completed: i}})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("expected buffer to cap at %d, got %d", subscriberBuffer, len(ch))
	}
}
