// Package progress is an in-process publish/subscribe hub fanning stage
// updates out to push-channel clients, re-expressed from the teacher's
// Temporal SetQueryHandler progress reporting as a direct broadcast: the
// workflow query handlers stay queryable for polling clients, and this hub
// additionally pushes the same checkpoints to anything subscribed live.
package progress

import "sync"

// Event is one checkpoint published to a channel such as
// "sync:email:progress" or "rag:progress".
type Event struct {
	Channel string
	UserID  string
	Payload any
}

const subscriberBuffer = 32

// Bus fans events out to subscribers. A slow subscriber never blocks a
// publisher: sends are non-blocking and drop when the subscriber's buffer
// is full.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]*subscriber
}

type subscriber struct {
	userID string
	ch     chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]*subscriber)}
}

// Subscribe returns a channel receiving events published on channel for
// userID. Callers must call the returned cancel function to unsubscribe.
func (b *Bus) Subscribe(channel, userID string) (<-chan Event, func()) {
	sub := &subscriber{userID: userID, ch: make(chan Event, subscriberBuffer)}

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], sub)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[channel]
		for i, s := range list {
			if s == sub {
				b.subs[channel] = append(list[:i], list[i+1:]...)
				close(sub.ch)
				return
			}
		}
	}
	return sub.ch, cancel
}

// Publish fans an event out to every subscriber on channel whose userID
// matches (empty userID on the event broadcasts to all subscribers of the
// channel; a subscriber with an empty userID receives every event).
func (b *Bus) Publish(channel string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[channel] {
		if event.UserID != "" && sub.userID != "" && sub.userID != event.UserID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}
