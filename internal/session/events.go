package session

import "sync"

// eventFeed fans session notifications out to any number of
// subscribers, each on its own buffered channel. Slow subscribers drop
// events rather than blocking the session.
type eventFeed struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newEventFeed() *eventFeed {
	return &eventFeed{subs: make(map[int]chan Event)}
}

// subscribe registers a new subscriber. The returned cancel func
// removes the subscription and closes the channel.
func (f *eventFeed) subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan Event, 16)
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish delivers an event to every subscriber.
func (f *eventFeed) publish(event Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
}
