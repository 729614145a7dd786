package dom

import "sync"

// MutationType is the kind of document change being announced.
type MutationType int

const (
	// MutationChildInserted announces a newly attached subtree.
	MutationChildInserted MutationType = iota
	// MutationTextChanged announces rewritten text or attribute content.
	MutationTextChanged
)

// Mutation is one observed document change.
type Mutation struct {
	Type   MutationType
	Target *Node
}

// Feed is a subscribable change feed. Subscribers receive mutation
// batches; slow subscribers drop batches rather than blocking the
// document.
type Feed struct {
	mu   sync.Mutex
	subs map[int]chan []Mutation
	next int
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan []Mutation)}
}

// Subscribe registers a new subscriber. The returned cancel func
// removes the subscription and closes the channel.
func (f *Feed) Subscribe() (<-chan []Mutation, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan []Mutation, 64)
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

// Publish delivers a mutation batch to every subscriber.
func (f *Feed) Publish(muts []Mutation) {
	if len(muts) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- muts:
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
}
