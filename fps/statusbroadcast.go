package fps

import (
	"sync"

	"github.com/albireox/jaeger-core/positioner"
)

// statusBroadcaster fans a one-shot signal out to every StatusChanges
// subscriber on each fleet status transition (spec.md §9 "AsyncStatus").
// Sends are non-blocking: a slow subscriber misses intermediate
// transitions rather than stalling UpdateStatus.
type statusBroadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan positioner.FPSStatus
}

func newStatusBroadcaster() *statusBroadcaster {
	return &statusBroadcaster{subs: make(map[int]chan positioner.FPSStatus)}
}

// subscribe returns a new channel and a matching unsubscribe function.
func (b *statusBroadcaster) subscribe() (<-chan positioner.FPSStatus, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan positioner.FPSStatus, 1)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
}

func (b *statusBroadcaster) publish(status positioner.FPSStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- status:
		default:
		}
	}
}
