package events

import (
	"context"
	"sync"
	"time"
)

// MemoryPublisher fans events out to in-process subscribers and keeps the
// full history. It backs tests and the embedded development mode.
type MemoryPublisher struct {
	mu      sync.Mutex
	history []Event
	subs    []chan Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, event)
	for _, sub := range p.subs {
		select {
		case sub <- event:
		default:
			// Slow subscriber; dropping beats blocking the callback path.
		}
	}
	return nil
}

// Subscribe returns a channel receiving every future event. The channel is
// buffered; a subscriber that falls far behind misses events.
func (p *MemoryPublisher) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, ch)
	return ch
}

// History returns a copy of everything emitted so far.
func (p *MemoryPublisher) History() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.history))
	copy(out, p.history)
	return out
}
