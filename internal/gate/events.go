package gate

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event names published by the gate.
const (
	EventEnqueue  = "enqueue"
	EventAdmit    = "admit"
	EventComplete = "complete"
	EventCancel   = "cancel"
	EventTimeout  = "timeout"
	EventReject   = "reject"
	// EventAbandon marks a caller that gave up while its call was executing.
	EventAbandon = "abandon"
	EventClose   = "close"
)

// Event represents one waiter transition.
type Event struct {
	Name     string
	WaiterID uint64
	Fields   map[string]any
}

// EventPublisher receives gate events. Publish is called with the gate's
// lock held so events arrive in transition order; implementations must be
// non-blocking and must not call back into the gate.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Named returns the waiter ids of events with the given name, in order.
func (p *MemoryPublisher) Named(name string) []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []uint64
	for _, e := range p.events {
		if e.Name == name {
			ids = append(ids, e.WaiterID)
		}
	}
	return ids
}

// LogPublisher writes events to a zerolog logger at debug level.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Logger.Debug().Str("event", e.Name).Uint64("waiter", e.WaiterID)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("gate")
}
