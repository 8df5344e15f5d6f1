package events

import (
	"sync"

	"hashmelody/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Payload converts evt into its generic representation. Events that do not
// expose attributes are rendered with their type only.
func Payload(evt Event) *types.Event {
	if evt == nil {
		return nil
	}
	if provider, ok := evt.(interface{ Event() *types.Event }); ok {
		if payload := provider.Event(); payload != nil {
			return payload
		}
	}
	return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
}

// Raw adapts an already rendered payload to the Event interface.
type Raw struct {
	Payload types.Event
}

// EventType implements Event.
func (r Raw) EventType() string { return r.Payload.Type }

// Event returns a copy of the wrapped payload.
func (r Raw) Event() *types.Event {
	clone := r.Payload.Clone()
	return &clone
}

// Buffer collects events emitted during a state transition so they can be
// published only once the transition commits.
type Buffer struct {
	events []types.Event
}

// Emit implements Emitter.
func (b *Buffer) Emit(evt Event) {
	if b == nil {
		return
	}
	if payload := Payload(evt); payload != nil {
		b.events = append(b.events, payload.Clone())
	}
}

// Events returns a copy of the buffered payloads.
func (b *Buffer) Events() []types.Event {
	if b == nil {
		return nil
	}
	out := make([]types.Event, len(b.events))
	for i := range b.events {
		out[i] = b.events[i].Clone()
	}
	return out
}

// Len reports how many events are buffered.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.events)
}

// FlushTo forwards buffered events to dst in emission order and clears the
// buffer.
func (b *Buffer) FlushTo(dst Emitter) {
	if b == nil {
		return
	}
	if dst != nil {
		for _, evt := range b.events {
			dst.Emit(Raw{Payload: evt})
		}
	}
	b.events = nil
}

// Fanout forwards every event to a dynamic set of subscribers.
type Fanout struct {
	mu   sync.RWMutex
	subs []Emitter
}

// Subscribe registers dst for all subsequent events.
func (f *Fanout) Subscribe(dst Emitter) {
	if f == nil || dst == nil {
		return
	}
	f.mu.Lock()
	f.subs = append(f.subs, dst)
	f.mu.Unlock()
}

// Emit implements Emitter.
func (f *Fanout) Emit(evt Event) {
	if f == nil || evt == nil {
		return
	}
	f.mu.RLock()
	subs := append([]Emitter(nil), f.subs...)
	f.mu.RUnlock()
	for _, sub := range subs {
		sub.Emit(evt)
	}
}
