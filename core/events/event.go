package events

import (
	"sync"

	"pairamm/core/types"
)

// Event represents a structured state change emitted by a pool operation.
type Event interface {
	EventType() string
}

// Recordable events can be flattened into a type/attribute record for
// downstream consumers such as the gateway or an indexer.
type Recordable interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards every event.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (f EmitterFunc) Emit(evt Event) {
	if f != nil {
		f(evt)
	}
}

// Buffer holds events emitted during an operation until the operation
// commits and the host flushes it. A failed operation drops its buffer and
// publishes nothing.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()
}

// Flush forwards the buffered events to dst in emission order and empties the
// buffer.
func (b *Buffer) Flush(dst Emitter) []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.mu.Unlock()
	if dst != nil {
		for _, evt := range pending {
			dst.Emit(evt)
		}
	}
	return pending
}

// Records flattens events that support it, skipping the rest.
func Records(evts []Event) []types.Event {
	out := make([]types.Event, 0, len(evts))
	for _, evt := range evts {
		rec, ok := evt.(Recordable)
		if !ok {
			continue
		}
		if flat := rec.Event(); flat != nil {
			out = append(out, *flat)
		}
	}
	return out
}
