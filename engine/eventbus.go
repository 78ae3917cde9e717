package engine

import (
	"sync"
	"time"
)

type EventType int

type SubscriberID int

// Event is one console occurrence: a telemetry update, a status flip,
// a mission transition. Payload holds the typed event struct.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type busEntry struct {
	id     SubscriberID
	fn     func(Event)
	filter map[EventType]struct{} // nil means all types
}

// EventBus fans console events out to listeners: the SSE hub, the
// mission history writer, log subscribers. Delivery is synchronous and
// in registration order.
type EventBus struct {
	mu      sync.RWMutex
	entries []busEntry
	nextID  SubscriberID
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler for every event type.
func (eb *EventBus) Subscribe(fn func(Event)) SubscriberID {
	return eb.add(fn, nil)
}

// SubscribeTypes registers a handler for the given event types only.
func (eb *EventBus) SubscribeTypes(fn func(Event), types ...EventType) SubscriberID {
	filter := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		filter[t] = struct{}{}
	}
	return eb.add(fn, filter)
}

func (eb *EventBus) add(fn func(Event), filter map[EventType]struct{}) SubscriberID {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	eb.entries = append(eb.entries, busEntry{id: eb.nextID, fn: fn, filter: filter})
	return eb.nextID
}

// Unsubscribe removes a subscriber. Unknown IDs are a no-op.
func (eb *EventBus) Unsubscribe(id SubscriberID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, s := range eb.entries {
		if s.id == id {
			eb.entries = append(eb.entries[:i], eb.entries[i+1:]...)
			return
		}
	}
}

// Emit delivers an event to every matching subscriber. The subscriber
// list is copied first so handlers may subscribe or unsubscribe.
func (eb *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	eb.mu.RLock()
	entries := make([]busEntry, len(eb.entries))
	copy(entries, eb.entries)
	eb.mu.RUnlock()

	for _, s := range entries {
		if s.filter != nil {
			if _, ok := s.filter[evt.Type]; !ok {
				continue
			}
		}
		s.fn(evt)
	}
}
