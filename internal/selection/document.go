package selection

import "sync"

// PointerDown describes a document-level pointerdown. ItemID is the item
// under the pointer, or 0 when the press did not land on a thumbnail.
type PointerDown struct {
	ItemID  int64
	OnThumb bool
}

// Document is the global event source the click-outside listener attaches to.
type Document interface {
	OnPointerDown(fn func(PointerDown)) (remove func())
}

// EventSource is an in-process Document. Hosts forward raw pointerdown
// interactions to Dispatch.
type EventSource struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(PointerDown)
}

// NewEventSource creates an empty EventSource.
func NewEventSource() *EventSource {
	return &EventSource{listeners: make(map[int]func(PointerDown))}
}

// OnPointerDown registers fn and returns a function that removes it.
func (s *EventSource) OnPointerDown(fn func(PointerDown)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Dispatch delivers ev to every registered listener.
func (s *EventSource) Dispatch(ev PointerDown) {
	s.mu.Lock()
	fns := make([]func(PointerDown), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Len returns the number of attached listeners.
func (s *EventSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
