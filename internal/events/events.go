// Package events is the component event protocol shared by every view:
// a small publish/subscribe Emitter and a Node tree whose Dispatch bubbles
// an event from the originating component up through its ancestors, so a
// parent view can react to a grid or panel without holding a reference to it.
package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Name identifies an event type.
type Name string

// Event names used across views.
const (
	FiltersChanged      Name = "filters-changed"
	ImagesLoaded        Name = "images-loaded"
	Error               Name = "error"
	ImageClicked        Name = "image-clicked"
	SortChanged         Name = "sort-changed"
	ThumbSizeChanged    Name = "thumb-size-changed"
	PermatagsChanged    Name = "permatags-changed"
	ImageRatingUpdated  Name = "image-rating-updated"
	OpenSimilarInSearch Name = "open-similar-in-search"
	SelectionChanged    Name = "selection-changed"
	ListItemAdded       Name = "list-item-added"
)

// Event is a single dispatched event. Target names the node that dispatched it.
type Event struct {
	Name   Name
	Detail any
	Target string

	stopped bool
}

// StopPropagation prevents the event from reaching further ancestors.
// Listeners already registered on the current node still run.
func (e *Event) StopPropagation() { e.stopped = true }

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool { return e.stopped }

// Listener receives events. A panicking listener is recovered and logged.
type Listener func(*Event)

// Subscription identifies a registered listener for Off.
type Subscription struct {
	name Name
	id   uint64
}

type entry struct {
	id uint64
	fn Listener
}

// Emitter is a minimal publish/subscribe surface. The zero value is ready to use.
type Emitter struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[Name][]entry
}

// On registers fn for events named name.
func (e *Emitter) On(name Name, fn Listener) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[Name][]entry)
	}
	e.nextID++
	e.listeners[name] = append(e.listeners[name], entry{id: e.nextID, fn: fn})
	return Subscription{name: name, id: e.nextID}
}

// Off removes a listener previously registered with On. Unknown subscriptions are ignored.
func (e *Emitter) Off(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.listeners[sub.name]
	for i, l := range list {
		if l.id == sub.id {
			e.listeners[sub.name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(e.listeners[sub.name]) == 0 {
		delete(e.listeners, sub.name)
	}
}

// ListenerCount returns the number of listeners registered for name.
func (e *Emitter) ListenerCount(name Name) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[name])
}

// Emit delivers ev to every listener registered for ev.Name, in registration order.
// Listeners are called outside the lock so they may subscribe or unsubscribe.
func (e *Emitter) Emit(ev *Event) {
	e.mu.Lock()
	snapshot := append([]entry(nil), e.listeners[ev.Name]...)
	e.mu.Unlock()

	for _, l := range snapshot {
		callListener(l.fn, ev)
	}
}

func callListener(fn Listener, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", string(ev.Name)).
				Str("target", ev.Target).
				Str("panic", fmt.Sprint(r)).
				Msg("Event listener failed")
		}
	}()
	fn(ev)
}
