// Package selection implements long-press, drag-range, and click-to-toggle
// selection over an ordered list of item ids. The handlers are built against
// pointers into the host view's own fields, so any view can use them without
// embedding or inheriting anything.
//
// Per pointer sequence the handlers move through:
//
//	Idle -> PressPending   pointerdown on an item starts the long-press timer
//	PressPending -> Idle   pointermove past the threshold, or pointerup, cancels it
//	PressPending -> Selecting   the timer fires
//	Selecting              pointerenter extends or shrinks the range
//	Selecting -> Idle      pointerup or keyup ends the drag, keeping the selection
package selection

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// NoIndex marks an unset start or end index.
const NoIndex = -1

const (
	defaultLongPressDelay = 250 * time.Millisecond
	defaultMoveThreshold  = 8.0
)

// Fields points at the host's selection state.
type Fields struct {
	Selection          *[]int64
	Selecting          *bool
	StartIndex         *int
	EndIndex           *int
	LongPressTriggered *bool
	SuppressNextClick  *bool
}

// Options configures the handlers.
type Options struct {
	// GetOrder returns the current ordered list of selectable ids. Required.
	GetOrder func() []int64
	// FlashSelection gives visual confirmation when a long press selects id.
	FlashSelection func(id int64)
	// OnChange is called with the new selection after every mutation.
	OnChange func(ids []int64)
	// Locker is held while a timer callback touches the host fields.
	// Hosts that call the handlers under their own mutex should pass it here.
	Locker sync.Locker

	LongPressDelay time.Duration
	MoveThreshold  float64
	Clock          Clock
}

// Pointer carries the coordinates and button of a pointer event.
type Pointer struct {
	X, Y   float64
	Button int
}

type press struct {
	id    int64
	x, y  float64
	timer Timer
}

// Handlers is the set of pointer handlers bound to one host.
type Handlers struct {
	f    Fields
	opts Options

	pending *press
	startID int64
	endID   int64
	base    []int64
	detach  func()
}

// New binds handlers to the host fields.
func New(f Fields, opts Options) *Handlers {
	if opts.LongPressDelay <= 0 {
		opts.LongPressDelay = defaultLongPressDelay
	}
	if opts.MoveThreshold <= 0 {
		opts.MoveThreshold = defaultMoveThreshold
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.GetOrder == nil {
		opts.GetOrder = func() []int64 { return nil }
	}
	h := &Handlers{f: f, opts: opts}
	*f.StartIndex = NoIndex
	*f.EndIndex = NoIndex
	return h
}

// PointerDown records a press on item id and starts the long-press timer.
// Non-primary buttons are ignored.
func (h *Handlers) PointerDown(id int64, p Pointer) {
	if p.Button != 0 {
		return
	}
	h.cancelPress()
	pr := &press{id: id, x: p.X, y: p.Y}
	h.pending = pr
	pr.timer = h.opts.Clock.AfterFunc(h.opts.LongPressDelay, func() {
		if h.opts.Locker != nil {
			h.opts.Locker.Lock()
			defer h.opts.Locker.Unlock()
		}
		if h.pending != pr {
			return
		}
		h.longPress(pr)
	})
}

// PointerMove cancels a pending press once the pointer travels past the
// movement threshold, handing the gesture to ordinary drag-and-drop.
func (h *Handlers) PointerMove(p Pointer) {
	if h.pending == nil {
		return
	}
	if math.Hypot(p.X-h.pending.x, p.Y-h.pending.y) > h.opts.MoveThreshold {
		log.Debug().Int64("id", h.pending.id).Msg("Long press cancelled by movement")
		h.cancelPress()
	}
}

// PointerEnter extends or shrinks the drag range to the hovered item.
func (h *Handlers) PointerEnter(id int64) {
	if !*h.f.Selecting {
		return
	}
	order := h.opts.GetOrder()
	start := indexOf(order, h.startID)
	end := indexOf(order, id)
	if start == NoIndex || end == NoIndex {
		return
	}
	*h.f.StartIndex = start
	*h.f.EndIndex = end
	h.endID = id

	lo, hi := start, end
	if lo > hi {
		lo, hi = hi, lo
	}
	next := append([]int64(nil), h.base...)
	for _, rid := range order[lo : hi+1] {
		if !contains(next, rid) {
			next = append(next, rid)
		}
	}
	h.set(next)
}

// PointerUp ends a drag range, keeping the accumulated selection. A press
// that has not become a long press yet is cancelled.
func (h *Handlers) PointerUp() {
	h.cancelPress()
	h.endDrag()
}

// KeyUp ends a drag range the same way PointerUp does.
func (h *Handlers) KeyUp() {
	h.endDrag()
}

// Click interprets a click on item id. It returns true when the click should
// open the item; otherwise the click was consumed by the selection.
func (h *Handlers) Click(id int64) bool {
	if *h.f.SuppressNextClick {
		*h.f.SuppressNextClick = false
		return false
	}
	if *h.f.LongPressTriggered {
		*h.f.LongPressTriggered = false
		return false
	}
	if len(h.current()) > 0 {
		h.Toggle(id)
		return false
	}
	return true
}

// Toggle adds id to the selection or removes it.
func (h *Handlers) Toggle(id int64) {
	sel := h.current()
	if contains(sel, id) {
		next := make([]int64, 0, len(sel))
		for _, s := range sel {
			if s != id {
				next = append(next, s)
			}
		}
		h.set(next)
		return
	}
	h.set(append(append([]int64(nil), sel...), id))
}

// Clear empties the selection and drag bookkeeping.
func (h *Handlers) Clear() {
	h.cancelPress()
	h.endDrag()
	h.set(nil)
}

// Sync drops selected ids that are no longer in the current order. During
// a drag the range indexes are recomputed against the new order; if the
// item the drag started on is gone, the drag ends.
func (h *Handlers) Sync() {
	if *h.f.Selecting {
		order := h.opts.GetOrder()
		start := indexOf(order, h.startID)
		if start == NoIndex {
			h.endDrag()
		} else {
			end := indexOf(order, h.endID)
			if end == NoIndex {
				end = start
				h.endID = h.startID
			}
			*h.f.StartIndex = start
			*h.f.EndIndex = end
			h.base = prune(h.base, order)
		}
	}
	h.set(h.current())
}

// Selected returns a copy of the current selection.
func (h *Handlers) Selected() []int64 {
	return append([]int64(nil), *h.f.Selection...)
}

// IsSelected reports whether id is selected.
func (h *Handlers) IsSelected(id int64) bool {
	return contains(*h.f.Selection, id)
}

// Attach subscribes the click-outside listener on doc. Calling Attach again
// first detaches the previous subscription.
func (h *Handlers) Attach(doc Document) {
	h.Detach()
	h.detach = doc.OnPointerDown(h.outsidePointerDown)
}

// Detach removes the click-outside listener and cancels any pending press.
func (h *Handlers) Detach() {
	h.cancelPress()
	if h.detach != nil {
		h.detach()
		h.detach = nil
	}
}

// Attached reports whether the click-outside listener is subscribed.
func (h *Handlers) Attached() bool { return h.detach != nil }

// outsidePointerDown runs synchronously inside Document dispatch, which hosts
// perform under the same lock they hold for every other handler call.
func (h *Handlers) outsidePointerDown(ev PointerDown) {
	if *h.f.Selecting {
		return
	}
	if ev.OnThumb && contains(*h.f.Selection, ev.ItemID) {
		return
	}
	if len(*h.f.Selection) == 0 {
		return
	}
	h.set(nil)
	*h.f.SuppressNextClick = true
}

func (h *Handlers) longPress(pr *press) {
	h.pending = nil
	order := h.opts.GetOrder()
	idx := indexOf(order, pr.id)
	if idx == NoIndex {
		return
	}
	*h.f.Selecting = true
	*h.f.LongPressTriggered = true
	*h.f.StartIndex = idx
	*h.f.EndIndex = idx
	h.startID = pr.id
	h.endID = pr.id

	base := h.current()
	h.base = make([]int64, 0, len(base))
	for _, id := range base {
		if id != pr.id {
			h.base = append(h.base, id)
		}
	}
	h.set(append(append([]int64(nil), h.base...), pr.id))

	log.Debug().Int64("id", pr.id).Int("index", idx).Msg("Long press selection started")
	if h.opts.FlashSelection != nil {
		h.opts.FlashSelection(pr.id)
	}
}

func (h *Handlers) endDrag() {
	if !*h.f.Selecting {
		return
	}
	*h.f.Selecting = false
	*h.f.StartIndex = NoIndex
	*h.f.EndIndex = NoIndex
	h.base = nil
	h.startID = 0
	h.endID = 0
}

func (h *Handlers) cancelPress() {
	if h.pending == nil {
		return
	}
	if h.pending.timer != nil {
		h.pending.timer.Stop()
	}
	h.pending = nil
}

// current returns the selection pruned to the current order.
func (h *Handlers) current() []int64 {
	return prune(*h.f.Selection, h.opts.GetOrder())
}

// set stores next pruned to the current order and notifies OnChange.
func (h *Handlers) set(next []int64) {
	next = prune(next, h.opts.GetOrder())
	*h.f.Selection = next
	if h.opts.OnChange != nil {
		h.opts.OnChange(append([]int64(nil), next...))
	}
}

func prune(ids, order []int64) []int64 {
	if len(ids) == 0 {
		return []int64{}
	}
	present := make(map[int64]bool, len(order))
	for _, id := range order {
		present[id] = true
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if present[id] && !contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func indexOf(order []int64, id int64) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return NoIndex
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
