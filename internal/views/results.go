package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/events"
	"github.com/fpang/photo-curator/internal/filters"
	"github.com/fpang/photo-curator/internal/grid"
	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/selection"
)

// results is the grid state shared by Search and Curate: one filter
// container, one page of items, and the multi-select bookkeeping the
// selection handlers operate on.
//
// Event listeners run while the view lock is held and must not call back
// into the view.
type results struct {
	mu        sync.Mutex
	backend   Backend
	node      *events.Node
	container *filters.Container
	doc       *selection.EventSource
	handlers  *selection.Handlers
	hooks     grid.RenderHooks
	gridOpts  grid.Options

	images  []media.Item
	total   int
	gen     uint64
	loading bool
	loaded  bool
	errMsg  string

	selected      []int64
	selecting     bool
	startIndex    int
	endIndex      int
	longPressed   bool
	suppressClick bool
	flash         map[int64]bool

	markup     *grid.Markup
	opened     int64
	dragging   []int64
	categories []api.KeywordCategory
}

func newResults(name string, b Backend, opts Options, hooks grid.RenderHooks, gridOpts grid.Options) *results {
	r := &results{
		backend:   b,
		node:      events.NewNode(name, opts.Parent),
		container: filters.NewContainer(opts.Tenant, b),
		doc:       selection.NewEventSource(),
		hooks:     hooks,
		gridOpts:  gridOpts,
		flash:     make(map[int64]bool),
	}
	if opts.PageSize > 0 {
		r.container.SetLimit(opts.PageSize)
	}
	r.gridOpts.ThumbSize = clampThumb(opts.ThumbSize)

	r.handlers = selection.New(selection.Fields{
		Selection:          &r.selected,
		Selecting:          &r.selecting,
		StartIndex:         &r.startIndex,
		EndIndex:           &r.endIndex,
		LongPressTriggered: &r.longPressed,
		SuppressNextClick:  &r.suppressClick,
	}, selection.Options{
		GetOrder:       func() []int64 { return media.Order(r.images) },
		FlashSelection: func(id int64) { r.flash[id] = true; r.markup = nil },
		OnChange: func(ids []int64) {
			r.markup = nil
			r.node.Dispatch(events.SelectionChanged, ids)
		},
		Locker:         &r.mu,
		LongPressDelay: opts.LongPressDelay,
		Clock:          opts.Clock,
	})
	r.handlers.Attach(r.doc)

	r.container.On(events.FiltersChanged, func(ev *events.Event) {
		r.node.Dispatch(events.FiltersChanged, ev.Detail)
	})
	return r
}

func clampThumb(px int) int {
	switch {
	case px <= 0:
		return DefaultThumbSize
	case px < MinThumbSize:
		return MinThumbSize
	case px > MaxThumbSize:
		return MaxThumbSize
	}
	return px
}

// Node returns the view's event node.
func (r *results) Node() *events.Node { return r.node }

// Filters returns the view's filter container.
func (r *results) Filters() *filters.Container { return r.container }

// Images returns a copy of the loaded page.
func (r *results) Images() []media.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]media.Item(nil), r.images...)
}

// Total returns the total result count reported by the last load.
func (r *results) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Loading reports whether a fetch is in flight.
func (r *results) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Loaded reports whether at least one page has been applied.
func (r *results) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Err returns the message of the last failure, or "".
func (r *results) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

// Selected returns the selected ids.
func (r *results) Selected() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers.Selected()
}

// ThumbSize returns the grid thumbnail size in pixels.
func (r *results) ThumbSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gridOpts.ThumbSize
}

// SetThumbSize resizes the grid thumbnails.
func (r *results) SetThumbSize(px int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	px = clampThumb(px)
	if px == r.gridOpts.ThumbSize {
		return
	}
	r.gridOpts.ThumbSize = px
	r.markup = nil
	r.node.Dispatch(events.ThumbSizeChanged, px)
}

// Load fetches the page for the current filters. A response that arrives
// after a newer Load was started is discarded. The fetched page replaces any
// optimistic patches, and since it replaces the item order the selection is
// cleared.
func (r *results) Load(ctx context.Context) error {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.loading = true
	r.mu.Unlock()

	page, err := r.container.FetchImages(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		log.Debug().Str("view", r.node.Name()).Uint64("gen", gen).Msg("Discarding stale results")
		return nil
	}
	r.loading = false
	if err != nil {
		r.errMsg = "Failed to load images."
		return fmt.Errorf("load %s: %w", r.node.Name(), err)
	}
	r.errMsg = ""
	r.loaded = true
	r.images = media.Reconcile(r.images, page.Items)
	r.total = page.Total
	r.handlers.Clear()
	r.markup = nil
	return nil
}

// Render returns the grid markup for the current state. Flash highlights
// are shown once.
func (r *results) Render() grid.Markup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderLocked()
}

func (r *results) renderLocked() grid.Markup {
	m := grid.Render(r.images, r.selected, r.flash, r.hooks, grid.EventHooks{
		OnDragStart:    r.dragStart,
		OnPointerDown:  r.handlers.PointerDown,
		OnPointerMove:  r.handlers.PointerMove,
		OnPointerEnter: r.handlers.PointerEnter,
		OnClick:        r.click,
	}, r.gridOpts)
	if len(r.flash) > 0 {
		r.flash = make(map[int64]bool)
	}
	r.markup = &m
	return m
}

func (r *results) click(id int64) {
	if r.handlers.Click(id) {
		r.opened = id
		r.node.Dispatch(events.ImageClicked, id)
	}
}

func (r *results) dragStart(id int64) {
	r.dragging = r.payloadLocked(id)
}

// Interact routes one grid interaction to its bound handler. It returns the
// id of the item to open, if the interaction was a click that opens one.
func (r *results) Interact(id int64, event string, p selection.Pointer) (opened int64, handled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markup == nil {
		r.renderLocked()
	}
	r.opened = 0
	handled = r.markup.Dispatch(id, event, p)
	return r.opened, handled
}

// PointerUp forwards a document-level pointerup.
func (r *results) PointerUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers.PointerUp()
}

// KeyUp forwards a document-level keyup.
func (r *results) KeyUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers.KeyUp()
}

// DocumentPointerDown forwards a document-level pointerdown. itemID is 0
// when the press did not land on a thumbnail.
func (r *results) DocumentPointerDown(itemID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Dispatch(selection.PointerDown{ItemID: itemID, OnThumb: itemID > 0})
}

// ClearSelection empties the selection.
func (r *results) ClearSelection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers.Clear()
}

// DragPayload returns the ids a drag starting on id carries: the whole
// selection when id is part of it, otherwise just id.
func (r *results) DragPayload(id int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payloadLocked(id)
}

func (r *results) payloadLocked(id int64) []int64 {
	if r.handlers.IsSelected(id) {
		return r.handlers.Selected()
	}
	return []int64{id}
}

// NextPage advances one page if there is one.
func (r *results) NextPage() bool {
	st := r.container.State()
	total := r.Total()
	if st.Limit <= 0 || st.Offset+st.Limit >= total {
		return false
	}
	r.container.SetOffset(st.Offset + st.Limit)
	return true
}

// PrevPage goes back one page if possible.
func (r *results) PrevPage() bool {
	st := r.container.State()
	if st.Offset <= 0 {
		return false
	}
	r.container.SetOffset(max(st.Offset-st.Limit, 0))
	return true
}

// ApplyRating sets rating on ids. The local page is patched first and the
// patch stays in place when the backend rejects an id; the failure is
// reported and the next Load reconciles the page.
func (r *results) ApplyRating(ctx context.Context, ids []int64, rating *int) error {
	if rating != nil && !media.ValidRating(*rating) {
		return fmt.Errorf("rating %d out of range", *rating)
	}
	r.mu.Lock()
	r.images = media.PatchRatings(r.images, ids, rating)
	r.markup = nil
	r.mu.Unlock()

	var failed []int64
	for _, id := range ids {
		if err := r.backend.SetRating(ctx, id, rating); err != nil {
			log.Warn().Err(err).Int64("id", id).Msg("Rating update failed")
			failed = append(failed, id)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ok := without(ids, failed); len(ok) > 0 {
		r.node.Dispatch(events.ImageRatingUpdated, RatingUpdate{IDs: ok, Rating: rating})
	}
	if len(failed) > 0 {
		r.errMsg = fmt.Sprintf("Failed to update rating for %d item(s).", len(failed))
		return fmt.Errorf("rating update failed for %d of %d items", len(failed), len(ids))
	}
	return nil
}

// ApplyTag adds or removes a permatag on ids, optimistically. Failed ids
// keep the patch, as in ApplyRating.
func (r *results) ApplyTag(ctx context.Context, ids []int64, category, keyword string, add bool) error {
	if category == "" || keyword == "" {
		return fmt.Errorf("category and keyword are required")
	}
	r.mu.Lock()
	if add {
		r.images = media.AddTag(r.images, ids, category, keyword)
	} else {
		r.images = media.RemoveTag(r.images, ids, category, keyword)
	}
	r.markup = nil
	r.mu.Unlock()

	var failed []int64
	for _, id := range ids {
		var err error
		if add {
			err = r.backend.AddPermatag(ctx, id, category, keyword)
		} else {
			err = r.backend.RemovePermatag(ctx, id, category, keyword)
		}
		if err != nil {
			log.Warn().Err(err).Int64("id", id).Str("category", category).Str("keyword", keyword).Msg("Permatag update failed")
			failed = append(failed, id)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ok := without(ids, failed); len(ok) > 0 {
		r.node.Dispatch(events.PermatagsChanged, TagUpdate{IDs: ok, Category: category, Keyword: keyword, Added: add})
	}
	if len(failed) > 0 {
		r.errMsg = fmt.Sprintf("Failed to update tags for %d item(s).", len(failed))
		return fmt.Errorf("tag update failed for %d of %d items", len(failed), len(ids))
	}
	return nil
}

// exclude drops ids from the local page without a refetch.
func (r *results) exclude(ids []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.images)
	r.images = media.ExcludeIDs(r.images, ids)
	r.total -= before - len(r.images)
	r.handlers.Sync()
	r.markup = nil
}

// Close detaches document listeners and cancels pending presses.
func (r *results) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers.Detach()
}

func without(ids, drop []int64) []int64 {
	if len(drop) == 0 {
		return ids
	}
	skip := make(map[int64]bool, len(drop))
	for _, id := range drop {
		skip[id] = true
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !skip[id] {
			out = append(out, id)
		}
	}
	return out
}

// LoadCategories fetches the keyword catalog used by tag pickers.
func (r *results) LoadCategories(ctx context.Context) error {
	cats, err := r.backend.GetKeywordCategories(ctx)
	if err != nil {
		return fmt.Errorf("load keyword categories: %w", err)
	}
	r.mu.Lock()
	r.categories = cats
	r.mu.Unlock()
	return nil
}

// Categories returns the loaded keyword catalog.
func (r *results) Categories() []api.KeywordCategory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.KeywordCategory(nil), r.categories...)
}

// Dragging returns the payload of the most recent drag start.
func (r *results) Dragging() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.dragging...)
}
