package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/debounce"
	"github.com/fpang/photo-curator/internal/events"
	"github.com/fpang/photo-curator/internal/filters"
	"github.com/fpang/photo-curator/internal/grid"
	"github.com/fpang/photo-curator/internal/listtarget"
	"github.com/fpang/photo-curator/internal/media"
)

// ErrNoSelection is returned by bulk actions when nothing is selected.
var ErrNoSelection = errors.New("no items selected")

// Hotspot bulk action kinds.
const (
	HotspotRating = "rating"
	HotspotTag    = "tag"
	HotspotUntag  = "untag"
)

// Hotspot is one bulk action dropped on the selection.
type Hotspot struct {
	Kind     string
	Rating   *int
	Category string
	Keyword  string
}

// DefaultInputDelay is the quiet period after the last keystroke in the
// filename or folder box before results are refetched.
const DefaultInputDelay = 300 * time.Millisecond

// inputLoadTimeout bounds the refetch a settled keystroke triggers.
const inputLoadTimeout = 30 * time.Second

// SortChange is the detail of a sort-changed event.
type SortChange struct {
	OrderBy string
	Order   string
}

// Search is the main results view: filter chips, sort, paging, and the list
// targets panel items are dragged onto.
type Search struct {
	*results

	panelMu sync.Mutex
	panel   *listtarget.Panel

	filenameInput *debounce.Debouncer[string]
	folderInput   *debounce.Debouncer[string]
}

// NewSearch creates the search view.
func NewSearch(b Backend, opts Options) *Search {
	r := newResults("search", b, opts, grid.RenderHooks{
		RatingWidget:    grid.InteractiveRating,
		PermatagSummary: grid.DefaultPermatagSummary,
	}, grid.Options{
		EmptyMessage:  "No images match these filters.",
		ShowDates:     true,
		ShowPermatags: true,
	})
	s := &Search{results: r}
	s.panel = listtarget.NewPanel(b, listtarget.Options{Parent: r.node, Clock: opts.RefreshClock})
	delay := opts.InputDelay
	if delay <= 0 {
		delay = DefaultInputDelay
	}
	s.filenameInput = debounce.New(delay, opts.InputClock, func(q string) {
		s.SetFilenameQuery(q)
		s.reloadAfterInput("filename")
	})
	s.folderInput = debounce.New(delay, opts.InputClock, func(prefix string) {
		s.SetFolder(prefix)
		s.reloadAfterInput("folder")
	})

	// Items just added to the list this view excludes no longer belong here.
	r.node.Listen(events.ListItemAdded, func(ev *events.Event) {
		added, ok := ev.Detail.(listtarget.ItemAdded)
		if !ok {
			return
		}
		if st := r.container.State(); st.ListExcludeID != "" && st.ListExcludeID == added.ListID {
			r.exclude(added.PhotoIDs)
		}
	})
	return s
}

// WithPanel runs fn with exclusive access to the list targets panel.
func (s *Search) WithPanel(fn func(p *listtarget.Panel) error) error {
	s.panelMu.Lock()
	defer s.panelMu.Unlock()
	return fn(s.panel)
}

// DropOnTarget drops the drag payload of dragID onto a list target.
func (s *Search) DropOnTarget(ctx context.Context, targetID string, dragID int64) (listtarget.DropResult, error) {
	ids := s.DragPayload(dragID)
	s.panelMu.Lock()
	defer s.panelMu.Unlock()
	return s.panel.Drop(ctx, targetID, ids)
}

func (s *Search) edit(fn func(st *filters.State)) {
	st := s.container.State()
	fn(&st)
	st.Offset = 0
	s.container.UpdateFilters(st)
}

// AddKeyword adds a keyword chip.
func (s *Search) AddKeyword(category, keyword string) {
	if category == "" || keyword == "" {
		return
	}
	s.container.AddKeyword(category, keyword)
}

// RemoveKeyword removes a keyword chip.
func (s *Search) RemoveKeyword(category, keyword string) {
	s.container.RemoveKeyword(category, keyword)
}

// SetFilenameQuery filters by filename substring.
func (s *Search) SetFilenameQuery(q string) {
	q = strings.TrimSpace(q)
	s.edit(func(st *filters.State) { st.FilenameQuery = q })
}

// SetFolder limits results to a folder path prefix. An empty prefix clears
// the filter.
func (s *Search) SetFolder(prefix string) {
	prefix = strings.TrimSpace(prefix)
	s.edit(func(st *filters.State) { st.DropboxPathPrefix = prefix })
}

// SetList limits results to members of a list. An empty id clears it.
func (s *Search) SetList(listID string) {
	listID = strings.TrimSpace(listID)
	s.edit(func(st *filters.State) { st.ListID = listID })
}

// SetListExclude hides members of a list. Items dropped onto that list
// from this view leave the page immediately.
func (s *Search) SetListExclude(listID string) {
	listID = strings.TrimSpace(listID)
	s.edit(func(st *filters.State) { st.ListExcludeID = listID })
}

// TypeFilename records a keystroke in the filename box. The filter is
// applied and the page refetched once typing pauses.
func (s *Search) TypeFilename(q string) { s.filenameInput.Notify(q) }

// TypeFolder records a keystroke in the folder box, debounced like
// TypeFilename.
func (s *Search) TypeFolder(prefix string) { s.folderInput.Notify(prefix) }

// InputPending reports whether typed input is waiting to be applied or its
// refetch is still running.
func (s *Search) InputPending() bool {
	return s.filenameInput.Pending() || s.folderInput.Pending() || s.Loading()
}

// FlushInput applies any pending typed input now.
func (s *Search) FlushInput() {
	s.filenameInput.Flush()
	s.folderInput.Flush()
}

func (s *Search) reloadAfterInput(field string) {
	ctx, cancel := context.WithTimeout(context.Background(), inputLoadTimeout)
	defer cancel()
	if err := s.Load(ctx); err != nil {
		log.Warn().Err(err).Str("field", field).Msg("Search refetch after input failed")
	}
}

// Close stops pending input and detaches the grid.
func (s *Search) Close() {
	s.filenameInput.Stop()
	s.folderInput.Stop()
	s.results.Close()
}

// SetRatingFilter filters by rating. An empty op clears the filter;
// filters.RatingIsNull selects unrated items and ignores rating.
func (s *Search) SetRatingFilter(op string, rating *int) error {
	switch op {
	case "", filters.RatingIsNull:
		rating = nil
	case filters.RatingEq, filters.RatingGte, filters.RatingGt:
		if rating == nil || !media.ValidRating(*rating) {
			return fmt.Errorf("rating operator %s needs a rating between %d and %d", op, media.RatingRejected, media.MaxRating)
		}
	default:
		return fmt.Errorf("unknown rating operator %q", op)
	}
	s.edit(func(st *filters.State) {
		st.RatingOperator = op
		st.Rating = rating
	})
	return nil
}

// SetHideZeroRating hides rejected items.
func (s *Search) SetHideZeroRating(hide bool) {
	s.edit(func(st *filters.State) { st.HideZeroRating = hide })
}

// SetSort changes the result order.
func (s *Search) SetSort(orderBy, order string) error {
	order = strings.ToLower(order)
	if order != filters.SortAsc && order != filters.SortDesc {
		return fmt.Errorf("unknown sort order %q", order)
	}
	if orderBy == "" {
		return fmt.Errorf("order_by is required")
	}
	s.edit(func(st *filters.State) {
		st.OrderBy = orderBy
		st.SortOrder = order
	})
	s.node.Dispatch(events.SortChanged, SortChange{OrderBy: orderBy, Order: order})
	return nil
}

// SetPageSize changes the page size and returns to the first page.
func (s *Search) SetPageSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("page size must be positive, got %d", n)
	}
	s.container.SetLimit(n)
	return nil
}

// OpenSimilar asks the session to search for items tagged like id.
func (s *Search) OpenSimilar(id int64) (SimilarRequest, error) {
	s.mu.Lock()
	it, ok := media.FindByID(s.images, id)
	s.mu.Unlock()
	if !ok {
		return SimilarRequest{}, fmt.Errorf("item %d is not on this page", id)
	}
	req := SimilarRequest{FromID: id, Filters: SimilarFilters(it)}
	s.node.Dispatch(events.OpenSimilarInSearch, req)
	return req, nil
}

// ApplySimilar replaces the filters with those of an open-similar request.
func (s *Search) ApplySimilar(req SimilarRequest) {
	st := req.Filters.Clone()
	cur := s.container.State()
	st.Limit = cur.Limit
	st.Offset = 0
	s.container.UpdateFilters(st)
}

// ApplySnapshot restores saved filters.
func (s *Search) ApplySnapshot(snap filters.Snapshot) {
	s.container.Deserialize(snap)
}

// Hotspot applies a bulk action to the current selection.
func (s *Search) Hotspot(ctx context.Context, h Hotspot) error {
	ids := s.Selected()
	if len(ids) == 0 {
		return ErrNoSelection
	}
	switch h.Kind {
	case HotspotRating:
		return s.ApplyRating(ctx, ids, h.Rating)
	case HotspotTag:
		return s.ApplyTag(ctx, ids, h.Category, h.Keyword, true)
	case HotspotUntag:
		return s.ApplyTag(ctx, ids, h.Category, h.Keyword, false)
	}
	return fmt.Errorf("unknown hotspot action %q", h.Kind)
}
