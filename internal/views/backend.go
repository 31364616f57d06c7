// Package views holds the per-session state of each screen: the search
// grid, the curation grid, the single-item editor, the activity audit and
// the insights dashboard. Views own their filter container and selection
// state, talk to the REST backend through Backend, and bubble component
// events through an events.Node so a session can coordinate them.
//
// Every exported method is safe to call from concurrent requests. Network
// calls run outside the view lock; results carry a generation token and are
// dropped if a newer request was issued in the meantime.
package views

import (
	"context"
	"time"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/debounce"
	"github.com/fpang/photo-curator/internal/events"
	"github.com/fpang/photo-curator/internal/filters"
	"github.com/fpang/photo-curator/internal/listtarget"
	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/selection"
)

// Backend is the REST surface the views use. *api.Client implements it.
type Backend interface {
	filters.ImageLister
	listtarget.ListClient

	GetImage(ctx context.Context, id int64) (media.Item, error)
	GetFullImage(ctx context.Context, id int64) ([]byte, string, error)
	GetPlaybackURL(ctx context.Context, id int64) (string, error)
	AddPermatag(ctx context.Context, id int64, category, keyword string) error
	RemovePermatag(ctx context.Context, id int64, category, keyword string) error
	SetRating(ctx context.Context, id int64, rating *int) error
	GetKeywordCategories(ctx context.Context) ([]api.KeywordCategory, error)
	ListActivity(ctx context.Context, q api.ActivityQuery) (api.ActivityPage, error)
}

var _ Backend = (*api.Client)(nil)

// Options configure a view.
type Options struct {
	Tenant string
	// Parent is the session node events bubble to.
	Parent *events.Node
	// Clock drives long-press timers; nil uses real time.
	Clock          selection.Clock
	LongPressDelay time.Duration
	// RefreshClock drives list refetch throttling; nil uses real time.
	RefreshClock debounce.Clock
	// InputClock and InputDelay debounce typed filename and folder queries.
	InputClock debounce.Clock
	InputDelay time.Duration
	PageSize   int
	ThumbSize  int
}

// Default grid thumbnail bounds in pixels.
const (
	DefaultThumbSize = 180
	MinThumbSize     = 80
	MaxThumbSize     = 480
)

// RatingUpdate is the detail of an image-rating-updated event.
type RatingUpdate struct {
	IDs    []int64
	Rating *int
}

// TagUpdate is the detail of a permatags-changed event.
type TagUpdate struct {
	IDs      []int64
	Category string
	Keyword  string
	Added    bool
}

// SimilarRequest is the detail of an open-similar-in-search event.
type SimilarRequest struct {
	FromID  int64
	Filters filters.State
}

// SimilarFilters builds a search state matching the item's active tags.
func SimilarFilters(it media.Item) filters.State {
	st := filters.DefaultState()
	for cat, kws := range media.TagSummary(it.Permatags) {
		st.Keywords[cat] = filters.NewKeywordSet(kws...)
		st.Operators[cat] = filters.OperatorOr
	}
	return st
}
