package views

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/events"
	"github.com/fpang/photo-curator/internal/filters"
	"github.com/fpang/photo-curator/internal/media"
)

// DefaultInsightsSample is how many items the dashboard aggregates over.
const DefaultInsightsSample = 500

// TagCount is how many loaded items carry one active tag.
type TagCount struct {
	Category string
	Keyword  string
	Count    int
}

// Stats aggregates one sample of results.
type Stats struct {
	// Total is the backend's count for the filters; Sampled is how many
	// items the other fields were computed over.
	Total    int
	Sampled  int
	Unrated  int
	ByRating [media.MaxRating + 1]int
	Videos   int
	Untagged int
	Tags     []TagCount
}

// Compute aggregates items. Tags are ordered by count, then category and
// keyword.
func Compute(items []media.Item, total int) Stats {
	st := Stats{Total: total, Sampled: len(items)}
	counts := map[[2]string]int{}
	for _, it := range items {
		if r, ok := it.Rated(); ok && media.ValidRating(r) {
			st.ByRating[r]++
		} else {
			st.Unrated++
		}
		if it.IsVideo() {
			st.Videos++
		}
		active := media.ActiveTags(it.Permatags)
		if len(active) == 0 {
			st.Untagged++
		}
		for _, t := range active {
			counts[[2]string{t.Category, t.Keyword}]++
		}
	}
	for k, n := range counts {
		st.Tags = append(st.Tags, TagCount{Category: k[0], Keyword: k[1], Count: n})
	}
	sort.Slice(st.Tags, func(i, j int) bool {
		a, b := st.Tags[i], st.Tags[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Keyword < b.Keyword
	})
	return st
}

// Insights is the rating and tag-coverage dashboard.
type Insights struct {
	mu        sync.Mutex
	node      *events.Node
	container *filters.Container

	stats  Stats
	gen    uint64
	loaded bool
	errMsg string
}

// NewInsights creates the dashboard.
func NewInsights(b Backend, opts Options) *Insights {
	c := filters.NewContainer(opts.Tenant, b)
	sample := opts.PageSize
	if sample <= 0 {
		sample = DefaultInsightsSample
	}
	c.SetLimit(sample)
	return &Insights{
		node:      events.NewNode("insights", opts.Parent),
		container: c,
	}
}

// Node returns the dashboard's event node.
func (in *Insights) Node() *events.Node { return in.node }

// Filters returns the dashboard's filter container.
func (in *Insights) Filters() *filters.Container { return in.container }

// Load fetches a sample for the current filters and recomputes the stats.
func (in *Insights) Load(ctx context.Context) error {
	in.mu.Lock()
	in.gen++
	gen := in.gen
	in.mu.Unlock()

	page, err := in.container.FetchImages(ctx)

	in.mu.Lock()
	defer in.mu.Unlock()
	if gen != in.gen {
		log.Debug().Uint64("gen", gen).Msg("Discarding stale insights sample")
		return nil
	}
	if err != nil {
		in.errMsg = "Failed to load insights."
		return fmt.Errorf("load insights: %w", err)
	}
	in.errMsg = ""
	in.loaded = true
	in.stats = Compute(page.Items, page.Total)
	return nil
}

// Stats returns the last computed stats.
func (in *Insights) Stats() Stats {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.stats
	out.Tags = append([]TagCount(nil), in.stats.Tags...)
	return out
}

// Loaded reports whether stats have been computed.
func (in *Insights) Loaded() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.loaded
}

// Err returns the last failure message.
func (in *Insights) Err() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.errMsg
}
