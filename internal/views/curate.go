package views

import (
	"context"
	"fmt"

	"github.com/fpang/photo-curator/internal/filters"
	"github.com/fpang/photo-curator/internal/grid"
	"github.com/fpang/photo-curator/internal/media"
)

// Curate walks the library one tag at a time. With the missing toggle on it
// shows only items without any positive permatag, and tagging an item
// removes it from the page.
type Curate struct {
	*results

	category string
	keyword  string
}

// NewCurate creates the curation view.
func NewCurate(b Backend, opts Options) *Curate {
	r := newResults("curate", b, opts, grid.RenderHooks{
		RatingBadge:     grid.StaticRatingBadge,
		PermatagSummary: grid.DefaultPermatagSummary,
	}, grid.Options{
		EmptyMessage:  "Nothing left to curate.",
		ShowPermatags: true,
	})
	return &Curate{results: r}
}

// SetFocus chooses the tag that ToggleTag and TagSelected apply.
func (c *Curate) SetFocus(category, keyword string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.category, c.keyword = category, keyword
}

// Focus returns the current tag.
func (c *Curate) Focus() (category, keyword string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.category, c.keyword
}

// ExploreCategory narrows the results to one keyword category. An empty
// keyword clears the keyword filter.
func (c *Curate) ExploreCategory(category, keyword string) {
	st := c.container.State()
	st.Keywords = map[string]filters.KeywordSet{}
	st.Operators = map[string]string{}
	if category != "" && keyword != "" {
		st.Keywords[category] = filters.NewKeywordSet(keyword)
		st.Operators[category] = filters.OperatorOr
	}
	st.Offset = 0
	c.container.UpdateFilters(st)
}

// ShowMissing toggles the permatag-positive-missing filter.
func (c *Curate) ShowMissing(on bool) error {
	if err := c.container.UpdateFilter(filters.ParamPermatagPositiveMissing, on); err != nil {
		return err
	}
	c.container.ResetPagination()
	return nil
}

func (c *Curate) focus() (string, string, error) {
	cat, kw := c.Focus()
	if cat == "" || kw == "" {
		return "", "", fmt.Errorf("no tag in focus")
	}
	return cat, kw, nil
}

// ToggleTag adds the focus tag to id, or removes it if already active.
func (c *Curate) ToggleTag(ctx context.Context, id int64) error {
	cat, kw, err := c.focus()
	if err != nil {
		return err
	}
	c.mu.Lock()
	it, ok := media.FindByID(c.images, id)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("item %d is not on this page", id)
	}
	add := !media.HasActiveTag(it.Permatags, cat, kw)
	err = c.ApplyTag(ctx, []int64{id}, cat, kw, add)
	if add {
		c.dropTagged([]int64{id}, cat, kw)
	}
	return err
}

// TagSelected applies or removes the focus tag on the selection.
func (c *Curate) TagSelected(ctx context.Context, add bool) error {
	cat, kw, err := c.focus()
	if err != nil {
		return err
	}
	ids := c.Selected()
	if len(ids) == 0 {
		return ErrNoSelection
	}
	err = c.ApplyTag(ctx, ids, cat, kw, add)
	if add {
		c.dropTagged(ids, cat, kw)
	}
	return err
}

// dropTagged removes items that now carry the tag when only untagged items
// are being shown.
func (c *Curate) dropTagged(ids []int64, category, keyword string) {
	if !c.container.State().PermatagPositiveMissing {
		return
	}
	c.mu.Lock()
	var done []int64
	for _, id := range ids {
		if it, ok := media.FindByID(c.images, id); ok && media.HasActiveTag(it.Permatags, category, keyword) {
			done = append(done, id)
		}
	}
	c.mu.Unlock()
	if len(done) > 0 {
		c.exclude(done)
	}
}

// RateSelected sets rating on the selection.
func (c *Curate) RateSelected(ctx context.Context, rating *int) error {
	ids := c.Selected()
	if len(ids) == 0 {
		return ErrNoSelection
	}
	return c.ApplyRating(ctx, ids, rating)
}
