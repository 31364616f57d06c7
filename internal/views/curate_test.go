package views

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/fpang/photo-curator/internal/filters"
	"github.com/fpang/photo-curator/internal/grid"
	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/selection"
)

func newLoadedCurate(t *testing.T, b *fakeBackend) (*Curate, *manualClock) {
	t.Helper()
	clock := &manualClock{}
	c := NewCurate(b, Options{Clock: clock})
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return c, clock
}

func TestCurateRendersStaticBadges(t *testing.T) {
	b := newFakeBackend(page(item(1, media.IntPtr(2))))
	c, _ := newLoadedCurate(t, b)
	cell, ok := c.Render().Cell(1)
	if !ok {
		t.Fatal("cell missing")
	}
	if cell.Rating == "" {
		t.Error("rating badge missing")
	}
}

func TestCurateShowMissing(t *testing.T) {
	c := NewCurate(newFakeBackend(), Options{})
	c.Filters().SetOffset(50)
	if err := c.ShowMissing(true); err != nil {
		t.Fatal(err)
	}
	st := c.Filters().State()
	if !st.PermatagPositiveMissing || st.Offset != 0 {
		t.Errorf("state = %+v", st)
	}
	if got := c.Filters().BuildRequestParams().Get(filters.ParamPermatagPositiveMissing); got != "true" {
		t.Errorf("param = %q", got)
	}
}

func TestCurateExploreCategory(t *testing.T) {
	c := NewCurate(newFakeBackend(), Options{})
	c.Filters().AddKeyword("old", "x")
	c.ExploreCategory("people", "alice")
	st := c.Filters().State()
	if _, ok := st.Keywords["old"]; ok {
		t.Error("previous keywords kept")
	}
	if !st.Keywords["people"].Has("alice") {
		t.Errorf("keywords = %v", st.Keywords)
	}
	c.ExploreCategory("people", "")
	if c.Filters().State().HasKeywordFilters() {
		t.Error("empty keyword should clear the filter")
	}
}

func TestCurateToggleTag(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, nil, tag("people", "alice"))))
	c, _ := newLoadedCurate(t, b)
	ctx := context.Background()

	if err := c.ToggleTag(ctx, 1); err == nil {
		t.Fatal("expected error without focus")
	}
	c.SetFocus("people", "alice")

	if err := c.ToggleTag(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.ToggleTag(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(b.tagCalls, []string{"1+people/alice", "2-people/alice"}) {
		t.Errorf("calls = %v", b.tagCalls)
	}
	imgs := c.Images()
	if !media.HasActiveTag(imgs[0].Permatags, "people", "alice") || media.HasActiveTag(imgs[1].Permatags, "people", "alice") {
		t.Errorf("tags = %+v / %+v", imgs[0].Permatags, imgs[1].Permatags)
	}
}

func TestCurateTaggingDropsItemsWhenShowingMissing(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, nil), item(3, nil)))
	b.failTag[3] = true
	c, clock := newLoadedCurate(t, b)
	if err := c.ShowMissing(true); err != nil {
		t.Fatal(err)
	}
	c.SetFocus("people", "alice")

	c.Interact(2, grid.EventPointerDown, selection.Pointer{})
	clock.Fire()
	c.Interact(3, grid.EventPointerEnter, selection.Pointer{})
	c.PointerUp()

	err := c.TagSelected(context.Background(), true)
	if err == nil {
		t.Fatal("expected error for item 3")
	}
	// The failed item keeps its optimistic tag, so it leaves the page too.
	if got := media.Order(c.Images()); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("order = %v", got)
	}
	if got := c.Selected(); len(got) != 0 {
		t.Errorf("selection = %v", got)
	}
	if c.Err() == "" {
		t.Error("failure not reported")
	}
}

func TestCurateRateSelectedNeedsSelection(t *testing.T) {
	c, _ := newLoadedCurate(t, newFakeBackend(page(item(1, nil))))
	if err := c.RateSelected(context.Background(), media.IntPtr(1)); !errors.Is(err, ErrNoSelection) {
		t.Errorf("err = %v", err)
	}
}
