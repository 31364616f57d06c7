package views

import (
	"context"
	"reflect"
	"testing"

	"github.com/fpang/photo-curator/internal/events"
	"github.com/fpang/photo-curator/internal/grid"
	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/selection"
)

func newLoadedSearch(t *testing.T, b *fakeBackend) (*Search, *manualClock, *events.Node) {
	t.Helper()
	clock := &manualClock{}
	root := events.NewNode("session", nil)
	s := NewSearch(b, Options{Tenant: "t1", Parent: root, Clock: clock})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s, clock, root
}

func TestLoad_AppliesPage(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, nil), item(3, nil)))
	s, _, _ := newLoadedSearch(t, b)

	if got := media.Order(s.Images()); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("order = %v", got)
	}
	if s.Total() != 3 || !s.Loaded() || s.Loading() {
		t.Errorf("total=%d loaded=%v loading=%v", s.Total(), s.Loaded(), s.Loading())
	}
	if got := b.params[0].Get("offset"); got != "0" {
		t.Errorf("offset param = %q", got)
	}
}

func TestLoad_DiscardsStaleResponse(t *testing.T) {
	b := newFakeBackend(page(item(1, nil)), page(item(2, nil)))
	gate := make(chan struct{})
	b.listGates[0] = gate
	s := NewSearch(b, Options{})

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Load(context.Background()) }()
	<-b.started

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Load: %v", err)
	}

	if got := media.Order(s.Images()); !reflect.DeepEqual(got, []int64{2}) {
		t.Errorf("stale page applied: order = %v", got)
	}
}

func TestLoad_ErrorKeepsPreviousPage(t *testing.T) {
	b := newFakeBackend(page(item(1, nil)))
	s, _, _ := newLoadedSearch(t, b)

	b.mu.Lock()
	b.failList = true
	b.mu.Unlock()
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s.Err() == "" {
		t.Error("error message not recorded")
	}
	if got := media.Order(s.Images()); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("order = %v", got)
	}
}

func TestLongPressDragSelectsRange(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, nil), item(3, nil), item(4, nil)))
	s, clock, root := newLoadedSearch(t, b)

	var changes int
	root.Listen(events.SelectionChanged, func(*events.Event) { changes++ })

	s.Render()
	if _, ok := s.Interact(1, grid.EventPointerDown, selection.Pointer{X: 5, Y: 5}); !ok {
		t.Fatal("pointerdown not handled")
	}
	clock.Fire()
	s.Interact(3, grid.EventPointerEnter, selection.Pointer{})
	s.PointerUp()

	if got := s.Selected(); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("selected = %v", got)
	}
	if changes == 0 {
		t.Error("no selection-changed event bubbled")
	}

	// The click that ends a long press does not open the item.
	if opened, _ := s.Interact(1, grid.EventClick, selection.Pointer{}); opened != 0 {
		t.Errorf("opened = %d", opened)
	}

	m := s.Render()
	for _, id := range []int64{1, 2, 3} {
		if c, _ := m.Cell(id); !c.Selected {
			t.Errorf("cell %d not marked selected", id)
		}
	}
}

func TestLongPressFlashesOnce(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, nil)))
	s, clock, _ := newLoadedSearch(t, b)

	s.Interact(2, grid.EventPointerDown, selection.Pointer{})
	clock.Fire()

	if c, _ := s.Render().Cell(2); !c.Flash {
		t.Error("first render after long press should flash")
	}
	if c, _ := s.Render().Cell(2); c.Flash {
		t.Error("flash should be consumed")
	}
}

func TestClickOpensItemWithoutSelection(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, nil)))
	s, _, root := newLoadedSearch(t, b)

	var clicked any
	root.Listen(events.ImageClicked, func(ev *events.Event) { clicked = ev.Detail })

	opened, ok := s.Interact(2, grid.EventClick, selection.Pointer{})
	if !ok || opened != 2 {
		t.Errorf("opened=%d ok=%v", opened, ok)
	}
	if clicked != int64(2) {
		t.Errorf("image-clicked detail = %v", clicked)
	}
}

func TestOutsidePointerDownClearsSelection(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, nil)))
	s, clock, _ := newLoadedSearch(t, b)

	s.Interact(1, grid.EventPointerDown, selection.Pointer{})
	clock.Fire()
	s.PointerUp()
	if len(s.Selected()) != 1 {
		t.Fatalf("selected = %v", s.Selected())
	}

	s.DocumentPointerDown(0)
	if len(s.Selected()) != 0 {
		t.Errorf("selection not cleared: %v", s.Selected())
	}
}

func TestReloadClearsSelection(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, nil)))
	s, clock, _ := newLoadedSearch(t, b)

	s.Interact(1, grid.EventPointerDown, selection.Pointer{})
	clock.Fire()
	s.PointerUp()

	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(s.Selected()) != 0 {
		t.Errorf("selection survived reload: %v", s.Selected())
	}
}

func TestDragPayload(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, nil), item(3, nil)))
	s, clock, _ := newLoadedSearch(t, b)

	s.Interact(1, grid.EventPointerDown, selection.Pointer{})
	clock.Fire()
	s.Interact(2, grid.EventPointerEnter, selection.Pointer{})
	s.PointerUp()

	if got := s.DragPayload(2); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("payload of selected = %v", got)
	}
	if got := s.DragPayload(3); !reflect.DeepEqual(got, []int64{3}) {
		t.Errorf("payload of unselected = %v", got)
	}
	s.Interact(2, grid.EventDragStart, selection.Pointer{})
	if got := s.Dragging(); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("dragging = %v", got)
	}
}

func TestApplyRating_FailedItemsKeepPatch(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, media.IntPtr(1))))
	b.failRating[2] = true
	s, _, root := newLoadedSearch(t, b)

	var update RatingUpdate
	root.Listen(events.ImageRatingUpdated, func(ev *events.Event) { update = ev.Detail.(RatingUpdate) })

	err := s.ApplyRating(context.Background(), []int64{1, 2}, media.IntPtr(3))
	if err == nil {
		t.Fatal("expected error for failed item")
	}
	imgs := s.Images()
	if r, _ := imgs[0].Rated(); r != 3 {
		t.Errorf("item 1 rating = %v", imgs[0].Rating)
	}
	if r, _ := imgs[1].Rated(); r != 3 {
		t.Errorf("item 2 should keep the optimistic 3, got %v", imgs[1].Rating)
	}
	if !reflect.DeepEqual(update.IDs, []int64{1}) {
		t.Errorf("event ids = %v", update.IDs)
	}
	if s.Err() == "" {
		t.Error("failure not reported")
	}
}

func TestApplyRating_RejectsOutOfRange(t *testing.T) {
	b := newFakeBackend(page(item(1, nil)))
	s, _, _ := newLoadedSearch(t, b)
	if err := s.ApplyRating(context.Background(), []int64{1}, media.IntPtr(7)); err == nil {
		t.Error("expected error")
	}
	if len(b.ratings) != 0 {
		t.Error("backend called for invalid rating")
	}
}

func TestApplyTag(t *testing.T) {
	b := newFakeBackend(page(item(1, nil), item(2, nil)))
	b.failTag[2] = true
	s, _, _ := newLoadedSearch(t, b)

	err := s.ApplyTag(context.Background(), []int64{1, 2}, "people", "alice", true)
	if err == nil {
		t.Fatal("expected error")
	}
	imgs := s.Images()
	if !media.HasActiveTag(imgs[0].Permatags, "people", "alice") {
		t.Error("item 1 not tagged")
	}
	if !media.HasActiveTag(imgs[1].Permatags, "people", "alice") {
		t.Error("item 2 should keep the optimistic tag")
	}
	if s.Err() == "" {
		t.Error("failure not reported")
	}
}

func TestLoad_ReconcilesOptimisticPatch(t *testing.T) {
	b := newFakeBackend(page(item(1, media.IntPtr(1))))
	b.failRating[1] = true
	s, _, _ := newLoadedSearch(t, b)

	if err := s.ApplyRating(context.Background(), []int64{1}, media.IntPtr(3)); err == nil {
		t.Fatal("expected error")
	}
	if r, _ := s.Images()[0].Rated(); r != 3 {
		t.Fatalf("optimistic rating = %v", s.Images()[0].Rating)
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r, _ := s.Images()[0].Rated(); r != 1 {
		t.Errorf("rating after reload = %v, want the backend's 1", s.Images()[0].Rating)
	}
}

func TestPaging(t *testing.T) {
	items := make([]media.Item, 0, 5)
	for i := int64(1); i <= 5; i++ {
		items = append(items, item(i, nil))
	}
	b := newFakeBackend(media.Page{Items: items[:2], Total: 5})
	s := NewSearch(b, Options{PageSize: 2})
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if s.PrevPage() {
		t.Error("PrevPage on first page")
	}
	if !s.NextPage() || s.Filters().State().Offset != 2 {
		t.Errorf("offset = %d", s.Filters().State().Offset)
	}
	s.NextPage()
	if s.NextPage() {
		t.Error("NextPage past the end")
	}
	if s.Filters().State().Offset != 4 {
		t.Errorf("offset = %d", s.Filters().State().Offset)
	}
	s.PrevPage()
	if s.Filters().State().Offset != 2 {
		t.Errorf("offset = %d", s.Filters().State().Offset)
	}
}

func TestThumbSizeClamped(t *testing.T) {
	s := NewSearch(newFakeBackend(), Options{})
	if s.ThumbSize() != DefaultThumbSize {
		t.Errorf("default = %d", s.ThumbSize())
	}
	var sizes []any
	s.Node().Listen(events.ThumbSizeChanged, func(ev *events.Event) { sizes = append(sizes, ev.Detail) })
	s.SetThumbSize(10)
	s.SetThumbSize(10)
	s.SetThumbSize(1000)
	if !reflect.DeepEqual(sizes, []any{MinThumbSize, MaxThumbSize}) {
		t.Errorf("events = %v", sizes)
	}
}

func TestCloseDetaches(t *testing.T) {
	s := NewSearch(newFakeBackend(), Options{})
	if s.doc.Len() != 1 {
		t.Fatalf("listeners = %d", s.doc.Len())
	}
	s.Close()
	if s.doc.Len() != 0 {
		t.Errorf("listeners after close = %d", s.doc.Len())
	}
}
