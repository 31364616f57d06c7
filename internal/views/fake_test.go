package views

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/debounce"
	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/selection"
)

var errBoom = errors.New("boom")

// fakeBackend serves canned pages and records mutations. Calls to
// ListImages or GetFullImage wait on a gate when one is registered for that
// call number.
type fakeBackend struct {
	mu sync.Mutex

	pages     []media.Page
	listCalls int
	params    []url.Values
	listGates map[int]chan struct{}
	started   chan int
	failList  bool

	items      map[int64]media.Item
	full       map[int64][]byte
	fullGate   chan struct{}
	fullCalls  int
	failRating map[int64]bool
	failTag    map[int64]bool
	ratings    map[int64]*int
	tagCalls   []string

	lists     []api.List
	listItems map[string][]api.ListItem
	adds      []int64

	activity []api.ActivityQuery
	events   []api.ActivityEvent
}

func newFakeBackend(pages ...media.Page) *fakeBackend {
	return &fakeBackend{
		pages:      pages,
		listGates:  map[int]chan struct{}{},
		started:    make(chan int, 16),
		items:      map[int64]media.Item{},
		full:       map[int64][]byte{},
		failRating: map[int64]bool{},
		failTag:    map[int64]bool{},
		ratings:    map[int64]*int{},
		listItems:  map[string][]api.ListItem{},
	}
}

func (f *fakeBackend) ListImages(ctx context.Context, _ string, params url.Values) (media.Page, error) {
	f.mu.Lock()
	call := f.listCalls
	f.listCalls++
	f.params = append(f.params, params)
	gate := f.listGates[call]
	fail := f.failList
	var page media.Page
	if len(f.pages) > 0 {
		page = f.pages[min(call, len(f.pages)-1)]
	}
	f.mu.Unlock()

	select {
	case f.started <- call:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return media.Page{}, ctx.Err()
		}
	}
	if fail {
		return media.Page{}, errBoom
	}
	return page, nil
}

func (f *fakeBackend) GetImage(_ context.Context, id int64) (media.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return media.Item{}, &api.APIError{StatusCode: 404, Message: "not found"}
	}
	return it, nil
}

func (f *fakeBackend) GetFullImage(ctx context.Context, id int64) ([]byte, string, error) {
	f.mu.Lock()
	f.fullCalls++
	gate := f.fullGate
	data := f.full[id]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if data == nil {
		return nil, "", errBoom
	}
	return data, "image/png", nil
}

func (f *fakeBackend) GetPlaybackURL(_ context.Context, id int64) (string, error) {
	return fmt.Sprintf("https://cdn.example.com/%d.m3u8", id), nil
}

func (f *fakeBackend) AddPermatag(_ context.Context, id int64, category, keyword string) error {
	return f.tag(id, "+"+category+"/"+keyword)
}

func (f *fakeBackend) RemovePermatag(_ context.Context, id int64, category, keyword string) error {
	return f.tag(id, "-"+category+"/"+keyword)
}

func (f *fakeBackend) tag(id int64, call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagCalls = append(f.tagCalls, fmt.Sprintf("%d%s", id, call))
	if f.failTag[id] {
		return errBoom
	}
	return nil
}

func (f *fakeBackend) SetRating(_ context.Context, id int64, rating *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRating[id] {
		return errBoom
	}
	f.ratings[id] = rating
	return nil
}

func (f *fakeBackend) GetKeywordCategories(context.Context) ([]api.KeywordCategory, error) {
	return []api.KeywordCategory{{Name: "people", Keywords: []string{"alice", "bob"}}}, nil
}

func (f *fakeBackend) ListActivity(_ context.Context, q api.ActivityQuery) (api.ActivityPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, q)
	var matched []api.ActivityEvent
	for _, ev := range f.events {
		if (q.Actor == "" || ev.Actor == q.Actor) && (q.Action == "" || ev.Action == q.Action) {
			matched = append(matched, ev)
		}
	}
	page := api.ActivityPage{Total: len(matched)}
	if q.Offset < len(matched) {
		end := min(q.Offset+q.Limit, len(matched))
		page.Events = matched[q.Offset:end]
	}
	return page, nil
}

func (f *fakeBackend) ListLists(context.Context) ([]api.List, error) { return f.lists, nil }

func (f *fakeBackend) CreateList(_ context.Context, title string) (api.List, error) {
	l := api.List{ID: fmt.Sprintf("l%d", len(f.lists)+1), Title: title}
	f.lists = append(f.lists, l)
	return l, nil
}

func (f *fakeBackend) GetListItems(_ context.Context, listID string) ([]api.ListItem, error) {
	return f.listItems[listID], nil
}

func (f *fakeBackend) AddToList(_ context.Context, listID string, photoID int64) (api.ListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, photoID)
	it := api.ListItem{ID: fmt.Sprintf("i%d", photoID), PhotoID: photoID}
	f.listItems[listID] = append(f.listItems[listID], it)
	return it, nil
}

// manualClock fires long-press timers only when Fire is called.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) selection.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Fire() {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// manualInputClock is a manualClock usable as a debounce.Clock.
type manualInputClock struct {
	manualClock
}

func (c *manualInputClock) AfterFunc(d time.Duration, f func()) debounce.Timer {
	return c.manualClock.AfterFunc(d, f).(*manualTimer)
}

func (c *manualInputClock) Now() time.Time { return time.Time{} }

func item(id int64, rating *int, tags ...media.Permatag) media.Item {
	return media.Item{
		ID:        media.NewID(id),
		Filename:  fmt.Sprintf("img%d.jpg", id),
		Rating:    rating,
		Permatags: tags,
	}
}

func page(items ...media.Item) media.Page {
	return media.Page{Items: items, Total: len(items)}
}

func tag(category, keyword string) media.Permatag {
	return media.Permatag{Category: category, Keyword: keyword, Signum: media.SignumActive}
}
