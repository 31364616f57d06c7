package web

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/auth"
	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/share"
)

const testPassword = "hunter2"

// fakeAuth signs in anyone whose password is testPassword.
type fakeAuth struct {
	mu      sync.Mutex
	session *auth.Session
	signIns int
}

func (a *fakeAuth) SignIn(_ context.Context, email, password string) (*auth.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signIns++
	if password != testPassword {
		return nil, &auth.Error{Type: auth.ErrTypeInvalidCredentials, StatusCode: 400, Message: "invalid login"}
	}
	a.session = &auth.Session{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        auth.User{ID: "user-" + email, Email: email},
	}
	return a.session, nil
}

func (a *fakeAuth) Session() (*auth.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, auth.ErrNotAuthenticated
	}
	return a.session, nil
}

func (a *fakeAuth) AccessToken(context.Context) (string, error) {
	s, err := a.Session()
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}

func (a *fakeAuth) SignOut(context.Context) error {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
	return nil
}

func (a *fakeAuth) OnAuthStateChange(func(auth.Event, *auth.Session)) func() { return func() {} }

// fakeBackend serves one fixed page and records mutations.
type fakeBackend struct {
	mu sync.Mutex

	items    []media.Item
	full     map[int64][]byte
	params   []url.Values
	ratings  map[int64]*int
	tags     []string
	lists    []api.List
	adds     []int64
	activity []api.ActivityEvent
}

func newFakeBackend(items ...media.Item) *fakeBackend {
	return &fakeBackend{
		items:   items,
		full:    map[int64][]byte{},
		ratings: map[int64]*int{},
	}
}

func (f *fakeBackend) ListImages(_ context.Context, _ string, params url.Values) (media.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, params)
	return media.Page{Items: append([]media.Item(nil), f.items...), Total: len(f.items)}, nil
}

func (f *fakeBackend) find(id int64) (media.Item, bool) {
	for _, it := range f.items {
		if n, _ := it.ID.Int64(); n == id {
			return it, true
		}
	}
	return media.Item{}, false
}

func (f *fakeBackend) GetImage(_ context.Context, id int64) (media.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.find(id)
	if !ok {
		return media.Item{}, &api.APIError{StatusCode: 404, Message: "not found"}
	}
	return it, nil
}

func (f *fakeBackend) GetFullImage(_ context.Context, id int64) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.full[id]
	if !ok {
		return nil, "", &api.APIError{StatusCode: 404, Message: "not found"}
	}
	return data, "image/png", nil
}

func (f *fakeBackend) GetPlaybackURL(_ context.Context, id int64) (string, error) {
	return "https://cdn.example.com/" + strconv.FormatInt(id, 10) + ".mp4", nil
}

func (f *fakeBackend) AddPermatag(_ context.Context, id int64, category, keyword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, "+"+category+"/"+keyword)
	return nil
}

func (f *fakeBackend) RemovePermatag(_ context.Context, id int64, category, keyword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, "-"+category+"/"+keyword)
	return nil
}

func (f *fakeBackend) SetRating(_ context.Context, id int64, rating *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings[id] = rating
	return nil
}

func (f *fakeBackend) GetKeywordCategories(context.Context) ([]api.KeywordCategory, error) {
	return []api.KeywordCategory{{Name: "people", Keywords: []string{"alice", "bob"}}}, nil
}

func (f *fakeBackend) ListActivity(_ context.Context, q api.ActivityQuery) (api.ActivityPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	end := min(q.Offset+q.Limit, len(f.activity))
	start := min(q.Offset, end)
	return api.ActivityPage{Events: f.activity[start:end], Total: len(f.activity)}, nil
}

func (f *fakeBackend) ListLists(context.Context) ([]api.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.List(nil), f.lists...), nil
}

func (f *fakeBackend) CreateList(_ context.Context, title string) (api.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := api.List{ID: "list-" + strconv.Itoa(len(f.lists)+1), Title: title}
	f.lists = append(f.lists, l)
	return l, nil
}

func (f *fakeBackend) GetListItems(context.Context, string) ([]api.ListItem, error) {
	return nil, nil
}

func (f *fakeBackend) AddToList(_ context.Context, listID string, photoID int64) (api.ListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, photoID)
	return api.ListItem{ID: "li-" + strconv.FormatInt(photoID, 10), PhotoID: photoID}, nil
}

func (f *fakeBackend) lastParams() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.params) == 0 {
		return nil
	}
	return f.params[len(f.params)-1]
}

type fakeSharer struct {
	err error
}

func (s fakeSharer) ShareList(_ context.Context, listID string) (share.Result, error) {
	if s.err != nil {
		return share.Result{}, s.err
	}
	return share.Result{URL: "https://s3.example.com/" + listID + ".zip", Key: listID + ".zip", Files: 2}, nil
}

func item(id int64, rating *int, tags ...media.Permatag) media.Item {
	return media.Item{
		ID:           media.NewID(id),
		Filename:     "img" + strconv.FormatInt(id, 10) + ".jpg",
		ThumbnailURL: "https://cdn.example.com/t/" + strconv.FormatInt(id, 10),
		Rating:       rating,
		Permatags:    tags,
	}
}
