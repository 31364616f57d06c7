package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fpang/photo-curator/internal/media"
)

type staticToken string

func (s staticToken) AccessToken(context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) AccessToken(context.Context) (string, error) {
	return "", errors.New("not signed in")
}

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	return NewClient(server.URL, "tenant-a", staticToken("tok")).WithHTTPClient(server.Client())
}

func TestListImages_PassesParamsAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/images" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get(TenantHeader); got != "tenant-b" {
			t.Errorf("tenant header = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		if r.URL.Query().Get("rating_operator") != "is_null" || r.URL.Query().Get("offset") != "20" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"images":[{"id":7,"filename":"a.jpg","rating":null},{"id":"x","filename":"b.jpg"}],"total":41}`))
	}))
	defer server.Close()

	params := url.Values{"rating_operator": {"is_null"}, "offset": {"20"}}
	page, err := newTestClient(server).ListImages(context.Background(), "tenant-b", params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 41 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if id, ok := page.Items[0].ID.Int64(); !ok || id != 7 {
		t.Errorf("first id = %v", page.Items[0].ID)
	}
	if page.Items[1].ID.Valid() {
		t.Error("string id decoded as valid")
	}
}

func TestListImages_DefaultsTenant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(TenantHeader); got != "tenant-a" {
			t.Errorf("tenant header = %q", got)
		}
		w.Write([]byte(`{"images":[],"total":0}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server).ListImages(context.Background(), "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"detail", http.StatusNotFound, `{"detail":"Image not found"}`, "Image not found"},
		{"error", http.StatusBadRequest, `{"error":"bad rating"}`, "bad rating"},
		{"plain", http.StatusBadGateway, "upstream down\n", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server).GetImage(context.Background(), 3)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("error = %+v", apiErr)
			}
			if IsNotFound(err) != (tt.status == http.StatusNotFound) {
				t.Errorf("IsNotFound = %v", IsNotFound(err))
			}
		})
	}
}

func TestTokenFailureStopsRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := NewClient(server.URL, "t", failingToken{}).WithHTTPClient(server.Client())
	if _, err := c.ListLists(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("request sent without a token")
	}
}

func TestPermatags(t *testing.T) {
	var got []media.Permatag
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/images/9/permatags" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var tag media.Permatag
		json.NewDecoder(r.Body).Decode(&tag)
		got = append(got, tag)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(server)
	if err := c.AddPermatag(context.Background(), 9, "people", "ana"); err != nil {
		t.Fatal(err)
	}
	if err := c.RemovePermatag(context.Background(), 9, "people", "ana"); err != nil {
		t.Fatal(err)
	}
	if err := c.AddPermatag(context.Background(), 9, "", "ana"); err == nil {
		t.Error("expected validation error for empty category")
	}

	if len(got) != 2 || got[0].Signum != media.SignumActive || got[1].Signum != media.SignumRemoved {
		t.Errorf("posted tags = %+v", got)
	}
}

func TestSetRating(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		var raw json.RawMessage
		json.NewDecoder(r.Body).Decode(&raw)
		bodies = append(bodies, string(raw))
	}))
	defer server.Close()

	c := newTestClient(server)
	if err := c.SetRating(context.Background(), 4, media.IntPtr(3)); err != nil {
		t.Fatal(err)
	}
	if err := c.SetRating(context.Background(), 4, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.SetRating(context.Background(), 4, media.IntPtr(9)); err == nil {
		t.Error("expected out of range error")
	}

	want := []string{`{"rating":3}`, `{"rating":null}`}
	if len(bodies) != 2 || bodies[0] != want[0] || bodies[1] != want[1] {
		t.Errorf("bodies = %v, want %v", bodies, want)
	}
}

func TestGetFullImage_Cancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := newTestClient(server).GetFullImage(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGetFullImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer server.Close()

	data, ct, err := newTestClient(server).GetFullImage(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 3 || ct != "image/jpeg" {
		t.Errorf("data=%v ct=%q", data, ct)
	}
}

func TestLists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/lists":
			w.Write([]byte(`[{"id":"l1","title":"Keepers","item_count":2}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/lists":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(List{ID: "l2", Title: body["title"]})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/v1/lists/l2":
			w.Write([]byte(`{"id":"l2","title":"Renamed"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/lists/l2/items":
			var body map[string]int64
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(ListItem{ID: "i1", PhotoID: body["photo_id"]})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/lists/l2/items":
			w.Write([]byte(`[{"id":"i1","photo_id":5}]`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/lists/l2/items/i1":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	c := newTestClient(server)

	lists, err := c.ListLists(ctx)
	if err != nil || len(lists) != 1 || lists[0].ItemCount != 2 {
		t.Fatalf("ListLists = %+v, %v", lists, err)
	}
	created, err := c.CreateList(ctx, "Picks")
	if err != nil || created.ID != "l2" || created.Title != "Picks" {
		t.Fatalf("CreateList = %+v, %v", created, err)
	}
	if _, err := c.CreateList(ctx, ""); err == nil {
		t.Error("expected error for empty title")
	}
	title := "Renamed"
	updated, err := c.UpdateList(ctx, "l2", ListUpdate{Title: &title})
	if err != nil || updated.Title != "Renamed" {
		t.Fatalf("UpdateList = %+v, %v", updated, err)
	}
	item, err := c.AddToList(ctx, "l2", 5)
	if err != nil || item.PhotoID != 5 {
		t.Fatalf("AddToList = %+v, %v", item, err)
	}
	items, err := c.GetListItems(ctx, "l2")
	if err != nil || len(items) != 1 {
		t.Fatalf("GetListItems = %+v, %v", items, err)
	}
	if err := c.RemoveFromList(ctx, "l2", "i1"); err != nil {
		t.Fatalf("RemoveFromList: %v", err)
	}
}

func TestListActivity_Query(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") != "50" || q.Get("offset") != "0" || q.Get("actor") != "sam" || q.Has("action") {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"events":[{"id":"e1","actor":"sam","action":"rate","created_at":"2024-05-01T10:00:00Z"}],"total":1}`))
	}))
	defer server.Close()

	page, err := newTestClient(server).ListActivity(context.Background(), ActivityQuery{Limit: 50, Offset: -3, Actor: "sam"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Events[0].Action != "rate" {
		t.Errorf("page = %+v", page)
	}
}

func TestGetPlaybackURLAndCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/playback"):
			w.Write([]byte(`{"url":"https://cdn.example.com/v.m3u8"}`))
		case r.URL.Path == "/api/v1/keywords/categories":
			w.Write([]byte(`[{"name":"people","keywords":["ana","bo"]}]`))
		}
	}))
	defer server.Close()

	c := newTestClient(server)
	u, err := c.GetPlaybackURL(context.Background(), 2)
	if err != nil || u != "https://cdn.example.com/v.m3u8" {
		t.Errorf("GetPlaybackURL = %q, %v", u, err)
	}
	cats, err := c.GetKeywordCategories(context.Background())
	if err != nil || len(cats) != 1 || len(cats[0].Keywords) != 2 {
		t.Errorf("GetKeywordCategories = %+v, %v", cats, err)
	}
}
