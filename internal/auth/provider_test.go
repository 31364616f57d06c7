package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fpang/photo-curator/internal/metrics"
)

func init() {
	metrics.SetOutput(io.Discard)
}

type fakeGoTrue struct {
	mu       sync.Mutex
	grants   []string
	logouts  int
	failNext bool

	// rotate issues a new refresh token on every grant and rejects reuse.
	rotate  bool
	issued  int
	current string
}

func (f *fakeGoTrue) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Header.Get("apikey") != "anon" {
			t.Errorf("missing apikey header")
		}
		switch r.URL.Path {
		case "/auth/v1/token":
			grant := r.URL.Query().Get("grant_type")
			f.grants = append(f.grants, grant)
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if f.failNext || (grant == "password" && body["password"] != "secret") {
				f.failNext = false
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
				return
			}
			refresh := "refresh"
			if f.rotate {
				if grant == "refresh_token" && body["refresh_token"] != f.current {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token: Already Used"}`))
					return
				}
				f.issued++
				refresh = fmt.Sprintf("refresh-%d", f.issued)
				f.current = refresh
			}
			json.NewEncoder(w).Encode(tokenResponse{
				AccessToken:  "access-" + grant,
				RefreshToken: refresh,
				ExpiresIn:    3600,
				User:         User{ID: "u1", Email: "a@example.com"},
			})
		case "/auth/v1/logout":
			f.logouts++
			if r.Header.Get("Authorization") == "" {
				t.Errorf("logout without bearer")
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
}

func newTestProvider(t *testing.T) (*Provider, *fakeGoTrue, *time.Time) {
	t.Helper()
	fake := &fakeGoTrue{}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProvider(server.URL, "anon").WithHTTPClient(server.Client())
	p.now = func() time.Time { return now }
	return p, fake, &now
}

func TestSignIn(t *testing.T) {
	p, _, _ := newTestProvider(t)

	var events []Event
	unsubscribe := p.OnAuthStateChange(func(ev Event, s *Session) { events = append(events, ev) })
	defer unsubscribe()

	sess, err := p.SignIn(context.Background(), "a@example.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.AccessToken != "access-password" || sess.User.ID != "u1" {
		t.Errorf("session = %+v", sess)
	}
	if len(events) != 1 || events[0] != EventSignedIn {
		t.Errorf("events = %v", events)
	}
	got, err := p.Session()
	if err != nil || got.AccessToken != sess.AccessToken {
		t.Errorf("Session() = %+v, %v", got, err)
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	p, _, _ := newTestProvider(t)

	_, err := p.SignIn(context.Background(), "a@example.com", "wrong")
	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if authErr.Type != ErrTypeInvalidCredentials || authErr.Message != "Invalid login credentials" {
		t.Errorf("error = %+v", authErr)
	}
	if _, err := p.Session(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}

	if _, err := p.SignIn(context.Background(), "", ""); err == nil {
		t.Error("expected error for empty credentials")
	}
}

func TestSession_ExpiredReadsAsSignedOut(t *testing.T) {
	p, _, now := newTestProvider(t)
	if _, err := p.SignIn(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatal(err)
	}

	*now = now.Add(2 * time.Hour)
	if _, err := p.Session(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated for expired session, got %v", err)
	}
}

func TestAccessToken_Refreshes(t *testing.T) {
	p, fake, now := newTestProvider(t)
	if _, err := p.SignIn(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatal(err)
	}

	tok, err := p.AccessToken(context.Background())
	if err != nil || tok != "access-password" {
		t.Fatalf("AccessToken = %q, %v", tok, err)
	}

	var events []Event
	p.OnAuthStateChange(func(ev Event, _ *Session) { events = append(events, ev) })

	*now = now.Add(59*time.Minute + 45*time.Second)
	tok, err = p.AccessToken(context.Background())
	if err != nil || tok != "access-refresh_token" {
		t.Fatalf("AccessToken after refresh = %q, %v", tok, err)
	}
	if len(events) != 1 || events[0] != EventTokenRefreshed {
		t.Errorf("events = %v", events)
	}
	if len(fake.grants) != 2 || fake.grants[1] != "refresh_token" {
		t.Errorf("grants = %v", fake.grants)
	}
}

func TestAccessToken_ConcurrentRefreshUsesRotatedToken(t *testing.T) {
	p, fake, now := newTestProvider(t)
	fake.rotate = true
	if _, err := p.SignIn(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	var events []Event
	p.OnAuthStateChange(func(ev Event, _ *Session) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	*now = now.Add(59*time.Minute + 45*time.Second)
	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	toks := make([]string, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			toks[i], errs[i] = p.AccessToken(context.Background())
		}()
	}
	wg.Wait()

	for i := range callers {
		if errs[i] != nil || toks[i] != "access-refresh_token" {
			t.Errorf("caller %d: %q, %v", i, toks[i], errs[i])
		}
	}
	refreshes := 0
	for _, g := range fake.grants {
		if g == "refresh_token" {
			refreshes++
		}
	}
	if refreshes != 1 {
		t.Errorf("refresh grants = %d, want 1", refreshes)
	}
	if len(events) != 1 || events[0] != EventTokenRefreshed {
		t.Errorf("events = %v", events)
	}
	if _, err := p.Session(); err != nil {
		t.Errorf("session dropped: %v", err)
	}
}

func TestAccessToken_FailedRefreshSignsOut(t *testing.T) {
	p, fake, now := newTestProvider(t)
	if _, err := p.SignIn(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatal(err)
	}
	var events []Event
	p.OnAuthStateChange(func(ev Event, _ *Session) { events = append(events, ev) })

	fake.failNext = true
	*now = now.Add(2 * time.Hour)
	if _, err := p.AccessToken(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if len(events) != 1 || events[0] != EventSignedOut {
		t.Errorf("events = %v", events)
	}
}

func TestSignOut(t *testing.T) {
	p, fake, _ := newTestProvider(t)
	if err := p.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out without session: %v", err)
	}
	if _, err := p.SignIn(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatal(err)
	}

	var events []Event
	unsubscribe := p.OnAuthStateChange(func(ev Event, _ *Session) { events = append(events, ev) })
	if err := p.SignOut(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fake.logouts != 1 {
		t.Errorf("logouts = %d", fake.logouts)
	}
	if len(events) != 1 || events[0] != EventSignedOut {
		t.Errorf("events = %v", events)
	}
	if _, err := p.AccessToken(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated after sign out, got %v", err)
	}

	unsubscribe()
	unsubscribe()
	p.SignIn(context.Background(), "a@example.com", "secret")
	if len(events) != 1 {
		t.Errorf("listener called after unsubscribe: %v", events)
	}
}

func TestListenerPanicIsContained(t *testing.T) {
	p, _, _ := newTestProvider(t)
	called := false
	p.OnAuthStateChange(func(Event, *Session) { panic("boom") })
	p.OnAuthStateChange(func(Event, *Session) { called = true })

	if _, err := p.SignIn(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("second listener not called after first panicked")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusBadRequest, ErrTypeInvalidCredentials},
		{http.StatusUnauthorized, ErrTypeInvalidCredentials},
		{http.StatusTooManyRequests, ErrTypeRateLimited},
		{http.StatusServiceUnavailable, ErrTypeNetwork},
		{http.StatusConflict, ErrTypeUnknown},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status, "").Type; got != tt.want {
			t.Errorf("classifyStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
