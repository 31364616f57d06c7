// Package auth is the client for the GoTrue-compatible auth provider. It
// signs users in with email and password, keeps the session in memory only,
// refreshes the access token before it expires, and notifies subscribers of
// sign-in, refresh and sign-out.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/metrics"
)

const (
	defaultTimeout = 15 * time.Second

	// refreshMargin is how long before expiry AccessToken refreshes.
	refreshMargin = 30 * time.Second
)

// Event is an auth state transition.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// User identifies the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a live sign-in.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// Provider holds one user's session.
type Provider struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
	now        func() time.Time

	refreshMu sync.Mutex

	mu        sync.Mutex
	session   *Session
	listeners map[int]func(Event, *Session)
	nextID    int
}

// NewProvider creates a provider for the auth service at baseURL.
func NewProvider(baseURL, anonKey string) *Provider {
	return &Provider{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		now:        time.Now,
		listeners:  make(map[int]func(Event, *Session)),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (p *Provider) WithHTTPClient(hc *http.Client) *Provider {
	p.httpClient = hc
	return p
}

// SignIn exchanges email and password for a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, &Error{Type: ErrTypeInvalidCredentials, Message: "Email and password are required"}
	}
	start := time.Now()
	sess, err := p.token(ctx, "password", map[string]string{"email": email, "password": password})
	p.recordResult("SignIn", start, err)
	if err != nil {
		return nil, err
	}
	p.setSession(sess, EventSignedIn)
	log.Info().Str("userId", sess.User.ID).Msg("Signed in")
	return sess, nil
}

// Session returns the live session or ErrNotAuthenticated.
func (p *Provider) Session() (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session.Expired(p.now()) {
		return nil, ErrNotAuthenticated
	}
	s := *p.session
	return &s, nil
}

// AccessToken returns a usable bearer token, refreshing it when it is about
// to expire. Refreshes are serialized: the provider rotates refresh tokens,
// so callers that queue behind a refresh reuse its result. A failed refresh
// signs the user out.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	if tok, ok := p.freshToken(); ok {
		return tok, nil
	}

	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	p.mu.Lock()
	sess := p.session
	now := p.now()
	p.mu.Unlock()

	if sess == nil {
		return "", ErrNotAuthenticated
	}
	if now.Add(refreshMargin).Before(sess.ExpiresAt) {
		return sess.AccessToken, nil
	}
	if sess.RefreshToken == "" {
		if sess.Expired(now) {
			p.clearIf(sess)
			return "", ErrNotAuthenticated
		}
		return sess.AccessToken, nil
	}

	refreshed, err := p.token(ctx, "refresh_token", map[string]string{"refresh_token": sess.RefreshToken})
	if err != nil {
		log.Warn().Err(err).Msg("Token refresh failed, signing out")
		p.clearIf(sess)
		return "", fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	p.setSession(refreshed, EventTokenRefreshed)
	return refreshed.AccessToken, nil
}

// freshToken returns the current access token if it is outside the refresh
// margin.
func (p *Provider) freshToken() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil || !p.now().Add(refreshMargin).Before(p.session.ExpiresAt) {
		return "", false
	}
	return p.session.AccessToken, true
}

// OnAuthStateChange subscribes fn to auth events and returns the
// unsubscribe function.
func (p *Provider) OnAuthStateChange(fn func(Event, *Session)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// SignOut revokes the session at the provider and clears it locally. The
// local session is cleared even when the revoke call fails.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	sess := p.session
	p.mu.Unlock()
	if sess == nil {
		return nil
	}

	var revokeErr error
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/auth/v1/logout", nil)
	if err == nil {
		p.setHeaders(req)
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
		resp, doErr := p.httpClient.Do(req)
		if doErr != nil {
			revokeErr = classifyTransport(doErr)
		} else {
			resp.Body.Close()
			if resp.StatusCode >= 300 {
				revokeErr = classifyStatus(resp.StatusCode, "")
			}
		}
	} else {
		revokeErr = fmt.Errorf("build request: %w", err)
	}

	p.clear()
	if revokeErr != nil {
		log.Warn().Err(revokeErr).Msg("Sign-out revoke failed; local session cleared")
		return fmt.Errorf("sign out: %w", revokeErr)
	}
	return nil
}

func (p *Provider) token(ctx context.Context, grant string, body map[string]string) (*Session, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	endpoint := p.baseURL + "/auth/v1/token?grant_type=" + grant
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	p.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, providerMessage(raw))
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, &Error{Type: ErrTypeUnknown, Message: "Auth provider returned no access token"}
	}
	return &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    p.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		User:         tr.User,
	}, nil
}

func (p *Provider) setHeaders(req *http.Request) {
	if p.anonKey != "" {
		req.Header.Set("apikey", p.anonKey)
	}
}

func (p *Provider) setSession(s *Session, ev Event) {
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
	p.notify(ev, s)
}

func (p *Provider) clear() {
	p.mu.Lock()
	had := p.session != nil
	p.session = nil
	p.mu.Unlock()
	if had {
		p.notify(EventSignedOut, nil)
	}
}

// clearIf signs out only if sess is still the live session, so a failed
// refresh cannot drop a newer sign-in.
func (p *Provider) clearIf(sess *Session) {
	p.mu.Lock()
	if p.session != sess {
		p.mu.Unlock()
		return
	}
	p.session = nil
	p.mu.Unlock()
	p.notify(EventSignedOut, nil)
}

// notify calls listeners outside the lock; a panicking listener is logged
// and does not stop the others.
func (p *Provider) notify(ev Event, s *Session) {
	p.mu.Lock()
	fns := make([]func(Event, *Session), 0, len(p.listeners))
	for i := 0; i < p.nextID; i++ {
		if fn, ok := p.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("event", string(ev)).Msg("Auth listener panicked")
				}
			}()
			fn(ev, s)
		}()
	}
}

func (p *Provider) recordResult(op string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = ErrTypeUnknown.String()
		if ae, ok := err.(*Error); ok {
			result = ae.Type.String()
		}
	}
	metrics.Curator().
		Dimension("Operation", op).
		Dimension("Result", result).
		Duration("AuthLatencyMs", time.Since(start)).
		Count("AuthRequests").
		Flush()
}

// providerMessage extracts a human message from a GoTrue error body.
func providerMessage(raw []byte) string {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	for _, s := range []string{body.ErrorDescription, body.Msg, body.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}
