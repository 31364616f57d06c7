// Package web serves the curator UI. Each browser gets a session, keyed by a
// cookie, that owns its own auth provider, REST client and views; pages are
// rendered on the server and grid interactions arrive as small JSON posts
// that are routed to the bound handlers of the rendered markup.
//
// Endpoints:
//
//	GET  /health                  health check (no auth required)
//	GET  /login                   sign-in form
//	POST /login                   sign in with email and password
//	POST /logout                  sign out and drop the session
//	GET  /static/                 stylesheet and script
//	GET  /search                  search view
//	POST /search/filters          edit filters and reload
//	GET  /search/grid             current grid, polled while typed input settles
//	POST /search/page             next or previous page
//	POST /search/pointer          pointer and keyboard interactions
//	POST /search/click            click on a thumbnail
//	POST /search/rating           rate items
//	POST /search/hotspot          bulk action on the selection
//	GET  /curate                  curation view; category, keyword, missing=1
//	POST /curate/pointer          pointer and keyboard interactions
//	POST /curate/click            click on a thumbnail
//	POST /curate/tag              toggle the focus tag on an item or the selection
//	POST /lists/select            point a list target at a list
//	POST /lists/drop              drop the drag payload on a list target
//	POST /lists/create            create a list inline
//	GET  /editor/{id}             single-item editor
//	GET  /editor/{id}/full        full-resolution bytes
//	POST /editor/{id}/rating      rate the open item
//	POST /editor/{id}/tags        add or remove a tag on the open item
//	POST /editor/{id}/similar     search for items tagged alike
//	GET  /audit                   activity log
//	GET  /insights                rating and tag dashboard
//	GET  /presets                 saved searches of the user
//	POST /presets                 save the current search
//	POST /presets/{name}/apply    restore a saved search
//	POST /share/{listId}          archive a list and return a download link
package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/auth"
	"github.com/fpang/photo-curator/internal/s3util"
	"github.com/fpang/photo-curator/internal/share"
	"github.com/fpang/photo-curator/internal/store"
	"github.com/fpang/photo-curator/internal/views"
)

// SessionCookie names the cookie that carries the session id.
const SessionCookie = "curator_session"

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 12 * time.Hour

// Authenticator is the auth surface a session uses. *auth.Provider
// implements it.
type Authenticator interface {
	api.TokenSource
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	Session() (*auth.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn func(auth.Event, *auth.Session)) (unsubscribe func())
}

var _ Authenticator = (*auth.Provider)(nil)

// Sharer publishes a list archive.
type Sharer interface {
	ShareList(ctx context.Context, listID string) (share.Result, error)
}

// Config wires a Server to its collaborators.
type Config struct {
	APIURL  string
	AuthURL string
	AnonKey string
	Tenant  string

	// Presets stores saved searches; nil disables them.
	Presets store.PresetStore

	// Share archives go to ShareBucket; an empty bucket disables sharing.
	ShareBucket    string
	SharePutter    s3util.ObjectPutter
	SharePresigner s3util.GetPresigner

	SessionTTL time.Duration

	// NewAuth and NewBackend override how sessions reach the auth provider
	// and the REST backend.
	NewAuth    func() Authenticator
	NewBackend func(tokens api.TokenSource) views.Backend
	NewSharer  func(src share.Source) Sharer
}

// Server holds every live session.
type Server struct {
	cfg   Config
	pages *pages
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Server. Missing collaborator factories default to the real
// auth provider and REST client.
func New(cfg Config) (*Server, error) {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.NewAuth == nil {
		if cfg.AuthURL == "" {
			return nil, errors.New("auth url is required")
		}
		cfg.NewAuth = func() Authenticator { return auth.NewProvider(cfg.AuthURL, cfg.AnonKey) }
	}
	if cfg.NewBackend == nil {
		if cfg.APIURL == "" {
			return nil, errors.New("api url is required")
		}
		cfg.NewBackend = func(tokens api.TokenSource) views.Backend {
			return api.NewClient(cfg.APIURL, cfg.Tenant, tokens)
		}
	}
	if cfg.NewSharer == nil && cfg.ShareBucket != "" && cfg.SharePutter != nil && cfg.SharePresigner != nil {
		cfg.NewSharer = func(src share.Source) Sharer {
			return share.NewExporter(src, cfg.SharePutter, cfg.SharePresigner, cfg.ShareBucket)
		}
	}
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		pages:    p,
		now:      time.Now,
		sessions: make(map[string]*session),
	}, nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET /static/", s.pages.static)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/search", http.StatusSeeOther)
	})

	mux.Handle("GET /search", s.authed(s.handleSearch))
	mux.Handle("POST /search/filters", s.authed(s.handleSearchFilters))
	mux.Handle("GET /search/grid", s.authed(s.handleSearchGrid))
	mux.Handle("POST /search/page", s.authed(s.handleSearchPage))
	mux.Handle("POST /search/pointer", s.authed(s.handleSearchPointer))
	mux.Handle("POST /search/click", s.authed(s.handleSearchClick))
	mux.Handle("POST /search/rating", s.authed(s.handleSearchRating))
	mux.Handle("POST /search/hotspot", s.authed(s.handleSearchHotspot))

	mux.Handle("GET /curate", s.authed(s.handleCurate))
	mux.Handle("POST /curate/pointer", s.authed(s.handleCuratePointer))
	mux.Handle("POST /curate/click", s.authed(s.handleCurateClick))
	mux.Handle("POST /curate/tag", s.authed(s.handleCurateTag))

	mux.Handle("POST /lists/select", s.authed(s.handleListSelect))
	mux.Handle("POST /lists/drop", s.authed(s.handleListDrop))
	mux.Handle("POST /lists/create", s.authed(s.handleListCreate))

	mux.Handle("GET /editor/{id}", s.authed(s.handleEditor))
	mux.Handle("GET /editor/{id}/full", s.authed(s.handleEditorFull))
	mux.Handle("POST /editor/{id}/rating", s.authed(s.handleEditorRating))
	mux.Handle("POST /editor/{id}/tags", s.authed(s.handleEditorTags))
	mux.Handle("POST /editor/{id}/similar", s.authed(s.handleEditorSimilar))

	mux.Handle("GET /audit", s.authed(s.handleAudit))
	mux.Handle("GET /insights", s.authed(s.handleInsights))

	mux.Handle("GET /presets", s.authed(s.handlePresetList))
	mux.Handle("POST /presets", s.authed(s.handlePresetSave))
	mux.Handle("POST /presets/{name}/apply", s.authed(s.handlePresetApply))
	mux.Handle("POST /share/{listId}", s.authed(s.handleShare))

	return withLogging(withMetrics(withCORS(withSecurityHeaders(gzhttp.GzipHandler(mux)))))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessionCount(),
	})
}

// newSessionID returns a fresh random session id.
func newSessionID() string { return uuid.NewString() }

// Close drops every session.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.close()
		delete(s.sessions, id)
	}
	log.Debug().Msg("All sessions closed")
}
