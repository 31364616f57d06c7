package web

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/auth"
	"github.com/fpang/photo-curator/internal/events"
	"github.com/fpang/photo-curator/internal/views"
)

// session is one browser's state.
type session struct {
	id      string
	auth    Authenticator
	backend views.Backend
	sharer  Sharer
	root    *events.Node

	search   *views.Search
	curate   *views.Curate
	editor   *views.Editor
	audit    *views.Audit
	insights *views.Insights

	// Set when a grid must refetch on its next page load: the editor changed
	// an item it may show, or its filters were replaced out of band.
	searchStale atomic.Bool
	curateStale atomic.Bool

	mu       sync.Mutex
	lastSeen time.Time
	unsub    func()
}

func (s *Server) newSession(id string) *session {
	a := s.cfg.NewAuth()
	b := s.cfg.NewBackend(a)
	root := events.NewNode("session", nil)
	opts := views.Options{Tenant: s.cfg.Tenant, Parent: root}

	sess := &session{
		id:       id,
		auth:     a,
		backend:  b,
		root:     root,
		search:   views.NewSearch(b, opts),
		curate:   views.NewCurate(b, opts),
		editor:   views.NewEditor(b, opts),
		audit:    views.NewAudit(b, opts),
		insights: views.NewInsights(b, opts),
		lastSeen: s.now(),
	}
	if s.cfg.NewSharer != nil {
		sess.sharer = s.cfg.NewSharer(b)
	}

	root.Listen(events.OpenSimilarInSearch, func(ev *events.Event) {
		if req, ok := ev.Detail.(views.SimilarRequest); ok {
			sess.search.ApplySimilar(req)
			sess.searchStale.Store(true)
		}
	})
	markStale := func(ev *events.Event) {
		if ev.Target == "editor" {
			sess.searchStale.Store(true)
			sess.curateStale.Store(true)
		}
	}
	root.Listen(events.ImageRatingUpdated, markStale)
	root.Listen(events.PermatagsChanged, markStale)

	sess.unsub = a.OnAuthStateChange(func(ev auth.Event, _ *auth.Session) {
		log.Debug().Str("session", id).Str("event", string(ev)).Msg("Auth state changed")
	})
	return sess
}

func (sess *session) touch(now time.Time) {
	sess.mu.Lock()
	sess.lastSeen = now
	sess.mu.Unlock()
}

func (sess *session) idleSince() time.Time {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.lastSeen
}

// userID returns the signed-in user's id, or "".
func (sess *session) userID() string {
	as, err := sess.auth.Session()
	if err != nil || as == nil {
		return ""
	}
	return as.User.ID
}

func (sess *session) close() {
	sess.search.Close()
	sess.curate.Close()
	sess.editor.Close()
	if sess.unsub != nil {
		sess.unsub()
	}
}

// session returns the caller's session, creating one and setting the cookie
// when there is none.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	if sess, ok := s.lookup(r); ok {
		return sess
	}
	now := s.now()
	id := newSessionID()
	sess := s.newSession(id)

	s.mu.Lock()
	s.reapLocked(now)
	s.sessions[id] = sess
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
	})
	log.Debug().Str("session", id).Msg("Session created")
	return sess
}

func (s *Server) lookup(r *http.Request) (*session, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	s.mu.Lock()
	sess, ok := s.sessions[c.Value]
	s.mu.Unlock()
	if ok {
		sess.touch(s.now())
	}
	return sess, ok
}

func (s *Server) dropSession(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.close()
	}
}

// reapLocked closes sessions idle for longer than the TTL.
func (s *Server) reapLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.idleSince()) > s.cfg.SessionTTL {
			sess.close()
			delete(s.sessions, id)
			log.Debug().Str("session", id).Msg("Idle session reaped")
		}
	}
}

func (s *Server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session)

// authed resolves the session and requires a live sign-in. Page requests are
// redirected to the login form; everything else gets 401.
func (s *Server) authed(h sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.session(w, r)
		if _, err := sess.auth.Session(); err != nil {
			if r.Method == http.MethodGet {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			httpError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		h(w, r, sess)
	})
}
