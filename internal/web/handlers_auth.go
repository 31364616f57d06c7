package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/auth"
)

type loginPage struct {
	Email string
	Error string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if _, err := sess.auth.Session(); err == nil {
		http.Redirect(w, r, "/search", http.StatusSeeOther)
		return
	}
	s.pages.render(w, http.StatusOK, "login", pageData{Title: "Sign in", Body: loginPage{}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		httpError(w, http.StatusBadRequest, "invalid form")
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		s.pages.render(w, http.StatusBadRequest, "login", pageData{Title: "Sign in", Body: loginPage{Email: email, Error: "Email and password are required."}})
		return
	}

	if _, err := sess.auth.SignIn(r.Context(), email, password); err != nil {
		status, msg := loginFailure(err)
		log.Warn().Err(err).Str("session", sess.id).Int("status", status).Msg("Sign-in failed")
		s.pages.render(w, status, "login", pageData{Title: "Sign in", Body: loginPage{Email: email, Error: msg}})
		return
	}
	log.Info().Str("session", sess.id).Str("user", sess.userID()).Msg("User signed in")
	http.Redirect(w, r, "/search", http.StatusSeeOther)
}

// loginFailure maps an auth error to a status and a user-facing message.
func loginFailure(err error) (int, string) {
	var ae *auth.Error
	if errors.As(err, &ae) {
		switch ae.Type {
		case auth.ErrTypeInvalidCredentials:
			return http.StatusUnauthorized, "Invalid email or password."
		case auth.ErrTypeRateLimited:
			return http.StatusTooManyRequests, "Too many attempts. Try again in a minute."
		case auth.ErrTypeNetwork:
			return http.StatusBadGateway, "The sign-in service is unreachable."
		}
	}
	return http.StatusBadGateway, "Sign-in failed."
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.lookup(r); ok {
		if err := sess.auth.SignOut(r.Context()); err != nil {
			log.Warn().Err(err).Str("session", sess.id).Msg("Sign-out call failed; session dropped anyway")
		}
		s.dropSession(sess.id)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
