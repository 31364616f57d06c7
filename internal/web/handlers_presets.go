package web

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/filters"
	"github.com/fpang/photo-curator/internal/share"
	"github.com/fpang/photo-curator/internal/store"
)

// Preset views.
const (
	presetViewSearch = "search"
	presetViewCurate = "curate"
)

// containerFor returns the filter container behind a preset view name.
func (sess *session) containerFor(view string) (*filters.Container, bool) {
	switch view {
	case "", presetViewSearch:
		return sess.search.Filters(), true
	case presetViewCurate:
		return sess.curate.Filters(), true
	}
	return nil, false
}

// presetUser checks that presets are enabled and returns the signed-in
// user's id. It writes the error response when it returns "".
func (s *Server) presetUser(w http.ResponseWriter, sess *session) string {
	if s.cfg.Presets == nil {
		httpError(w, http.StatusServiceUnavailable, "presets are not configured")
		return ""
	}
	userID := sess.userID()
	if userID == "" {
		httpError(w, http.StatusUnauthorized, "not signed in")
	}
	return userID
}

func (s *Server) handlePresetList(w http.ResponseWriter, r *http.Request, sess *session) {
	userID := s.presetUser(w, sess)
	if userID == "" {
		return
	}
	presets, err := s.cfg.Presets.List(r.Context(), userID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list presets", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

func (s *Server) handlePresetSave(w http.ResponseWriter, r *http.Request, sess *session) {
	userID := s.presetUser(w, sess)
	if userID == "" {
		return
	}
	var req struct {
		Name string `json:"name"`
		View string `json:"view"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	c, ok := sess.containerFor(req.View)
	if !ok {
		httpError(w, http.StatusBadRequest, "unknown view")
		return
	}
	name, err := store.ValidateName(req.Name)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	view := req.View
	if view == "" {
		view = presetViewSearch
	}
	p := &store.Preset{UserID: userID, Name: name, View: view, Filters: c.Serialize()}
	if err := s.cfg.Presets.Put(r.Context(), p); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to save preset", err.Error())
		return
	}
	log.Info().Str("user", userID).Str("preset", name).Str("view", view).Msg("Preset saved")
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePresetApply(w http.ResponseWriter, r *http.Request, sess *session) {
	userID := s.presetUser(w, sess)
	if userID == "" {
		return
	}
	p, err := s.cfg.Presets.Get(r.Context(), userID, r.PathValue("name"))
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load preset", err.Error())
		return
	}
	if p == nil {
		httpError(w, http.StatusNotFound, "preset not found")
		return
	}
	c, ok := sess.containerFor(p.View)
	if !ok {
		httpError(w, http.StatusUnprocessableEntity, "preset has an unknown view")
		return
	}
	c.Deserialize(p.Filters)
	view := p.View
	if view == "" {
		view = presetViewSearch
	}
	// The next page load fetches with the restored filters.
	if view == presetViewCurate {
		sess.curateStale.Store(true)
	} else {
		sess.searchStale.Store(true)
	}
	respondJSON(w, http.StatusOK, map[string]string{"open": "/" + view})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request, sess *session) {
	if sess.sharer == nil {
		httpError(w, http.StatusServiceUnavailable, "sharing is not configured")
		return
	}
	listID := r.PathValue("listId")
	if listID == "" {
		httpError(w, http.StatusBadRequest, "list id is required")
		return
	}
	res, err := sess.sharer.ShareList(r.Context(), listID)
	switch {
	case errors.Is(err, share.ErrEmptyList):
		httpError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		httpError(w, http.StatusBadGateway, "failed to share list", err.Error())
	default:
		log.Info().Str("list", listID).Int("files", res.Files).Int("skipped", res.Skipped).Msg("List shared")
		respondJSON(w, http.StatusOK, res)
	}
}
