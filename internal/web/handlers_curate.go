package web

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/views"
)

type curatePage struct {
	Grid     template.HTML
	Total    int
	Category string
	Keyword  string
	Missing  bool
	Err      string
}

func (s *Server) handleCurate(w http.ResponseWriter, r *http.Request, sess *session) {
	v := sess.curate
	q := r.URL.Query()
	reload := sess.curateStale.Swap(false) || !v.Loaded()

	if q.Has("category") || q.Has("keyword") {
		cat, kw := strings.TrimSpace(q.Get("category")), strings.TrimSpace(q.Get("keyword"))
		v.SetFocus(cat, kw)
		v.ExploreCategory(cat, kw)
		if err := v.ShowMissing(q.Get("missing") == "1"); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		reload = true
	}
	if reload {
		if err := v.Load(r.Context()); err != nil {
			log.Warn().Err(err).Str("session", sess.id).Msg("Curate load failed")
		}
	}

	cat, kw := v.Focus()
	s.pages.render(w, http.StatusOK, "curate", pageData{
		Title: "Curate",
		Nav:   "curate",
		User:  sess.email(),
		Body: curatePage{
			Grid:     v.Render().HTML,
			Total:    v.Total(),
			Category: cat,
			Keyword:  kw,
			Missing:  v.Filters().State().PermatagPositiveMissing,
			Err:      v.Err(),
		},
	})
}

func (s *Server) handleCuratePointer(w http.ResponseWriter, r *http.Request, sess *session) {
	handlePointer(w, r, sess.curate)
}

func (s *Server) handleCurateClick(w http.ResponseWriter, r *http.Request, sess *session) {
	handleClick(w, r, sess.curate)
}

// handleCurateTag toggles the focus tag on one item, or applies it to the
// whole selection when no id is given.
func (s *Server) handleCurateTag(w http.ResponseWriter, r *http.Request, sess *session) {
	var req struct {
		ID  int64 `json:"id"`
		Add bool  `json:"add"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	var err error
	if req.ID > 0 {
		err = sess.curate.ToggleTag(r.Context(), req.ID)
	} else {
		err = sess.curate.TagSelected(r.Context(), req.Add)
	}
	switch {
	case errors.Is(err, views.ErrNoSelection):
		httpError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		log.Warn().Err(err).Str("session", sess.id).Msg("Curate tag failed")
		resp := gridState(sess.curate)
		if resp.Error == "" {
			resp.Error = err.Error()
		}
		respondJSON(w, http.StatusBadGateway, resp)
	default:
		respondJSON(w, http.StatusOK, gridState(sess.curate))
	}
}
