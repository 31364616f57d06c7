package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/views"
)

type auditPage struct {
	Query   api.ActivityQuery
	Page    api.ActivityPage
	Actions []string
	Err     string
	HasPrev bool
	PrevURL string
	HasNext bool
	NextURL string
}

// auditURL builds a page link that keeps the current filters.
func auditURL(q api.ActivityQuery, offset int) string {
	v := url.Values{}
	if q.Actor != "" {
		v.Set("actor", q.Actor)
	}
	if q.Action != "" {
		v.Set("action", q.Action)
	}
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
	if len(v) == 0 {
		return "/audit"
	}
	return "/audit?" + v.Encode()
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request, sess *session) {
	a := sess.audit
	q := r.URL.Query()
	a.SetActor(strings.TrimSpace(q.Get("actor")))
	a.SetAction(strings.TrimSpace(q.Get("action")))
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		a.SetOffset(n)
	}
	if err := a.Load(r.Context()); err != nil {
		log.Warn().Err(err).Str("session", sess.id).Msg("Audit load failed")
	}

	query, page := a.Query(), a.Page()
	body := auditPage{
		Query:   query,
		Page:    page,
		Actions: a.Actions(),
		Err:     a.Err(),
		HasPrev: query.Offset > 0,
		HasNext: query.Offset+query.Limit < page.Total,
	}
	// Keep the selected action in the dropdown even if this page lacks it.
	if query.Action != "" && !contains(body.Actions, query.Action) {
		body.Actions = append(body.Actions, query.Action)
	}
	if body.HasPrev {
		body.PrevURL = auditURL(query, max(query.Offset-query.Limit, 0))
	}
	if body.HasNext {
		body.NextURL = auditURL(query, query.Offset+query.Limit)
	}
	s.pages.render(w, http.StatusOK, "audit", pageData{Title: "Activity", Nav: "audit", User: sess.email(), Body: body})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type insightsPage struct {
	Stats views.Stats
	Err   string
}

// handleInsights samples the search view's current filters.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request, sess *session) {
	in := sess.insights
	sample := in.Filters().State().Limit
	in.Filters().Deserialize(sess.search.Filters().Serialize())
	in.Filters().SetLimit(sample)
	if err := in.Load(r.Context()); err != nil {
		log.Warn().Err(err).Str("session", sess.id).Msg("Insights load failed")
	}
	s.pages.render(w, http.StatusOK, "insights", pageData{
		Title: "Insights",
		Nav:   "insights",
		User:  sess.email(),
		Body:  insightsPage{Stats: in.Stats(), Err: in.Err()},
	})
}
