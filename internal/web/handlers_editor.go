package web

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/grid"
	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/metadata"
)

// fullImageWait is how long the editor page waits for the full-size image
// before rendering with the thumbnail.
const fullImageWait = 1500 * time.Millisecond

type editorPage struct {
	ID          int64
	Item        *media.Item
	Rating      template.HTML
	Tags        []media.Permatag
	HasFull     bool
	Loading     bool
	PlaybackURL string
	Fields      []metadata.Field
	MapsURL     string
	Err         string
}

// ensureOpen makes id the editor's current item.
func (sess *session) ensureOpen(ctx context.Context, id int64) error {
	if it, ok := sess.editor.Item(); ok {
		if cur, _ := it.ID.Int64(); cur == id {
			return nil
		}
	}
	return sess.editor.Open(ctx, id)
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request, sess *session) {
	id, err := pathID(r, "id")
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	e := sess.editor
	ctx := r.Context()

	status := http.StatusOK
	if err := sess.ensureOpen(ctx, id); err != nil {
		log.Warn().Err(err).Int64("id", id).Msg("Editor open failed")
		status = http.StatusBadGateway
		if api.IsNotFound(err) {
			status = http.StatusNotFound
		}
	}

	if it, ok := e.Item(); ok {
		if it.IsVideo() {
			if e.PlaybackURL() == "" {
				if _, err := e.LoadPlayback(ctx); err != nil {
					log.Warn().Err(err).Int64("id", id).Msg("Playback URL unavailable")
				}
			}
		} else if data, _ := e.Full(); data == nil && !e.LoadingFull() {
			// The fetch outlives this request so a reload can pick it up.
			done := e.LoadFull(context.WithoutCancel(ctx))
			select {
			case <-done:
			case <-time.After(fullImageWait):
			case <-ctx.Done():
			}
		}
	}

	body := editorPage{ID: id, Err: e.Err(), Loading: e.LoadingFull(), PlaybackURL: e.PlaybackURL()}
	if it, ok := e.Item(); ok {
		body.Item = &it
		body.Rating = grid.InteractiveRating(it)
		body.Tags = media.ActiveTags(it.Permatags)
	}
	if data, _ := e.Full(); data != nil {
		body.HasFull = true
	}
	if meta := e.Metadata(); meta != nil {
		for _, f := range meta.Fields() {
			if f.Label != "Map" {
				body.Fields = append(body.Fields, f)
			}
		}
		if meta.HasGPS {
			body.MapsURL = metadata.MapsURL(meta.Latitude, meta.Longitude)
		}
	}
	s.pages.render(w, status, "editor", pageData{Title: "Editor", Nav: "editor", User: sess.email(), Body: body})
}

// currentID checks that id is the open item.
func (sess *session) currentID(id int64) bool {
	it, ok := sess.editor.Item()
	if !ok {
		return false
	}
	cur, _ := it.ID.Int64()
	return cur == id
}

func (s *Server) handleEditorFull(w http.ResponseWriter, r *http.Request, sess *session) {
	id, err := pathID(r, "id")
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, contentType := sess.editor.Full()
	if !sess.currentID(id) || data == nil {
		httpError(w, http.StatusNotFound, "full-size image not loaded")
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type editorResponse struct {
	Item  *media.Item `json:"item,omitempty"`
	Open  string      `json:"open,omitempty"`
	Error string      `json:"error,omitempty"`
}

func (sess *session) editorState() editorResponse {
	resp := editorResponse{Error: sess.editor.Err()}
	if it, ok := sess.editor.Item(); ok {
		resp.Item = &it
	}
	return resp
}

func (s *Server) handleEditorRating(w http.ResponseWriter, r *http.Request, sess *session) {
	id, err := pathID(r, "id")
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Rating *int `json:"rating"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Rating != nil && !media.ValidRating(*req.Rating) {
		httpError(w, http.StatusBadRequest, "rating out of range")
		return
	}
	if !sess.currentID(id) {
		httpError(w, http.StatusConflict, "item is not open")
		return
	}
	if err := sess.editor.SetRating(r.Context(), req.Rating); err != nil {
		log.Warn().Err(err).Int64("id", id).Msg("Editor rating failed")
		respondJSON(w, http.StatusBadGateway, sess.editorState())
		return
	}
	respondJSON(w, http.StatusOK, sess.editorState())
}

func (s *Server) handleEditorTags(w http.ResponseWriter, r *http.Request, sess *session) {
	id, err := pathID(r, "id")
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Category string `json:"category"`
		Keyword  string `json:"keyword"`
		Add      bool   `json:"add"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Category, req.Keyword = strings.TrimSpace(req.Category), strings.TrimSpace(req.Keyword)
	if req.Category == "" || req.Keyword == "" {
		httpError(w, http.StatusBadRequest, "category and keyword are required")
		return
	}
	if !sess.currentID(id) {
		httpError(w, http.StatusConflict, "item is not open")
		return
	}
	if req.Add {
		err = sess.editor.AddTag(r.Context(), req.Category, req.Keyword)
	} else {
		err = sess.editor.RemoveTag(r.Context(), req.Category, req.Keyword)
	}
	if err != nil {
		log.Warn().Err(err).Int64("id", id).Msg("Editor tag update failed")
		respondJSON(w, http.StatusBadGateway, sess.editorState())
		return
	}
	respondJSON(w, http.StatusOK, sess.editorState())
}

func (s *Server) handleEditorSimilar(w http.ResponseWriter, r *http.Request, sess *session) {
	id, err := pathID(r, "id")
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !sess.currentID(id) {
		httpError(w, http.StatusConflict, "item is not open")
		return
	}
	if _, err := sess.editor.OpenSimilar(); err != nil {
		httpError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, editorResponse{Open: "/search"})
}
