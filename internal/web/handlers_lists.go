package web

import (
	"errors"
	"net/http"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/listtarget"
)

type listsResponse struct {
	Targets []listtarget.Target `json:"targets"`
	Lists   []api.List          `json:"lists"`
	Added   int                 `json:"added,omitempty"`
	Failed  int                 `json:"failed,omitempty"`
	Created *api.List           `json:"created,omitempty"`
}

func panelState(p *listtarget.Panel) listsResponse {
	return listsResponse{Targets: p.Targets(), Lists: p.Lists()}
}

func (s *Server) handleListSelect(w http.ResponseWriter, r *http.Request, sess *session) {
	var req struct {
		TargetID string `json:"targetId"`
		ListID   string `json:"listId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	var resp listsResponse
	err := sess.search.WithPanel(func(p *listtarget.Panel) error {
		err := p.SelectList(r.Context(), req.TargetID, req.ListID)
		resp = panelState(p)
		return err
	})
	if err != nil {
		httpError(w, http.StatusBadRequest, "could not select list", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDrop(w http.ResponseWriter, r *http.Request, sess *session) {
	var req struct {
		TargetID string `json:"targetId"`
		DragID   int64  `json:"dragId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DragID <= 0 {
		httpError(w, http.StatusBadRequest, "dragId is required")
		return
	}
	res, err := sess.search.DropOnTarget(r.Context(), req.TargetID, req.DragID)
	if err != nil {
		httpError(w, http.StatusBadRequest, "drop failed", err.Error())
		return
	}
	var resp listsResponse
	sess.search.WithPanel(func(p *listtarget.Panel) error {
		resp = panelState(p)
		return nil
	})
	resp.Added, resp.Failed = res.Added, res.Failed
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCreate(w http.ResponseWriter, r *http.Request, sess *session) {
	var req struct {
		TargetID string `json:"targetId"`
		Title    string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	var resp listsResponse
	err := sess.search.WithPanel(func(p *listtarget.Panel) error {
		if err := p.BeginCreate(req.TargetID); err != nil {
			return err
		}
		if err := p.SetDraftTitle(req.TargetID, req.Title); err != nil {
			return err
		}
		list, err := p.CommitCreate(r.Context(), req.TargetID)
		resp = panelState(p)
		if err != nil {
			return errors.Join(errCreate, err)
		}
		resp.Created = &list
		return nil
	})
	switch {
	case errors.Is(err, errCreate):
		respondJSON(w, http.StatusBadRequest, resp)
	case err != nil:
		httpError(w, http.StatusBadRequest, "unknown target", err.Error())
	default:
		respondJSON(w, http.StatusCreated, resp)
	}
}

var errCreate = errors.New("create list")
