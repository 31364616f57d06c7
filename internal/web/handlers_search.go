package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/filters"
	"github.com/fpang/photo-curator/internal/grid"
	"github.com/fpang/photo-curator/internal/listtarget"
	"github.com/fpang/photo-curator/internal/selection"
	"github.com/fpang/photo-curator/internal/views"
)

// gridView is what Search and Curate share for pointer routing.
type gridView interface {
	Render() grid.Markup
	Interact(id int64, event string, p selection.Pointer) (int64, bool)
	PointerUp()
	KeyUp()
	DocumentPointerDown(itemID int64)
	Selected() []int64
	Total() int
	Err() string
}

// Document-level interactions posted alongside the grid's own events.
const (
	eventPointerUp           = "pointerup"
	eventKeyUp               = "keyup"
	eventDocumentPointerDown = "document-pointerdown"
)

type gridResponse struct {
	HTML     template.HTML `json:"html"`
	Selected []int64       `json:"selected"`
	Total    int           `json:"total"`
	Open     string        `json:"open,omitempty"`
	Handled  bool          `json:"handled"`
	Pending  bool          `json:"pending,omitempty"`
	Error    string        `json:"error,omitempty"`
}

func gridState(v gridView) gridResponse {
	return gridResponse{
		HTML:     v.Render().HTML,
		Selected: v.Selected(),
		Total:    v.Total(),
		Error:    v.Err(),
	}
}

// searchState is gridState plus whether typed input is still settling.
func searchState(v *views.Search) gridResponse {
	resp := gridState(v)
	resp.Pending = v.InputPending()
	return resp
}

type chip struct {
	Category string
	Keyword  string
}

// Choices offered by the search controls.
var (
	sortFields = []string{"photo_creation", "rating", "filename"}
	pageSizes  = []int{25, 50, 100, 200}
)

type searchPage struct {
	Grid           template.HTML
	Total          int
	From, To       int
	HasPrev        bool
	HasNext        bool
	Query          string
	Folder         string
	ListID         string
	ListExcludeID  string
	Chips          []chip
	RatingOperator string
	Rating         *int
	RatingValue    string
	RatingChoices  []int
	HideZero       bool
	OrderBy        string
	Order          string
	SortFields     []string
	PageSize       int
	PageSizes      []int
	ThumbSize      int
	Err            string
	Targets        []listtarget.Target
	Lists          []api.List
	Categories     []api.KeywordCategory
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, sess *session) {
	v := sess.search
	ctx := r.Context()

	if sess.searchStale.Swap(false) || !v.Loaded() {
		if err := v.Load(ctx); err != nil {
			log.Warn().Err(err).Str("session", sess.id).Msg("Search load failed")
		}
	}
	if len(v.Categories()) == 0 {
		if err := v.LoadCategories(ctx); err != nil {
			log.Warn().Err(err).Msg("Keyword categories unavailable")
		}
	}
	var targets []listtarget.Target
	var lists []api.List
	v.WithPanel(func(p *listtarget.Panel) error {
		if err := p.LoadLists(ctx); err != nil {
			log.Warn().Err(err).Msg("Lists unavailable")
		}
		targets, lists = p.Targets(), p.Lists()
		return nil
	})

	st := v.Filters().State()
	total := v.Total()
	shown := len(v.Images())
	body := searchPage{
		Grid:           v.Render().HTML,
		Total:          total,
		From:           st.Offset + 1,
		To:             st.Offset + shown,
		HasPrev:        st.Offset > 0,
		HasNext:        st.Limit > 0 && st.Offset+st.Limit < total,
		Query:          st.FilenameQuery,
		Folder:         st.DropboxPathPrefix,
		ListID:         st.ListID,
		ListExcludeID:  st.ListExcludeID,
		RatingOperator: st.RatingOperator,
		Rating:         st.Rating,
		RatingChoices:  []int{0, 1, 2, 3},
		HideZero:       st.HideZeroRating,
		OrderBy:        st.OrderBy,
		Order:          st.SortOrder,
		SortFields:     sortFields,
		PageSize:       st.Limit,
		PageSizes:      pageSizes,
		ThumbSize:      v.ThumbSize(),
		Err:            v.Err(),
		Targets:        targets,
		Lists:          lists,
		Categories:     v.Categories(),
	}
	if st.Rating != nil {
		body.RatingValue = strconv.Itoa(*st.Rating)
	}
	for cat, set := range st.Keywords {
		for _, kw := range set.Sorted() {
			body.Chips = append(body.Chips, chip{Category: cat, Keyword: kw})
		}
	}
	sort.Slice(body.Chips, func(i, j int) bool {
		if body.Chips[i].Category != body.Chips[j].Category {
			return body.Chips[i].Category < body.Chips[j].Category
		}
		return body.Chips[i].Keyword < body.Chips[j].Keyword
	})
	s.pages.render(w, http.StatusOK, "search", pageData{Title: "Search", Nav: "search", User: sess.email(), Body: body})
}

type filtersRequest struct {
	Action   string `json:"action"`
	Category string `json:"category"`
	Keyword  string `json:"keyword"`
	Query    string `json:"query"`
	ListID   string `json:"listId"`
	Operator string `json:"operator"`
	Rating   *int   `json:"rating"`
	Hide     bool   `json:"hide"`
	OrderBy  string `json:"orderBy"`
	Order    string `json:"order"`
	Size     int    `json:"size"`
}

// applyFilter edits the search filters. It reports whether results must be
// refetched.
func applyFilter(v *views.Search, req filtersRequest) (bool, error) {
	switch req.Action {
	case "add_keyword":
		v.AddKeyword(req.Category, req.Keyword)
	case "remove_keyword":
		v.RemoveKeyword(req.Category, req.Keyword)
	case "operator":
		if req.Operator != filters.OperatorAnd && req.Operator != filters.OperatorOr {
			return false, fmt.Errorf("operator must be %s or %s", filters.OperatorAnd, filters.OperatorOr)
		}
		v.Filters().SetOperator(req.Category, req.Operator)
	case "filename":
		v.TypeFilename(req.Query)
		v.FlushInput()
		return false, nil
	case "filename_input":
		v.TypeFilename(req.Query)
		return false, nil
	case "folder":
		v.TypeFolder(req.Query)
		v.FlushInput()
		return false, nil
	case "folder_input":
		v.TypeFolder(req.Query)
		return false, nil
	case "list":
		v.SetList(req.ListID)
	case "list_exclude":
		v.SetListExclude(req.ListID)
	case "rating":
		if err := v.SetRatingFilter(req.Operator, req.Rating); err != nil {
			return false, err
		}
	case "hide_zero":
		v.SetHideZeroRating(req.Hide)
	case "sort":
		if err := v.SetSort(req.OrderBy, req.Order); err != nil {
			return false, err
		}
	case "page_size":
		if err := v.SetPageSize(req.Size); err != nil {
			return false, err
		}
	case "thumb_size":
		v.SetThumbSize(req.Size)
		return false, nil
	case "reset":
		st := filters.DefaultState()
		st.Limit = v.Filters().State().Limit
		v.Filters().UpdateFilters(st)
	default:
		return false, fmt.Errorf("unknown filter action %q", req.Action)
	}
	return true, nil
}

func (s *Server) handleSearchFilters(w http.ResponseWriter, r *http.Request, sess *session) {
	var req filtersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reload, err := applyFilter(sess.search, req)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if reload {
		if err := sess.search.Load(r.Context()); err != nil {
			respondJSON(w, http.StatusBadGateway, searchState(sess.search))
			return
		}
	}
	respondJSON(w, http.StatusOK, searchState(sess.search))
}

// handleSearchGrid returns the current grid, for clients waiting on typed
// input to settle.
func (s *Server) handleSearchGrid(w http.ResponseWriter, r *http.Request, sess *session) {
	respondJSON(w, http.StatusOK, searchState(sess.search))
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request, sess *session) {
	var req struct {
		Direction string `json:"direction"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	var moved bool
	switch req.Direction {
	case "next":
		moved = sess.search.NextPage()
	case "prev":
		moved = sess.search.PrevPage()
	default:
		httpError(w, http.StatusBadRequest, "direction must be next or prev")
		return
	}
	if moved {
		if err := sess.search.Load(r.Context()); err != nil {
			respondJSON(w, http.StatusBadGateway, gridState(sess.search))
			return
		}
	}
	respondJSON(w, http.StatusOK, gridState(sess.search))
}

type pointerRequest struct {
	Event  string  `json:"event"`
	ID     int64   `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button"`
}

func (s *Server) handleSearchPointer(w http.ResponseWriter, r *http.Request, sess *session) {
	handlePointer(w, r, sess.search)
}

func handlePointer(w http.ResponseWriter, r *http.Request, v gridView) {
	var req pointerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	handled := true
	switch req.Event {
	case eventPointerUp:
		v.PointerUp()
	case eventKeyUp:
		v.KeyUp()
	case eventDocumentPointerDown:
		v.DocumentPointerDown(req.ID)
	case grid.EventDragStart, grid.EventPointerDown, grid.EventPointerMove, grid.EventPointerEnter:
		_, handled = v.Interact(req.ID, req.Event, selection.Pointer{X: req.X, Y: req.Y, Button: req.Button})
	default:
		httpError(w, http.StatusBadRequest, "unknown event")
		return
	}
	resp := gridState(v)
	resp.Handled = handled
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchClick(w http.ResponseWriter, r *http.Request, sess *session) {
	handleClick(w, r, sess.search)
}

func handleClick(w http.ResponseWriter, r *http.Request, v gridView) {
	var req struct {
		ID int64 `json:"id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	opened, handled := v.Interact(req.ID, grid.EventClick, selection.Pointer{})
	resp := gridState(v)
	resp.Handled = handled
	if opened > 0 {
		resp.Open = fmt.Sprintf("/editor/%d", opened)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchRating(w http.ResponseWriter, r *http.Request, sess *session) {
	var req struct {
		IDs    []int64 `json:"ids"`
		Rating *int    `json:"rating"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	ids := req.IDs
	if len(ids) == 0 {
		ids = sess.search.Selected()
	}
	if len(ids) == 0 {
		httpError(w, http.StatusBadRequest, views.ErrNoSelection.Error())
		return
	}
	if err := sess.search.ApplyRating(r.Context(), ids, req.Rating); err != nil {
		log.Warn().Err(err).Str("session", sess.id).Msg("Rating update incomplete")
		respondJSON(w, http.StatusBadGateway, gridState(sess.search))
		return
	}
	respondJSON(w, http.StatusOK, gridState(sess.search))
}

func (s *Server) handleSearchHotspot(w http.ResponseWriter, r *http.Request, sess *session) {
	var req struct {
		Kind     string `json:"kind"`
		Rating   *int   `json:"rating"`
		Category string `json:"category"`
		Keyword  string `json:"keyword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Kind {
	case views.HotspotRating, views.HotspotTag, views.HotspotUntag:
	default:
		httpError(w, http.StatusBadRequest, "unknown hotspot action")
		return
	}
	err := sess.search.Hotspot(r.Context(), views.Hotspot{
		Kind:     req.Kind,
		Rating:   req.Rating,
		Category: req.Category,
		Keyword:  req.Keyword,
	})
	switch {
	case errors.Is(err, views.ErrNoSelection):
		httpError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		log.Warn().Err(err).Str("session", sess.id).Str("kind", req.Kind).Msg("Hotspot action failed")
		respondJSON(w, http.StatusBadGateway, gridState(sess.search))
	default:
		respondJSON(w, http.StatusOK, gridState(sess.search))
	}
}
