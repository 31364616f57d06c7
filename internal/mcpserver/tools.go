package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/filters"
	"github.com/fpang/photo-curator/internal/media"
)

// maxSearchLimit caps one search_images page.
const maxSearchLimit = 200

// SearchInput is the input of search_images.
type SearchInput struct {
	Keywords       []string `json:"keywords,omitempty" jsonschema:"Tag filters as category:keyword pairs"`
	Operator       string   `json:"operator,omitempty" jsonschema:"How keywords within one category combine: AND or OR (default OR)"`
	Filename       string   `json:"filename,omitempty" jsonschema:"Substring of the file name"`
	Rating         *int     `json:"rating,omitempty" jsonschema:"Rating to compare against, 0 to 3"`
	RatingOperator string   `json:"rating_operator,omitempty" jsonschema:"eq, gte, gt or is_null (unrated items)"`
	HideZeroRating bool     `json:"hide_zero_rating,omitempty" jsonschema:"Exclude rejected (rating 0) items"`
	OrderBy        string   `json:"order_by,omitempty" jsonschema:"Sort field, e.g. photo_creation or rating"`
	Order          string   `json:"order,omitempty" jsonschema:"asc or desc"`
	ListID         string   `json:"list_id,omitempty" jsonschema:"Only items in this list"`
	Limit          int      `json:"limit,omitempty" jsonschema:"Page size (default 50, max 200)"`
	Offset         int      `json:"offset,omitempty" jsonschema:"Number of items to skip"`
}

// ImageSummary is one search hit.
type ImageSummary struct {
	ID        int64    `json:"id"`
	Filename  string   `json:"filename"`
	MediaType string   `json:"media_type"`
	Rating    *int     `json:"rating,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	TakenAt   string   `json:"taken_at,omitempty"`
}

// SearchOutput is the output of search_images.
type SearchOutput struct {
	Images []ImageSummary `json:"images"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
}

func searchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_images",
		Description: "Search the photo library. Filters: keywords (category:keyword pairs), operator, filename, rating with rating_operator, hide_zero_rating, list_id. Returns one page of images with id, filename, media_type, rating and active tags, plus the total match count.",
	}
}

// containerFor builds a filter container from the tool input.
func (s *Server) containerFor(in SearchInput) (*filters.Container, error) {
	c := filters.NewContainer(s.tenant, s.backend)
	limit := in.Limit
	if limit <= 0 {
		limit = 50
	}
	c.SetLimit(min(limit, maxSearchLimit))

	op := strings.ToUpper(in.Operator)
	if op != "" && op != filters.OperatorAnd && op != filters.OperatorOr {
		return nil, fmt.Errorf("operator must be %s or %s", filters.OperatorAnd, filters.OperatorOr)
	}
	for _, pair := range in.Keywords {
		cat, kw, ok := strings.Cut(pair, ":")
		cat, kw = strings.TrimSpace(cat), strings.TrimSpace(kw)
		if !ok || cat == "" || kw == "" {
			return nil, fmt.Errorf("keyword %q must look like category:keyword", pair)
		}
		c.AddKeyword(cat, kw)
		if op != "" {
			c.SetOperator(cat, op)
		}
	}

	ratingOp := strings.ToLower(in.RatingOperator)
	switch ratingOp {
	case "", filters.RatingEq, filters.RatingGte, filters.RatingGt, filters.RatingIsNull:
	default:
		return nil, fmt.Errorf("unknown rating_operator %q", in.RatingOperator)
	}

	set := []struct {
		key   string
		value any
	}{
		{filters.ParamFilenameQuery, strings.TrimSpace(in.Filename)},
		{filters.ParamRatingOperator, ratingOp},
		{filters.ParamRating, in.Rating},
		{filters.ParamHideZeroRating, in.HideZeroRating},
		{filters.ParamOrderBy, in.OrderBy},
		{filters.ParamSortOrder, strings.ToLower(in.Order)},
		{filters.ParamListID, in.ListID},
	}
	for _, f := range set {
		if v, ok := f.value.(string); ok && v == "" {
			continue
		}
		if err := c.UpdateFilter(f.key, f.value); err != nil {
			return nil, err
		}
	}
	c.SetOffset(max(in.Offset, 0))
	return c, nil
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	c, err := s.containerFor(in)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("invalid search: %w", err)
	}
	page, err := c.FetchImages(ctx)
	if err != nil {
		log.Error().Err(err).Msg("search_images failed")
		return nil, SearchOutput{}, fmt.Errorf("search failed: %w", err)
	}

	out := SearchOutput{Images: make([]ImageSummary, 0, len(page.Items)), Total: page.Total, Offset: c.State().Offset}
	for _, it := range page.Items {
		id, ok := it.ID.Int64()
		if !ok {
			continue
		}
		sum := ImageSummary{
			ID:        id,
			Filename:  it.Filename,
			MediaType: media.InferMediaType(it),
			Rating:    it.Rating,
			TakenAt:   media.DateBadge(it),
		}
		for _, t := range media.ActiveTags(it.Permatags) {
			sum.Tags = append(sum.Tags, t.Category+":"+t.Keyword)
		}
		out.Images = append(out.Images, sum)
	}
	log.Info().Int("results", len(out.Images)).Int("total", out.Total).Msg("search_images complete")
	return nil, out, nil
}

// RateInput is the input of rate_image.
type RateInput struct {
	ID     int64 `json:"id" jsonschema:"Image id"`
	Rating *int  `json:"rating" jsonschema:"New rating 0 to 3; null clears the rating"`
}

// RateOutput is the output of rate_image.
type RateOutput struct {
	ID     int64 `json:"id"`
	Rating *int  `json:"rating"`
}

func rateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "rate_image",
		Description: "Set the rating of one image: 0 rejects, 1 to 3 are stars, null clears it.",
	}
}

func (s *Server) handleRate(ctx context.Context, req *mcp.CallToolRequest, in RateInput) (*mcp.CallToolResult, RateOutput, error) {
	if in.ID <= 0 {
		return nil, RateOutput{}, errors.New("id must be positive")
	}
	if in.Rating != nil && !media.ValidRating(*in.Rating) {
		return nil, RateOutput{}, fmt.Errorf("rating %d out of range 0..%d", *in.Rating, media.MaxRating)
	}
	if err := s.backend.SetRating(ctx, in.ID, in.Rating); err != nil {
		log.Error().Err(err).Int64("id", in.ID).Msg("rate_image failed")
		return nil, RateOutput{}, fmt.Errorf("rate image %d: %w", in.ID, err)
	}
	log.Info().Int64("id", in.ID).Str("rating", media.RatingLabel(in.Rating)).Msg("rate_image complete")
	return nil, RateOutput{ID: in.ID, Rating: in.Rating}, nil
}

// AddToListInput is the input of add_to_list.
type AddToListInput struct {
	ListID   string  `json:"list_id" jsonschema:"Target list id"`
	PhotoIDs []int64 `json:"photo_ids" jsonschema:"Image ids to add"`
}

// AddToListOutput is the output of add_to_list. Adds are not transactional:
// failures are reported per id.
type AddToListOutput struct {
	Added  []int64     `json:"added"`
	Failed []FailedAdd `json:"failed,omitempty"`
}

// FailedAdd is one id add_to_list could not add.
type FailedAdd struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

func addToListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "add_to_list",
		Description: "Add images to a list. Each id is added separately; the result lists which ids were added and why any failed.",
	}
}

func (s *Server) handleAddToList(ctx context.Context, req *mcp.CallToolRequest, in AddToListInput) (*mcp.CallToolResult, AddToListOutput, error) {
	if in.ListID == "" {
		return nil, AddToListOutput{}, errors.New("list_id is required")
	}
	if len(in.PhotoIDs) == 0 {
		return nil, AddToListOutput{}, errors.New("photo_ids is empty")
	}
	out := AddToListOutput{Added: []int64{}}
	for _, id := range in.PhotoIDs {
		if _, err := s.backend.AddToList(ctx, in.ListID, id); err != nil {
			log.Warn().Err(err).Str("list", in.ListID).Int64("id", id).Msg("add_to_list item failed")
			out.Failed = append(out.Failed, FailedAdd{ID: id, Error: err.Error()})
			continue
		}
		out.Added = append(out.Added, id)
	}
	log.Info().Str("list", in.ListID).Int("added", len(out.Added)).Int("failed", len(out.Failed)).Msg("add_to_list complete")
	return nil, out, nil
}
