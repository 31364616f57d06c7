package filters

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
)

// Request parameter names accepted by the image-listing endpoint.
const (
	ParamLimit                   = "limit"
	ParamOffset                  = "offset"
	ParamSortOrder               = "sort_order"
	ParamOrderBy                 = "order_by"
	ParamHideZeroRating          = "hide_zero_rating"
	ParamCategoryFilters         = "category_filters"
	ParamCategoryFilterOperator  = "category_filter_operator"
	ParamRating                  = "rating"
	ParamRatingOperator          = "rating_operator"
	ParamDropboxPathPrefix       = "dropbox_path_prefix"
	ParamFilenameQuery           = "filename_query"
	ParamPermatagPositiveMissing = "permatag_positive_missing"
	ParamListID                  = "list_id"
	ParamListExcludeID           = "list_exclude_id"
)

// categoryFilter is the per-category entry of the category_filters parameter.
type categoryFilter struct {
	Keywords []string `json:"keywords"`
	Operator string   `json:"operator"`
}

// BuildRequestParams converts s into listing query parameters. It is pure and
// deterministic. Unset values (nil, empty string, false, zero limit) are
// omitted; offset is always sent because zero is a real page position.
func BuildRequestParams(s State) url.Values {
	s = s.normalize()
	p := url.Values{}

	setStr := func(key, v string) {
		if v != "" {
			p.Set(key, v)
		}
	}
	setBool := func(key string, v bool) {
		if v {
			p.Set(key, "true")
		}
	}

	if s.Limit > 0 {
		p.Set(ParamLimit, strconv.Itoa(s.Limit))
	}
	p.Set(ParamOffset, strconv.Itoa(s.Offset))
	setStr(ParamSortOrder, s.SortOrder)
	setStr(ParamOrderBy, s.OrderBy)
	setBool(ParamHideZeroRating, s.HideZeroRating)

	if s.RatingOperator == RatingIsNull {
		p.Set(ParamRatingOperator, RatingIsNull)
	} else if s.Rating != nil {
		p.Set(ParamRating, strconv.Itoa(*s.Rating))
		setStr(ParamRatingOperator, s.RatingOperator)
	}

	if s.HasKeywordFilters() {
		cats := make([]string, 0, len(s.Keywords))
		for cat := range s.Keywords {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		payload := make(map[string]categoryFilter, len(cats))
		for _, cat := range cats {
			payload[cat] = categoryFilter{
				Keywords: s.Keywords[cat].Sorted(),
				Operator: s.Operators[cat],
			}
		}
		// encoding/json sorts map keys, so the output is stable.
		if b, err := json.Marshal(payload); err == nil {
			p.Set(ParamCategoryFilters, string(b))
		}
		setStr(ParamCategoryFilterOperator, s.CategoryFilterOperator)
	}

	setStr(ParamDropboxPathPrefix, s.DropboxPathPrefix)
	setStr(ParamFilenameQuery, s.FilenameQuery)
	setBool(ParamPermatagPositiveMissing, s.PermatagPositiveMissing)
	setStr(ParamListID, s.ListID)
	setStr(ParamListExcludeID, s.ListExcludeID)

	return p
}
