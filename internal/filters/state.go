// Package filters holds the query state of one results view: keyword and
// category filters, rating filters, sort order, pagination, and free-text
// queries. A Container owns one State, turns it into request parameters for
// the image-listing endpoint, and reports changes, loads, and failures to
// subscribers. It has no UI of its own.
package filters

import "sort"

// Operators for combining keywords within a category and categories together.
const (
	OperatorAnd = "AND"
	OperatorOr  = "OR"
)

// Rating operators. RatingIsNull selects unrated items and ignores Rating.
const (
	RatingEq     = "eq"
	RatingGte    = "gte"
	RatingGt     = "gt"
	RatingIsNull = "is_null"
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultLimit is the page size of a fresh container.
const DefaultLimit = 100

// KeywordSet is an unordered set of keywords.
type KeywordSet map[string]struct{}

// NewKeywordSet builds a set from the given keywords, skipping empty strings.
func NewKeywordSet(keywords ...string) KeywordSet {
	s := make(KeywordSet, len(keywords))
	for _, k := range keywords {
		if k != "" {
			s[k] = struct{}{}
		}
	}
	return s
}

// Sorted returns the keywords in lexical order.
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Has reports whether k is in the set.
func (s KeywordSet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// State is the complete filter record of one view. Zero values mean "unset".
type State struct {
	Limit                   int
	Offset                  int
	SortOrder               string
	OrderBy                 string
	HideZeroRating          bool
	Keywords                map[string]KeywordSet
	Operators               map[string]string
	CategoryFilterOperator  string
	Rating                  *int
	RatingOperator          string
	DropboxPathPrefix       string
	FilenameQuery           string
	PermatagPositiveMissing bool
	ListID                  string
	ListExcludeID           string
}

// DefaultState returns the state a freshly constructed view starts with.
func DefaultState() State {
	return State{
		Limit:     DefaultLimit,
		SortOrder: SortDesc,
		OrderBy:   "photo_creation",
		Keywords:  map[string]KeywordSet{},
		Operators: map[string]string{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	if s.Rating != nil {
		r := *s.Rating
		out.Rating = &r
	}
	out.Keywords = make(map[string]KeywordSet, len(s.Keywords))
	for cat, set := range s.Keywords {
		cp := make(KeywordSet, len(set))
		for k := range set {
			cp[k] = struct{}{}
		}
		out.Keywords[cat] = cp
	}
	out.Operators = make(map[string]string, len(s.Operators))
	for cat, op := range s.Operators {
		out.Operators[cat] = op
	}
	return out
}

// normalize keeps Keywords and Operators in sync: categories without
// keywords are pruned from both maps, and every remaining category has an
// operator (OR unless one was given).
func (s State) normalize() State {
	out := s.Clone()
	for cat, set := range out.Keywords {
		if len(set) == 0 {
			delete(out.Keywords, cat)
		}
	}
	for cat, op := range out.Operators {
		if _, ok := out.Keywords[cat]; !ok {
			delete(out.Operators, cat)
			continue
		}
		if op != OperatorAnd && op != OperatorOr {
			out.Operators[cat] = OperatorOr
		}
	}
	for cat := range out.Keywords {
		if _, ok := out.Operators[cat]; !ok {
			out.Operators[cat] = OperatorOr
		}
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

// HasKeywordFilters reports whether at least one category has keywords.
func (s State) HasKeywordFilters() bool {
	for _, set := range s.Keywords {
		if len(set) > 0 {
			return true
		}
	}
	return false
}
