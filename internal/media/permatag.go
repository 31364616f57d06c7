package media

// Permatag signums.
const (
	SignumActive  = 1
	SignumRemoved = -1
)

// Permatag is one signed tag event on an item. The tag's current state is the
// most recent signum for its (category, keyword) pair.
type Permatag struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
	Signum   int    `json:"signum"`
}

type tagKey struct {
	category string
	keyword  string
}

// ActiveTags reduces the signed log to the tags currently applied, in order of
// first appearance. Later entries win over earlier ones for the same pair.
func ActiveTags(tags []Permatag) []Permatag {
	latest := make(map[tagKey]int, len(tags))
	var order []tagKey
	for _, t := range tags {
		k := tagKey{t.Category, t.Keyword}
		if _, seen := latest[k]; !seen {
			order = append(order, k)
		}
		latest[k] = t.Signum
	}

	out := make([]Permatag, 0, len(order))
	for _, k := range order {
		if latest[k] == SignumActive {
			out = append(out, Permatag{Keyword: k.keyword, Category: k.category, Signum: SignumActive})
		}
	}
	return out
}

// HasActiveTag reports whether (category, keyword) is currently applied.
func HasActiveTag(tags []Permatag, category, keyword string) bool {
	state := 0
	for _, t := range tags {
		if t.Category == category && t.Keyword == keyword {
			state = t.Signum
		}
	}
	return state == SignumActive
}

// TagSummary groups active keywords by category.
func TagSummary(tags []Permatag) map[string][]string {
	out := make(map[string][]string)
	for _, t := range ActiveTags(tags) {
		out[t.Category] = append(out[t.Category], t.Keyword)
	}
	return out
}
