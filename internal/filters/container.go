package filters

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/fpang/photo-curator/internal/events"
	"github.com/fpang/photo-curator/internal/media"
	"github.com/rs/zerolog/log"
)

// ImageLister is the listing collaborator the container fetches through.
type ImageLister interface {
	ListImages(ctx context.Context, tenant string, params url.Values) (media.Page, error)
}

// Loaded is the detail of an images-loaded event.
type Loaded struct {
	Images []media.Item
	Total  int
}

// Container owns the filter state of one results view.
// It is safe for concurrent use.
type Container struct {
	mu      sync.Mutex
	tenant  string
	lister  ImageLister
	state   State
	emitter events.Emitter
}

// NewContainer creates a container for tenant with the default state.
func NewContainer(tenant string, lister ImageLister) *Container {
	return &Container{
		tenant: tenant,
		lister: lister,
		state:  DefaultState(),
	}
}

// Tenant returns the tenant the container queries.
func (c *Container) Tenant() string { return c.tenant }

// State returns a deep copy of the current state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// On subscribes fn to one of the container's events: filters-changed,
// images-loaded, or error.
func (c *Container) On(name events.Name, fn events.Listener) (events.Subscription, error) {
	switch name {
	case events.FiltersChanged, events.ImagesLoaded, events.Error:
		return c.emitter.On(name, fn), nil
	default:
		return events.Subscription{}, fmt.Errorf("filters: unsupported event %q", name)
	}
}

// Off removes a subscription returned by On.
func (c *Container) Off(sub events.Subscription) {
	c.emitter.Off(sub)
}

func (c *Container) emit(name events.Name, detail any) {
	c.emitter.Emit(&events.Event{Name: name, Detail: detail, Target: "filters"})
}

// commit stores next (normalized) and announces the change.
func (c *Container) commit(next State) {
	next = next.normalize()
	c.mu.Lock()
	c.state = next
	c.mu.Unlock()
	c.emit(events.FiltersChanged, next.Clone())
}

func (c *Container) mutate(fn func(*State)) {
	c.mu.Lock()
	next := c.state.Clone()
	c.mu.Unlock()
	fn(&next)
	c.commit(next)
}

// UpdateFilters replaces the whole state with next. Keys absent from next are
// dropped rather than merged, so removing a filter chip can never leave a
// stale filter behind.
func (c *Container) UpdateFilters(next State) {
	c.commit(next.Clone())
}

// UpdateFilter sets a single field, addressed by its request parameter name.
// An empty string or nil value clears the field.
func (c *Container) UpdateFilter(key string, value any) error {
	c.mu.Lock()
	next := c.state.Clone()
	c.mu.Unlock()

	if err := setField(&next, key, value); err != nil {
		return err
	}
	c.commit(next)
	return nil
}

// ResetPagination moves back to the first page.
func (c *Container) ResetPagination() {
	c.mutate(func(s *State) { s.Offset = 0 })
}

// SetOffset jumps to offset n (negative values clamp to 0).
func (c *Container) SetOffset(n int) {
	c.mutate(func(s *State) {
		if n < 0 {
			n = 0
		}
		s.Offset = n
	})
}

// SetLimit changes the page size and returns to the first page, so a larger
// page can never leave the view past the end of the results.
func (c *Container) SetLimit(n int) {
	c.mutate(func(s *State) {
		s.Limit = n
		s.Offset = 0
	})
}

// AddKeyword adds keyword to category.
func (c *Container) AddKeyword(category, keyword string) {
	c.mutate(func(s *State) {
		set, ok := s.Keywords[category]
		if !ok {
			set = KeywordSet{}
			s.Keywords[category] = set
		}
		set[keyword] = struct{}{}
		s.Offset = 0
	})
}

// RemoveKeyword removes keyword from category; an emptied category is pruned.
func (c *Container) RemoveKeyword(category, keyword string) {
	c.mutate(func(s *State) {
		delete(s.Keywords[category], keyword)
		s.Offset = 0
	})
}

// SetOperator sets how keywords within category combine.
func (c *Container) SetOperator(category, op string) {
	c.mutate(func(s *State) { s.Operators[category] = strings.ToUpper(op) })
}

// BuildRequestParams returns the request parameters for the current state.
func (c *Container) BuildRequestParams() url.Values {
	return BuildRequestParams(c.State())
}

// FetchImages lists images for the current state. On success it emits
// images-loaded; on failure it emits error and returns the error to the caller.
func (c *Container) FetchImages(ctx context.Context) (media.Page, error) {
	params := c.BuildRequestParams()
	page, err := c.lister.ListImages(ctx, c.tenant, params)
	if err != nil {
		log.Warn().Err(err).Str("tenant", c.tenant).Str("params", params.Encode()).Msg("Image fetch failed")
		c.emit(events.Error, err)
		return media.Page{}, err
	}
	log.Debug().Str("tenant", c.tenant).Int("count", len(page.Items)).Int("total", page.Total).Msg("Images loaded")
	c.emit(events.ImagesLoaded, Loaded{Images: page.Items, Total: page.Total})
	return page, nil
}

func setField(s *State, key string, value any) error {
	str := func() (string, error) {
		switch v := value.(type) {
		case nil:
			return "", nil
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		default:
			return "", fmt.Errorf("filters: %s expects a string, got %T", key, value)
		}
	}
	integer := func() (int, bool, error) {
		switch v := value.(type) {
		case nil:
			return 0, false, nil
		case int:
			return v, true, nil
		case int64:
			return int(v), true, nil
		case float64:
			return int(v), true, nil
		case *int:
			if v == nil {
				return 0, false, nil
			}
			return *v, true, nil
		case string:
			if v == "" {
				return 0, false, nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return 0, false, fmt.Errorf("filters: %s expects a number: %w", key, err)
			}
			return n, true, nil
		default:
			return 0, false, fmt.Errorf("filters: %s expects a number, got %T", key, value)
		}
	}
	boolean := func() (bool, error) {
		switch v := value.(type) {
		case nil:
			return false, nil
		case bool:
			return v, nil
		case string:
			if v == "" {
				return false, nil
			}
			return strconv.ParseBool(v)
		default:
			return false, fmt.Errorf("filters: %s expects a boolean, got %T", key, value)
		}
	}

	var err error
	switch key {
	case ParamLimit:
		var n int
		n, _, err = integer()
		s.Limit = n
	case ParamOffset:
		var n int
		n, _, err = integer()
		s.Offset = n
	case ParamSortOrder:
		s.SortOrder, err = str()
	case ParamOrderBy:
		s.OrderBy, err = str()
	case ParamHideZeroRating:
		s.HideZeroRating, err = boolean()
	case ParamCategoryFilterOperator:
		s.CategoryFilterOperator, err = str()
	case ParamRating:
		var n int
		var ok bool
		n, ok, err = integer()
		if err == nil {
			if !ok {
				s.Rating = nil
			} else if !media.ValidRating(n) {
				err = fmt.Errorf("filters: rating %d out of range", n)
			} else {
				s.Rating = &n
			}
		}
	case ParamRatingOperator:
		s.RatingOperator, err = str()
	case ParamDropboxPathPrefix:
		s.DropboxPathPrefix, err = str()
	case ParamFilenameQuery:
		s.FilenameQuery, err = str()
	case ParamPermatagPositiveMissing:
		s.PermatagPositiveMissing, err = boolean()
	case ParamListID:
		s.ListID, err = str()
	case ParamListExcludeID:
		s.ListExcludeID, err = str()
	case ParamCategoryFilters:
		switch v := value.(type) {
		case nil:
			s.Keywords = map[string]KeywordSet{}
		case map[string]KeywordSet:
			s.Keywords = v
		case map[string][]string:
			s.Keywords = make(map[string]KeywordSet, len(v))
			for cat, kws := range v {
				s.Keywords[cat] = NewKeywordSet(kws...)
			}
		default:
			err = fmt.Errorf("filters: %s expects a category map, got %T", key, value)
		}
	default:
		err = fmt.Errorf("filters: unknown filter %q", key)
	}
	return err
}
