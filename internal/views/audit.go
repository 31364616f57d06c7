package views

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/events"
)

// DefaultAuditPageSize is the number of activity events per page.
const DefaultAuditPageSize = 50

// Audit pages through the activity log.
type Audit struct {
	mu      sync.Mutex
	backend Backend
	node    *events.Node

	query   api.ActivityQuery
	page    api.ActivityPage
	gen     uint64
	loading bool
	errMsg  string
}

// NewAudit creates the audit view.
func NewAudit(b Backend, opts Options) *Audit {
	limit := opts.PageSize
	if limit <= 0 {
		limit = DefaultAuditPageSize
	}
	return &Audit{
		backend: b,
		node:    events.NewNode("audit", opts.Parent),
		query:   api.ActivityQuery{Limit: limit},
	}
}

// Node returns the audit view's event node.
func (a *Audit) Node() *events.Node { return a.node }

// Load fetches the page for the current query.
func (a *Audit) Load(ctx context.Context) error {
	a.mu.Lock()
	a.gen++
	gen, q := a.gen, a.query
	a.loading = true
	a.mu.Unlock()

	page, err := a.backend.ListActivity(ctx, q)

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		log.Debug().Uint64("gen", gen).Msg("Discarding stale activity page")
		return nil
	}
	a.loading = false
	if err != nil {
		a.errMsg = "Failed to load activity."
		return fmt.Errorf("load activity: %w", err)
	}
	a.errMsg = ""
	a.page = page
	return nil
}

// Query returns the current query.
func (a *Audit) Query() api.ActivityQuery {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query
}

// Page returns the loaded page.
func (a *Audit) Page() api.ActivityPage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.page
	out.Events = append([]api.ActivityEvent(nil), a.page.Events...)
	return out
}

// Loading reports whether a fetch is in flight.
func (a *Audit) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// Err returns the last failure message.
func (a *Audit) Err() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errMsg
}

// SetActor filters by actor and returns to the first page.
func (a *Audit) SetActor(actor string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.query.Actor = actor
	a.query.Offset = 0
}

// SetAction filters by action and returns to the first page.
func (a *Audit) SetAction(action string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.query.Action = action
	a.query.Offset = 0
}

// NextPage advances one page if there is one.
func (a *Audit) NextPage() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.query.Offset+a.query.Limit >= a.page.Total {
		return false
	}
	a.query.Offset += a.query.Limit
	return true
}

// PrevPage goes back one page if possible.
func (a *Audit) PrevPage() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.query.Offset <= 0 {
		return false
	}
	a.query.Offset = max(a.query.Offset-a.query.Limit, 0)
	return true
}

// Actions returns the distinct actions on the loaded page, sorted, for the
// action filter.
func (a *Audit) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, ev := range a.page.Events {
		if ev.Action != "" && !seen[ev.Action] {
			seen[ev.Action] = true
			out = append(out, ev.Action)
		}
	}
	sort.Strings(out)
	return out
}

// SetOffset jumps to offset n; negative values clamp to 0.
func (a *Audit) SetOffset(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.query.Offset = max(n, 0)
}
