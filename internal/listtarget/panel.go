// Package listtarget is the list-target panel: drop zones that add dragged
// items to a chosen list, show what a list contains, and create lists inline.
package listtarget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/debounce"
	"github.com/fpang/photo-curator/internal/events"
)

// Target modes.
const (
	ModeAdd  = "add"
	ModeView = "view"
)

// Status messages shown on a target.
const (
	StatusSelectList = "Select a list first."
	StatusNeedTitle  = "Enter a list title."
)

// DefaultRefreshInterval is the minimum time between item refetches of one
// target.
const DefaultRefreshInterval = 5 * time.Second

const placeholderPrefix = "pending-"

// ListClient is the subset of the REST client the panel needs.
type ListClient interface {
	ListLists(ctx context.Context) ([]api.List, error)
	CreateList(ctx context.Context, title string) (api.List, error)
	GetListItems(ctx context.Context, listID string) ([]api.ListItem, error)
	AddToList(ctx context.Context, listID string, photoID int64) (api.ListItem, error)
}

// Target is one drop zone.
type Target struct {
	ID         string
	ListID     string
	Mode       string
	AddedCount int
	Items      []api.ListItem
	IsCreating bool
	DraftTitle string
	Status     string
}

// IsPlaceholder reports whether a row was added optimistically and has not
// been confirmed by the backend yet.
func IsPlaceholder(it api.ListItem) bool {
	return strings.HasPrefix(it.ID, placeholderPrefix)
}

// DropResult summarizes one drop.
type DropResult struct {
	Added  int
	Failed int
}

// ItemAdded is the detail of a list-item-added event.
type ItemAdded struct {
	TargetID string
	ListID   string
	PhotoIDs []int64
}

// Panel owns the targets of one view. It is not safe for concurrent use;
// the owning view serializes access.
type Panel struct {
	client   ListClient
	node     *events.Node
	clock    debounce.Clock
	interval time.Duration

	lists     []api.List
	targets   []*Target
	throttles map[string]*debounce.MinInterval
}

// Options configure a Panel.
type Options struct {
	// Parent receives list-item-added events bubbled from the panel.
	Parent          *events.Node
	RefreshInterval time.Duration
	Clock           debounce.Clock
}

// NewPanel creates a panel with a single empty target.
func NewPanel(client ListClient, opts Options) *Panel {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	p := &Panel{
		client:    client,
		node:      events.NewNode("list-targets", opts.Parent),
		clock:     opts.Clock,
		interval:  opts.RefreshInterval,
		throttles: make(map[string]*debounce.MinInterval),
	}
	p.AddTarget()
	return p
}

// Node returns the panel's event node.
func (p *Panel) Node() *events.Node { return p.node }

// Lists returns the lists loaded by LoadLists.
func (p *Panel) Lists() []api.List { return append([]api.List(nil), p.lists...) }

// Targets returns copies of the current targets.
func (p *Panel) Targets() []Target {
	out := make([]Target, 0, len(p.targets))
	for _, t := range p.targets {
		c := *t
		c.Items = append([]api.ListItem(nil), t.Items...)
		out = append(out, c)
	}
	return out
}

// Target returns a copy of one target.
func (p *Panel) Target(id string) (Target, bool) {
	t := p.find(id)
	if t == nil {
		return Target{}, false
	}
	c := *t
	c.Items = append([]api.ListItem(nil), t.Items...)
	return c, true
}

// AddTarget appends an empty target in add mode and returns its id.
func (p *Panel) AddTarget() string {
	t := &Target{ID: uuid.NewString(), Mode: ModeAdd}
	p.targets = append(p.targets, t)
	p.throttles[t.ID] = debounce.NewMinInterval(p.interval, p.clock)
	return t.ID
}

// RemoveTarget drops a target. The last target is kept.
func (p *Panel) RemoveTarget(id string) bool {
	if len(p.targets) <= 1 {
		return false
	}
	for i, t := range p.targets {
		if t.ID == id {
			p.targets = append(p.targets[:i:i], p.targets[i+1:]...)
			delete(p.throttles, id)
			return true
		}
	}
	return false
}

// LoadLists fetches the lists offered in each target's picker.
func (p *Panel) LoadLists(ctx context.Context) error {
	lists, err := p.client.ListLists(ctx)
	if err != nil {
		return fmt.Errorf("load lists: %w", err)
	}
	p.lists = lists
	return nil
}

// SelectList points a target at a list and loads its items.
func (p *Panel) SelectList(ctx context.Context, targetID, listID string) error {
	t := p.find(targetID)
	if t == nil {
		return fmt.Errorf("unknown target %q", targetID)
	}
	t.ListID = listID
	t.AddedCount = 0
	t.Items = nil
	t.Status = ""
	if listID == "" {
		return nil
	}
	p.throttles[t.ID].Reset()
	_, err := p.Refresh(ctx, targetID)
	return err
}

// SetMode switches a target between add and view.
func (p *Panel) SetMode(targetID, mode string) error {
	if mode != ModeAdd && mode != ModeView {
		return fmt.Errorf("unknown mode %q", mode)
	}
	t := p.find(targetID)
	if t == nil {
		return fmt.Errorf("unknown target %q", targetID)
	}
	t.Mode = mode
	return nil
}

// BeginCreate opens the inline create form on a target.
func (p *Panel) BeginCreate(targetID string) error {
	t := p.find(targetID)
	if t == nil {
		return fmt.Errorf("unknown target %q", targetID)
	}
	t.IsCreating = true
	t.DraftTitle = ""
	t.Status = ""
	return nil
}

// SetDraftTitle updates the title typed into the create form.
func (p *Panel) SetDraftTitle(targetID, title string) error {
	t := p.find(targetID)
	if t == nil {
		return fmt.Errorf("unknown target %q", targetID)
	}
	t.DraftTitle = title
	return nil
}

// CancelCreate closes the create form without creating anything.
func (p *Panel) CancelCreate(targetID string) {
	if t := p.find(targetID); t != nil {
		t.IsCreating = false
		t.DraftTitle = ""
	}
}

// CommitCreate creates a list from the draft title and selects it.
func (p *Panel) CommitCreate(ctx context.Context, targetID string) (api.List, error) {
	t := p.find(targetID)
	if t == nil {
		return api.List{}, fmt.Errorf("unknown target %q", targetID)
	}
	title := strings.TrimSpace(t.DraftTitle)
	if title == "" {
		t.Status = StatusNeedTitle
		return api.List{}, fmt.Errorf("create list: title is required")
	}

	list, err := p.client.CreateList(ctx, title)
	if err != nil {
		t.Status = "Could not create list."
		return api.List{}, fmt.Errorf("create list: %w", err)
	}
	p.lists = append(p.lists, list)
	t.IsCreating = false
	t.DraftTitle = ""
	t.ListID = list.ID
	t.AddedCount = 0
	t.Items = nil
	t.Status = fmt.Sprintf("Created %q.", list.Title)
	log.Info().Str("listId", list.ID).Str("title", list.Title).Msg("List created")
	return list, nil
}

// Drop adds ids to the target's list, one backend call per id. Rows and the
// added count update optimistically and stay in place when a call fails;
// failures are logged and counted, and the next Refresh reconciles the rows.
// Without a selected list nothing is sent.
func (p *Panel) Drop(ctx context.Context, targetID string, ids []int64) (DropResult, error) {
	t := p.find(targetID)
	if t == nil {
		return DropResult{}, fmt.Errorf("unknown target %q", targetID)
	}
	if t.ListID == "" {
		t.Status = StatusSelectList
		return DropResult{}, nil
	}
	if len(ids) == 0 {
		return DropResult{}, nil
	}

	listID := t.ListID
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = placeholderPrefix + uuid.NewString()
		t.Items = append(t.Items, api.ListItem{ID: placeholders[i], PhotoID: id})
	}
	t.AddedCount += len(ids)

	var res DropResult
	var added []int64
	for i, id := range ids {
		item, err := p.client.AddToList(ctx, listID, id)
		if err != nil {
			log.Warn().Err(err).Int64("photoId", id).Str("listId", listID).Msg("Add to list failed")
			res.Failed++
			continue
		}
		if item.PhotoID == 0 {
			item.PhotoID = id
		}
		t.Items = replaceRow(t.Items, placeholders[i], item)
		res.Added++
		added = append(added, id)
	}

	switch {
	case res.Failed == 0:
		t.Status = fmt.Sprintf("Added %d.", res.Added)
	default:
		t.Status = fmt.Sprintf("Added %d, %d failed.", res.Added, res.Failed)
	}
	log.Debug().Str("listId", listID).Int("added", res.Added).Int("failed", res.Failed).Msg("Drop on list target")

	if len(added) > 0 {
		p.node.Dispatch(events.ListItemAdded, ItemAdded{TargetID: t.ID, ListID: listID, PhotoIDs: added})
	}
	return res, nil
}

// Refresh reloads a target's items unless it was refreshed within the
// minimum interval. It reports whether a fetch happened.
func (p *Panel) Refresh(ctx context.Context, targetID string) (bool, error) {
	t := p.find(targetID)
	if t == nil {
		return false, fmt.Errorf("unknown target %q", targetID)
	}
	if t.ListID == "" || !p.throttles[t.ID].Allow() {
		return false, nil
	}
	listID := t.ListID
	items, err := p.client.GetListItems(ctx, listID)
	if err != nil {
		return true, fmt.Errorf("refresh list %s: %w", listID, err)
	}
	// The target may have been repointed while the fetch ran.
	if t.ListID != listID {
		return true, nil
	}
	t.Items = items
	return true, nil
}

func (p *Panel) find(id string) *Target {
	for _, t := range p.targets {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func replaceRow(rows []api.ListItem, id string, with api.ListItem) []api.ListItem {
	out := make([]api.ListItem, len(rows))
	copy(out, rows)
	for i, r := range out {
		if r.ID == id {
			out[i] = with
		}
	}
	return out
}
