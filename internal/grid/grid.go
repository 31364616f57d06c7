// Package grid renders a page of items as a selectable thumbnail grid.
// Render is a pure function: it reads its inputs, never modifies them, and
// expresses interactivity as callbacks bound per cell, so the produced
// wiring can be asserted directly without a browser.
package grid

import (
	"bytes"
	"html/template"
	"sort"
	"strings"

	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/selection"
)

// DefaultEmptyMessage is shown when no caller message is supplied.
const DefaultEmptyMessage = "No images found."

// Event names carried in the markup's data-on attributes.
const (
	EventDragStart    = "dragstart"
	EventPointerDown  = "pointerdown"
	EventPointerMove  = "pointermove"
	EventPointerEnter = "pointerenter"
	EventClick        = "click"
)

// RenderHooks customize per-item fragments. RatingWidget and RatingBadge are
// mutually exclusive; when both are set the interactive widget wins.
type RenderHooks struct {
	RatingWidget    func(media.Item) template.HTML
	RatingBadge     func(media.Item) template.HTML
	PermatagSummary func(media.Item) template.HTML
	ThumbURL        func(media.Item) string
}

// EventHooks receive interactions. They are typically the selection
// handlers' methods plus the view's drag and click handling.
type EventHooks struct {
	OnDragStart    func(id int64)
	OnPointerDown  func(id int64, p selection.Pointer)
	OnPointerMove  func(p selection.Pointer)
	OnPointerEnter func(id int64)
	OnClick        func(id int64)
}

// Options control layout.
type Options struct {
	EmptyMessage  string
	ThumbSize     int
	ShowDates     bool
	ShowPermatags bool
}

// Cell is one rendered thumbnail and its bound callbacks.
type Cell struct {
	ID        int64
	Index     int
	Filename  string
	ThumbURL  string
	Selected  bool
	Flash     bool
	IsVideo   bool
	Duration  string
	DateBadge string
	Rating    template.HTML
	Tags      template.HTML

	DragStart    func()
	PointerDown  func(selection.Pointer)
	PointerMove  func(selection.Pointer)
	PointerEnter func()
	Click        func()
}

// Events returns the names of the events this cell has handlers for.
func (c Cell) Events() []string {
	var out []string
	if c.DragStart != nil {
		out = append(out, EventDragStart)
	}
	if c.PointerDown != nil {
		out = append(out, EventPointerDown)
	}
	if c.PointerMove != nil {
		out = append(out, EventPointerMove)
	}
	if c.PointerEnter != nil {
		out = append(out, EventPointerEnter)
	}
	if c.Click != nil {
		out = append(out, EventClick)
	}
	return out
}

// Markup is the rendered grid.
type Markup struct {
	HTML         template.HTML
	Cells        []Cell
	Empty        bool
	EmptyMessage string
}

// Cell returns the cell for id.
func (m Markup) Cell(id int64) (Cell, bool) {
	for _, c := range m.Cells {
		if c.ID == id {
			return c, true
		}
	}
	return Cell{}, false
}

// Dispatch routes a browser interaction to the bound callback. It reports
// whether a handler ran.
func (m Markup) Dispatch(id int64, event string, p selection.Pointer) bool {
	c, ok := m.Cell(id)
	if !ok {
		return false
	}
	switch event {
	case EventDragStart:
		if c.DragStart != nil {
			c.DragStart()
			return true
		}
	case EventPointerDown:
		if c.PointerDown != nil {
			c.PointerDown(p)
			return true
		}
	case EventPointerMove:
		if c.PointerMove != nil {
			c.PointerMove(p)
			return true
		}
	case EventPointerEnter:
		if c.PointerEnter != nil {
			c.PointerEnter()
			return true
		}
	case EventClick:
		if c.Click != nil {
			c.Click()
			return true
		}
	}
	return false
}

// Render builds the grid for images. Items without a positive integer id are
// dropped silently; they only appear transiently during optimistic updates.
func Render(images []media.Item, selected []int64, flash map[int64]bool, rh RenderHooks, eh EventHooks, opts Options) Markup {
	if opts.EmptyMessage == "" {
		opts.EmptyMessage = DefaultEmptyMessage
	}
	if opts.ThumbSize <= 0 {
		opts.ThumbSize = 180
	}
	sel := make(map[int64]bool, len(selected))
	for _, id := range selected {
		sel[id] = true
	}

	cells := make([]Cell, 0, len(images))
	for _, it := range images {
		id, ok := it.ID.Int64()
		if !ok {
			continue
		}
		cells = append(cells, buildCell(it, id, len(cells), sel[id], flash[id], rh, eh, opts))
	}

	m := Markup{Cells: cells, Empty: len(cells) == 0, EmptyMessage: opts.EmptyMessage}
	var buf bytes.Buffer
	if err := gridTmpl.Execute(&buf, gridVM{Markup: m, ThumbSize: opts.ThumbSize}); err != nil {
		// The template is static; a failure here is a programming error.
		panic(err)
	}
	m.HTML = template.HTML(buf.String())
	return m
}

func buildCell(it media.Item, id int64, index int, selected, flash bool, rh RenderHooks, eh EventHooks, opts Options) Cell {
	c := Cell{
		ID:       id,
		Index:    index,
		Filename: it.Filename,
		ThumbURL: it.ThumbnailURL,
		Selected: selected,
		Flash:    flash,
		IsVideo:  media.InferMediaType(it) == media.TypeVideo,
	}
	if rh.ThumbURL != nil {
		c.ThumbURL = rh.ThumbURL(it)
	}
	if c.IsVideo && it.DurationMS != nil {
		c.Duration = media.FormatDuration(*it.DurationMS)
	}
	if opts.ShowDates {
		c.DateBadge = media.DateBadge(it)
	}

	switch {
	case rh.RatingWidget != nil:
		c.Rating = rh.RatingWidget(it)
	case rh.RatingBadge != nil:
		c.Rating = rh.RatingBadge(it)
	}

	if opts.ShowPermatags {
		if rh.PermatagSummary != nil {
			c.Tags = rh.PermatagSummary(it)
		} else {
			c.Tags = DefaultPermatagSummary(it)
		}
	}

	if eh.OnDragStart != nil {
		c.DragStart = func() { eh.OnDragStart(id) }
	}
	if eh.OnPointerDown != nil {
		c.PointerDown = func(p selection.Pointer) { eh.OnPointerDown(id, p) }
	}
	if eh.OnPointerMove != nil {
		c.PointerMove = eh.OnPointerMove
	}
	if eh.OnPointerEnter != nil {
		c.PointerEnter = func() { eh.OnPointerEnter(id) }
	}
	if eh.OnClick != nil {
		c.Click = func() { eh.OnClick(id) }
	}
	return c
}

// DefaultPermatagSummary lists active tags as "category: a, b" lines.
func DefaultPermatagSummary(it media.Item) template.HTML {
	summary := media.TagSummary(it.Permatags)
	if len(summary) == 0 {
		return ""
	}
	cats := make([]string, 0, len(summary))
	for cat := range summary {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var b strings.Builder
	for _, cat := range cats {
		b.WriteString(`<span class="tag-line">`)
		b.WriteString(template.HTMLEscapeString(cat))
		b.WriteString(": ")
		b.WriteString(template.HTMLEscapeString(strings.Join(summary[cat], ", ")))
		b.WriteString(`</span>`)
	}
	return template.HTML(b.String())
}
