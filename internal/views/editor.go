package views

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/events"
	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/metadata"
)

// ErrNoItem is returned by editor actions before an item is open.
var ErrNoItem = errors.New("no item open")

// Editor shows one item: its full-resolution bytes, inspected metadata,
// rating and tags. Opening another item cancels the previous full-size
// fetch, and a fetch that completes for an item no longer shown is ignored.
type Editor struct {
	mu      sync.Mutex
	backend Backend
	node    *events.Node

	id       int64
	item     *media.Item
	itemGen  uint64
	fullGen  uint64
	cancel   context.CancelFunc
	full     []byte
	fullType string
	meta     *metadata.Metadata
	loading  bool
	playback string
	errMsg   string
}

// NewEditor creates an editor with nothing open.
func NewEditor(b Backend, opts Options) *Editor {
	return &Editor{
		backend: b,
		node:    events.NewNode("editor", opts.Parent),
	}
}

// Node returns the editor's event node.
func (e *Editor) Node() *events.Node { return e.node }

// Open loads the detail record of id and makes it the current item. A
// pending full-size fetch for the previous item is cancelled.
func (e *Editor) Open(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid item id %d", id)
	}
	e.mu.Lock()
	e.resetLocked()
	e.id = id
	e.itemGen++
	gen := e.itemGen
	e.mu.Unlock()

	it, err := e.backend.GetImage(ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.itemGen {
		return nil
	}
	if err != nil {
		e.errMsg = "Failed to load item."
		return fmt.Errorf("open item %d: %w", id, err)
	}
	e.item = &it
	e.errMsg = ""
	return nil
}

// resetLocked drops everything tied to the current item.
func (e *Editor) resetLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.fullGen++
	e.id = 0
	e.item = nil
	e.full = nil
	e.fullType = ""
	e.meta = nil
	e.loading = false
	e.playback = ""
	e.errMsg = ""
}

// LoadFull starts fetching the current item's full-resolution bytes in the
// background and inspects their metadata. The returned channel is closed
// when the fetch has finished or been discarded.
func (e *Editor) LoadFull(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	e.mu.Lock()
	if e.id == 0 {
		e.mu.Unlock()
		close(done)
		return done
	}
	if e.cancel != nil {
		e.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.fullGen++
	gen, id := e.fullGen, e.id
	e.loading = true
	e.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		data, contentType, err := e.backend.GetFullImage(fctx, id)

		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.fullGen || id != e.id {
			log.Debug().Int64("id", id).Uint64("gen", gen).Msg("Discarding stale full-size image")
			return
		}
		e.loading = false
		e.cancel = nil
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Warn().Err(err).Int64("id", id).Msg("Full-size fetch failed")
			e.errMsg = "Failed to load full-size image."
			return
		}
		e.full, e.fullType = data, contentType
		meta, err := metadata.Inspect(data, contentType)
		if err != nil {
			log.Debug().Err(err).Int64("id", id).Msg("No metadata for item")
			return
		}
		e.meta = meta
	}()
	return done
}

// LoadPlayback resolves a streaming URL for the current item if it is a video.
func (e *Editor) LoadPlayback(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.item == nil {
		e.mu.Unlock()
		return "", ErrNoItem
	}
	if !e.item.IsVideo() {
		e.mu.Unlock()
		return "", nil
	}
	id, gen := e.id, e.itemGen
	e.mu.Unlock()

	url, err := e.backend.GetPlaybackURL(ctx, id)
	if err != nil {
		return "", fmt.Errorf("playback url for %d: %w", id, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.itemGen {
		e.playback = url
	}
	return url, nil
}

// Item returns the current item.
func (e *Editor) Item() (media.Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.item == nil {
		return media.Item{}, false
	}
	return *e.item, true
}

// Full returns the full-resolution bytes and their content type.
func (e *Editor) Full() ([]byte, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.full, e.fullType
}

// Metadata returns the inspected metadata, if any.
func (e *Editor) Metadata() *metadata.Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta
}

// LoadingFull reports whether a full-size fetch is in flight.
func (e *Editor) LoadingFull() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// PlaybackURL returns the resolved playback URL, or "".
func (e *Editor) PlaybackURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playback
}

// Err returns the last failure message.
func (e *Editor) Err() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errMsg
}

// SetRating rates the current item. The change shows immediately and stays
// if the backend rejects it.
func (e *Editor) SetRating(ctx context.Context, rating *int) error {
	if rating != nil && !media.ValidRating(*rating) {
		return fmt.Errorf("rating %d out of range", *rating)
	}
	return e.mutate(
		func(items []media.Item, id int64) []media.Item { return media.PatchRating(items, id, rating) },
		func(id int64) error { return e.backend.SetRating(ctx, id, rating) },
		func(id int64) { e.node.Dispatch(events.ImageRatingUpdated, RatingUpdate{IDs: []int64{id}, Rating: rating}) },
	)
}

// AddTag applies a permatag to the current item.
func (e *Editor) AddTag(ctx context.Context, category, keyword string) error {
	return e.tag(ctx, category, keyword, true)
}

// RemoveTag removes a permatag from the current item.
func (e *Editor) RemoveTag(ctx context.Context, category, keyword string) error {
	return e.tag(ctx, category, keyword, false)
}

func (e *Editor) tag(ctx context.Context, category, keyword string, add bool) error {
	if category == "" || keyword == "" {
		return fmt.Errorf("category and keyword are required")
	}
	return e.mutate(
		func(items []media.Item, id int64) []media.Item {
			if add {
				return media.AddTag(items, []int64{id}, category, keyword)
			}
			return media.RemoveTag(items, []int64{id}, category, keyword)
		},
		func(id int64) error {
			if add {
				return e.backend.AddPermatag(ctx, id, category, keyword)
			}
			return e.backend.RemovePermatag(ctx, id, category, keyword)
		},
		func(id int64) {
			e.node.Dispatch(events.PermatagsChanged, TagUpdate{IDs: []int64{id}, Category: category, Keyword: keyword, Added: add})
		},
	)
}

// mutate applies patch locally and calls the backend. On failure the patch
// stays and the error is shown; reopening the item refetches it.
func (e *Editor) mutate(patch func([]media.Item, int64) []media.Item, call func(int64) error, notify func(int64)) error {
	e.mu.Lock()
	if e.item == nil {
		e.mu.Unlock()
		return ErrNoItem
	}
	id, gen := e.id, e.itemGen
	next := patch([]media.Item{*e.item}, id)[0]
	e.item = &next
	e.mu.Unlock()

	err := call(id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.itemGen {
		return err
	}
	if err != nil {
		e.errMsg = "Update failed."
		return fmt.Errorf("update item %d: %w", id, err)
	}
	notify(id)
	return nil
}

// OpenSimilar asks the session to search for items tagged like the current one.
func (e *Editor) OpenSimilar() (SimilarRequest, error) {
	it, ok := e.Item()
	if !ok {
		return SimilarRequest{}, ErrNoItem
	}
	id, _ := it.ID.Int64()
	req := SimilarRequest{FromID: id, Filters: SimilarFilters(it)}
	e.node.Dispatch(events.OpenSimilarInSearch, req)
	return req, nil
}

// Close cancels any fetch and clears the editor.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.itemGen++
	e.resetLocked()
}
