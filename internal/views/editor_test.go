package views

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/fpang/photo-curator/internal/events"
	"github.com/fpang/photo-curator/internal/media"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestEditorOpenAndLoadFull(t *testing.T) {
	b := newFakeBackend()
	b.items[7] = item(7, media.IntPtr(1))
	b.full[7] = pngBytes(t, 4, 3)
	e := NewEditor(b, Options{})
	ctx := context.Background()

	if err := e.Open(ctx, 7); err != nil {
		t.Fatal(err)
	}
	it, ok := e.Item()
	if !ok || it.Filename != "img7.jpg" {
		t.Fatalf("item = %+v ok=%v", it, ok)
	}

	<-e.LoadFull(ctx)
	data, ct := e.Full()
	if len(data) == 0 || ct != "image/png" {
		t.Errorf("full = %d bytes %q", len(data), ct)
	}
	meta := e.Metadata()
	if meta == nil || meta.Width != 4 || meta.Height != 3 {
		t.Errorf("metadata = %+v", meta)
	}
	if e.LoadingFull() {
		t.Error("still loading")
	}
}

func TestEditorOpenMissingItem(t *testing.T) {
	e := NewEditor(newFakeBackend(), Options{})
	if err := e.Open(context.Background(), 9); err == nil {
		t.Fatal("expected error")
	}
	if e.Err() == "" {
		t.Error("error message not set")
	}
	if err := e.Open(context.Background(), 0); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestEditorDiscardsFullImageOfPreviousItem(t *testing.T) {
	b := newFakeBackend()
	b.items[1] = item(1, nil)
	b.items[2] = item(2, nil)
	b.full[1] = pngBytes(t, 2, 2)
	gate := make(chan struct{})
	b.fullGate = gate
	e := NewEditor(b, Options{})
	ctx := context.Background()

	if err := e.Open(ctx, 1); err != nil {
		t.Fatal(err)
	}
	done := e.LoadFull(ctx)

	// Switching items cancels the in-flight fetch.
	if err := e.Open(ctx, 2); err != nil {
		t.Fatal(err)
	}
	<-done
	close(gate)

	if data, _ := e.Full(); data != nil {
		t.Error("full image of previous item applied")
	}
	if e.Metadata() != nil {
		t.Error("metadata of previous item applied")
	}
	if it, _ := e.Item(); it.Filename != "img2.jpg" {
		t.Errorf("item = %+v", it)
	}
}

func TestEditorLoadFullWithoutItem(t *testing.T) {
	e := NewEditor(newFakeBackend(), Options{})
	select {
	case <-e.LoadFull(context.Background()):
	default:
		t.Fatal("channel should be closed")
	}
}

func TestEditorLoadFullFailure(t *testing.T) {
	b := newFakeBackend()
	b.items[3] = item(3, nil)
	e := NewEditor(b, Options{})
	ctx := context.Background()
	if err := e.Open(ctx, 3); err != nil {
		t.Fatal(err)
	}
	<-e.LoadFull(ctx)
	if e.Err() == "" {
		t.Error("failure not reported")
	}
}

func TestEditorSetRatingKeepsPatchOnFailure(t *testing.T) {
	b := newFakeBackend()
	b.items[5] = item(5, media.IntPtr(1))
	root := events.NewNode("session", nil)
	e := NewEditor(b, Options{Parent: root})
	ctx := context.Background()
	if err := e.Open(ctx, 5); err != nil {
		t.Fatal(err)
	}

	var updates int
	root.Listen(events.ImageRatingUpdated, func(*events.Event) { updates++ })

	if err := e.SetRating(ctx, media.IntPtr(3)); err != nil {
		t.Fatal(err)
	}
	if it, _ := e.Item(); *it.Rating != 3 {
		t.Errorf("rating = %v", it.Rating)
	}

	b.failRating[5] = true
	if err := e.SetRating(ctx, media.IntPtr(0)); err == nil {
		t.Fatal("expected error")
	}
	if it, _ := e.Item(); *it.Rating != 0 {
		t.Errorf("rating after failure = %v, want the optimistic 0", *it.Rating)
	}
	if e.Err() == "" {
		t.Error("failure not reported")
	}
	if updates != 1 {
		t.Errorf("rating events = %d", updates)
	}
}

func TestEditorTags(t *testing.T) {
	b := newFakeBackend()
	b.items[5] = item(5, nil)
	e := NewEditor(b, Options{})
	ctx := context.Background()

	if err := e.AddTag(ctx, "people", "alice"); !errors.Is(err, ErrNoItem) {
		t.Fatalf("err = %v", err)
	}
	if err := e.Open(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if err := e.AddTag(ctx, "people", "alice"); err != nil {
		t.Fatal(err)
	}
	if it, _ := e.Item(); !media.HasActiveTag(it.Permatags, "people", "alice") {
		t.Error("tag not applied")
	}
	if err := e.RemoveTag(ctx, "people", "alice"); err != nil {
		t.Fatal(err)
	}
	if it, _ := e.Item(); media.HasActiveTag(it.Permatags, "people", "alice") {
		t.Error("tag not removed")
	}
}

func TestEditorOpenSimilar(t *testing.T) {
	b := newFakeBackend()
	b.items[5] = item(5, nil, tag("places", "beach"))
	root := events.NewNode("session", nil)
	e := NewEditor(b, Options{Parent: root})

	var req SimilarRequest
	root.Listen(events.OpenSimilarInSearch, func(ev *events.Event) { req = ev.Detail.(SimilarRequest) })

	if _, err := e.OpenSimilar(); !errors.Is(err, ErrNoItem) {
		t.Fatalf("err = %v", err)
	}
	if err := e.Open(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if _, err := e.OpenSimilar(); err != nil {
		t.Fatal(err)
	}
	if req.FromID != 5 || !req.Filters.Keywords["places"].Has("beach") {
		t.Errorf("request = %+v", req)
	}
}

func TestEditorPlayback(t *testing.T) {
	b := newFakeBackend()
	v := item(8, nil)
	v.MediaType = media.TypeVideo
	b.items[8] = v
	b.items[9] = item(9, nil)
	e := NewEditor(b, Options{})
	ctx := context.Background()

	if err := e.Open(ctx, 8); err != nil {
		t.Fatal(err)
	}
	url, err := e.LoadPlayback(ctx)
	if err != nil || url == "" || e.PlaybackURL() != url {
		t.Errorf("url = %q err = %v", url, err)
	}

	if err := e.Open(ctx, 9); err != nil {
		t.Fatal(err)
	}
	if e.PlaybackURL() != "" {
		t.Error("playback url kept across items")
	}
	if url, _ := e.LoadPlayback(ctx); url != "" {
		t.Errorf("image got playback url %q", url)
	}
}

func TestEditorClose(t *testing.T) {
	b := newFakeBackend()
	b.items[5] = item(5, nil)
	e := NewEditor(b, Options{})
	if err := e.Open(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	e.Close()
	if _, ok := e.Item(); ok {
		t.Error("item kept after close")
	}
}
