// Package share exports a list as a downloadable archive: the full-resolution
// bytes of every item are zipped with zstd, uploaded to S3 and handed back as
// a presigned link.
package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/metrics"
	"github.com/fpang/photo-curator/internal/s3util"
)

// DefaultExpiry is how long a share link stays valid.
const DefaultExpiry = 24 * time.Hour

// ErrEmptyList is returned when a list has nothing to export.
var ErrEmptyList = errors.New("list has no exportable items")

// Source is the REST surface the exporter reads from.
type Source interface {
	GetListItems(ctx context.Context, listID string) ([]api.ListItem, error)
	GetImage(ctx context.Context, id int64) (media.Item, error)
	GetFullImage(ctx context.Context, id int64) ([]byte, string, error)
}

// Result describes a completed share.
type Result struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Files     int       `json:"files"`
	Skipped   int       `json:"skipped"`
	Bytes     int64     `json:"bytes"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Exporter builds and publishes share archives.
type Exporter struct {
	src       Source
	putter    s3util.ObjectPutter
	presigner s3util.GetPresigner
	bucket    string
	expiry    time.Duration
	now       func() time.Time
}

// NewExporter creates an Exporter writing to bucket.
func NewExporter(src Source, putter s3util.ObjectPutter, presigner s3util.GetPresigner, bucket string) *Exporter {
	return &Exporter{
		src:       src,
		putter:    putter,
		presigner: presigner,
		bucket:    bucket,
		expiry:    DefaultExpiry,
		now:       time.Now,
	}
}

// ShareList archives listID and returns a presigned download link. Items
// whose content cannot be fetched are skipped and counted.
func (e *Exporter) ShareList(ctx context.Context, listID string) (Result, error) {
	start := time.Now()
	items, err := e.src.GetListItems(ctx, listID)
	if err != nil {
		return Result{}, fmt.Errorf("share list %s: %w", listID, err)
	}

	var entries []Entry
	skipped := 0
	for _, it := range items {
		entry, err := e.fetch(ctx, it)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, fmt.Errorf("share list %s: %w", listID, ctx.Err())
			}
			log.Warn().Err(err).Int64("photoId", it.PhotoID).Str("listId", listID).Msg("Skipping item in share")
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return Result{}, fmt.Errorf("share list %s: %w", listID, ErrEmptyList)
	}

	var buf bytes.Buffer
	if err := WriteArchive(&buf, entries); err != nil {
		return Result{}, fmt.Errorf("share list %s: %w", listID, err)
	}

	key := fmt.Sprintf("shares/%s/%s.zip", sanitizeKey(listID), uuid.NewString())
	if err := s3util.PutBytes(ctx, e.putter, e.bucket, key, "application/zip", buf.Bytes()); err != nil {
		return Result{}, fmt.Errorf("share list %s: %w", listID, err)
	}
	url, err := s3util.GeneratePresignedURL(ctx, e.presigner, e.bucket, key, e.expiry)
	if err != nil {
		return Result{}, fmt.Errorf("share list %s: %w", listID, err)
	}

	res := Result{
		URL:       url,
		Key:       key,
		Files:     len(entries),
		Skipped:   skipped,
		Bytes:     int64(buf.Len()),
		ExpiresAt: e.now().Add(e.expiry),
	}
	metrics.Curator().
		Dimension("Operation", "ShareList").
		Duration("ShareLatencyMs", time.Since(start)).
		Metric("ShareFiles", float64(res.Files), metrics.UnitCount).
		Metric("ShareBytes", float64(res.Bytes), metrics.UnitBytes).
		Flush()
	log.Info().Str("listId", listID).Str("key", key).Int("files", res.Files).Int("skipped", skipped).Msg("List shared")
	return res, nil
}

func (e *Exporter) fetch(ctx context.Context, it api.ListItem) (Entry, error) {
	if it.PhotoID <= 0 {
		return Entry{}, fmt.Errorf("invalid photo id %d", it.PhotoID)
	}
	name := it.Filename
	var modified time.Time
	if name == "" {
		detail, err := e.src.GetImage(ctx, it.PhotoID)
		if err != nil {
			return Entry{}, err
		}
		name = detail.Filename
		if detail.CaptureTimestamp != nil {
			modified = *detail.CaptureTimestamp
		}
	}
	if name == "" {
		name = fmt.Sprintf("%d", it.PhotoID)
	}
	data, _, err := e.src.GetFullImage(ctx, it.PhotoID)
	if err != nil {
		return Entry{}, err
	}
	if modified.IsZero() {
		modified = e.now()
	}
	return Entry{Name: name, Data: data, Modified: modified}, nil
}

func sanitizeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
