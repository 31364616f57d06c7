// Package media defines the image/video item record returned by the REST
// backend, the signed permatag model, media-type inference, and the pure
// reducers views use to patch their local copy of a result page before the
// next authoritative fetch replaces it.
package media

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Media types.
const (
	TypeImage = "image"
	TypeVideo = "video"
)

// Rating bounds. A nil rating means unrated.
const (
	RatingRejected = 0
	MaxRating      = 3
)

// ItemID is an item identifier exactly as the backend sent it. Malformed
// values (strings, zero, negatives, fractions) are preserved so renderers
// can drop the item instead of failing the whole page.
type ItemID struct {
	n     int64
	valid bool
	raw   json.RawMessage
}

// NewID returns an ItemID for n. Non-positive values are invalid.
func NewID(n int64) ItemID {
	return ItemID{n: n, valid: n > 0, raw: json.RawMessage(strconv.FormatInt(n, 10))}
}

// RawID builds an ItemID from a raw JSON literal such as `"abc"` or `-1`.
func RawID(raw string) ItemID {
	var id ItemID
	_ = id.UnmarshalJSON([]byte(raw))
	return id
}

// Int64 returns the identifier and whether it is a positive, finite integer.
func (id ItemID) Int64() (int64, bool) { return id.n, id.valid }

// Valid reports whether the identifier is a positive, finite integer.
func (id ItemID) Valid() bool { return id.valid }

// String returns the identifier as received.
func (id ItemID) String() string {
	if id.valid {
		return strconv.FormatInt(id.n, 10)
	}
	return string(id.raw)
}

// UnmarshalJSON accepts any JSON value and records whether it is a usable id.
func (id *ItemID) UnmarshalJSON(b []byte) error {
	*id = ItemID{raw: append(json.RawMessage(nil), b...)}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] == '"' || trimmed[0] == 'n' {
		return nil
	}
	f, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f <= 0 || f != math.Trunc(f) || f > 1<<53 {
		return nil
	}
	id.n = int64(f)
	id.valid = true
	return nil
}

// MarshalJSON writes the identifier back in its received form.
func (id ItemID) MarshalJSON() ([]byte, error) {
	if id.valid {
		return []byte(strconv.FormatInt(id.n, 10)), nil
	}
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// Item is one image or video record from the listing endpoint.
type Item struct {
	ID               ItemID     `json:"id"`
	Filename         string     `json:"filename"`
	ThumbnailURL     string     `json:"thumbnail_url,omitempty"`
	MediaType        string     `json:"media_type,omitempty"`
	MIMEType         string     `json:"mime_type,omitempty"`
	DurationMS       *int64     `json:"duration_ms,omitempty"`
	Rating           *int       `json:"rating"`
	Permatags        []Permatag `json:"permatags,omitempty"`
	CaptureTimestamp *time.Time `json:"capture_timestamp,omitempty"`
	ProcessedAt      *time.Time `json:"last_processed,omitempty"`
	VariantCount     int        `json:"variant_count,omitempty"`
	DropboxPath      string     `json:"dropbox_path,omitempty"`
}

// ValidRating reports whether r is inside the fixed rating range.
func ValidRating(r int) bool {
	return r >= RatingRejected && r <= MaxRating
}

// Rated returns the item's rating and whether it has one.
func (it Item) Rated() (int, bool) {
	if it.Rating == nil {
		return 0, false
	}
	return *it.Rating, true
}

// IsVideo reports whether the item's inferred media type is video.
func (it Item) IsVideo() bool { return InferMediaType(it) == TypeVideo }

// Order returns the valid identifiers of items in display order.
func Order(items []Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		if n, ok := it.ID.Int64(); ok {
			out = append(out, n)
		}
	}
	return out
}

// IntPtr is a convenience for building optional ratings.
func IntPtr(v int) *int { return &v }

// Page is one page of listing results.
type Page struct {
	Items []Item `json:"images"`
	Total int    `json:"total"`
}
