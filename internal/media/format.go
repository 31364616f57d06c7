package media

import (
	"fmt"
	"time"
)

// FormatDuration renders a video duration as m:ss, or h:mm:ss past an hour.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// DateBadge returns the short date shown on a thumbnail: capture time when
// known, otherwise the processing time, otherwise empty.
func DateBadge(it Item) string {
	var t *time.Time
	switch {
	case it.CaptureTimestamp != nil && !it.CaptureTimestamp.IsZero():
		t = it.CaptureTimestamp
	case it.ProcessedAt != nil && !it.ProcessedAt.IsZero():
		t = it.ProcessedAt
	default:
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// RatingLabel describes a rating for badges and screen readers.
func RatingLabel(rating *int) string {
	if rating == nil {
		return "Unrated"
	}
	if *rating == RatingRejected {
		return "Rejected"
	}
	return fmt.Sprintf("%d★", *rating)
}
