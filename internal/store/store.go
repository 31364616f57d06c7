// Package store persists saved searches ("presets"): a named, serialized
// filter state per user, so a view can be restored later or shared across
// devices.
//
// DynamoStore uses a single-table design. All presets of a user share the
// partition key USER#{userId}; the sort key is PRESET#{name}. Presets do not
// expire. MemoryStore backs local runs and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fpang/photo-curator/internal/filters"
)

// MaxNameLength bounds preset names.
const MaxNameLength = 100

// ErrInvalidName is returned for empty or oversized preset names.
var ErrInvalidName = errors.New("invalid preset name")

// Preset is one saved search.
type Preset struct {
	UserID    string           `json:"-" dynamodbav:"-"`
	Name      string           `json:"name" dynamodbav:"name"`
	View      string           `json:"view,omitempty" dynamodbav:"view,omitempty"`
	Filters   filters.Snapshot `json:"filters" dynamodbav:"filters"`
	CreatedAt int64            `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt int64            `json:"updatedAt" dynamodbav:"updatedAt"`
}

// PresetStore persists presets. Get returns (nil, nil) when the preset does
// not exist. Put replaces the whole record.
type PresetStore interface {
	Put(ctx context.Context, p *Preset) error
	Get(ctx context.Context, userID, name string) (*Preset, error)
	List(ctx context.Context, userID string) ([]Preset, error)
	Delete(ctx context.Context, userID, name string) error
}

// ValidateName normalizes and checks a preset name.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}
