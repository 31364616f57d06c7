package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process PresetStore.
type MemoryStore struct {
	mu      sync.RWMutex
	presets map[string]map[string]Preset
	now     func() time.Time
}

var _ PresetStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{presets: make(map[string]map[string]Preset), now: time.Now}
}

func (m *MemoryStore) Put(_ context.Context, p *Preset) error {
	name, err := ValidateName(p.Name)
	if err != nil {
		return err
	}
	if p.UserID == "" {
		return fmt.Errorf("put preset %q: user id is required", name)
	}
	p.Name = name
	now := m.now().Unix()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.presets[p.UserID] == nil {
		m.presets[p.UserID] = make(map[string]Preset)
	}
	m.presets[p.UserID][name] = *p
	return nil
}

func (m *MemoryStore) Get(_ context.Context, userID, name string) (*Preset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presets[userID][name]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) List(_ context.Context, userID string) ([]Preset, error) {
	m.mu.RLock()
	out := make([]Preset, 0, len(m.presets[userID]))
	for _, p := range m.presets[userID] {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sortPresets(out)
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presets[userID], name)
	return nil
}
