package world

import (
	"fmt"
	"sort"
	"sync"
)

// Manager provides thread-safe access to the loaded battle maps, indexed by map ID.
type Manager struct {
	mu   sync.RWMutex
	maps map[string]*Map
}

// NewManager creates a Manager from the given maps.
//
// Postcondition: Returns a Manager with every map indexed by ID, or an error on duplicate map IDs.
func NewManager(maps []*Map) (*Manager, error) {
	m := &Manager{maps: make(map[string]*Map, len(maps))}
	for _, bm := range maps {
		if _, exists := m.maps[bm.ID]; exists {
			return nil, fmt.Errorf("duplicate map ID: %q", bm.ID)
		}
		m.maps[bm.ID] = bm
	}
	return m, nil
}

// NewManagerFromDir loads every map under dir into a Manager.
//
// Precondition: dir must contain at least one map YAML file.
// Postcondition: Returns a Manager or the first load error.
func NewManagerFromDir(dir string) (*Manager, error) {
	loaded, err := LoadMapsFromDir(dir)
	if err != nil {
		return nil, err
	}
	return &Manager{maps: loaded}, nil
}

// GetMap returns the map with the given ID.
//
// Postcondition: Returns (map, true) if found, or (nil, false) otherwise.
func (m *Manager) GetMap(id string) (*Map, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bm, ok := m.maps[id]
	return bm, ok
}

// MapCount returns the number of loaded maps.
func (m *Manager) MapCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.maps)
}

// MapIDs returns every loaded map ID in ascending order.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (m *Manager) MapIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.maps))
	for id := range m.maps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
