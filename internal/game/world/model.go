// Package world provides the battle map: hex cells, terrain, passability,
// fog of war, YAML loading, and the breadth-first router units move with.
package world

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/hexwar/internal/game/hex"
)

// Terrain classifies a cell.
type Terrain string

// Known terrain kinds.
const (
	Plains   Terrain = "plains"
	Forest   Terrain = "forest"
	Hills    Terrain = "hills"
	Water    Terrain = "water"
	Mountain Terrain = "mountain"
)

// KnownTerrains lists every terrain accepted by map files.
var KnownTerrains = []Terrain{Plains, Forest, Hills, Water, Mountain}

// IsKnown reports whether t is one of KnownTerrains.
func (t Terrain) IsKnown() bool {
	for _, k := range KnownTerrains {
		if t == k {
			return true
		}
	}
	return false
}

// Passable reports whether ground units may stand on t.
func (t Terrain) Passable() bool {
	switch t {
	case Water, Mountain:
		return false
	default:
		return t.IsKnown()
	}
}

// Cell is one hex of the map.
type Cell struct {
	Coord   hex.Coord
	Terrain Terrain
	// Revealed is false while the cell is still under fog.
	Revealed bool
}

// Map is the battle map. Cells absent from the map are impassable.
// All methods are safe for concurrent use.
type Map struct {
	ID   string
	Name string

	mu    sync.RWMutex
	cells map[string]*Cell
	order []hex.Coord
}

// NewMap builds a Map from cells.
//
// Precondition: id must be non-empty.
// Postcondition: Returns a Map indexing every cell by key, or an error on a
// duplicate coordinate or unknown terrain.
func NewMap(id, name string, cells []*Cell) (*Map, error) {
	m := &Map{
		ID:    id,
		Name:  name,
		cells: make(map[string]*Cell, len(cells)),
	}
	for _, c := range cells {
		key := c.Coord.Key()
		if _, dup := m.cells[key]; dup {
			return nil, fmt.Errorf("map %q: duplicate cell %s", id, c.Coord)
		}
		if !c.Terrain.IsKnown() {
			return nil, fmt.Errorf("map %q: cell %s has unknown terrain %q", id, c.Coord, c.Terrain)
		}
		m.cells[key] = c
		m.order = append(m.order, c.Coord)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewHexagon returns a hexagon-shaped map of the given radius around the
// origin with uniform terrain.
//
// Precondition: radius >= 0; terrain must be known.
// Postcondition: CellCount() == 3*radius*(radius+1)+1.
func NewHexagon(id string, radius int, terrain Terrain, revealed bool) *Map {
	coords := hex.Ring(hex.Coord{}, radius)
	cells := make([]*Cell, 0, len(coords))
	for _, c := range coords {
		cells = append(cells, &Cell{Coord: c, Terrain: terrain, Revealed: revealed})
	}
	m, err := NewMap(id, id, cells)
	if err != nil {
		panic("world.NewHexagon: " + err.Error())
	}
	return m
}

// Validate checks map invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (m *Map) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("map ID must not be empty")
	}
	if len(m.cells) == 0 {
		return fmt.Errorf("map %q: must contain at least one cell", m.ID)
	}
	return nil
}

// Cell returns the cell at c.
//
// Postcondition: Returns (cell, true) if found, or (nil, false) otherwise.
func (m *Map) Cell(c hex.Coord) (*Cell, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cell, ok := m.cells[c.Key()]
	return cell, ok
}

// Passable reports whether c exists and its terrain can be stood on.
func (m *Map) Passable(c hex.Coord) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cell, ok := m.cells[c.Key()]
	return ok && cell.Terrain.Passable()
}

// Neighbors returns the passable cells adjacent to c in fixed direction order.
func (m *Map) Neighbors(c hex.Coord) []hex.Coord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]hex.Coord, 0, 6)
	for _, n := range c.Neighbors() {
		if cell, ok := m.cells[n.Key()]; ok && cell.Terrain.Passable() {
			out = append(out, n)
		}
	}
	return out
}

// Revealed reports whether c exists and is no longer under fog.
func (m *Map) Revealed(c hex.Coord) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cell, ok := m.cells[c.Key()]
	return ok && cell.Revealed
}

// Reveal lifts the fog from every cell within radius of center.
//
// Postcondition: Returns the number of cells that were newly revealed.
func (m *Map) Reveal(center hex.Coord, radius int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range hex.Ring(center, radius) {
		if cell, ok := m.cells[c.Key()]; ok && !cell.Revealed {
			cell.Revealed = true
			n++
		}
	}
	return n
}

// SetTerrain replaces the terrain at c.
//
// Postcondition: Returns an error when c is not on the map or t is unknown.
func (m *Map) SetTerrain(c hex.Coord, t Terrain) error {
	if !t.IsKnown() {
		return fmt.Errorf("unknown terrain %q", t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cell, ok := m.cells[c.Key()]
	if !ok {
		return fmt.Errorf("map %q: no cell at %s", m.ID, c)
	}
	cell.Terrain = t
	return nil
}

// NearestFogged returns the unrevealed passable cell closest to from, ties
// broken by map declaration order.
//
// Postcondition: Returns (coord, true) when any fogged passable cell exists.
func (m *Map) NearestFogged(from hex.Coord) (hex.Coord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	best, bestDist, found := hex.Coord{}, 0, false
	for _, c := range m.order {
		cell := m.cells[c.Key()]
		if cell.Revealed || !cell.Terrain.Passable() {
			continue
		}
		if d := hex.Distance(from, c); !found || d < bestDist {
			best, bestDist, found = c, d, true
		}
	}
	return best, found
}

// CellCount returns the number of cells on the map.
func (m *Map) CellCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cells)
}
