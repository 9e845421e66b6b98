package unit

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cory-johannsen/hexwar/internal/game/battle"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
)

// Handle is a stable reference to a unit in an Arena. Handles are never
// reused, so a handle to a reaped unit simply stops resolving.
type Handle uint64

// Invalidator drops cached state tied to a unit ID; *battle.PathCache
// implements it.
type Invalidator interface {
	InvalidateForUnit(id string)
}

// Arena owns the live units of one battle and the templates they spawn from.
// Spawn order is roster order. All methods are safe for concurrent use.
type Arena struct {
	mu        sync.RWMutex
	templates map[string]*Template
	units     map[Handle]*Unit
	order     []Handle
	byID      map[string]Handle
	counter   atomic.Uint64
}

// NewArena creates an empty Arena over templates.
//
// Postcondition: Returns an error on duplicate template IDs.
func NewArena(templates []*Template) (*Arena, error) {
	a := &Arena{
		templates: make(map[string]*Template, len(templates)),
		units:     make(map[Handle]*Unit),
		byID:      make(map[string]Handle),
	}
	for _, t := range templates {
		if _, dup := a.templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate unit template ID: %q", t.ID)
		}
		a.templates[t.ID] = t
	}
	return a, nil
}

// Template returns the template with the given ID.
func (a *Arena) Template(id string) (*Template, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.templates[id]
	return t, ok
}

// TemplateIDs returns every template ID in ascending order.
func (a *Arena) TemplateIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.templates))
	for id := range a.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Spawn creates a unit from templateID for faction at pos and appends it to
// the roster.
//
// Precondition: faction must be non-empty.
// Postcondition: Returns the new handle and unit with ID
// "<template>-<faction>-<n>", or an error when the template is unknown or a
// living unit already stands on pos.
func (a *Arena) Spawn(templateID, faction string, pos hex.Coord, opts ...Option) (Handle, *Unit, error) {
	if faction == "" {
		return 0, nil, fmt.Errorf("unit.Arena.Spawn: faction must not be empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tmpl, ok := a.templates[templateID]
	if !ok {
		return 0, nil, fmt.Errorf("unit.Arena.Spawn: unknown template %q", templateID)
	}
	for _, h := range a.order {
		if u := a.units[h]; u.IsAlive() && u.Position() == pos {
			return 0, nil, fmt.Errorf("unit.Arena.Spawn: cell %s is occupied by %q", pos, u.ID())
		}
	}

	n := a.counter.Add(1)
	h := Handle(n)
	u := New(fmt.Sprintf("%s-%s-%d", tmpl.ID, faction, n), faction, tmpl, pos, opts...)
	a.units[h] = u
	a.order = append(a.order, h)
	a.byID[u.ID()] = h
	return h, u, nil
}

// Get resolves a handle.
//
// Postcondition: Returns (unit, true) if the unit is still in the arena.
func (a *Arena) Get(h Handle) (*Unit, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	u, ok := a.units[h]
	return u, ok
}

// ByID returns the unit with the given ID.
func (a *Arena) ByID(id string) (*Unit, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.byID[id]
	if !ok {
		return nil, false
	}
	return a.units[h], true
}

// Units returns the units in roster order.
//
// Postcondition: Returns a fresh, non-nil slice.
func (a *Arena) Units() []*Unit {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Unit, 0, len(a.order))
	for _, h := range a.order {
		out = append(out, a.units[h])
	}
	return out
}

// Roster returns a view of the units in roster order for one tick. The
// slice is fresh; the units are shared.
func (a *Arena) Roster() []battle.Combatant {
	units := a.Units()
	out := make([]battle.Combatant, len(units))
	for i, u := range units {
		out[i] = u
	}
	return out
}

// Len returns the number of units in the arena, dead or alive.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.order)
}

// AliveByFaction counts living units per faction.
func (a *Arena) AliveByFaction() map[string]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	counts := make(map[string]int)
	for _, h := range a.order {
		if u := a.units[h]; u.IsAlive() {
			counts[u.Faction()]++
		}
	}
	return counts
}

// ReapDead removes every dead unit and tells inv to drop state tied to it.
// inv may be nil.
//
// Postcondition: Returns the removed IDs in roster order; roster order of
// the survivors is unchanged.
func (a *Arena) ReapDead(inv Invalidator) []string {
	a.mu.Lock()
	var removed []string
	kept := a.order[:0]
	for _, h := range a.order {
		u := a.units[h]
		if u.IsAlive() {
			kept = append(kept, h)
			continue
		}
		removed = append(removed, u.ID())
		delete(a.units, h)
		delete(a.byID, u.ID())
	}
	a.order = kept
	a.mu.Unlock()

	if inv != nil {
		for _, id := range removed {
			inv.InvalidateForUnit(id)
		}
	}
	return removed
}
