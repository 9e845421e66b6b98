package scenario

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cory-johannsen/hexwar/internal/game/battle"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
	"github.com/cory-johannsen/hexwar/internal/game/structure"
	"github.com/cory-johannsen/hexwar/internal/game/unit"
	"github.com/cory-johannsen/hexwar/internal/game/world"
)

// OptionsFunc returns the unit options to apply when spawning from t.
type OptionsFunc func(t *unit.Template) []unit.Option

// Battle is a built scenario: everything one orchestrator needs to run.
// Battle implements battle.MoveNotifier by lifting fog around moving units.
type Battle struct {
	Scenario *Scenario
	Map      *world.Map
	Arena    *unit.Arena
	// Keep is nil when the scenario defends no structure.
	Keep *structure.Keep

	reinforcements *Reinforcements
	unitOpts       OptionsFunc

	mu     sync.Mutex
	origin map[string]int
}

// Build resolves sc against the known maps and templates and spawns the
// initial roster in declaration order. opts may be nil.
//
// Precondition: sc must have passed Validate; worlds must not be nil.
// Postcondition: Returns a ready Battle or an error naming the first spawn,
// keep, or reference that could not be resolved.
func Build(sc *Scenario, worlds *world.Manager, templates []*unit.Template, opts OptionsFunc) (*Battle, error) {
	m, ok := worlds.GetMap(sc.Map)
	if !ok {
		return nil, fmt.Errorf("scenario %q: unknown map %q", sc.ID, sc.Map)
	}
	arena, err := unit.NewArena(templates)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.ID, err)
	}
	b := &Battle{
		Scenario:       sc,
		Map:            m,
		Arena:          arena,
		reinforcements: NewReinforcements(sc.Spawns),
		unitOpts:       opts,
		origin:         make(map[string]int),
	}

	if k := sc.Keep; k != nil {
		if !m.Passable(k.Coord()) {
			return nil, fmt.Errorf("scenario %q: keep cell %s is not passable", sc.ID, k.Coord())
		}
		keep, err := structure.NewKeep(k.ID, k.Faction, k.Coord(), k.MaxHealth)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.ID, err)
		}
		b.Keep = keep
		m.Reveal(k.Coord(), sc.RevealRadius)
	}

	for i, sp := range sc.Spawns {
		if !m.Passable(sp.Coord()) {
			return nil, fmt.Errorf("scenario %q: spawns[%d] cell %s is not passable", sc.ID, i, sp.Coord())
		}
		if _, err := b.SpawnAt(i); err != nil {
			return nil, fmt.Errorf("scenario %q: spawns[%d]: %w", sc.ID, i, err)
		}
		m.Reveal(sp.Coord(), sc.RevealRadius)
	}
	return b, nil
}

// SpawnAt implements Spawner: it places a fresh unit for spawn entry i.
func (b *Battle) SpawnAt(i int) (string, error) {
	sp := b.Scenario.Spawns[i]
	var opts []unit.Option
	if b.unitOpts != nil {
		if t, ok := b.Arena.Template(sp.Template); ok {
			opts = b.unitOpts(t)
		}
	}
	_, u, err := b.Arena.Spawn(sp.Template, sp.Faction, sp.Coord(), opts...)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.origin[u.ID()] = i
	b.mu.Unlock()
	b.Map.Reveal(u.Position(), u.SightRadius())
	return u.ID(), nil
}

// Structure returns the keep as a battle.Structure, or nil when there is none.
func (b *Battle) Structure() battle.Structure {
	if b.Keep == nil {
		return nil
	}
	return b.Keep
}

// UnitMoved implements battle.MoveNotifier.
func (b *Battle) UnitMoved(id string, _, to hex.Coord) {
	if u, ok := b.Arena.ByID(id); ok {
		b.Map.Reveal(to, u.SightRadius())
	}
}

// Upkeep runs between ticks: it removes the dead, schedules their
// replacements, and spawns replacements that are due. inv may be nil.
//
// Postcondition: Returns the IDs removed and the IDs spawned.
func (b *Battle) Upkeep(now time.Duration, inv unit.Invalidator) (reaped, spawned []string) {
	reaped = b.Arena.ReapDead(inv)
	b.mu.Lock()
	var due []int
	for _, id := range reaped {
		if i, ok := b.origin[id]; ok {
			due = append(due, i)
			delete(b.origin, id)
		}
	}
	b.mu.Unlock()
	for _, i := range due {
		b.reinforcements.Schedule(i, now)
	}
	spawned = b.reinforcements.Tick(now, b)
	return reaped, spawned
}

// PendingReinforcements returns the number of queued replacements.
func (b *Battle) PendingReinforcements() int { return b.reinforcements.Pending() }

// Outcome describes whether the battle is over.
type Outcome struct {
	Over bool
	// Winner is the last faction standing, empty on mutual destruction or
	// when several attackers remain after the keep falls.
	Winner string
	Reason string
}

// Outcome reports whether the battle has ended. It ends when the keep is
// destroyed or when at most one non-neutral faction still has living
// units, a standing keep, or reinforcements on the way.
func (b *Battle) Outcome() Outcome {
	present := make(map[string]bool)
	for f, n := range b.Arena.AliveByFaction() {
		if n > 0 && f != battle.FactionNeutral {
			present[f] = true
		}
	}
	for f := range b.reinforcements.PendingFactions() {
		if f != battle.FactionNeutral {
			present[f] = true
		}
	}

	if b.Keep != nil && b.Keep.IsDestroyed() {
		delete(present, b.Keep.Faction())
		out := Outcome{Over: true, Reason: "keep destroyed"}
		if len(present) == 1 {
			out.Winner = slices.Collect(maps.Keys(present))[0]
		}
		return out
	}
	if b.Keep != nil {
		present[b.Keep.Faction()] = true
	}

	switch len(present) {
	case 0:
		return Outcome{Over: true, Reason: "no combatants left"}
	case 1:
		return Outcome{Over: true, Winner: slices.Collect(maps.Keys(present))[0], Reason: "last faction standing"}
	default:
		return Outcome{}
	}
}
