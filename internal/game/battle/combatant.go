// Package battle is the per-tick combat core: target selection, the
// time-boxed path cache, and the orchestrator that moves and fights every
// combatant once per simulation tick.
package battle

import (
	"time"

	"github.com/cory-johannsen/hexwar/internal/game/event"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
)

// FactionNeutral never targets and is never targeted.
const FactionNeutral = "neutral"

// Hostile reports whether factions a and b fight each other.
func Hostile(a, b string) bool {
	return a != b && a != FactionNeutral && b != FactionNeutral
}

// Stats holds a combatant's combat numbers. Health <= 0 means dead.
type Stats struct {
	Health        int
	MaxHealth     int
	AttackDamage  int
	AttackRange   int
	MovementRange int
}

// Momentum is the movement credit state of a combatant.
type Momentum struct {
	// Pending is the number of unspent bonus actions.
	Pending int
	// TilesMoved counts tiles moved in the current movement window.
	TilesMoved int
	// MaxStacks caps Pending.
	MaxStacks int
	// StepThreshold is the tiles needed per credit; <= 0 disables momentum.
	StepThreshold int
}

// Credit adds moved tiles to the window and converts every newly crossed
// threshold into pending credit, capped at MaxStacks.
//
// Postcondition: Pending never exceeds MaxStacks; bonus steps must not be credited.
func (m Momentum) Credit(moved int) Momentum {
	if moved <= 0 {
		return m
	}
	before := m.TilesMoved
	m.TilesMoved += moved
	if m.StepThreshold <= 0 {
		return m
	}
	gained := m.TilesMoved/m.StepThreshold - before/m.StepThreshold
	m.Pending = min(m.Pending+gained, max(m.MaxStacks, 0))
	return m
}

// Map is the terrain collaborator. Missing or blocked cells are impassable.
type Map interface {
	Passable(c hex.Coord) bool
	// Neighbors returns the passable neighbors of c in fixed direction order.
	Neighbors(c hex.Coord) []hex.Coord
}

// Combatant is the mutable unit the orchestrator drives.
type Combatant interface {
	ID() string
	Faction() string
	Position() hex.Coord
	SetPosition(c hex.Coord)
	Stats() Stats
	IsAlive() bool
	DistanceTo(c hex.Coord) int

	// Attack resolves one attack against target, mutating its health and
	// emitting damage and death events.
	//
	// Postcondition: Returns the damage applied; a dead target takes none.
	Attack(target Combatant, emit event.Emitter) int
	// TakeDamage lowers health, clamped at zero, and returns the amount applied.
	TakeDamage(amount int) int

	// MoveToward routes from Position() to dest, both inclusive, avoiding
	// occupied cells other than dest. Returns nil or a single cell when no
	// route exists.
	MoveToward(dest hex.Coord, m Map, occupied hex.Set) []hex.Coord
	// ClearPathMemo discards any route memo the combatant keeps privately.
	ClearPathMemo()

	AggroRadius() int
	Taunting() bool
	SetTaunting(active bool)

	Momentum() Momentum
	SetMomentum(m Momentum)

	// TickCooldown advances the movement cooldown by elapsed simulation time.
	TickCooldown(elapsed time.Duration)
	// MoveReady reports whether the movement cooldown has elapsed.
	MoveReady() bool
	// RearmMove restarts the movement cooldown and resets the momentum window.
	RearmMove()

	// PriorityFactions lists preferred hostile factions, most preferred first.
	PriorityFactions() []string
}

// Structure is the optional defended structure of a battle.
type Structure interface {
	Position() hex.Coord
	Faction() string
	IsDestroyed() bool
	// TakeHit applies damage and emits the structure's own damaged and
	// destroyed events.
	TakeHit(attackerID, attackerFaction string, amount int, emit event.Emitter)
}

// Explorer is implemented by combatants that wander while no hostile exists.
// Any randomness comes from the combatant's injected source.
type Explorer interface {
	// ExploreStep proposes one adjacent cell to move to.
	ExploreStep(m Map, occupied hex.Set) (hex.Coord, bool)
}

// MoveNotifier observes every committed step.
type MoveNotifier interface {
	UnitMoved(id string, from, to hex.Coord)
}
