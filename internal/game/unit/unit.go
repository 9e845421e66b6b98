package unit

import (
	"slices"
	"time"

	"github.com/cory-johannsen/hexwar/internal/game/battle"
	"github.com/cory-johannsen/hexwar/internal/game/dice"
	"github.com/cory-johannsen/hexwar/internal/game/event"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
	"github.com/cory-johannsen/hexwar/internal/game/world"
)

// FogMap is implemented by maps that know which cells are still fogged.
type FogMap interface {
	NearestFogged(from hex.Coord) (hex.Coord, bool)
}

// Unit is a live combatant. It implements battle.Combatant and
// battle.Explorer. A Unit is not safe for concurrent use; the battle loop
// serializes access.
type Unit struct {
	id         string
	templateID string
	name       string
	faction    string
	pos        hex.Coord
	stats      battle.Stats

	aggroRadius int
	sightRadius int
	taunting    bool
	momentum    battle.Momentum
	priority    []string

	moveInterval time.Duration
	cooldown     time.Duration

	damage DamageModel
	source dice.Source

	memoDest hex.Coord
	memo     []hex.Coord
}

// Option configures a Unit at creation.
type Option func(*Unit)

// WithDamageModel sets how the unit computes attack damage.
func WithDamageModel(d DamageModel) Option {
	return func(u *Unit) {
		if d != nil {
			u.damage = d
		}
	}
}

// WithSource sets the randomness source used for idle exploration.
func WithSource(src dice.Source) Option {
	return func(u *Unit) { u.source = src }
}

// New creates a unit from tmpl at pos with full health. The movement
// cooldown starts elapsed.
//
// Precondition: id must be non-empty; tmpl must be non-nil.
// Postcondition: Stats().Health == tmpl.MaxHealth; damage defaults to FlatDamage.
func New(id, faction string, tmpl *Template, pos hex.Coord, opts ...Option) *Unit {
	u := &Unit{
		id:         id,
		templateID: tmpl.ID,
		name:       tmpl.Name,
		faction:    faction,
		pos:        pos,
		stats: battle.Stats{
			Health:        tmpl.MaxHealth,
			MaxHealth:     tmpl.MaxHealth,
			AttackDamage:  tmpl.AttackDamage,
			AttackRange:   tmpl.AttackRange,
			MovementRange: tmpl.MovementRange,
		},
		aggroRadius: tmpl.AggroRadius,
		sightRadius: tmpl.SightRadius,
		momentum: battle.Momentum{
			MaxStacks:     tmpl.Momentum.MaxStacks,
			StepThreshold: tmpl.Momentum.StepThreshold,
		},
		priority:     slices.Clone(tmpl.PriorityFactions),
		moveInterval: tmpl.Interval(),
		damage:       FlatDamage{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ID implements battle.Combatant.
func (u *Unit) ID() string { return u.id }

// TemplateID returns the ID of the template the unit was created from.
func (u *Unit) TemplateID() string { return u.templateID }

// Name returns the display name.
func (u *Unit) Name() string { return u.name }

// Faction implements battle.Combatant.
func (u *Unit) Faction() string { return u.faction }

// Position implements battle.Combatant.
func (u *Unit) Position() hex.Coord { return u.pos }

// SetPosition implements battle.Combatant.
func (u *Unit) SetPosition(c hex.Coord) { u.pos = c }

// Stats implements battle.Combatant.
func (u *Unit) Stats() battle.Stats { return u.stats }

// IsAlive implements battle.Combatant.
func (u *Unit) IsAlive() bool { return u.stats.Health > 0 }

// DistanceTo implements battle.Combatant.
func (u *Unit) DistanceTo(c hex.Coord) int { return hex.Distance(u.pos, c) }

// SightRadius returns how far the unit lifts fog around itself.
func (u *Unit) SightRadius() int { return u.sightRadius }

// TakeDamage implements battle.Combatant.
//
// Postcondition: Health is clamped at zero; returns the health actually removed.
func (u *Unit) TakeDamage(amount int) int {
	if amount <= 0 || u.stats.Health <= 0 {
		return 0
	}
	applied := min(amount, u.stats.Health)
	u.stats.Health -= applied
	return applied
}

// Attack implements battle.Combatant. It emits a unit_damaged event for every
// resolved attack and a unit_died event when the target's health reaches zero.
func (u *Unit) Attack(target battle.Combatant, emit event.Emitter) int {
	if !u.IsAlive() || !target.IsAlive() {
		return 0
	}
	applied := target.TakeDamage(u.damage.Damage(u, target))
	emit.Emit(event.UnitDamaged{
		AttackerID:      u.id,
		TargetID:        target.ID(),
		Amount:          applied,
		RemainingHealth: target.Stats().Health,
	})
	if !target.IsAlive() {
		emit.Emit(event.UnitDied{
			UnitID:          target.ID(),
			AttackerID:      u.id,
			AttackerFaction: u.faction,
			UnitFaction:     target.Faction(),
		})
	}
	return applied
}

// MoveToward implements battle.Combatant. The last route is memoized until
// ClearPathMemo or until the unit leaves the route's first cell.
func (u *Unit) MoveToward(dest hex.Coord, m battle.Map, occupied hex.Set) []hex.Coord {
	if len(u.memo) > 0 && u.memoDest == dest && u.memo[0] == u.pos {
		return slices.Clone(u.memo)
	}
	path := world.FindPath(m, u.pos, dest, occupied)
	u.memoDest, u.memo = dest, path
	return slices.Clone(path)
}

// ClearPathMemo implements battle.Combatant.
func (u *Unit) ClearPathMemo() { u.memo = nil }

// AggroRadius implements battle.Combatant.
func (u *Unit) AggroRadius() int { return u.aggroRadius }

// Taunting implements battle.Combatant.
func (u *Unit) Taunting() bool { return u.taunting }

// SetTaunting implements battle.Combatant.
func (u *Unit) SetTaunting(active bool) { u.taunting = active }

// Momentum implements battle.Combatant.
func (u *Unit) Momentum() battle.Momentum { return u.momentum }

// SetMomentum implements battle.Combatant.
func (u *Unit) SetMomentum(m battle.Momentum) { u.momentum = m }

// TickCooldown implements battle.Combatant.
func (u *Unit) TickCooldown(elapsed time.Duration) {
	u.cooldown = max(u.cooldown-elapsed, 0)
}

// MoveReady implements battle.Combatant.
func (u *Unit) MoveReady() bool { return u.cooldown <= 0 }

// RearmMove implements battle.Combatant. It opens a new movement window:
// the cooldown restarts and the momentum counters reset.
func (u *Unit) RearmMove() {
	u.cooldown = u.moveInterval
	u.momentum.TilesMoved = 0
	u.momentum.Pending = 0
}

// PriorityFactions implements battle.Combatant.
func (u *Unit) PriorityFactions() []string { return u.priority }

// ExploreStep implements battle.Explorer. On a fogged map the unit heads for
// the nearest fogged cell; otherwise it drifts to a random free neighbor.
//
// Postcondition: Returns a free, passable neighbor or false.
func (u *Unit) ExploreStep(m battle.Map, occupied hex.Set) (hex.Coord, bool) {
	var free []hex.Coord
	for _, n := range m.Neighbors(u.pos) {
		if !occupied.Has(n) {
			free = append(free, n)
		}
	}
	if len(free) == 0 {
		return hex.Coord{}, false
	}

	if fog, ok := m.(FogMap); ok {
		if goal, ok := fog.NearestFogged(u.pos); ok {
			best := free[0]
			for _, n := range free[1:] {
				if hex.Distance(n, goal) < hex.Distance(best, goal) {
					best = n
				}
			}
			return best, true
		}
	}

	if u.source == nil {
		return hex.Coord{}, false
	}
	return free[u.source.Intn(len(free))], true
}
