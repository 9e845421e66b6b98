// Package structure provides the defended structure of a siege battle.
package structure

import (
	"fmt"

	"github.com/cory-johannsen/hexwar/internal/game/event"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
)

// Keep is a stationary structure a faction defends. It implements
// battle.Structure. A Keep is not safe for concurrent use.
type Keep struct {
	id        string
	faction   string
	pos       hex.Coord
	health    int
	maxHealth int
}

// NewKeep creates a keep at full health.
//
// Precondition: maxHealth >= 1; faction must be non-empty.
// Postcondition: Returns a standing Keep, or an error on invalid arguments.
func NewKeep(id, faction string, pos hex.Coord, maxHealth int) (*Keep, error) {
	if faction == "" {
		return nil, fmt.Errorf("keep %q: faction must not be empty", id)
	}
	if maxHealth < 1 {
		return nil, fmt.Errorf("keep %q: max health must be >= 1, got %d", id, maxHealth)
	}
	return &Keep{id: id, faction: faction, pos: pos, health: maxHealth, maxHealth: maxHealth}, nil
}

// ID returns the keep's identifier.
func (k *Keep) ID() string { return k.id }

// Position implements battle.Structure.
func (k *Keep) Position() hex.Coord { return k.pos }

// Faction implements battle.Structure.
func (k *Keep) Faction() string { return k.faction }

// Health returns the remaining health.
func (k *Keep) Health() int { return k.health }

// MaxHealth returns the starting health.
func (k *Keep) MaxHealth() int { return k.maxHealth }

// IsDestroyed implements battle.Structure.
func (k *Keep) IsDestroyed() bool { return k.health <= 0 }

// TakeHit implements battle.Structure. Every hit on a standing keep emits
// structure_damaged; the hit that brings it to zero also emits
// structure_destroyed. Hits on a destroyed keep are ignored.
func (k *Keep) TakeHit(attackerID, attackerFaction string, amount int, emit event.Emitter) {
	if k.IsDestroyed() {
		return
	}
	applied := min(max(amount, 0), k.health)
	k.health -= applied
	emit.Emit(event.StructureDamaged{
		AttackerID:      attackerID,
		AttackerFaction: attackerFaction,
		Amount:          applied,
		RemainingHealth: k.health,
	})
	if k.IsDestroyed() {
		emit.Emit(event.StructureDestroyed{AttackerID: attackerID, AttackerFaction: attackerFaction})
	}
}
