package battle_test

import (
	"github.com/cory-johannsen/hexwar/internal/game/battle"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
	"github.com/cory-johannsen/hexwar/internal/game/unit"
)

// profile describes a test unit; zero values mean "cannot act".
type profile struct {
	hp, dmg, rng, move int
	aggro              int
	threshold, stacks  int
	interval           string
	priority           []string
}

func mk(id, faction string, pos hex.Coord, s profile) *unit.Unit {
	return unit.New(id, faction, &unit.Template{
		ID:               "test",
		Name:             id,
		MaxHealth:        s.hp,
		AttackDamage:     s.dmg,
		AttackRange:      s.rng,
		MovementRange:    s.move,
		MoveInterval:     s.interval,
		AggroRadius:      s.aggro,
		Momentum:         unit.MomentumSpec{StepThreshold: s.threshold, MaxStacks: s.stacks},
		PriorityFactions: s.priority,
	}, pos)
}

func roster(units ...*unit.Unit) []battle.Combatant {
	out := make([]battle.Combatant, len(units))
	for i, u := range units {
		out[i] = u
	}
	return out
}
