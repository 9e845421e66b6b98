package unit

import (
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexwar/internal/game/battle"
	"github.com/cory-johannsen/hexwar/internal/game/dice"
	"github.com/cory-johannsen/hexwar/internal/scripting"
)

// DamageModel computes the raw damage of one attack.
type DamageModel interface {
	Damage(attacker, target battle.Combatant) int
}

// FlatDamage deals the attacker's AttackDamage.
type FlatDamage struct{}

// Damage implements DamageModel.
func (FlatDamage) Damage(attacker, _ battle.Combatant) int {
	return attacker.Stats().AttackDamage
}

// SpreadDamage rolls a dice spread per attack.
type SpreadDamage struct {
	Spread dice.Spread
	Roller *dice.Roller
}

// Damage implements DamageModel.
func (d SpreadDamage) Damage(_, _ battle.Combatant) int {
	return max(d.Roller.Roll(d.Spread), 0)
}

// HookCaller runs combat hooks; *scripting.Manager implements it.
type HookCaller interface {
	CallCombatHook(scope, hook string, attacker, target scripting.CombatantInfo) (lua.LValue, error)
}

// ScriptedDamage asks a Lua hook for the damage and falls back when the
// hook is missing, fails, or returns something other than a number.
type ScriptedDamage struct {
	Caller   HookCaller
	Scope    string
	Hook     string
	Fallback DamageModel
	Logger   *zap.Logger
}

// Damage implements DamageModel.
func (d ScriptedDamage) Damage(attacker, target battle.Combatant) int {
	ret, err := d.Caller.CallCombatHook(d.Scope, d.Hook, snapshot(attacker), snapshot(target))
	if err == nil {
		if n, ok := ret.(lua.LNumber); ok {
			return clampDamage(float64(n))
		}
	}
	if d.Logger != nil {
		d.Logger.Warn("damage hook gave no number, using fallback",
			zap.String("hook", d.Hook),
			zap.String("attacker", attacker.ID()),
			zap.Error(err),
		)
	}
	fallback := d.Fallback
	if fallback == nil {
		fallback = FlatDamage{}
	}
	return fallback.Damage(attacker, target)
}

// clampDamage converts a hook result to a damage amount. NaN and
// non-positive values deal nothing; huge values saturate at MaxInt32.
func clampDamage(f float64) int {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	default:
		return int(f)
	}
}

func snapshot(c battle.Combatant) scripting.CombatantInfo {
	st := c.Stats()
	pos := c.Position()
	return scripting.CombatantInfo{
		ID:           c.ID(),
		Faction:      c.Faction(),
		Health:       st.Health,
		MaxHealth:    st.MaxHealth,
		AttackDamage: st.AttackDamage,
		AttackRange:  st.AttackRange,
		Q:            pos.Q,
		R:            pos.R,
	}
}

// DamageFor returns the damage model t asks for. A damage hook wins over a
// spread, and a spread wins over flat damage; a hook falls back to the
// model it would otherwise have used. A nil roller or caller disables the
// corresponding model.
func DamageFor(t *Template, roller *dice.Roller, caller HookCaller, scope string, logger *zap.Logger) DamageModel {
	var model DamageModel = FlatDamage{}
	if t.DamageSpread != "" && roller != nil {
		if sp, err := dice.ParseSpread(t.DamageSpread); err == nil {
			model = SpreadDamage{Spread: sp, Roller: roller}
		}
	}
	if t.DamageHook != "" && caller != nil {
		model = ScriptedDamage{
			Caller:   caller,
			Scope:    scope,
			Hook:     t.DamageHook,
			Fallback: model,
			Logger:   logger,
		}
	}
	return model
}
