package unit_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/hexwar/internal/game/dice"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
	"github.com/cory-johannsen/hexwar/internal/game/unit"
	"github.com/cory-johannsen/hexwar/internal/scripting"
)

type stubCaller struct {
	ret lua.LValue
	err error
	got []scripting.CombatantInfo
}

func (s *stubCaller) CallCombatHook(_, _ string, attacker, target scripting.CombatantInfo) (lua.LValue, error) {
	s.got = []scripting.CombatantInfo{attacker, target}
	return s.ret, s.err
}

func TestFlatDamage(t *testing.T) {
	a := unit.New("a", "red", soldier(), hex.Coord{})
	assert.Equal(t, 4, unit.FlatDamage{}.Damage(a, a))
}

func TestSpreadDamage_WithinSpread(t *testing.T) {
	s, err := dice.ParseSpread("2d4+1")
	assert.NoError(t, err)
	d := unit.SpreadDamage{Spread: s, Roller: dice.NewLoggedRoller(dice.NewSeededSource(9), zap.NewNop())}
	a := unit.New("a", "red", soldier(), hex.Coord{})
	for i := 0; i < 20; i++ {
		got := d.Damage(a, a)
		assert.GreaterOrEqual(t, got, 3)
		assert.LessOrEqual(t, got, 9)
	}
}

func TestScriptedDamage_UsesHookNumber(t *testing.T) {
	caller := &stubCaller{ret: lua.LNumber(11)}
	d := unit.ScriptedDamage{Caller: caller, Scope: "s", Hook: "damage"}
	a := unit.New("a", "red", soldier(), hex.Coord{Q: 2, R: -1})
	b := unit.New("b", "blue", soldier(), hex.Coord{})

	assert.Equal(t, 11, d.Damage(a, b))
	assert.Equal(t, scripting.CombatantInfo{
		ID: "a", Faction: "red", Health: 10, MaxHealth: 10, AttackDamage: 4, AttackRange: 1, Q: 2, R: -1,
	}, caller.got[0])
}

func TestScriptedDamage_NegativeClampsToZero(t *testing.T) {
	d := unit.ScriptedDamage{Caller: &stubCaller{ret: lua.LNumber(-3)}, Hook: "damage"}
	a := unit.New("a", "red", soldier(), hex.Coord{})
	assert.Equal(t, 0, d.Damage(a, a))
}

func TestScriptedDamage_NonFiniteAndHugeResults(t *testing.T) {
	a := unit.New("a", "red", soldier(), hex.Coord{})
	for _, tc := range []struct {
		name string
		ret  float64
		want int
	}{
		{"nan", math.NaN(), 0},
		{"negative infinity", math.Inf(-1), 0},
		{"positive infinity", math.Inf(1), math.MaxInt32},
		{"beyond int range", 1e300, math.MaxInt32},
		{"fraction truncates", 2.9, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := unit.ScriptedDamage{Caller: &stubCaller{ret: lua.LNumber(tc.ret)}, Hook: "damage"}
			assert.Equal(t, tc.want, d.Damage(a, a))
		})
	}
}

func TestScriptedDamage_FallsBackAndWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	a := unit.New("a", "red", soldier(), hex.Coord{})

	for _, caller := range []*stubCaller{
		{ret: lua.LNil},
		{ret: lua.LString("lots")},
		{ret: lua.LNil, err: errors.New("boom")},
	} {
		d := unit.ScriptedDamage{Caller: caller, Hook: "damage", Logger: zap.New(core)}
		assert.Equal(t, 4, d.Damage(a, a))
	}
	assert.Equal(t, 3, logs.Len())
}

func TestDamageFor_PicksModel(t *testing.T) {
	roller := dice.NewLoggedRoller(dice.NewSeededSource(1), zap.NewNop())
	caller := &stubCaller{ret: lua.LNumber(2)}

	flat := soldier()
	assert.IsType(t, unit.FlatDamage{}, unit.DamageFor(flat, roller, caller, "s", nil))

	spread := soldier()
	spread.DamageSpread = "1d6"
	assert.IsType(t, unit.SpreadDamage{}, unit.DamageFor(spread, roller, caller, "s", nil))
	assert.IsType(t, unit.FlatDamage{}, unit.DamageFor(spread, nil, caller, "s", nil), "no roller")

	hooked := soldier()
	hooked.DamageSpread = "1d6"
	hooked.DamageHook = "damage"
	model := unit.DamageFor(hooked, roller, caller, "s", nil)
	scripted, ok := model.(unit.ScriptedDamage)
	if assert.True(t, ok) {
		assert.IsType(t, unit.SpreadDamage{}, scripted.Fallback)
		assert.Equal(t, "damage", scripted.Hook)
	}
	assert.IsType(t, unit.SpreadDamage{}, unit.DamageFor(hooked, roller, nil, "s", nil), "no caller")
}
