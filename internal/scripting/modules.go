package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexwar/internal/game/dice"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
)

// RegisterModules registers the engine.* Lua tables into L:
//
//	engine.log.debug/info/warn(msg)
//	engine.dice.roll(spread)        -> total, or nil on a malformed spread
//	engine.hex.distance(q1, r1, q2, r2)
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	logT := L.NewTable()
	for name, level := range map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
	} {
		logT.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			level("lua: " + L.CheckString(1))
			return 0
		}))
	}
	engine.RawSetString("log", logT)

	diceT := L.NewTable()
	diceT.RawSetString("roll", L.NewFunction(func(L *lua.LState) int {
		s, err := dice.ParseSpread(L.CheckString(1))
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(m.roller.Roll(s)))
		return 1
	}))
	engine.RawSetString("dice", diceT)

	hexT := L.NewTable()
	hexT.RawSetString("distance", L.NewFunction(func(L *lua.LState) int {
		a := hex.Coord{Q: L.CheckInt(1), R: L.CheckInt(2)}
		b := hex.Coord{Q: L.CheckInt(3), R: L.CheckInt(4)}
		L.Push(lua.LNumber(hex.Distance(a, b)))
		return 1
	}))
	engine.RawSetString("hex", hexT)

	L.SetGlobal("engine", engine)
}
