package battle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hexwar/internal/game/battle"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
	"github.com/cory-johannsen/hexwar/internal/game/world"
)

// countingMover routes with the real router and counts how often it is asked.
type countingMover struct {
	id      string
	pos     hex.Coord
	routes  int
	cleared int
}

func (m *countingMover) ID() string          { return m.id }
func (m *countingMover) Position() hex.Coord { return m.pos }
func (m *countingMover) ClearPathMemo()      { m.cleared++ }
func (m *countingMover) MoveToward(dest hex.Coord, g battle.Map, occupied hex.Set) []hex.Coord {
	m.routes++
	return world.FindPath(g, m.pos, dest, occupied)
}

func openMap() *world.Map { return world.NewHexagon("open", 5, world.Plains, true) }

func TestCacheKey_Format(t *testing.T) {
	origin, dest := hex.Coord{}, hex.Coord{Q: 2}
	assert.Equal(t, "0,0→2,0|none", battle.CacheKey(origin, dest, hex.NewSet()))
	assert.Equal(t, "0,0→2,0|none", battle.CacheKey(origin, dest, nil))

	occ := hex.NewSet(hex.Coord{Q: 1}, hex.Coord{R: 1})
	assert.Equal(t, "0,0→2,0|0,1;1,0", battle.CacheKey(origin, dest, occ))
}

func TestPathCache_HitWithinTTL(t *testing.T) {
	pc := battle.NewPathCache(0)
	assert.Equal(t, battle.DefaultPathTTL, pc.TTL())
	m := openMap()
	mover := &countingMover{id: "m"}
	dest := hex.Coord{Q: 3}
	occ := hex.NewSet(dest)

	first := pc.GetPath(mover, dest, m, occ, battle.PathRequest{Now: 0})
	second := pc.GetPath(mover, dest, m, occ, battle.PathRequest{Now: 499 * time.Millisecond})

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mover.routes, "second call is served from cache")
	assert.Equal(t, 1, mover.cleared, "memo is cleared before every fresh route")
	stats := pc.Stats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestPathCache_ExpiryIsStrict(t *testing.T) {
	pc := battle.NewPathCache(500 * time.Millisecond)
	mover := &countingMover{id: "m"}
	dest := hex.Coord{Q: 2}

	pc.GetPath(mover, dest, openMap(), nil, battle.PathRequest{Now: 0})
	pc.GetPath(mover, dest, openMap(), nil, battle.PathRequest{Now: 500 * time.Millisecond})
	assert.Equal(t, 2, mover.routes, "an entry is dead once now reaches its expiry")
}

func TestPathCache_ReturnsCopies(t *testing.T) {
	pc := battle.NewPathCache(0)
	mover := &countingMover{id: "m"}
	dest := hex.Coord{Q: 2}

	p := pc.GetPath(mover, dest, openMap(), nil, battle.PathRequest{})
	require.NotEmpty(t, p)
	p[0] = hex.Coord{Q: 99}

	again := pc.GetPath(mover, dest, openMap(), nil, battle.PathRequest{})
	assert.Equal(t, hex.Coord{}, again[0])
}

func TestPathCache_ObstacleSetsNeverShareEntries(t *testing.T) {
	pc := battle.NewPathCache(0)
	m := openMap()
	mover := &countingMover{id: "m"}
	dest := hex.Coord{Q: 3}
	x := hex.Coord{Q: 1, R: -1}
	y := hex.Coord{Q: 1}

	pc.GetPath(mover, dest, m, hex.NewSet(x), battle.PathRequest{})
	second := pc.GetPath(mover, dest, m, hex.NewSet(x, y), battle.PathRequest{})

	assert.Equal(t, 2, mover.routes, "a new blocker forces a fresh route")
	assert.NotContains(t, second, y)
	assert.Equal(t, 2, pc.Stats().Size)
}

func TestPathCache_TrackedTargetRelocationEvicts(t *testing.T) {
	pc := battle.NewPathCache(0)
	m := openMap()
	mover := &countingMover{id: "m"}
	target := &countingMover{id: "t", pos: hex.Coord{Q: 3}}

	assert.False(t, pc.TrackUnit(target), "first observation only seeds")
	req := battle.PathRequest{TrackedID: "t"}
	pc.GetPath(mover, target.pos, m, nil, req)

	assert.False(t, pc.TrackUnit(target), "unchanged cell keeps routes")
	pc.GetPath(mover, hex.Coord{Q: 3}, m, nil, req)
	assert.Equal(t, 1, mover.routes)

	target.pos = hex.Coord{Q: 3, R: -1}
	assert.True(t, pc.TrackUnit(target))
	assert.Equal(t, 0, pc.Stats().Size)

	pc.GetPath(mover, hex.Coord{Q: 3}, m, nil, req)
	assert.Equal(t, 2, mover.routes, "route toward the old cell is recomputed")
}

func TestPathCache_InvalidateForUnit(t *testing.T) {
	pc := battle.NewPathCache(0)
	m := openMap()
	mover := &countingMover{id: "m"}
	dest := hex.Coord{Q: 2}
	req := battle.PathRequest{TrackedID: "t"}

	pc.GetPath(mover, dest, m, nil, req)
	pc.GetPath(mover, dest, m, hex.NewSet(hex.Coord{Q: -1}), req)
	pc.GetPath(mover, dest, m, nil, battle.PathRequest{Now: 0})
	require.Equal(t, 2, pc.Stats().Size)

	pc.InvalidateForUnit("t")
	assert.Equal(t, 0, pc.Stats().Size)

	pc.GetPath(mover, dest, m, nil, req)
	assert.Equal(t, 3, mover.routes)
}

func TestPathCache_ClearExpired(t *testing.T) {
	pc := battle.NewPathCache(500 * time.Millisecond)
	m := openMap()
	mover := &countingMover{id: "m"}

	pc.GetPath(mover, hex.Coord{Q: 1}, m, nil, battle.PathRequest{Now: 0})
	pc.GetPath(mover, hex.Coord{Q: 2}, m, nil, battle.PathRequest{Now: 300 * time.Millisecond, TrackedID: "t"})

	assert.Equal(t, 0, pc.ClearExpired(0), "no elapsed time, nothing to sweep")
	assert.Equal(t, 2, pc.Stats().Size)

	assert.Equal(t, 1, pc.ClearExpired(500*time.Millisecond))
	assert.Equal(t, 1, pc.ClearExpired(time.Second))
	assert.Equal(t, 0, pc.Stats().Size)

	// The reverse index was cleaned too: invalidating is a no-op.
	pc.InvalidateForUnit("t")
	assert.Equal(t, 2, pc.Stats().Evictions)
}

func TestPathCache_NoRouteIsCached(t *testing.T) {
	pc := battle.NewPathCache(0)
	m := world.NewHexagon("tiny", 1, world.Plains, true)
	mover := &countingMover{id: "m"}
	adj := hex.Coord{}.Neighbors()
	walls := hex.NewSet(adj[:]...)

	assert.Len(t, pc.GetPath(mover, hex.Coord{Q: 4}, m, walls, battle.PathRequest{}), 0)
	assert.Len(t, pc.GetPath(mover, hex.Coord{Q: 4}, m, walls, battle.PathRequest{}), 0)
	assert.Equal(t, 1, mover.routes)
}

func TestPropertyPathCache_DistinctObstaclesDistinctKeys(t *testing.T) {
	cells := hex.Ring(hex.Coord{}, 3)
	draw := func(rt *rapid.T, label string) hex.Set {
		idx := rapid.SliceOfDistinct(rapid.IntRange(0, len(cells)-1), rapid.ID[int]).Draw(rt, label)
		s := hex.NewSet()
		for _, i := range idx {
			s.Add(cells[i])
		}
		return s
	}
	rapid.Check(t, func(rt *rapid.T) {
		a := draw(rt, "a")
		b := draw(rt, "b")
		ka := battle.CacheKey(hex.Coord{}, hex.Coord{Q: 3}, a)
		kb := battle.CacheKey(hex.Coord{}, hex.Coord{Q: 3}, b)
		assert.Equal(rt, a.Join(";") == b.Join(";"), ka == kb)
	})
}
