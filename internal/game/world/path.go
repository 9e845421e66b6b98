package world

import "github.com/cory-johannsen/hexwar/internal/game/hex"

// Grid is the read-only view of a map the router needs.
type Grid interface {
	Passable(c hex.Coord) bool
	Neighbors(c hex.Coord) []hex.Coord
}

// FindPath returns a shortest route from from to to, both inclusive, that
// avoids impassable cells and cells in occupied. The destination itself may
// be occupied (it is usually the target's cell).
//
// Postcondition: Returns [from] when from == to, or nil when no route exists.
// Ties between equal-length routes are broken by neighbor enumeration order,
// so the result is deterministic.
func FindPath(g Grid, from, to hex.Coord, occupied hex.Set) []hex.Coord {
	if from == to {
		return []hex.Coord{from}
	}
	if !g.Passable(to) {
		return nil
	}

	prev := map[string]hex.Coord{from.Key(): from}
	queue := []hex.Coord{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.Neighbors(cur) {
			if _, seen := prev[n.Key()]; seen {
				continue
			}
			if n != to && occupied.Has(n) {
				continue
			}
			prev[n.Key()] = cur
			if n == to {
				return unwind(prev, from, to)
			}
			queue = append(queue, n)
		}
	}
	return nil
}

func unwind(prev map[string]hex.Coord, from, to hex.Coord) []hex.Coord {
	var rev []hex.Coord
	for c := to; c != from; c = prev[c.Key()] {
		rev = append(rev, c)
	}
	rev = append(rev, from)
	out := make([]hex.Coord, len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return out
}
