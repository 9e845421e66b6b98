package battle

import (
	"math"
	"slices"
)

// SelectTarget picks the best hostile target for actor from roster.
//
// Candidates are living, hostile, and not the actor. A faction earlier in
// the actor's priority list outranks every later or unlisted faction
// regardless of distance. Within a rank the nearer candidate wins, then the
// one earlier in roster.
//
// Postcondition: Returns (target, true) or (nil, false) when no candidate
// exists. Performs no mutation.
func SelectTarget(actor Combatant, roster []Combatant) (Combatant, bool) {
	priority := actor.PriorityFactions()
	self := actor.ID()
	faction := actor.Faction()
	pos := actor.Position()

	var best Combatant
	bestRank, bestDist := math.MaxInt, math.MaxInt
	for _, c := range roster {
		if c.ID() == self || !c.IsAlive() || !Hostile(faction, c.Faction()) {
			continue
		}
		rank := slices.Index(priority, c.Faction())
		if rank < 0 {
			rank = len(priority)
		}
		dist := c.DistanceTo(pos)
		// Strict comparison keeps the earlier roster entry on a full tie.
		if rank < bestRank || (rank == bestRank && dist < bestDist) {
			best, bestRank, bestDist = c, rank, dist
		}
	}
	return best, best != nil
}
