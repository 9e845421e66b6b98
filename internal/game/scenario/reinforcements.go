package scenario

import (
	"sync"
	"time"
)

// reinforcement is a single pending replacement for spawn.
type reinforcement struct {
	spawn   int
	readyAt time.Duration
}

// Spawner places the unit of a spawn entry.
type Spawner interface {
	SpawnAt(spawn int) (string, error)
}

// Reinforcements schedules replacements for fallen units in simulation time.
// It is safe for concurrent use.
//
// Invariant: spawns without a respawn delay are never queued.
type Reinforcements struct {
	mu      sync.Mutex
	spawns  []SpawnSpec
	pending []reinforcement
}

// NewReinforcements creates a scheduler over the scenario's spawn entries.
func NewReinforcements(spawns []SpawnSpec) *Reinforcements {
	return &Reinforcements{spawns: spawns}
}

// Schedule queues a replacement for spawn at now plus its delay.
//
// Postcondition: Returns false and queues nothing when the spawn index is
// out of range or the spawn does not respawn.
func (r *Reinforcements) Schedule(spawn int, now time.Duration) bool {
	if spawn < 0 || spawn >= len(r.spawns) {
		return false
	}
	delay := r.spawns[spawn].Delay()
	if delay <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, reinforcement{spawn: spawn, readyAt: now + delay})
	return true
}

// Pending returns the number of queued replacements.
func (r *Reinforcements) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// PendingFactions returns the factions with at least one queued replacement.
func (r *Reinforcements) PendingFactions() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool)
	for _, p := range r.pending {
		out[r.spawns[p.spawn].Faction] = true
	}
	return out
}

// Tick spawns every replacement whose time has come, in the order they
// were scheduled. A replacement whose cell is still occupied stays queued
// and is retried on the next Tick.
//
// Precondition: s must not be nil.
// Postcondition: Returns the IDs of the units spawned.
func (r *Reinforcements) Tick(now time.Duration, s Spawner) []string {
	r.mu.Lock()
	var ready, future []reinforcement
	for _, p := range r.pending {
		if p.readyAt <= now {
			ready = append(ready, p)
		} else {
			future = append(future, p)
		}
	}
	r.pending = future
	r.mu.Unlock()

	var retry []reinforcement
	var ids []string
	for _, p := range ready {
		id, err := s.SpawnAt(p.spawn)
		if err != nil {
			retry = append(retry, p)
			continue
		}
		ids = append(ids, id)
	}
	if len(retry) > 0 {
		r.mu.Lock()
		r.pending = append(retry, r.pending...)
		r.mu.Unlock()
	}
	return ids
}
