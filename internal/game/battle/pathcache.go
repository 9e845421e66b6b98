package battle

import (
	"slices"
	"time"

	"github.com/cory-johannsen/hexwar/internal/game/hex"
)

// DefaultPathTTL is the simulation-time lifetime of a cached route.
const DefaultPathTTL = 500 * time.Millisecond

// emptyFingerprint stands in for an empty occupancy set in cache keys.
const emptyFingerprint = "none"

// Mover is the routing capability the path cache delegates misses to.
type Mover interface {
	Position() hex.Coord
	MoveToward(dest hex.Coord, m Map, occupied hex.Set) []hex.Coord
	ClearPathMemo()
}

// Locatable is anything whose position the cache can track.
type Locatable interface {
	ID() string
	Position() hex.Coord
}

// PathRequest carries the per-call context of GetPath.
type PathRequest struct {
	// Now is the current simulation time.
	Now time.Duration
	// TrackedID names the unit standing on the destination, if any. Routes
	// toward it are evicted when it relocates.
	TrackedID string
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits      int
	Misses    int
	Evictions int
	Size      int
}

type cacheEntry struct {
	path      []hex.Coord
	expiresAt time.Duration
	trackedID string
}

// PathCache memoizes routes keyed by origin, destination, and the exact
// occupancy layout. It is owned by one orchestrator and is not safe for
// concurrent use.
type PathCache struct {
	ttl      time.Duration
	entries  map[string]*cacheEntry
	byTarget map[string]map[string]struct{}
	lastDest map[string]string
	stats    CacheStats
}

// NewPathCache creates an empty cache.
//
// Postcondition: ttl <= 0 selects DefaultPathTTL.
func NewPathCache(ttl time.Duration) *PathCache {
	if ttl <= 0 {
		ttl = DefaultPathTTL
	}
	return &PathCache{
		ttl:      ttl,
		entries:  make(map[string]*cacheEntry),
		byTarget: make(map[string]map[string]struct{}),
		lastDest: make(map[string]string),
	}
}

// TTL returns the configured entry lifetime.
func (pc *PathCache) TTL() time.Duration { return pc.ttl }

// CacheKey returns the key for a route from origin to dest with the given
// occupancy: origin→dest|fingerprint, where the fingerprint is the sorted
// occupied keys joined by ";" or "none" when empty.
func CacheKey(origin, dest hex.Coord, occupied hex.Set) string {
	fp := emptyFingerprint
	if occupied.Len() > 0 {
		fp = occupied.Join(";")
	}
	return origin.Key() + "→" + dest.Key() + "|" + fp
}

// GetPath returns a route from the mover's cell to dest, both inclusive.
//
// A live entry (expiry strictly after req.Now) is returned without touching
// the mover. Otherwise the mover's memo is cleared and the mover routes.
//
// Postcondition: The returned slice is a copy the caller may modify.
func (pc *PathCache) GetPath(mover Mover, dest hex.Coord, m Map, occupied hex.Set, req PathRequest) []hex.Coord {
	key := CacheKey(mover.Position(), dest, occupied)
	if e, ok := pc.entries[key]; ok {
		if e.expiresAt > req.Now {
			pc.stats.Hits++
			return slices.Clone(e.path)
		}
		pc.evict(key)
	}
	pc.stats.Misses++

	mover.ClearPathMemo()
	path := slices.Clone(mover.MoveToward(dest, m, occupied))

	pc.entries[key] = &cacheEntry{path: path, expiresAt: req.Now + pc.ttl, trackedID: req.TrackedID}
	if req.TrackedID != "" {
		bucket, ok := pc.byTarget[req.TrackedID]
		if !ok {
			bucket = make(map[string]struct{})
			pc.byTarget[req.TrackedID] = bucket
		}
		bucket[key] = struct{}{}
		if _, seen := pc.lastDest[req.TrackedID]; !seen {
			pc.lastDest[req.TrackedID] = dest.Key()
		}
	}
	return slices.Clone(path)
}

// TrackUnit observes u's current cell. The first observation only records
// it; a later observation on a different cell evicts every route tracking u.
//
// Postcondition: Returns true when routes were evicted.
func (pc *PathCache) TrackUnit(u Locatable) bool {
	id, key := u.ID(), u.Position().Key()
	last, seen := pc.lastDest[id]
	pc.lastDest[id] = key
	if !seen || last == key {
		return false
	}
	pc.evictBucket(id)
	return true
}

// InvalidateForUnit evicts every route tracking id and forgets its last
// observed cell.
func (pc *PathCache) InvalidateForUnit(id string) {
	pc.evictBucket(id)
	delete(pc.lastDest, id)
}

// ClearExpired evicts every entry whose expiry is at or before now.
//
// Postcondition: Returns the number of entries evicted.
func (pc *PathCache) ClearExpired(now time.Duration) int {
	n := 0
	for key, e := range pc.entries {
		if e.expiresAt <= now {
			pc.evict(key)
			n++
		}
	}
	return n
}

// Stats returns a snapshot of the cache counters.
func (pc *PathCache) Stats() CacheStats {
	s := pc.stats
	s.Size = len(pc.entries)
	return s
}

func (pc *PathCache) evictBucket(id string) {
	for key := range pc.byTarget[id] {
		pc.evict(key)
	}
	delete(pc.byTarget, id)
}

func (pc *PathCache) evict(key string) {
	e, ok := pc.entries[key]
	if !ok {
		return
	}
	delete(pc.entries, key)
	pc.stats.Evictions++
	if e.trackedID == "" {
		return
	}
	if bucket, ok := pc.byTarget[e.trackedID]; ok {
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(pc.byTarget, e.trackedID)
		}
	}
}
