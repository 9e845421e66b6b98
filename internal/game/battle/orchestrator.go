package battle

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hexwar/internal/game/event"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
)

// DefaultSweepEvery is how many ticks pass between expired-route sweeps.
const DefaultSweepEvery = 20

// Orchestrator runs battle ticks over a roster. Tick must not be called
// concurrently.
type Orchestrator struct {
	grid       Map
	cache      *PathCache
	notifier   MoveNotifier
	emit       event.Emitter
	logger     *zap.Logger
	sweepEvery int

	running atomic.Bool
	now     time.Duration
	ticks   uint64
	last    TickReport
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the observer of committed steps.
func WithNotifier(n MoveNotifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithEmitter sets the sink for domain events.
func WithEmitter(e event.Emitter) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.emit = e
		}
	}
}

// WithLogger sets the logger tick reports are written to.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPathCache replaces the default path cache.
func WithPathCache(pc *PathCache) Option {
	return func(o *Orchestrator) {
		if pc != nil {
			o.cache = pc
		}
	}
}

// WithSweepEvery sets the number of ticks between expired-route sweeps;
// n <= 0 disables sweeping.
func WithSweepEvery(n int) Option {
	return func(o *Orchestrator) { o.sweepEvery = n }
}

// NewOrchestrator creates an Orchestrator over m.
//
// Precondition: m must not be nil.
// Postcondition: Unset options default to no notifier, event.Nop, a no-op
// logger, a cache with DefaultPathTTL, and DefaultSweepEvery.
func NewOrchestrator(m Map, opts ...Option) *Orchestrator {
	if m == nil {
		panic("battle.NewOrchestrator: map must not be nil")
	}
	o := &Orchestrator{
		grid:       m,
		emit:       event.Nop,
		logger:     zap.NewNop(),
		sweepEvery: DefaultSweepEvery,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cache == nil {
		o.cache = NewPathCache(DefaultPathTTL)
	}
	return o
}

// Now returns the simulation time accumulated over all ticks.
func (o *Orchestrator) Now() time.Duration { return o.now }

// Ticks returns the number of completed ticks.
func (o *Orchestrator) Ticks() uint64 { return o.ticks }

// LastReport returns the report of the most recent tick.
func (o *Orchestrator) LastReport() TickReport { return o.last }

// PathCache returns the orchestrator's path cache.
func (o *Orchestrator) PathCache() *PathCache { return o.cache }

// tickState is the per-tick working set.
type tickState struct {
	roster    []Combatant
	elapsed   time.Duration
	structure Structure
	occupied  hex.Set
	report    *TickReport
}

// Tick advances the battle by elapsed simulation time, processing every
// combatant once in roster order. structure may be nil.
//
// Precondition: No other Tick is in progress on o.
// Postcondition: No two living combatants share a cell. Ordinary gameplay
// outcomes (no target, no route, blocked) are not errors.
func (o *Orchestrator) Tick(roster []Combatant, elapsed time.Duration, structure Structure) {
	if !o.running.CompareAndSwap(false, true) {
		panic("battle.Orchestrator: Tick called re-entrantly")
	}
	defer o.running.Store(false)

	o.now += elapsed
	o.ticks++
	report := TickReport{Tick: o.ticks, Now: o.now}

	ts := &tickState{
		roster:    roster,
		elapsed:   elapsed,
		structure: structure,
		occupied:  hex.NewSet(),
		report:    &report,
	}
	for _, c := range roster {
		if c.IsAlive() {
			o.cache.TrackUnit(c)
			ts.occupied.Add(c.Position())
		}
	}
	if structure != nil && !structure.IsDestroyed() {
		ts.occupied.Add(structure.Position())
	}

	for _, c := range roster {
		o.process(ts, c)
	}

	if o.sweepEvery > 0 && o.ticks%uint64(o.sweepEvery) == 0 {
		report.Evicted = o.cache.ClearExpired(o.now)
	}
	o.last = report
	o.logger.Debug("tick complete", zap.Object("report", report))
}

func (o *Orchestrator) process(ts *tickState, c Combatant) {
	// A combatant killed earlier this tick no longer owns its cell; another
	// combatant may already stand there.
	if !c.IsAlive() {
		return
	}
	ts.occupied.Remove(c.Position())
	defer func() { ts.occupied.Add(c.Position()) }()

	c.TickCooldown(ts.elapsed)

	target, ok := SelectTarget(c, ts.roster)
	if !ok {
		o.idle(ts, c)
		o.refreshTaunt(ts, c)
		return
	}

	st := c.Stats()
	if c.DistanceTo(target.Position()) > st.AttackRange {
		o.advance(ts, c, target.Position(), target.ID())
	}

	if target.IsAlive() && c.DistanceTo(target.Position()) <= st.AttackRange {
		o.strike(ts, c, target)
	} else {
		o.hitStructure(ts, c)
	}

	o.refreshTaunt(ts, c)
	if o.spendMomentum(ts, c, target) {
		// Bonus steps moved c; the lock must match its final cell.
		o.refreshTaunt(ts, c)
	}
}

// idle handles a combatant with no mobile target: it presses the attack on
// a hostile structure, or explores.
func (o *Orchestrator) idle(ts *tickState, c Combatant) {
	s := ts.structure
	if s != nil && !s.IsDestroyed() && Hostile(c.Faction(), s.Faction()) {
		if !o.hitStructure(ts, c) {
			o.advance(ts, c, s.Position(), "")
			o.hitStructure(ts, c)
		}
		return
	}

	ex, ok := c.(Explorer)
	if !ok || c.Stats().MovementRange <= 0 || !c.MoveReady() {
		return
	}
	next, ok := ex.ExploreStep(o.grid, ts.occupied)
	if ok && o.stepTo(ts, c, next) {
		c.RearmMove()
		ts.report.Explores++
	}
}

// advance walks c along a cached route toward dest for up to its movement
// range, stopping once dest is within attack range. Without a route it
// tries one greedy sidestep.
//
// Postcondition: Returns the number of tiles moved; momentum is credited
// for them.
func (o *Orchestrator) advance(ts *tickState, c Combatant, dest hex.Coord, trackedID string) int {
	st := c.Stats()
	if st.MovementRange <= 0 || !c.MoveReady() {
		return 0
	}

	path := o.cache.GetPath(c, dest, o.grid, ts.occupied, PathRequest{Now: o.now, TrackedID: trackedID})
	moved := 0
	for i := 1; i < len(path) && moved < st.MovementRange; i++ {
		if c.DistanceTo(dest) <= st.AttackRange {
			break
		}
		if !o.stepTo(ts, c, path[i]) {
			break
		}
		moved++
	}
	ts.report.Steps += moved

	if moved == 0 && len(path) <= 1 && c.DistanceTo(dest) > st.AttackRange {
		if o.sidestep(ts, c, dest) {
			moved = 1
			ts.report.Sidesteps++
		}
	}
	if moved == 0 {
		return 0
	}

	c.RearmMove()
	c.SetMomentum(c.Momentum().Credit(moved))
	return moved
}

// sidestep moves c to the free neighbor nearest dest, earliest in neighbor
// order on ties.
func (o *Orchestrator) sidestep(ts *tickState, c Combatant, dest hex.Coord) bool {
	var (
		best  hex.Coord
		found bool
	)
	bestDist := 0
	for _, n := range o.grid.Neighbors(c.Position()) {
		if ts.occupied.Has(n) {
			continue
		}
		if d := hex.Distance(n, dest); !found || d < bestDist {
			best, bestDist, found = n, d, true
		}
	}
	return found && o.stepTo(ts, c, best)
}

// stepTo moves c one cell if next is adjacent, passable, and free.
func (o *Orchestrator) stepTo(ts *tickState, c Combatant, next hex.Coord) bool {
	from := c.Position()
	if hex.Distance(from, next) != 1 || !o.grid.Passable(next) || ts.occupied.Has(next) {
		return false
	}
	c.SetPosition(next)
	if o.notifier != nil {
		o.notifier.UnitMoved(c.ID(), from, next)
	}
	return true
}

func (o *Orchestrator) strike(ts *tickState, c, target Combatant) {
	c.Attack(target, o.emit)
	ts.report.Attacks++
	if !target.IsAlive() {
		ts.occupied.Remove(target.Position())
		o.cache.InvalidateForUnit(target.ID())
		ts.report.Kills++
	}
}

// hitStructure strikes the defended structure when it is hostile, standing,
// and within c's attack range.
func (o *Orchestrator) hitStructure(ts *tickState, c Combatant) bool {
	s := ts.structure
	if s == nil || s.IsDestroyed() || !Hostile(c.Faction(), s.Faction()) {
		return false
	}
	st := c.Stats()
	if c.DistanceTo(s.Position()) > st.AttackRange {
		return false
	}
	s.TakeHit(c.ID(), c.Faction(), st.AttackDamage, o.emit)
	ts.report.StructureHits++
	if s.IsDestroyed() {
		ts.occupied.Remove(s.Position())
		ts.report.StructureDestroyed = true
	}
	return true
}

// refreshTaunt recomputes the aggression lock from current positions.
func (o *Orchestrator) refreshTaunt(ts *tickState, c Combatant) {
	radius := c.AggroRadius()
	active := false
	if radius > 0 {
		for _, other := range ts.roster {
			if other.ID() == c.ID() || !other.IsAlive() || !Hostile(c.Faction(), other.Faction()) {
				continue
			}
			if c.DistanceTo(other.Position()) <= radius {
				active = true
				break
			}
		}
	}
	c.SetTaunting(active)
}

// spendMomentum turns pending credit into bonus strikes while the target is
// in range and into bonus steps toward it otherwise. Bonus steps earn no
// credit. Credit that cannot be spent is kept, including credit carried
// over from earlier ticks.
//
// Postcondition: Returns true when at least one bonus step was taken.
func (o *Orchestrator) spendMomentum(ts *tickState, c, target Combatant) bool {
	m := c.Momentum()
	if m.Pending <= 0 {
		return false
	}
	stepped := false
	st := c.Stats()
	for m.Pending > 0 && target.IsAlive() {
		if c.DistanceTo(target.Position()) <= st.AttackRange {
			o.strike(ts, c, target)
			ts.report.BonusStrikes++
		} else {
			path := o.cache.GetPath(c, target.Position(), o.grid, ts.occupied,
				PathRequest{Now: o.now, TrackedID: target.ID()})
			if len(path) < 2 || !o.stepTo(ts, c, path[1]) {
				break
			}
			ts.report.BonusSteps++
			stepped = true
		}
		m.Pending--
	}
	c.SetMomentum(m)
	return stepped
}
