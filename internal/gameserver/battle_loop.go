package gameserver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexwar/internal/game/battle"
	"github.com/cory-johannsen/hexwar/internal/game/event"
	"github.com/cory-johannsen/hexwar/internal/game/scenario"
)

// ReasonTickLimit is the outcome reason when the configured tick limit ends
// the battle.
const ReasonTickLimit = "tick limit"

// Recorder persists each tick's events after the tick ends.
type Recorder interface {
	AppendTick(ctx context.Context, battleID uuid.UUID, tick uint64, simTime time.Duration, events []event.Event) error
	FinishBattle(ctx context.Context, battleID uuid.UUID, winner, reason string, ticks uint64) error
}

// Publisher streams each tick's events to observers. Publish must not block.
type Publisher interface {
	Publish(tick uint64, simTime time.Duration, events []event.Event)
}

// BattleLoop drives one battle at a fixed wall-clock interval: each period
// it advances the simulation clock, runs one orchestrator tick, hands the
// tick's events to the publisher and recorder, and performs upkeep.
//
// Invariant: only the loop goroutine calls Tick.
type BattleLoop struct {
	interval time.Duration
	maxTicks uint64
	clock    *SimClock
	orch     *battle.Orchestrator
	battle   *scenario.Battle
	buffer   *event.Buffer

	recorder  Recorder
	battleID  uuid.UUID
	publisher Publisher
	onFinish  func(scenario.Outcome)
	logger    *zap.Logger

	// ctx is cancelled by Stop; done closes when Start returns.
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	started bool
	outcome scenario.Outcome
}

// LoopOption configures a BattleLoop.
type LoopOption func(*BattleLoop)

// WithRecorder persists every tick under battleID.
func WithRecorder(r Recorder, battleID uuid.UUID) LoopOption {
	return func(l *BattleLoop) {
		l.recorder = r
		l.battleID = battleID
	}
}

// WithPublisher streams every tick's events.
func WithPublisher(p Publisher) LoopOption {
	return func(l *BattleLoop) { l.publisher = p }
}

// WithMaxTicks ends the battle after n ticks; 0 means no limit.
func WithMaxTicks(n uint64) LoopOption {
	return func(l *BattleLoop) { l.maxTicks = n }
}

// WithOnFinish registers a callback invoked once when the battle ends.
func WithOnFinish(fn func(scenario.Outcome)) LoopOption {
	return func(l *BattleLoop) { l.onFinish = fn }
}

// WithLoopLogger sets the loop's logger.
func WithLoopLogger(logger *zap.Logger) LoopOption {
	return func(l *BattleLoop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewBattleLoop creates a loop over b. buf must be the buffer the
// orchestrator emits into.
//
// Precondition: interval > 0; b, orch, buf, and clock must not be nil.
// Postcondition: Returns a stopped loop ready to Run.
func NewBattleLoop(b *scenario.Battle, orch *battle.Orchestrator, buf *event.Buffer, clock *SimClock, interval time.Duration, opts ...LoopOption) *BattleLoop {
	if interval <= 0 {
		panic("gameserver.NewBattleLoop: interval must be > 0")
	}
	if b == nil || orch == nil || buf == nil || clock == nil {
		panic("gameserver.NewBattleLoop: battle, orchestrator, buffer, and clock must not be nil")
	}
	l := &BattleLoop{
		interval: interval,
		clock:    clock,
		orch:     orch,
		battle:   b,
		buffer:   buf,
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Step runs one tick synchronously.
//
// Postcondition: Returns the battle outcome after the tick, and the
// recorder's error if persisting the tick failed. A persistence failure
// does not undo the tick.
func (l *BattleLoop) Step(ctx context.Context) (scenario.Outcome, error) {
	elapsed := l.clock.Advance(l.interval)
	l.orch.Tick(l.battle.Arena.Roster(), elapsed, l.battle.Structure())

	events := l.buffer.Drain()
	tick, now := l.orch.Ticks(), l.orch.Now()
	if l.publisher != nil && len(events) > 0 {
		l.publisher.Publish(tick, now, events)
	}
	var err error
	if l.recorder != nil {
		err = l.recorder.AppendTick(ctx, l.battleID, tick, now, events)
	}

	reaped, spawned := l.battle.Upkeep(now, l.orch.PathCache())
	if len(reaped) > 0 || len(spawned) > 0 {
		l.logger.Debug("upkeep",
			zap.Uint64("tick", tick),
			zap.Strings("reaped", reaped),
			zap.Strings("spawned", spawned),
		)
	}

	out := l.battle.Outcome()
	if !out.Over && l.maxTicks > 0 && tick >= l.maxTicks {
		out = scenario.Outcome{Over: true, Reason: ReasonTickLimit}
	}
	return out, err
}

// Run ticks until the battle ends or ctx is cancelled.
//
// Postcondition: Returns nil when the battle ended or ctx was cancelled.
func (l *BattleLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	l.logger.Info("battle started",
		zap.String("scenario", l.battle.Scenario.ID),
		zap.Duration("interval", l.interval),
	)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("battle loop cancelled", zap.Uint64("ticks", l.orch.Ticks()))
			return nil
		case <-ticker.C:
			out, err := l.Step(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("persisting tick", zap.Uint64("tick", l.orch.Ticks()), zap.Error(err))
			}
			if out.Over {
				l.finish(ctx, out)
				return nil
			}
		}
	}
}

func (l *BattleLoop) finish(ctx context.Context, out scenario.Outcome) {
	l.mu.Lock()
	l.outcome = out
	l.mu.Unlock()

	ticks := l.orch.Ticks()
	l.logger.Info("battle finished",
		zap.String("winner", out.Winner),
		zap.String("reason", out.Reason),
		zap.Uint64("ticks", ticks),
		zap.Duration("sim_time", l.orch.Now()),
	)
	if l.recorder != nil {
		if err := l.recorder.FinishBattle(ctx, l.battleID, out.Winner, out.Reason, ticks); err != nil {
			l.logger.Error("recording battle outcome", zap.Error(err))
		}
	}
	if l.onFinish != nil {
		l.onFinish(out)
	}
}

// Outcome returns the final outcome, zero until the battle ends.
func (l *BattleLoop) Outcome() scenario.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outcome
}

// Start implements server.Service: it runs the loop until Stop or the end
// of the battle. A loop stopped before Start returns immediately.
//
// Postcondition: Returns an error if the loop was already started.
func (l *BattleLoop) Start() error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return errors.New("battle loop already started")
	}
	l.started = true
	l.mu.Unlock()
	defer close(l.done)
	return l.Run(l.ctx)
}

// Stop implements server.Service. It blocks until a started loop exits and
// is safe to call more than once or before Start.
func (l *BattleLoop) Stop() {
	l.cancel()
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if started {
		<-l.done
	}
}
