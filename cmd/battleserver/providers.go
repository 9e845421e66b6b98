package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/google/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/hexwar/internal/config"
	"github.com/cory-johannsen/hexwar/internal/game/battle"
	"github.com/cory-johannsen/hexwar/internal/game/dice"
	"github.com/cory-johannsen/hexwar/internal/game/event"
	"github.com/cory-johannsen/hexwar/internal/game/scenario"
	"github.com/cory-johannsen/hexwar/internal/game/unit"
	"github.com/cory-johannsen/hexwar/internal/game/world"
	"github.com/cory-johannsen/hexwar/internal/gameserver"
	"github.com/cory-johannsen/hexwar/internal/scripting"
	"github.com/cory-johannsen/hexwar/internal/server"
	"github.com/cory-johannsen/hexwar/internal/storage/postgres"
)

// providerSet builds the battle server from a loaded Config.
var providerSet = wire.NewSet(
	wire.FieldsOf(new(config.Config), "Battle", "GameServer", "Replay", "Database"),
	provideRoller,
	provideScripts,
	provideWorlds,
	provideTemplates,
	provideScenario,
	provideBattle,
	provideBuffer,
	provideOrchestrator,
	provideHub,
	gameserver.NewHealth,
	provideReplay,
	provideLoop,
	provideLifecycle,
	wire.Struct(new(app), "*"),
)

// app is the assembled battle server.
type app struct {
	Lifecycle *server.Lifecycle
	Battle    *scenario.Battle
	Replay    *replaySession
}

// replaySession is the persistence side of one battle; nil when replay
// recording is disabled.
type replaySession struct {
	pool *postgres.Pool
	repo *postgres.BattleLogRepository
	id   uuid.UUID
}

func provideRoller(cfg config.BattleConfig, logger *zap.Logger) *dice.Roller {
	var src dice.Source
	if cfg.Seed != 0 {
		src = dice.NewSeededSource(cfg.Seed)
		logger.Info("dice seeded", zap.Uint64("seed", cfg.Seed))
	} else {
		src = dice.NewCryptoSource()
	}
	return dice.NewLoggedRoller(src, logger)
}

// provideScripts loads the global damage scripts, plus a scenario's own
// scripts from a subdirectory named after it. Returns nil when scripting is
// disabled.
func provideScripts(cfg config.BattleConfig, sc *scenario.Scenario, roller *dice.Roller, logger *zap.Logger) (*scripting.Manager, func(), error) {
	if cfg.ScriptsDir == "" {
		logger.Info("scripting disabled")
		return nil, func() {}, nil
	}
	start := time.Now()
	mgr := scripting.NewManager(roller, logger)
	if err := mgr.LoadGlobal(cfg.ScriptsDir, cfg.ScriptInstructionLimit); err != nil {
		mgr.Close()
		return nil, nil, fmt.Errorf("loading global scripts: %w", err)
	}
	scenarioDir := filepath.Join(cfg.ScriptsDir, sc.ID)
	if info, err := os.Stat(scenarioDir); err == nil && info.IsDir() {
		if err := mgr.LoadScenario(sc.ID, scenarioDir, cfg.ScriptInstructionLimit); err != nil {
			mgr.Close()
			return nil, nil, fmt.Errorf("loading scenario scripts: %w", err)
		}
		logger.Info("scenario scripts loaded", zap.String("dir", scenarioDir))
	}
	logger.Info("scripting engine initialized",
		zap.String("dir", cfg.ScriptsDir),
		zap.Duration("elapsed", time.Since(start)),
	)
	return mgr, mgr.Close, nil
}

func provideWorlds(cfg config.BattleConfig, logger *zap.Logger) (*world.Manager, error) {
	start := time.Now()
	mgr, err := world.NewManagerFromDir(cfg.MapsDir)
	if err != nil {
		return nil, fmt.Errorf("loading maps: %w", err)
	}
	logger.Info("maps loaded",
		zap.Int("maps", mgr.MapCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return mgr, nil
}

func provideTemplates(cfg config.BattleConfig, logger *zap.Logger) ([]*unit.Template, error) {
	tmpls, err := unit.LoadTemplates(cfg.UnitsDir)
	if err != nil {
		return nil, fmt.Errorf("loading unit templates: %w", err)
	}
	logger.Info("loaded unit templates", zap.Int("count", len(tmpls)))
	return tmpls, nil
}

func provideScenario(cfg config.BattleConfig) (*scenario.Scenario, error) {
	sc, err := scenario.LoadFromFile(cfg.Scenario)
	if err != nil {
		return nil, fmt.Errorf("loading scenario: %w", err)
	}
	return sc, nil
}

func provideBattle(
	sc *scenario.Scenario,
	worlds *world.Manager,
	tmpls []*unit.Template,
	roller *dice.Roller,
	scripts *scripting.Manager,
	logger *zap.Logger,
) (*scenario.Battle, error) {
	var caller unit.HookCaller
	if scripts != nil {
		caller = scripts
	}
	opts := func(t *unit.Template) []unit.Option {
		return []unit.Option{
			unit.WithDamageModel(unit.DamageFor(t, roller, caller, sc.ID, logger)),
			unit.WithSource(roller.Source()),
		}
	}
	b, err := scenario.Build(sc, worlds, tmpls, opts)
	if err != nil {
		return nil, fmt.Errorf("building battle: %w", err)
	}
	logger.Info("battle built",
		zap.String("scenario", sc.ID),
		zap.String("map", sc.Map),
		zap.Int("units", b.Arena.Len()),
		zap.Bool("keep", b.Keep != nil),
	)
	return b, nil
}

func provideBuffer() *event.Buffer { return &event.Buffer{} }

func provideOrchestrator(cfg config.BattleConfig, b *scenario.Battle, buf *event.Buffer, logger *zap.Logger) *battle.Orchestrator {
	return battle.NewOrchestrator(b.Map,
		battle.WithEmitter(event.NewBus(buf, event.NewLogSink(logger))),
		battle.WithNotifier(b),
		battle.WithPathCache(battle.NewPathCache(cfg.PathCacheTTL)),
		battle.WithSweepEvery(cfg.CacheSweepTicks),
		battle.WithLogger(logger),
	)
}

func provideHub(logger *zap.Logger) (*gameserver.Hub, func()) {
	hub := gameserver.NewHub(logger)
	return hub, hub.Close
}

// provideReplay opens the battle log when replay recording is enabled.
func provideReplay(ctx context.Context, replay config.ReplayConfig, db config.DatabaseConfig, bc config.BattleConfig, sc *scenario.Scenario, logger *zap.Logger) (*replaySession, func(), error) {
	if !replay.Enabled {
		return nil, func() {}, nil
	}
	start := time.Now()
	pool, err := postgres.NewPool(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	repo := postgres.NewBattleLogRepository(pool.DB())
	id, err := repo.StartBattle(ctx, sc.ID, sc.Map, bc.Seed)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("starting battle log: %w", err)
	}
	logger.Info("battle log opened",
		zap.String("battle_id", id.String()),
		zap.String("host", db.Host),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &replaySession{pool: pool, repo: repo, id: id}, pool.Close, nil
}

func provideLoop(
	cfg config.BattleConfig,
	b *scenario.Battle,
	orch *battle.Orchestrator,
	buf *event.Buffer,
	hub *gameserver.Hub,
	health *gameserver.Health,
	replay *replaySession,
	logger *zap.Logger,
) *gameserver.BattleLoop {
	opts := []gameserver.LoopOption{
		gameserver.WithPublisher(hub),
		gameserver.WithMaxTicks(cfg.MaxTicks),
		gameserver.WithLoopLogger(logger),
		gameserver.WithOnFinish(func(scenario.Outcome) { health.BattleFinished() }),
	}
	if replay != nil {
		opts = append(opts, gameserver.WithRecorder(replay.repo, replay.id))
	}
	clock := gameserver.NewSimClock(cfg.TimeScale)
	return gameserver.NewBattleLoop(b, orch, buf, clock, cfg.TickInterval, opts...)
}

func provideLifecycle(
	gs config.GameServerConfig,
	loop *gameserver.BattleLoop,
	hub *gameserver.Hub,
	health *gameserver.Health,
	replay *replaySession,
	logger *zap.Logger,
) *server.Lifecycle {
	lc := server.NewLifecycle(logger)

	lc.Add("battle", loop)

	mux := http.NewServeMux()
	mux.Handle("/events", hub)
	httpServer := &http.Server{
		Addr:              gs.EventsAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	lc.Add("events", &server.FuncService{
		StartFn: func() error {
			logger.Info("event stream listening", zap.String("addr", gs.EventsAddr()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving events on %s: %w", gs.EventsAddr(), err)
			}
			return nil
		},
		StopFn: func() {
			hub.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(ctx)
		},
	})

	grpcServer := grpc.NewServer()
	health.Register(grpcServer)
	lc.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", gs.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", gs.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			health.Shutdown()
			grpcServer.GracefulStop()
		},
	})

	if replay != nil {
		stop := make(chan struct{})
		lc.Add("postgres", &server.FuncService{
			StartFn: func() error {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-stop:
						return nil
					case <-ticker.C:
						if err := replay.pool.Health(context.Background(), 5*time.Second); err != nil {
							logger.Warn("database health check failed", zap.Error(err))
						}
					}
				}
			},
			StopFn: func() { close(stop) },
		})
	}
	return lc
}
