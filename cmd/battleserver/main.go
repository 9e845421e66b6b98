// Package main provides the battle server binary: it loads a scenario, runs
// the battle to completion at a fixed tick rate, streams tick events to
// websocket observers, reports health over gRPC, and optionally records
// every tick for replay.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hexwar/internal/config"
	"github.com/cory-johannsen/hexwar/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	scenarioPath := flag.String("scenario", "", "scenario YAML file; overrides battle.scenario")
	seed := flag.Uint64("seed", 0, "dice seed; overrides battle.seed when non-zero")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *scenarioPath != "" {
		cfg.Battle.Scenario = *scenarioPath
	}
	if *seed != 0 {
		cfg.Battle.Seed = *seed
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting battle server",
		zap.String("scenario", cfg.Battle.Scenario),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.String("events_addr", cfg.GameServer.EventsAddr()),
		zap.Bool("replay", cfg.Replay.Enabled),
	)

	ctx := context.Background()
	a, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing battle server", zap.Error(err))
	}
	defer cleanup()

	fields := []zap.Field{
		zap.Duration("startup", time.Since(start)),
		zap.Strings("services", a.Lifecycle.Names()),
	}
	if a.Replay != nil {
		fields = append(fields, zap.String("battle_id", a.Replay.id.String()))
	}
	logger.Info("battle server initialized", fields...)

	if err := a.Lifecycle.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return
	}
	out := a.Battle.Outcome()
	logger.Info("battle server exiting",
		zap.Bool("battle_over", out.Over),
		zap.String("winner", out.Winner),
		zap.String("reason", out.Reason),
	)
}
