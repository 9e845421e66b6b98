// Package config provides Viper-based configuration loading for the battle server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// ReplayConfig controls the persistent battle event log.
type ReplayConfig struct {
	// Enabled turns on writing every tick's events to the database. When
	// false the database section is not validated and no pool is opened.
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleConfig holds simulation settings.
type BattleConfig struct {
	// TickInterval is the wall-clock period between ticks.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// TimeScale multiplies wall time into simulation time.
	TimeScale float64 `mapstructure:"time_scale"`
	// PathCacheTTL is how long a cached route stays valid in simulation time.
	PathCacheTTL time.Duration `mapstructure:"path_cache_ttl"`
	// CacheSweepTicks is the number of ticks between expired-route sweeps.
	CacheSweepTicks int `mapstructure:"cache_sweep_ticks"`
	// MaxTicks stops the battle after this many ticks; 0 runs until one
	// side is eliminated or the keep falls.
	MaxTicks uint64 `mapstructure:"max_ticks"`
	// Seed seeds the dice source; 0 selects a cryptographic source.
	Seed uint64 `mapstructure:"seed"`
	// Scenario is the path to the scenario YAML file.
	Scenario string `mapstructure:"scenario"`
	// MapsDir holds the map YAML files scenarios refer to.
	MapsDir string `mapstructure:"maps_dir"`
	// UnitsDir holds the unit template YAML files.
	UnitsDir string `mapstructure:"units_dir"`
	// ScriptsDir holds Lua damage scripts loaded into the global VM. Empty
	// disables scripting.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// ScriptInstructionLimit bounds each Lua call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// GameServerConfig holds listener settings for the battle server.
type GameServerConfig struct {
	// GRPCHost is the bind address for the gRPC health service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the gRPC health service.
	GRPCPort int `mapstructure:"grpc_port"`
	// EventsHost is the bind address for the websocket event stream.
	EventsHost string `mapstructure:"events_host"`
	// EventsPort is the TCP port for the websocket event stream.
	EventsPort int `mapstructure:"events_port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// EventsAddr returns the "host:port" websocket address.
func (g GameServerConfig) EventsAddr() string {
	return fmt.Sprintf("%s:%d", g.EventsHost, g.EventsPort)
}

// Config is the top-level application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Replay     ReplayConfig     `mapstructure:"replay"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Battle     BattleConfig     `mapstructure:"battle"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Replay.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("battle.tick_interval must be > 0, got %s", b.TickInterval))
	}
	if b.TimeScale <= 0 {
		errs = append(errs, fmt.Sprintf("battle.time_scale must be > 0, got %g", b.TimeScale))
	}
	if b.PathCacheTTL < 0 {
		errs = append(errs, "battle.path_cache_ttl must not be negative")
	}
	if b.CacheSweepTicks < 0 {
		errs = append(errs, fmt.Sprintf("battle.cache_sweep_ticks must be >= 0, got %d", b.CacheSweepTicks))
	}
	if b.Scenario == "" {
		errs = append(errs, "battle.scenario must not be empty")
	}
	if b.UnitsDir == "" {
		errs = append(errs, "battle.units_dir must not be empty")
	}
	if b.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("battle.script_instruction_limit must be >= 0, got %d", b.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.EventsHost == "" {
		errs = append(errs, "gameserver.events_host must not be empty")
	}
	if g.EventsPort < 1 || g.EventsPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.events_port must be 1-65535, got %d", g.EventsPort))
	}
	if g.EventsPort == g.GRPCPort {
		errs = append(errs, "gameserver.events_port must differ from gameserver.grpc_port")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// ErrNoConfigFile is returned by Load when path is empty.
var ErrNoConfigFile = errors.New("config file path must not be empty")

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrNoConfigFile
	}
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with HEXWAR_ prefix
	v.SetEnvPrefix("HEXWAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) { setDefaults(v) }

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "hexwar")
	v.SetDefault("database.password", "hexwar")
	v.SetDefault("database.name", "hexwar")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("replay.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.tick_interval", "100ms")
	v.SetDefault("battle.time_scale", 1.0)
	v.SetDefault("battle.path_cache_ttl", "500ms")
	v.SetDefault("battle.cache_sweep_ticks", 20)
	v.SetDefault("battle.max_ticks", 0)
	v.SetDefault("battle.seed", 0)
	v.SetDefault("battle.maps_dir", "content/maps")
	v.SetDefault("battle.units_dir", "content/units")
	v.SetDefault("battle.scripts_dir", "")
	v.SetDefault("battle.script_instruction_limit", 100000)

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
	v.SetDefault("gameserver.events_host", "0.0.0.0")
	v.SetDefault("gameserver.events_port", 8080)
}
