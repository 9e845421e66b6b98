package main

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexwar/internal/config"
)

func testConfig(t *testing.T, overrides map[string]any) config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("battle.scenario", "../../content/scenarios/skirmish.yaml")
	v.Set("battle.maps_dir", "../../content/maps")
	v.Set("battle.units_dir", "../../content/units")
	v.Set("battle.scripts_dir", "../../content/scripts")
	v.Set("battle.seed", 42)
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.LoadFromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestInitializeApp_WithoutReplay(t *testing.T) {
	a, cleanup, err := initializeApp(context.Background(), testConfig(t, nil), zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, []string{"battle", "events", "grpc"}, a.Lifecycle.Names())
	assert.Nil(t, a.Replay)
	assert.Equal(t, "skirmish", a.Battle.Scenario.ID)
	assert.Len(t, a.Battle.Arena.Units(), len(a.Battle.Scenario.Spawns))
}

func TestInitializeApp_ScriptingDisabled(t *testing.T) {
	cfg := testConfig(t, map[string]any{"battle.scripts_dir": ""})
	a, cleanup, err := initializeApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, a.Battle)
}

func TestInitializeApp_MissingScenario(t *testing.T) {
	cfg := testConfig(t, map[string]any{"battle.scenario": "../../content/scenarios/nope.yaml"})
	_, _, err := initializeApp(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "loading scenario")
}
