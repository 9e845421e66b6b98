package event_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/hexwar/internal/game/event"
)

func TestFields_AlwaysPresent(t *testing.T) {
	cases := []struct {
		ev   event.Event
		keys []string
	}{
		{event.UnitDamaged{}, []string{"attackerId", "targetId", "amount", "remainingHealth"}},
		{event.UnitDied{}, []string{"unitId", "attackerId", "attackerFaction", "unitFaction"}},
		{event.StructureDamaged{}, []string{"attackerId", "attackerFaction", "amount", "remainingHealth"}},
		{event.StructureDestroyed{}, []string{"attackerId", "attackerFaction"}},
	}
	for _, tc := range cases {
		fields := tc.ev.Fields()
		assert.Len(t, fields, len(tc.keys), "kind %s", tc.ev.Kind())
		for _, k := range tc.keys {
			assert.Contains(t, fields, k, "kind %s", tc.ev.Kind())
		}
	}
}

func TestFields_EnvironmentalAttacker(t *testing.T) {
	f := event.UnitDied{UnitID: "u1", UnitFaction: "red"}.Fields()
	assert.Equal(t, event.NoAttacker, f["attackerId"])
	assert.Equal(t, event.NoAttacker, f["attackerFaction"])
}

func TestBus_FansOutInOrder(t *testing.T) {
	var order []string
	a := event.EmitterFunc(func(event.Event) { order = append(order, "a") })
	b := event.EmitterFunc(func(event.Event) { order = append(order, "b") })
	bus := event.NewBus(a, nil, b)

	bus.Emit(event.StructureDestroyed{AttackerID: "x"})
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestBuffer_DrainEmpties(t *testing.T) {
	var buf event.Buffer
	buf.Emit(event.UnitDamaged{TargetID: "t", Amount: 3})
	buf.Emit(event.UnitDied{UnitID: "t"})
	assert.Equal(t, 1, buf.Count(event.KindUnitDied))

	got := buf.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, event.KindUnitDamaged, got[0].Kind())
	assert.Empty(t, buf.Events())
}

func TestLogSink_LogsAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := event.NewLogSink(zap.New(core))
	sink.Emit(event.UnitDamaged{AttackerID: "a", TargetID: "t", Amount: 2, RemainingHealth: 1})

	entries := logs.FilterMessage("battle event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "unit_damaged", entries[0].ContextMap()["kind"])
}

func TestNewLogSink_NilPanics(t *testing.T) {
	assert.Panics(t, func() { event.NewLogSink(nil) })
}

func TestPayload_RoundTrip(t *testing.T) {
	data, err := event.MarshalPayload(event.StructureDamaged{
		AttackerID: "u1", AttackerFaction: "red", Amount: 4, RemainingHealth: 16,
	})
	require.NoError(t, err)

	p, err := event.UnmarshalPayload(data)
	require.NoError(t, err)
	assert.Equal(t, event.KindStructureDamaged, p.Kind)
	assert.Equal(t, "u1", p.Fields["attackerId"])
	assert.Equal(t, float64(16), p.Fields["remainingHealth"])
}

func TestUnmarshalPayload_Invalid(t *testing.T) {
	_, err := event.UnmarshalPayload([]byte("not json"))
	assert.Error(t, err)
	_, err = event.UnmarshalPayload([]byte(`{"amount": 1}`))
	assert.Error(t, err)
}

func TestMarshalFrame(t *testing.T) {
	data, err := event.MarshalFrame(7, 1500*time.Millisecond, []event.Event{
		event.UnitDamaged{AttackerID: "a", TargetID: "b", Amount: 3, RemainingHealth: 2},
		event.UnitDied{UnitID: "b", AttackerID: "a", AttackerFaction: "red", UnitFaction: "blue"},
	})
	require.NoError(t, err)

	var s structpb.Struct
	require.NoError(t, protojson.Unmarshal(data, &s))
	frame := s.AsMap()
	assert.Equal(t, float64(7), frame["tick"])
	assert.Equal(t, float64(1500), frame["simTimeMs"])
	events, ok := frame["events"].([]any)
	require.True(t, ok)
	require.Len(t, events, 2)
	first := events[0].(map[string]any)
	assert.Equal(t, "unit_damaged", first["kind"])
	assert.Equal(t, float64(3), first["amount"])
}

func TestMarshalFrame_Empty(t *testing.T) {
	data, err := event.MarshalFrame(1, 0, nil)
	require.NoError(t, err)
	var s structpb.Struct
	require.NoError(t, protojson.Unmarshal(data, &s))
	assert.Empty(t, s.AsMap()["events"])
}
