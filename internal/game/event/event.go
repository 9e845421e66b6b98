// Package event defines the domain events the battle core emits and the
// sinks that consume them.
package event

// Kind names an event type on the wire.
type Kind string

// Event kinds. The string values are stable and consumed by presentation layers.
const (
	KindUnitDamaged        Kind = "unit_damaged"
	KindUnitDied           Kind = "unit_died"
	KindStructureDamaged   Kind = "structure_damaged"
	KindStructureDestroyed Kind = "structure_destroyed"
)

// NoAttacker fills attacker fields for damage with no attributable source.
const NoAttacker = "none"

// Event is a domain event.
type Event interface {
	Kind() Kind
	// Fields returns every payload field keyed by its wire name. Every field
	// is always present.
	Fields() map[string]any
}

// UnitDamaged reports damage dealt to a unit.
type UnitDamaged struct {
	AttackerID      string
	TargetID        string
	Amount          int
	RemainingHealth int
}

// Kind implements Event.
func (UnitDamaged) Kind() Kind { return KindUnitDamaged }

// Fields implements Event.
func (e UnitDamaged) Fields() map[string]any {
	return map[string]any{
		"attackerId":      orNone(e.AttackerID),
		"targetId":        e.TargetID,
		"amount":          e.Amount,
		"remainingHealth": e.RemainingHealth,
	}
}

// UnitDied reports a unit's health reaching zero.
type UnitDied struct {
	UnitID          string
	AttackerID      string
	AttackerFaction string
	UnitFaction     string
}

// Kind implements Event.
func (UnitDied) Kind() Kind { return KindUnitDied }

// Fields implements Event.
func (e UnitDied) Fields() map[string]any {
	return map[string]any{
		"unitId":          e.UnitID,
		"attackerId":      orNone(e.AttackerID),
		"attackerFaction": orNone(e.AttackerFaction),
		"unitFaction":     e.UnitFaction,
	}
}

// StructureDamaged reports damage dealt to the defended structure.
type StructureDamaged struct {
	AttackerID      string
	AttackerFaction string
	Amount          int
	RemainingHealth int
}

// Kind implements Event.
func (StructureDamaged) Kind() Kind { return KindStructureDamaged }

// Fields implements Event.
func (e StructureDamaged) Fields() map[string]any {
	return map[string]any{
		"attackerId":      orNone(e.AttackerID),
		"attackerFaction": orNone(e.AttackerFaction),
		"amount":          e.Amount,
		"remainingHealth": e.RemainingHealth,
	}
}

// StructureDestroyed is the terminal event of a defended structure.
type StructureDestroyed struct {
	AttackerID      string
	AttackerFaction string
}

// Kind implements Event.
func (StructureDestroyed) Kind() Kind { return KindStructureDestroyed }

// Fields implements Event.
func (e StructureDestroyed) Fields() map[string]any {
	return map[string]any{
		"attackerId":      orNone(e.AttackerID),
		"attackerFaction": orNone(e.AttackerFaction),
	}
}

func orNone(s string) string {
	if s == "" {
		return NoAttacker
	}
	return s
}
