// Package unit provides the concrete battle combatant, its YAML templates,
// the arena that owns live units, and the damage models units attack with.
package unit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/hexwar/internal/game/battle"
	"github.com/cory-johannsen/hexwar/internal/game/dice"
)

// MomentumSpec configures momentum credit for a template.
type MomentumSpec struct {
	// StepThreshold is the tiles per credit; 0 disables momentum.
	StepThreshold int `yaml:"step_threshold"`
	MaxStacks     int `yaml:"max_stacks"`
}

// Template defines a reusable unit archetype loaded from YAML.
type Template struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	MaxHealth     int    `yaml:"max_health"`
	AttackDamage  int    `yaml:"attack_damage"`
	AttackRange   int    `yaml:"attack_range"`
	MovementRange int    `yaml:"movement_range"`
	// MoveInterval is the movement cooldown as a duration string ("750ms").
	// Empty means the unit may move every tick.
	MoveInterval string `yaml:"move_interval"`
	AggroRadius  int    `yaml:"aggro_radius"`
	SightRadius  int    `yaml:"sight_radius"`
	// DamageSpread, when set, replaces AttackDamage with a roll such as "1d4+2".
	DamageSpread string `yaml:"damage_spread"`
	// DamageHook, when set, names a Lua hook computing damage.
	DamageHook       string       `yaml:"damage_hook"`
	Momentum         MomentumSpec `yaml:"momentum"`
	PriorityFactions []string     `yaml:"priority_factions"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil if valid, or an error listing every violation.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("unit template: id must not be empty")
	}
	var errs []string
	if t.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if t.MaxHealth < 1 {
		errs = append(errs, "max_health must be >= 1")
	}
	for name, v := range map[string]int{
		"attack_damage":           t.AttackDamage,
		"attack_range":            t.AttackRange,
		"movement_range":          t.MovementRange,
		"aggro_radius":            t.AggroRadius,
		"sight_radius":            t.SightRadius,
		"momentum.step_threshold": t.Momentum.StepThreshold,
		"momentum.max_stacks":     t.Momentum.MaxStacks,
	} {
		if v < 0 {
			errs = append(errs, name+" must be >= 0")
		}
	}
	if t.MoveInterval != "" {
		if d, err := time.ParseDuration(t.MoveInterval); err != nil || d < 0 {
			errs = append(errs, fmt.Sprintf("move_interval %q is not a non-negative duration", t.MoveInterval))
		}
	}
	if t.DamageSpread != "" {
		if _, err := dice.ParseSpread(t.DamageSpread); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, f := range t.PriorityFactions {
		if f == "" || f == battle.FactionNeutral {
			errs = append(errs, fmt.Sprintf("priority faction %q is not targetable", f))
		}
	}
	if len(errs) > 0 {
		// Map iteration order is random; keep messages stable.
		sort.Strings(errs)
		return fmt.Errorf("unit template %q: %s", t.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Interval returns the parsed MoveInterval, zero when unset.
func (t *Template) Interval() time.Duration {
	d, _ := time.ParseDuration(t.MoveInterval)
	return d
}

// LoadTemplateFromBytes parses a single unit template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading unit dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
