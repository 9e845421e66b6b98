// Package scenario loads battle scenarios from YAML and builds a ready
// battle from them: the map, the defended keep, and the initial roster in
// declaration order.
package scenario

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/hexwar/internal/game/battle"
	"github.com/cory-johannsen/hexwar/internal/game/hex"
)

// KeepSpec places the defended structure.
type KeepSpec struct {
	ID        string `yaml:"id"`
	Faction   string `yaml:"faction"`
	Q         int    `yaml:"q"`
	R         int    `yaml:"r"`
	MaxHealth int    `yaml:"max_health"`
}

// Coord returns the keep's cell.
func (k KeepSpec) Coord() hex.Coord { return hex.Coord{Q: k.Q, R: k.R} }

// SpawnSpec places one unit. Spawns are applied in file order, which is the
// initial roster order.
type SpawnSpec struct {
	Template string `yaml:"template"`
	Faction  string `yaml:"faction"`
	Q        int    `yaml:"q"`
	R        int    `yaml:"r"`
	// RespawnAfter is an optional duration string. When set, a fresh unit
	// is sent to the same cell that long after the previous one dies.
	RespawnAfter string `yaml:"respawn_after"`
}

// Coord returns the spawn cell.
func (s SpawnSpec) Coord() hex.Coord { return hex.Coord{Q: s.Q, R: s.R} }

// Delay returns the parsed RespawnAfter, zero when unset.
func (s SpawnSpec) Delay() time.Duration {
	d, _ := time.ParseDuration(s.RespawnAfter)
	return d
}

// Scenario is a battle setup.
type Scenario struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Map is the ID of a map known to the world manager.
	Map string `yaml:"map"`
	// RevealRadius lifts fog around every spawn cell at build time.
	RevealRadius int         `yaml:"reveal_radius"`
	Keep         *KeepSpec   `yaml:"keep"`
	Spawns       []SpawnSpec `yaml:"spawns"`
}

type scenarioFile struct {
	Scenario Scenario `yaml:"scenario"`
}

// Validate checks that the scenario is self-consistent. Map and template
// references are checked by Build.
//
// Postcondition: Returns nil if valid, or an error listing every violation.
func (s *Scenario) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("scenario: id must not be empty")
	}
	var errs []string
	if s.Map == "" {
		errs = append(errs, "map must not be empty")
	}
	if s.RevealRadius < 0 {
		errs = append(errs, "reveal_radius must be >= 0")
	}
	if len(s.Spawns) == 0 {
		errs = append(errs, "at least one spawn is required")
	}

	taken := make(map[string]string)
	if k := s.Keep; k != nil {
		if k.ID == "" {
			errs = append(errs, "keep.id must not be empty")
		}
		if k.Faction == "" || k.Faction == battle.FactionNeutral {
			errs = append(errs, fmt.Sprintf("keep.faction %q cannot be attacked", k.Faction))
		}
		if k.MaxHealth < 1 {
			errs = append(errs, "keep.max_health must be >= 1")
		}
		taken[k.Coord().Key()] = "keep"
	}
	for i, sp := range s.Spawns {
		label := fmt.Sprintf("spawns[%d]", i)
		if sp.Template == "" {
			errs = append(errs, label+".template must not be empty")
		}
		if sp.Faction == "" {
			errs = append(errs, label+".faction must not be empty")
		}
		if sp.RespawnAfter != "" {
			if d, err := time.ParseDuration(sp.RespawnAfter); err != nil || d <= 0 {
				errs = append(errs, fmt.Sprintf("%s.respawn_after %q is not a positive duration", label, sp.RespawnAfter))
			}
		}
		key := sp.Coord().Key()
		if other, dup := taken[key]; dup {
			errs = append(errs, fmt.Sprintf("%s cell %s is already used by %s", label, key, other))
			continue
		}
		taken[key] = label
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("scenario %q: %s", s.ID, strings.Join(errs, "; "))
	}
	return nil
}

// LoadFromBytes parses and validates a scenario from YAML bytes.
//
// Precondition: data must be valid YAML with a top-level "scenario" key.
// Postcondition: Returns a validated *Scenario or a non-nil error.
func LoadFromBytes(data []byte) (*Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	sc := f.Scenario
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("validating scenario: %w", err)
	}
	if sc.Name == "" {
		sc.Name = sc.ID
	}
	return &sc, nil
}

// LoadFromFile reads and validates a scenario file.
//
// Postcondition: Returns a validated *Scenario or a non-nil error.
func LoadFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %s: %w", path, err)
	}
	sc, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return sc, nil
}
