package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/hexwar/internal/game/hex"
)

// yamlMapFile is the top-level YAML structure for map files.
type yamlMapFile struct {
	Map yamlMap `yaml:"map"`
}

// yamlMap is the YAML representation of a map. When Radius is set, a
// hexagon of DefaultTerrain is generated first and Cells override it.
type yamlMap struct {
	ID             string     `yaml:"id"`
	Name           string     `yaml:"name"`
	Radius         *int       `yaml:"radius"`
	DefaultTerrain string     `yaml:"default_terrain"`
	Revealed       bool       `yaml:"revealed"`
	Cells          []yamlCell `yaml:"cells"`
}

// yamlCell is the YAML representation of a single cell.
type yamlCell struct {
	Q        int    `yaml:"q"`
	R        int    `yaml:"r"`
	Terrain  string `yaml:"terrain"`
	Revealed *bool  `yaml:"revealed"`
}

// LoadMapFromFile reads and validates a single map YAML file.
//
// Precondition: path must point to a valid YAML map file.
// Postcondition: Returns a validated Map or a non-nil error.
func LoadMapFromFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map file %s: %w", path, err)
	}
	return LoadMapFromBytes(data)
}

// LoadMapFromBytes parses and validates a map from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the map schema.
// Postcondition: Returns a validated Map or a non-nil error.
func LoadMapFromBytes(data []byte) (*Map, error) {
	var file yamlMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing map YAML: %w", err)
	}
	m, err := convertYAMLMap(file.Map)
	if err != nil {
		return nil, fmt.Errorf("validating map: %w", err)
	}
	return m, nil
}

// LoadMapsFromDir loads every YAML file in dir as a map, keyed by map ID.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated maps or the first error encountered.
func LoadMapsFromDir(dir string) (map[string]*Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading map directory %s: %w", dir, err)
	}

	maps := make(map[string]*Map)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		m, err := LoadMapFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading map from %s: %w", name, err)
		}
		if _, dup := maps[m.ID]; dup {
			return nil, fmt.Errorf("duplicate map ID %q in %s", m.ID, name)
		}
		maps[m.ID] = m
	}

	if len(maps) == 0 {
		return nil, fmt.Errorf("no map files found in %s", dir)
	}
	return maps, nil
}

// convertYAMLMap converts the parsed YAML structures into a Map.
func convertYAMLMap(ym yamlMap) (*Map, error) {
	byKey := make(map[string]*Cell)
	var order []hex.Coord

	if ym.Radius != nil {
		if *ym.Radius < 0 {
			return nil, fmt.Errorf("map %q: radius must be >= 0, got %d", ym.ID, *ym.Radius)
		}
		terrain := Terrain(ym.DefaultTerrain)
		if terrain == "" {
			terrain = Plains
		}
		for _, c := range hex.Ring(hex.Coord{}, *ym.Radius) {
			byKey[c.Key()] = &Cell{Coord: c, Terrain: terrain, Revealed: ym.Revealed}
			order = append(order, c)
		}
	}

	for _, yc := range ym.Cells {
		c := hex.Coord{Q: yc.Q, R: yc.R}
		cell, ok := byKey[c.Key()]
		if !ok {
			cell = &Cell{Coord: c, Terrain: Plains, Revealed: ym.Revealed}
			byKey[c.Key()] = cell
			order = append(order, c)
		}
		if yc.Terrain != "" {
			cell.Terrain = Terrain(yc.Terrain)
		}
		if yc.Revealed != nil {
			cell.Revealed = *yc.Revealed
		}
	}

	cells := make([]*Cell, 0, len(order))
	for _, c := range order {
		cells = append(cells, byKey[c.Key()])
	}
	name := ym.Name
	if name == "" {
		name = ym.ID
	}
	return NewMap(ym.ID, name, cells)
}
