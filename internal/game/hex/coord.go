// Package hex provides axial hex-grid coordinates, distances, neighbor
// enumeration, and coordinate key sets.
package hex

import (
	"fmt"
	"strconv"
	"strings"
)

// Coord is a hex cell in axial coordinates. The third cube coordinate is
// derived: s = -q - r.
type Coord struct {
	Q int `yaml:"q" json:"q"`
	R int `yaml:"r" json:"r"`
}

// directions lists the six axial neighbor offsets in a fixed order.
// Every neighbor enumeration in the module follows this order.
var directions = [6]Coord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// S returns the implicit third cube coordinate.
func (c Coord) S() int { return -c.Q - c.R }

// Add returns the component-wise sum of c and d.
func (c Coord) Add(d Coord) Coord { return Coord{Q: c.Q + d.Q, R: c.R + d.R} }

// Key returns the string form "q,r" used for set membership.
//
// Postcondition: ParseKey(c.Key()) == c.
func (c Coord) Key() string {
	return strconv.Itoa(c.Q) + "," + strconv.Itoa(c.R)
}

// String implements fmt.Stringer.
func (c Coord) String() string { return "(" + c.Key() + ")" }

// Neighbors returns the six adjacent coordinates in fixed direction order.
func (c Coord) Neighbors() [6]Coord {
	var out [6]Coord
	for i, d := range directions {
		out[i] = c.Add(d)
	}
	return out
}

// Distance returns the hex distance between a and b: the largest absolute
// difference among the three cube coordinates.
//
// Postcondition: Returns >= 0; Distance(a, b) == Distance(b, a).
func Distance(a, b Coord) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

// Ring returns every coordinate within radius of center, center included,
// in a deterministic order (q ascending, then r ascending).
//
// Precondition: radius >= 0.
func Ring(center Coord, radius int) []Coord {
	var out []Coord
	for dq := -radius; dq <= radius; dq++ {
		lo := max(-radius, -dq-radius)
		hi := min(radius, -dq+radius)
		for dr := lo; dr <= hi; dr++ {
			out = append(out, Coord{Q: center.Q + dq, R: center.R + dr})
		}
	}
	return out
}

// ParseKey parses a key produced by Coord.Key.
//
// Postcondition: Returns the coordinate or an error when key is malformed.
func ParseKey(key string) (Coord, error) {
	qs, rs, ok := strings.Cut(key, ",")
	if !ok {
		return Coord{}, fmt.Errorf("hex: malformed key %q", key)
	}
	q, err := strconv.Atoi(qs)
	if err != nil {
		return Coord{}, fmt.Errorf("hex: malformed q in key %q: %w", key, err)
	}
	r, err := strconv.Atoi(rs)
	if err != nil {
		return Coord{}, fmt.Errorf("hex: malformed r in key %q: %w", key, err)
	}
	return Coord{Q: q, R: r}, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
