// Package dice supplies the randomness the battle core never generates
// itself: exploration choices and damage spreads.
package dice

import (
	"fmt"
	"regexp"
	"strconv"
)

// Source is the randomness provider.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Spread is a damage spread of the form NdS+M, e.g. "2d4+1".
type Spread struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

var spreadPattern = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// ParseSpread parses a spread expression. The count defaults to 1.
//
// Postcondition: Returns a Spread with Count >= 1 and Sides >= 2, or an error.
func ParseSpread(expr string) (Spread, error) {
	m := spreadPattern.FindStringSubmatch(expr)
	if m == nil {
		return Spread{}, fmt.Errorf("dice: malformed spread %q", expr)
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	mod := 0
	if m[3] != "" {
		mod, _ = strconv.Atoi(m[3])
	}
	if count < 1 || sides < 2 {
		return Spread{}, fmt.Errorf("dice: spread %q needs at least one die of two or more sides", expr)
	}
	return Spread{Raw: expr, Count: count, Sides: sides, Modifier: mod}, nil
}

// Min returns the lowest total the spread can produce.
func (s Spread) Min() int { return s.Count + s.Modifier }

// Max returns the highest total the spread can produce.
func (s Spread) Max() int { return s.Count*s.Sides + s.Modifier }

// Roll returns the individual dice and the total.
//
// Postcondition: Min() <= total <= Max(); len(dice) == Count.
func (s Spread) Roll(src Source) (dice []int, total int) {
	dice = make([]int, s.Count)
	total = s.Modifier
	for i := range dice {
		dice[i] = src.Intn(s.Sides) + 1
		total += dice[i]
	}
	return dice, total
}
