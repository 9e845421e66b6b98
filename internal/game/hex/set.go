package hex

import (
	"sort"
	"strings"
)

// Set is a set of coordinate keys. The zero value is not usable; create one
// with NewSet.
type Set map[string]struct{}

// NewSet returns a Set holding the keys of coords.
func NewSet(coords ...Coord) Set {
	s := make(Set, len(coords))
	for _, c := range coords {
		s.Add(c)
	}
	return s
}

// Add inserts c.
func (s Set) Add(c Coord) { s[c.Key()] = struct{}{} }

// Remove deletes c. Removing an absent coordinate is a no-op.
func (s Set) Remove(c Coord) { delete(s, c.Key()) }

// Has reports whether c is in the set.
func (s Set) Has(c Coord) bool {
	_, ok := s[c.Key()]
	return ok
}

// Len returns the number of keys.
func (s Set) Len() int { return len(s) }

// Sorted returns the keys in ascending lexical order.
//
// Postcondition: the result is a fresh slice; len(result) == s.Len().
func (s Set) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Join returns the sorted keys joined with sep, or empty when the set is empty.
func (s Set) Join(sep string) string {
	return strings.Join(s.Sorted(), sep)
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
