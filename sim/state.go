package sim

import (
	"fmt"
	"sort"
	"strings"
)

// SystemState is a sparse type → count mapping. Absent types have count 0
// and zero counts are never stored, so copies cost O(live types).
//
// Every mutation bumps a version counter; PropensityTable uses it to detect
// reads against a state that changed after the last calculation.
type SystemState struct {
	counts  map[Type]int64
	version uint64
}

// NewSystemState returns an empty state.
func NewSystemState() *SystemState {
	return &SystemState{counts: make(map[Type]int64)}
}

// Get returns the number of individuals of type t.
func (s *SystemState) Get(t Type) int64 {
	return s.counts[t]
}

// Set stores the count for t. Zero removes the entry; negative counts are rejected.
func (s *SystemState) Set(t Type, n int64) error {
	if n < 0 {
		return fmt.Errorf("setting %s to %d: %w", t, n, ErrNegativePopulation)
	}
	if n == 0 {
		delete(s.counts, t)
	} else {
		s.counts[t] = n
	}
	s.version++
	return nil
}

// Add changes the count for t by d.
func (s *SystemState) Add(t Type, d int64) error {
	return s.Set(t, s.counts[t]+d)
}

// Copy returns an independent deep copy.
func (s *SystemState) Copy() *SystemState {
	c := &SystemState{counts: make(map[Type]int64, len(s.counts))}
	for t, n := range s.counts {
		c.counts[t] = n
	}
	return c
}

// AssignFrom overwrites s with the contents of other, reusing s's storage.
func (s *SystemState) AssignFrom(other *SystemState) {
	clear(s.counts)
	for t, n := range other.counts {
		s.counts[t] = n
	}
	s.version++
}

// Types returns the types with non-zero counts, sorted by name.
func (s *SystemState) Types() []Type {
	out := make([]Type, 0, len(s.counts))
	for t := range s.counts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of live types.
func (s *SystemState) Len() int {
	return len(s.counts)
}

// Version returns the mutation counter.
func (s *SystemState) Version() uint64 {
	return s.version
}

// Equal reports whether both states hold identical counts.
func (s *SystemState) Equal(other *SystemState) bool {
	if len(s.counts) != len(other.counts) {
		return false
	}
	for t, n := range s.counts {
		if other.counts[t] != n {
			return false
		}
	}
	return true
}

func (s *SystemState) String() string {
	parts := make([]string, 0, len(s.counts))
	for _, t := range s.Types() {
		parts = append(parts, fmt.Sprintf("%s=%d", t, s.counts[t]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
