package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ratePtr(v float64) *float64 { return &v }

func mustReaction(t *testing.T, def ReactionDef) *Reaction {
	t.Helper()
	r, err := NewReaction(def)
	require.NoError(t, err)
	return r
}

func stateOf(t *testing.T, counts map[Type]int64) *SystemState {
	t.Helper()
	s := NewSystemState()
	for typ, n := range counts {
		require.NoError(t, s.Set(typ, n))
	}
	return s
}

// birthDeathModel builds A -> A + A at rate lambda and A -> 0 at rate mu.
func birthDeathModel(t *testing.T, lambda, mu float64, initial int64) *Model {
	t.Helper()
	reg, err := NewTypeRegistry([]string{"A"})
	require.NoError(t, err)
	birth := mustReaction(t, ReactionDef{Name: "birth", Reactants: []Type{"A"}, Products: []Type{"A", "A"}, ProductParents: []int{0, 0}, Rate: ratePtr(lambda)})
	death := mustReaction(t, ReactionDef{Name: "death", Reactants: []Type{"A"}, Rate: ratePtr(mu)})
	m, err := NewModel(ModelParams{
		Registry:          reg,
		Reactions:         []*Reaction{birth, death},
		InitialPopulation: []PopulationSize{{Type: "A", Size: initial}},
		OriginTime:        10,
		OriginType:        "A",
	})
	require.NoError(t, err)
	return m
}
