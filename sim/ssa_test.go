package sim

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestSimulator_ZeroPropensity_GoesStraightToBoundary(t *testing.T) {
	// GIVEN an extinct population
	m := birthDeathModel(t, 1, 1, 0)
	s := m.InitialState()
	sim := NewSimulator(m, rand.New(rand.NewSource(1)))

	// WHEN advanced
	end, err := sim.Advance(s, 0, 5)

	// THEN time reaches the boundary and nothing fires
	require.NoError(t, err)
	assert.Equal(t, 5.0, end)
	assert.Equal(t, AtBoundary, sim.State())
	assert.Equal(t, 0, sim.Fired())
	assert.Equal(t, 0, s.Len())
}

func TestSimulator_PureDeath_RunsToExtinction(t *testing.T) {
	// GIVEN five individuals that only die
	m := birthDeathModel(t, 0, 2, 5)
	s := m.InitialState()
	sim := NewSimulator(m, rand.New(rand.NewSource(9)))

	// WHEN advanced over a very long interval
	end, err := sim.Advance(s, 0, 1e6)

	// THEN exactly five deaths fired and the boundary was reached
	require.NoError(t, err)
	assert.Equal(t, 1e6, end)
	assert.Equal(t, 5, sim.Fired())
	assert.Equal(t, int64(0), s.Get("A"))
}

func TestSimulator_Deterministic_SameSeedSameTrajectory(t *testing.T) {
	m := birthDeathModel(t, 1.3, 0.4, 3)
	run := func() (string, int) {
		s := m.InitialState()
		sim := NewSimulator(m, rand.New(rand.NewSource(42)))
		_, err := sim.Advance(s, 0, 2)
		require.NoError(t, err)
		return s.String(), sim.Fired()
	}
	s1, f1 := run()
	s2, f2 := run()
	assert.Equal(t, s1, s2)
	assert.Equal(t, f1, f2)
}

func TestSimulator_YuleMean_MatchesExponentialGrowth(t *testing.T) {
	// GIVEN a Yule process with rate 1 from one individual
	m := birthDeathModel(t, 1, 0, 1)
	rng := rand.New(rand.NewSource(2024))

	// WHEN simulated to t=1 many times
	sizes := make([]float64, 3000)
	for i := range sizes {
		s := m.InitialState()
		_, err := NewSimulator(m, rng).Advance(s, 0, 1)
		require.NoError(t, err)
		sizes[i] = float64(s.Get("A"))
	}

	// THEN the mean population is close to e
	assert.InDelta(t, math.E, stat.Mean(sizes, nil), 0.2)
}

func TestSimulator_Excluded_IntegratesHazard(t *testing.T) {
	// GIVEN a constant population whose only reaction is excluded sampling
	reg, err := NewTypeRegistry([]string{"A"})
	require.NoError(t, err)
	sample := mustReaction(t, ReactionDef{Reactants: []Type{"A"}, Products: []Type{Sampled}, ProductParents: []int{0}, Rate: ratePtr(0.7)})
	m, err := NewModel(ModelParams{
		Registry:          reg,
		Reactions:         []*Reaction{sample},
		InitialPopulation: []PopulationSize{{Type: "A", Size: 3}},
		OriginTime:        2,
		OriginType:        "A",
	})
	require.NoError(t, err)
	s := m.InitialState()
	sim := NewSimulator(m, rand.New(rand.NewSource(1)),
		WithExcluded(func(r *Reaction) bool { return r.Kind() == KindSample }))

	// WHEN advanced over [0, 2]
	_, err = sim.Advance(s, 0, 2)

	// THEN nothing fired and the log-probability of no sampling is -a*T
	require.NoError(t, err)
	assert.Equal(t, 0, sim.Fired())
	assert.InDelta(t, -0.7*3*2, sim.LogConditioning(), 1e-12)

	sim.ResetConditioning()
	assert.Equal(t, 0.0, sim.LogConditioning())
}

func TestSimulator_FireHook_SeesEveryFiringAndCanAbort(t *testing.T) {
	m := birthDeathModel(t, 2, 0, 1)
	stop := errors.New("stop")

	var times []float64
	sim := NewSimulator(m, rand.New(rand.NewSource(3)), WithFireHook(func(_ int, r *Reaction, at float64) error {
		times = append(times, at)
		if len(times) == 3 {
			return stop
		}
		return nil
	}))
	s := m.InitialState()

	_, err := sim.Advance(s, 0, 100)

	// THEN the hook aborted on the third firing, before its delta applied
	assert.ErrorIs(t, err, stop)
	require.Len(t, times, 3)
	assert.Equal(t, int64(3), s.Get("A"))
	assert.True(t, times[0] < times[1] && times[1] < times[2])
}

func TestSSAState_String(t *testing.T) {
	assert.Equal(t, "RUNNING", Running.String())
	assert.Equal(t, "AT_BOUNDARY", AtBoundary.String())
}
