package sim

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/combin"
)

// MultiReaction fires once at a fixed time, independently thinning every
// eligible reactant tuple with a per-tuple probability.
type MultiReaction struct {
	*Reaction
	probability float64
	time        float64
}

// NewMultiReaction builds a fixed-time reaction. def must not carry a rate.
func NewMultiReaction(def ReactionDef, probability, time float64) (*MultiReaction, error) {
	if def.Rate != nil {
		return nil, configErrorf("rate", "multi reactions fire at a fixed time and take no rate")
	}
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return nil, configErrorf("probability", "must lie in [0, 1], got %f", probability)
	}
	if math.IsNaN(time) || math.IsInf(time, 0) {
		return nil, configErrorf("time", "must be finite, got %f", time)
	}
	base, err := NewReaction(def)
	if err != nil {
		return nil, err
	}
	return &MultiReaction{Reaction: base, probability: probability, time: time}, nil
}

// Probability returns the per-tuple firing probability.
func (m *MultiReaction) Probability() float64 { return m.probability }

// Time returns the absolute firing time.
func (m *MultiReaction) Time() float64 { return m.time }

// Trials returns the number of Bernoulli trials performed in state. It is
// a float64 because tuple counts exceed the int64 range for large populations.
func (m *MultiReaction) Trials(state *SystemState) float64 {
	return math.Round(m.ReactantPermutations(state))
}

// MaxReactCount returns the largest number of times the reaction could
// occur in state before running out of reactants.
func (m *MultiReaction) MaxReactCount(state *SystemState) int64 {
	if len(m.reactantCounts) == 0 {
		return math.MaxInt64
	}
	count := int64(math.MaxInt64)
	for _, rc := range m.reactantCounts {
		count = min(count, state.Get(rc.typ)/rc.count)
	}
	return count
}

// LogReactCountProb returns log P(count successes) for K = Trials(state)
// independent trials, i.e. the Binomial(K, p) log mass.
func (m *MultiReaction) LogReactCountProb(count int64, state *SystemState) float64 {
	return logBinomialPMF(count, m.Trials(state), m.probability)
}

// LogTrialsChoose returns log C(K, count) for K = Trials(state), the number
// of ways to pick which trials succeeded.
func (m *MultiReaction) LogTrialsChoose(count int64, state *SystemState) float64 {
	k := m.Trials(state)
	if count < 0 || float64(count) > k {
		return math.Inf(-1)
	}
	return logChoose(k, float64(count))
}

// ReactCountProb returns P(count successes) in state.
func (m *MultiReaction) ReactCountProb(count int64, state *SystemState) float64 {
	return math.Exp(m.LogReactCountProb(count, state))
}

// Fire performs the thinning and returns the number of successes.
func (m *MultiReaction) Fire(state *SystemState, rng *rand.Rand) (int64, error) {
	return m.FireEach(state, rng, nil)
}

// FireEach is Fire with a hook called before each success is applied, while
// state still holds the pre-firing counts. A hook returning false stops the
// remaining trials. A success drawn once the reaction can no longer fire in
// the current state is discarded, and so is every later one.
//
// Successes are located by geometric skips over the K trials, so the cost
// grows with the number of successes rather than with K.
func (m *MultiReaction) FireEach(state *SystemState, rng *rand.Rand, before func() bool) (int64, error) {
	trials := m.Trials(state)
	if m.probability == 0 || trials == 0 {
		return 0, nil
	}
	logFail := math.Log1p(-m.probability)
	var fired int64
	for pos := 0.0; ; pos++ {
		// failures before the next success, always 0 when p = 1
		pos += math.Floor(math.Log(1-rng.Float64()) / logFail)
		if !(pos < trials) {
			return fired, nil
		}
		if !m.CanFire(state) {
			return fired, nil
		}
		if before != nil && !before() {
			return fired, nil
		}
		if err := m.IncrementState(state); err != nil {
			return fired, err
		}
		fired++
	}
}

func logBinomialPMF(c int64, k, p float64) float64 {
	if c < 0 || float64(c) > k {
		return math.Inf(-1)
	}
	switch p {
	case 0:
		if c == 0 {
			return 0
		}
		return math.Inf(-1)
	case 1:
		if float64(c) == k {
			return 0
		}
		return math.Inf(-1)
	}
	fc := float64(c)
	return logChoose(k, fc) + fc*math.Log(p) + (k-fc)*math.Log1p(-p)
}

// LogChoose returns log C(n, k) for 0 <= k <= n.
func LogChoose(n, k int64) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	return logChoose(float64(n), float64(k))
}

// smallChoose bounds the term count of the direct log C(n, k) sum.
const smallChoose = 1 << 16

// logChoose returns log C(n, k). The log-gamma difference loses all
// precision once n dwarfs k, so small k sums log(n-i) directly.
func logChoose(n, k float64) float64 {
	k = min(k, n-k)
	if k > smallChoose {
		return combin.LogGeneralizedBinomial(n, k)
	}
	sum := 0.0
	for i := 0.0; i < k; i++ {
		sum += math.Log(n - i)
	}
	lf, _ := math.Lgamma(k + 1)
	return sum - lf
}
