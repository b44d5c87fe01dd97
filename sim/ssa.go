package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// SSAState is the state of one Advance call.
type SSAState int

const (
	// Running means the simulator is drawing and firing reactions.
	Running SSAState = iota
	// AtBoundary means the interval end was reached; terminal for one Advance.
	AtBoundary
)

func (s SSAState) String() string {
	if s == AtBoundary {
		return "AT_BOUNDARY"
	}
	return "RUNNING"
}

// FireHook is called with the index of the chosen reaction and the firing
// time, before the reaction's delta is applied. A non-nil error aborts Advance.
type FireHook func(idx int, r *Reaction, t float64) error

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithExcluded stops reactions matching pred from ever being selected. Their
// propensity is still integrated over time into LogConditioning, which makes
// Advance an exact simulation of the process conditioned on those reactions
// not firing.
func WithExcluded(pred func(*Reaction) bool) SimulatorOption {
	return func(s *Simulator) {
		for i, r := range s.table.Reactions() {
			s.excluded[i] = pred(r)
		}
	}
}

// WithFireHook installs a hook observing every firing.
func WithFireHook(h FireHook) SimulatorOption {
	return func(s *Simulator) { s.hook = h }
}

// Simulator is the Gillespie direct-method core. One Simulator belongs to
// one goroutine: it owns its propensity table and random stream.
type Simulator struct {
	table    *PropensityTable
	rng      *rand.Rand
	excluded []bool
	hook     FireHook

	state           SSAState
	logConditioning float64
	fired           int
}

// NewSimulator creates a simulator over model's reactions drawing from rng.
func NewSimulator(model *Model, rng *rand.Rand, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		table:    model.NewPropensityTable(),
		rng:      rng,
		excluded: make([]bool, len(model.Reactions())),
		state:    AtBoundary,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Advance simulates state forward from t until tEnd and returns the time
// reached (always tEnd on success). The state is mutated in place.
func (s *Simulator) Advance(state *SystemState, t, tEnd float64) (float64, error) {
	s.state = Running
	for s.state == Running {
		s.table.Calculate(state)
		values, err := s.table.Values()
		if err != nil {
			return t, err
		}

		var active, blocked float64
		for i, a := range values {
			if s.excluded[i] {
				blocked += a
			} else {
				active += a
			}
		}

		next := math.Inf(1)
		if active > 0 {
			next = t + s.rng.ExpFloat64()/active
		}
		if next > tEnd {
			s.logConditioning -= blocked * (tEnd - t)
			t = tEnd
			s.state = AtBoundary
			break
		}
		s.logConditioning -= blocked * (next - t)
		t = next

		idx, err := s.choose(values, active)
		if err != nil {
			return t, fmt.Errorf("at t=%g in state %s: %w", t, state, err)
		}
		r := s.table.Reactions()[idx]
		if s.hook != nil {
			if err := s.hook(idx, r, t); err != nil {
				return t, err
			}
		}
		if err := r.IncrementState(state); err != nil {
			return t, err
		}
		s.fired++
		logrus.Tracef("[t=%.6f] fired %s -> %s", t, r, state)
	}
	return t, nil
}

// choose performs the weighted linear scan in configuration order.
func (s *Simulator) choose(values []float64, active float64) (int, error) {
	u := s.rng.Float64() * active
	cum := 0.0
	for i, a := range values {
		if s.excluded[i] {
			continue
		}
		cum += a
		if u < cum {
			return i, nil
		}
	}
	return -1, ErrSelectionFellThrough
}

// State returns the state machine position after the last Advance.
func (s *Simulator) State() SSAState { return s.state }

// LogConditioning returns the accumulated log-probability that no excluded
// reaction fired, since the last ResetConditioning.
func (s *Simulator) LogConditioning() float64 { return s.logConditioning }

// ResetConditioning zeroes LogConditioning.
func (s *Simulator) ResetConditioning() { s.logConditioning = 0 }

// Fired returns the number of reactions fired over the simulator's lifetime.
func (s *Simulator) Fired() int { return s.fired }

// Table exposes the simulator's propensity table for callers that need
// propensities of the same state outside Advance.
func (s *Simulator) Table() *PropensityTable { return s.table }

// RNG returns the simulator's random stream.
func (s *Simulator) RNG() *rand.Rand { return s.rng }
