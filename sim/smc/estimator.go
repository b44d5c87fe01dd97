// Package smc estimates the likelihood of a typed tree under a reaction
// network with a bootstrap-style particle filter.
//
// Each particle carries one forward history of the population and tracks
// which individuals are the tree's lineages. Between tree events particles
// move with the SSA (sampling reactions suppressed and integrated out); at
// each event group they are weighted by how likely they are to produce the
// observed nodes, then resampled.
package smc

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/reactsim/reactsim/sim"
	"github.com/reactsim/reactsim/sim/trace"
	"github.com/reactsim/reactsim/sim/tree"
)

// Config holds the filter's run parameters.
type Config struct {
	Particles int   // number of particles, must be positive
	Workers   int   // concurrent propagations; <= 0 means GOMAXPROCS
	Seed      int64 // master seed; equal seeds give identical results

	// Trace, when non-nil, receives one record per filter interval.
	Trace *trace.FilterTrace
}

// Estimator computes tree log-likelihoods for one immutable model. It is
// safe to call LogLikelihood repeatedly; no state carries over between calls.
type Estimator struct {
	model *sim.Model
	cfg   Config
}

// NewEstimator validates cfg and binds it to model.
func NewEstimator(model *sim.Model, cfg Config) (*Estimator, error) {
	if model == nil {
		return nil, &sim.ConfigError{Field: "model", Reason: "must not be nil"}
	}
	if cfg.Particles <= 0 {
		return nil, &sim.ConfigError{Field: "particles", Reason: fmt.Sprintf("must be positive, got %d", cfg.Particles)}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Estimator{model: model, cfg: cfg}, nil
}

// LogLikelihood is shorthand for NewEstimator followed by LogLikelihood.
func LogLikelihood(ctx context.Context, model *sim.Model, events *tree.EventList, cfg Config) (float64, error) {
	e, err := NewEstimator(model, cfg)
	if err != nil {
		return 0, err
	}
	return e.LogLikelihood(ctx, events)
}

// LogLikelihood returns the estimated log-likelihood of events. Trees the
// model cannot produce yield -Inf with a nil error; errors are reserved for
// invalid input, cancellation and internal-consistency failures.
func (e *Estimator) LogLikelihood(ctx context.Context, events *tree.EventList) (float64, error) {
	if err := e.checkEvents(events); err != nil {
		return 0, err
	}
	negInf := math.Inf(-1)
	if e.model.InitialState().Get(e.model.OriginType()) < 1 {
		logrus.Infof("origin type %s has no initial individuals", e.model.OriginType())
		return negInf, nil
	}

	n := e.cfg.Particles
	rngs := sim.NewPartitionedRNG(sim.NewSimulationKey(e.cfg.Seed))
	props := make([]*propagator, n)
	particles := make([]*Particle, n)
	next := make([]*Particle, n)
	for i := 0; i < n; i++ {
		props[i] = newPropagator(e.model, rngs.ForParticle(i))
		particles[i] = NewParticle()
		particles[i].Reset(e.model, events.Root)
		next[i] = NewParticle()
	}
	resampleRNG := rngs.ForSubsystem(sim.SubsystemResample)

	plan := e.plan(events)

	logW := make([]float64, n)
	weights := make([]float64, n)
	var ancestors []int
	logP := 0.0
	t := 0.0

	for gi, iv := range plan {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		end := iv.end

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Workers)
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				lw, err := props[i].step(particles[i], t, iv.end, iv.events, iv.multis)
				if err != nil {
					return fmt.Errorf("particle %d at t=%g: %w", i, end, err)
				}
				logW[i] = lw
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}

		maxLog := floats.Max(logW)
		if math.IsInf(maxLog, -1) || math.IsNaN(maxLog) {
			logrus.Infof("particle weights collapsed at t=%g (interval %d of %d)", end, gi+1, len(plan))
			e.record(gi, iv, negInf, 0, 0)
			return negInf, nil
		}
		alive := 0
		for i, lw := range logW {
			weights[i] = math.Exp(lw - maxLog)
			if weights[i] > 0 {
				alive++
			}
		}
		sum := floats.Sum(weights)
		increment := maxLog + math.Log(sum/float64(n))
		logP += increment
		ess := sum * sum / floats.Dot(weights, weights)
		e.record(gi, iv, increment, ess, alive)
		logrus.Debugf("[t=%.6f] interval %d: log increment %.6f, ESS %.1f, %d/%d alive", end, gi+1, increment, ess, alive, n)

		ancestors = Resample(resampleRNG, weights, sum, ancestors)
		for i, a := range ancestors {
			next[i].AssignFrom(particles[a])
		}
		particles, next = next, particles
		t = end
	}
	return logP, nil
}

// interval is one filter step: propagate to end, fire the scheduled multi
// reactions on the way, then weight by events (empty for the final stretch
// to the present).
type interval struct {
	end    float64
	events []tree.TreeEvent
	multis []scheduledMulti
}

// plan splits events into intervals and assigns every multi reaction to the
// first interval ending at or after its time. A SAMPLE multi reaction due at
// an interval's end observes that interval's leaves of its parent type.
func (e *Estimator) plan(events *tree.EventList) []interval {
	var plan []interval
	for _, g := range events.Groups() {
		plan = append(plan, interval{end: g[0].Time, events: g})
	}
	last := plan[len(plan)-1].end
	present := max(e.model.OriginTime(), last)

	multis := append([]*sim.MultiReaction(nil), e.model.MultiReactions()...)
	sort.SliceStable(multis, func(i, j int) bool { return multis[i].Time() < multis[j].Time() })

	var tail []scheduledMulti
	claimed := make(map[[2]int]bool)
	for _, m := range multis {
		tm := m.Time()
		if tm < -tree.Tolerance {
			continue
		}
		gi := sort.Search(len(plan), func(i int) bool { return tm <= plan[i].end+tree.Tolerance })
		if gi == len(plan) {
			if tm <= present+tree.Tolerance {
				tail = append(tail, scheduledMulti{multi: m, fireAt: tm, observes: -1})
			}
			continue
		}
		iv := &plan[gi]
		sm := scheduledMulti{multi: m, fireAt: min(tm, iv.end), observes: -1}
		if m.Kind() == sim.KindSample && math.Abs(tm-iv.end) < tree.Tolerance {
			parent := m.Reactants()[m.ParentSlot()]
			for i, ev := range iv.events {
				if ev.IsLeaf && ev.Type == parent && !claimed[[2]int{gi, i}] {
					claimed[[2]int{gi, i}] = true
					sm.observes = i
					break
				}
			}
		}
		iv.multis = append(iv.multis, sm)
	}

	if len(tail) > 0 || (present > last+tree.Tolerance && e.hasRateSampling()) {
		plan = append(plan, interval{end: present, multis: tail})
	}
	return plan
}

func (e *Estimator) hasRateSampling() bool {
	for _, r := range e.model.Reactions() {
		if r.Kind() == sim.KindSample && r.HasRate() {
			return true
		}
	}
	return false
}

// checkEvents rejects event lists the filter cannot interpret.
func (e *Estimator) checkEvents(events *tree.EventList) error {
	if events == nil || len(events.Events) == 0 {
		return fmt.Errorf("event list is empty")
	}
	if events.Root == "" {
		return fmt.Errorf("event list has no root lineage")
	}
	reg := e.model.Registry()
	prev := math.Inf(-1)
	for i, ev := range events.Events {
		if math.IsNaN(ev.Time) || ev.Time < prev-tree.Tolerance {
			return fmt.Errorf("events[%d]: time %g out of order", i, ev.Time)
		}
		prev = max(prev, ev.Time)
		if ev.Type == sim.Sampled || !reg.Contains(ev.Type) {
			return &sim.ConfigError{Field: fmt.Sprintf("events[%d].type", i), Reason: fmt.Sprintf("%q is not a declared type", ev.Type), Err: sim.ErrUnknownType}
		}
		if len(ev.Nodes) == 0 || len(ev.Nodes) != ev.Multiplicity {
			return fmt.Errorf("events[%d]: multiplicity %d does not match %d node IDs", i, ev.Multiplicity, len(ev.Nodes))
		}
	}
	return nil
}

func (e *Estimator) record(idx int, iv interval, increment, ess float64, alive int) {
	if e.cfg.Trace == nil {
		return
	}
	nodes := 0
	for _, ev := range iv.events {
		nodes += len(ev.Nodes)
	}
	e.cfg.Trace.RecordInterval(trace.IntervalRecord{
		Index:        idx,
		Time:         iv.end,
		Nodes:        nodes,
		Multis:       len(iv.multis),
		LogIncrement: increment,
		ESS:          ess,
		Alive:        alive,
	})
}
