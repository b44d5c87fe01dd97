package smc

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/reactsim/reactsim/sim"
	"github.com/reactsim/reactsim/sim/tree"
)

// errParticleDead aborts a particle's interval once its weight is zero.
var errParticleDead = errors.New("particle inconsistent with tree")

// scheduledMulti is a multi reaction bound to the interval that ends at
// the group it was assigned to.
type scheduledMulti struct {
	multi    *sim.MultiReaction
	fireAt   float64
	observes int // index into the group's events, or -1
}

// propagator advances one particle slot. It owns the slot's random stream
// and simulator and is only ever used by one goroutine at a time.
type propagator struct {
	model *sim.Model
	rng   *rand.Rand
	ssa   *sim.Simulator

	p    *Particle
	logW float64

	contrib []float64
	used    map[tree.NodeID]bool
	taken   map[sim.Type]int64
	ids     []tree.NodeID
}

func newPropagator(model *sim.Model, rng *rand.Rand) *propagator {
	pr := &propagator{
		model:   model,
		rng:     rng,
		contrib: make([]float64, len(model.Reactions())),
		used:    make(map[tree.NodeID]bool),
		taken:   make(map[sim.Type]int64),
	}
	pr.ssa = sim.NewSimulator(model, rng,
		sim.WithExcluded(func(r *sim.Reaction) bool { return r.Kind() == sim.KindSample }),
		sim.WithFireHook(func(_ int, r *sim.Reaction, _ float64) error {
			return pr.mark(r, -1, "")
		}),
	)
	return pr
}

// step advances p from t to end, then through the coincident events ending
// the interval, and returns the log incremental weight, or -Inf if the
// particle cannot produce those events.
func (pr *propagator) step(p *Particle, t, end float64, group []tree.TreeEvent, multis []scheduledMulti) (float64, error) {
	pr.p = p
	pr.logW = 0
	pr.ssa.ResetConditioning()

	err := pr.run(t, end, group, multis)
	if errors.Is(err, errParticleDead) {
		return math.Inf(-1), nil
	}
	if err != nil {
		return 0, err
	}
	if !p.consistent() {
		return math.Inf(-1), nil
	}
	return pr.logW + pr.ssa.LogConditioning(), nil
}

func (pr *propagator) run(t, end float64, group []tree.TreeEvent, multis []scheduledMulti) error {
	state := pr.p.state

	observed := make(map[int]*sim.MultiReaction)
	var err error
	for _, sm := range multis {
		if sm.observes >= 0 {
			observed[sm.observes] = sm.multi
			continue
		}
		if t, err = pr.ssa.Advance(state, t, max(t, sm.fireAt)); err != nil {
			return err
		}
		if err := pr.fireUnobserved(sm.multi); err != nil {
			return err
		}
	}
	if _, err = pr.ssa.Advance(state, t, max(t, end)); err != nil {
		return err
	}

	for i, ev := range group {
		if !ev.IsLeaf {
			for _, n := range ev.Nodes {
				if err := pr.coalesce(n, ev.Type); err != nil {
					return err
				}
			}
			continue
		}
		if err := pr.sample(ev, observed[i]); err != nil {
			return err
		}
	}
	return nil
}

// mark resolves which reactant slots of a firing are tree lineages and
// updates their types. Slot bound is pre-assigned to lineage id and is left
// for the caller to resolve; every other slot is a lineage with probability
// (unclaimed lineages of its type)/(unclaimed individuals of its type).
func (pr *propagator) mark(r *sim.Reaction, bound int, id tree.NodeID) error {
	p := pr.p
	if p.Lineages() == 0 {
		return nil
	}
	clear(pr.used)
	clear(pr.taken)
	reactants := r.Reactants()
	if bound >= 0 {
		pr.used[id] = true
		pr.taken[reactants[bound]]++
	}

	type move struct {
		id   tree.NodeID
		slot int
	}
	var moves []move
	for slot, typ := range reactants {
		if slot == bound {
			continue
		}
		free := int64(p.LineagesOf(typ))
		for u := range pr.used {
			if p.lineages[u] == typ {
				free--
			}
		}
		individuals := p.state.Get(typ) - pr.taken[typ]
		pr.taken[typ]++
		if free <= 0 {
			continue
		}
		if individuals < free {
			return errParticleDead
		}
		u := pr.rng.Int63n(individuals)
		if u >= free {
			continue
		}
		pr.ids = p.lineagesOf(pr.ids, typ, pr.used)
		chosen := pr.ids[u]
		pr.used[chosen] = true
		moves = append(moves, move{id: chosen, slot: slot})
	}

	products := r.Products()
	for _, mv := range moves {
		kids := r.Children(mv.slot)
		switch len(kids) {
		case 0:
			return errParticleDead
		case 1:
			if products[kids[0]] == sim.Sampled {
				return errParticleDead
			}
			p.setLineage(mv.id, products[kids[0]])
		case 2:
			if products[kids[0]] == sim.Sampled || products[kids[1]] == sim.Sampled {
				return errParticleDead
			}
			p.setLineage(mv.id, products[kids[pr.rng.Intn(2)]])
			pr.logW += math.Ln2
		}
	}
	return nil
}

// fireUnobserved applies a multi reaction that no tree event records.
// Sampling must then have produced no tips at all.
func (pr *propagator) fireUnobserved(m *sim.MultiReaction) error {
	state := pr.p.state
	if m.Kind() == sim.KindSample {
		lp := m.LogReactCountProb(0, state)
		if math.IsInf(lp, -1) {
			return errParticleDead
		}
		pr.logW += lp
		return nil
	}
	var markErr error
	_, err := m.FireEach(state, pr.rng, func() bool {
		markErr = pr.mark(m.Reaction, -1, "")
		return markErr == nil
	})
	if markErr != nil {
		return markErr
	}
	return err
}

// choose picks a candidate reaction in proportion to contrib and returns
// the log of the total contribution. Only indices in cand are considered.
func (pr *propagator) choose(cand []int) (int, float64, error) {
	total := 0.0
	for _, i := range cand {
		total += pr.contrib[i]
	}
	if !(total > 0) {
		return -1, 0, errParticleDead
	}
	u := pr.rng.Float64() * total
	cum := 0.0
	chosen := cand[len(cand)-1]
	for _, i := range cand {
		cum += pr.contrib[i]
		if u < cum {
			chosen = i
			break
		}
	}
	return chosen, math.Log(total), nil
}

// candidates fills pr.contrib with a_r/N_X for every rate reaction of the
// given kind whose parent slot has type typ, and returns their indices.
func (pr *propagator) candidates(kind sim.ReactionKind, typ sim.Type) ([]int, error) {
	state := pr.p.state
	n := state.Get(typ)
	if n < 1 {
		return nil, errParticleDead
	}
	table := pr.ssa.Table()
	table.Calculate(state)
	values, err := table.Values()
	if err != nil {
		return nil, err
	}
	var cand []int
	for i, r := range table.Reactions() {
		pr.contrib[i] = 0
		if r.Kind() != kind || r.Reactants()[r.ParentSlot()] != typ {
			continue
		}
		pr.contrib[i] = values[i] / float64(n)
		cand = append(cand, i)
	}
	if len(cand) == 0 {
		return nil, errParticleDead
	}
	return cand, nil
}

// coalesce resolves internal node n: lineage n branches into its children.
func (pr *propagator) coalesce(n tree.EventNode, typ sim.Type) error {
	p := pr.p
	if lt, ok := p.Lineage(n.ID); !ok || lt != typ {
		return errParticleDead
	}
	if len(n.Children) != 2 {
		return fmt.Errorf("internal node %q has %d children", n.ID, len(n.Children))
	}
	cand, err := pr.candidates(sim.KindCoalescence, typ)
	if err != nil {
		return err
	}
	idx, logTotal, err := pr.choose(cand)
	if err != nil {
		return err
	}
	pr.logW += logTotal

	r := pr.model.Reactions()[idx]
	slot := r.ParentSlot()
	if err := pr.mark(r, slot, n.ID); err != nil {
		return err
	}
	kids := r.Children(slot)
	first, second := n.Children[0], n.Children[1]
	if pr.rng.Intn(2) == 1 {
		first, second = second, first
	}
	pr.logW += math.Ln2

	products := r.Products()
	p.removeLineage(n.ID)
	p.setLineage(first, products[kids[0]])
	p.setLineage(second, products[kids[1]])
	return r.IncrementState(p.state)
}

// sample resolves a group of coincident leaves of one type. An observing
// multi reaction accounts for every sampling at this instant; otherwise
// rate sampling reactions are used, and failing those the leaves are taken
// as a uniform draw from the living population.
func (pr *propagator) sample(ev tree.TreeEvent, multi *sim.MultiReaction) error {
	p := pr.p
	state := p.state
	for _, n := range ev.Nodes {
		if lt, ok := p.Lineage(n.ID); !ok || lt != ev.Type {
			return errParticleDead
		}
	}
	m := int64(len(ev.Nodes))

	if multi != nil {
		lp := multi.LogReactCountProb(m, state) - multi.LogTrialsChoose(m, state)
		if math.IsInf(lp, -1) || math.IsNaN(lp) {
			return errParticleDead
		}
		pr.logW += lp
		for _, n := range ev.Nodes {
			if err := multi.IncrementState(state); err != nil {
				return err
			}
			p.removeLineage(n.ID)
		}
		return nil
	}

	if pr.hasRateSampling(ev.Type) {
		for _, n := range ev.Nodes {
			cand, err := pr.candidates(sim.KindSample, ev.Type)
			if err != nil {
				return err
			}
			idx, logTotal, err := pr.choose(cand)
			if err != nil {
				return err
			}
			pr.logW += logTotal
			r := pr.model.Reactions()[idx]
			if err := pr.mark(r, r.ParentSlot(), n.ID); err != nil {
				return err
			}
			p.removeLineage(n.ID)
			if err := r.IncrementState(state); err != nil {
				return err
			}
		}
		return nil
	}

	lp := -sim.LogChoose(state.Get(ev.Type), m)
	if math.IsInf(lp, 1) {
		return errParticleDead
	}
	pr.logW += lp
	for _, n := range ev.Nodes {
		p.removeLineage(n.ID)
	}
	return nil
}

func (pr *propagator) hasRateSampling(typ sim.Type) bool {
	for _, r := range pr.model.Reactions() {
		if r.Kind() == sim.KindSample && r.HasRate() && r.Reactants()[r.ParentSlot()] == typ {
			return true
		}
	}
	return false
}
