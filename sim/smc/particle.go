package smc

import (
	"sort"

	"github.com/reactsim/reactsim/sim"
	"github.com/reactsim/reactsim/sim/tree"
)

// Particle is one hypothesis of the population history: a SystemState plus
// the type currently carried by every unresolved lineage of the tree. A
// lineage is keyed by the ID of the tree node that ends it.
type Particle struct {
	state    *sim.SystemState
	lineages map[tree.NodeID]sim.Type
	perType  map[sim.Type]int
}

// NewParticle returns a particle with an empty state and no lineages.
func NewParticle() *Particle {
	return &Particle{
		state:    sim.NewSystemState(),
		lineages: make(map[tree.NodeID]sim.Type),
		perType:  make(map[sim.Type]int),
	}
}

// Reset reinitializes the particle to the model's initial state with a
// single lineage of the origin type.
func (p *Particle) Reset(model *sim.Model, root tree.NodeID) {
	p.state.AssignFrom(model.InitialState())
	clear(p.lineages)
	clear(p.perType)
	p.setLineage(root, model.OriginType())
}

// AssignFrom overwrites p with a copy of other. other is never modified.
func (p *Particle) AssignFrom(other *Particle) {
	p.state.AssignFrom(other.state)
	clear(p.lineages)
	for id, t := range other.lineages {
		p.lineages[id] = t
	}
	clear(p.perType)
	for t, n := range other.perType {
		p.perType[t] = n
	}
}

// State returns the particle's population.
func (p *Particle) State() *sim.SystemState { return p.state }

// Lineage returns the type carried by lineage id.
func (p *Particle) Lineage(id tree.NodeID) (sim.Type, bool) {
	t, ok := p.lineages[id]
	return t, ok
}

// Lineages returns the number of unresolved lineages.
func (p *Particle) Lineages() int { return len(p.lineages) }

// LineagesOf returns how many lineages carry type t.
func (p *Particle) LineagesOf(t sim.Type) int { return p.perType[t] }

func (p *Particle) setLineage(id tree.NodeID, t sim.Type) {
	if old, ok := p.lineages[id]; ok {
		p.dropType(old)
	}
	p.lineages[id] = t
	p.perType[t]++
}

func (p *Particle) removeLineage(id tree.NodeID) {
	if old, ok := p.lineages[id]; ok {
		p.dropType(old)
		delete(p.lineages, id)
	}
}

func (p *Particle) dropType(t sim.Type) {
	if p.perType[t] <= 1 {
		delete(p.perType, t)
		return
	}
	p.perType[t]--
}

// lineagesOf appends the IDs of lineages of type t not in skip to dst,
// sorted so that random picks are reproducible.
func (p *Particle) lineagesOf(dst []tree.NodeID, t sim.Type, skip map[tree.NodeID]bool) []tree.NodeID {
	dst = dst[:0]
	for id, lt := range p.lineages {
		if lt == t && !skip[id] {
			dst = append(dst, id)
		}
	}
	sort.Slice(dst, func(i, j int) bool { return dst[i] < dst[j] })
	return dst
}

// consistent reports whether every type has at least as many individuals as
// lineages carrying it.
func (p *Particle) consistent() bool {
	for t, n := range p.perType {
		if p.state.Get(t) < int64(n) {
			return false
		}
	}
	return true
}
