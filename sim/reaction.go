package sim

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ReactionKind classifies a reaction by its visible effect on a genealogy.
type ReactionKind int

const (
	// KindOther reactions never create a tree node.
	KindOther ReactionKind = iota
	// KindCoalescence reactions give some reactant two children (a branching).
	KindCoalescence
	// KindSample reactions turn some reactant into a Sampled child (a tip).
	KindSample
)

func (k ReactionKind) String() string {
	switch k {
	case KindCoalescence:
		return "COALESCENCE"
	case KindSample:
		return "SAMPLE"
	default:
		return "OTHER"
	}
}

// ReactionDef is the plain configuration of a reaction.
//
// ProductParents maps each product to the index of the reactant it is born
// from, or -1 for products with no parent. A nil slice means every product
// is parentless.
type ReactionDef struct {
	Name           string
	Reactants      []Type
	Products       []Type
	ProductParents []int
	Rate           *float64 // nil for reactions without a rate
}

type typeCount struct {
	typ   Type
	count int64
}

// Reaction is an immutable reaction definition with its derived delta,
// lineage map and kind. Reactions are safe for concurrent use.
type Reaction struct {
	name      string
	reactants []Type
	products  []Type
	parents   []int   // per product
	children  [][]int // per reactant slot, product indices

	reactantCounts []typeCount // distinct reactant types, first-appearance order
	delta          []typeCount // sorted by type, zero entries dropped

	rate    float64
	hasRate bool

	kind       ReactionKind
	parentSlot int
}

// NewReaction validates def and derives the reaction's delta and kind.
func NewReaction(def ReactionDef) (*Reaction, error) {
	r := &Reaction{
		name:       def.Name,
		reactants:  append([]Type(nil), def.Reactants...),
		products:   append([]Type(nil), def.Products...),
		parents:    make([]int, len(def.Products)),
		children:   make([][]int, len(def.Reactants)),
		parentSlot: -1,
	}

	for i, t := range r.reactants {
		if t == Sampled {
			return nil, configErrorf(fmt.Sprintf("reactants[%d]", i), "%s may not be a reactant", Sampled)
		}
	}

	if def.ProductParents != nil && len(def.ProductParents) != len(def.Products) {
		return nil, configErrorf("p2r", "has %d entries for %d products", len(def.ProductParents), len(def.Products))
	}
	for i := range r.products {
		parent := -1
		if def.ProductParents != nil {
			parent = def.ProductParents[i]
		}
		if parent < -1 || parent >= len(r.reactants) {
			return nil, configErrorf(fmt.Sprintf("p2r[%d]", i), "reactant index %d out of range", parent)
		}
		r.parents[i] = parent
		if parent >= 0 {
			r.children[parent] = append(r.children[parent], i)
		}
	}

	if def.Rate != nil {
		rate := *def.Rate
		if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
			return nil, configErrorf("rate", "must be a finite non-negative number, got %f", rate)
		}
		r.rate = rate
		r.hasRate = true
	}

	r.deriveDelta()
	if err := r.classify(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reaction) deriveDelta() {
	net := make(map[Type]int64)
	for _, t := range r.reactants {
		net[t]--
	}
	for _, t := range r.products {
		net[t]++
	}
	for t, d := range net {
		if d != 0 {
			r.delta = append(r.delta, typeCount{typ: t, count: d})
		}
	}
	sort.Slice(r.delta, func(i, j int) bool { return r.delta[i].typ < r.delta[j].typ })

	seen := make(map[Type]int)
	for _, t := range r.reactants {
		if idx, ok := seen[t]; ok {
			r.reactantCounts[idx].count++
			continue
		}
		seen[t] = len(r.reactantCounts)
		r.reactantCounts = append(r.reactantCounts, typeCount{typ: t, count: 1})
	}
}

// classify enforces the binary-genealogy constraint and assigns the kind.
// The first slot that branches or produces a Sampled child becomes the
// parent slot; a Sampled child takes precedence over a branching on that slot.
func (r *Reaction) classify() error {
	for slot, kids := range r.children {
		if len(kids) > 2 {
			return configErrorf(fmt.Sprintf("reactants[%d]", slot),
				"has %d children; models may only create binary trees", len(kids))
		}
	}
	for slot, kids := range r.children {
		kind := KindOther
		if len(kids) == 2 {
			kind = KindCoalescence
		}
		for _, p := range kids {
			if r.products[p] == Sampled {
				kind = KindSample
			}
		}
		if kind != KindOther {
			r.kind = kind
			r.parentSlot = slot
			return nil
		}
	}
	return nil
}

// Name returns the configured name, or the rendered reaction if unnamed.
func (r *Reaction) Name() string {
	if r.name != "" {
		return r.name
	}
	return r.String()
}

// Reactants returns the reactant types in slot order.
func (r *Reaction) Reactants() []Type { return r.reactants }

// Products returns the product types in configuration order.
func (r *Reaction) Products() []Type { return r.products }

// Children returns the product indices born from reactant slot.
func (r *Reaction) Children(slot int) []int { return r.children[slot] }

// Parent returns the reactant slot product i is born from, or -1.
func (r *Reaction) Parent(product int) int { return r.parents[product] }

// Kind returns the reaction's tree-effect classification.
func (r *Reaction) Kind() ReactionKind { return r.kind }

// ParentSlot returns the reactant slot that creates the tree node, or -1 for KindOther.
func (r *Reaction) ParentSlot() int { return r.parentSlot }

// Rate returns the constant rate and whether the reaction has one.
func (r *Reaction) Rate() (float64, bool) { return r.rate, r.hasRate }

// HasRate reports whether the reaction fires continuously in time.
func (r *Reaction) HasRate() bool { return r.hasRate }

// Delta returns the net change per type (products minus reactants).
func (r *Reaction) Delta() map[Type]int64 {
	out := make(map[Type]int64, len(r.delta))
	for _, d := range r.delta {
		out[d.typ] = d.count
	}
	return out
}

// ReactantPermutations returns the number of ordered ways to draw the
// reactant multiset from state. It is a float64 so that very large
// populations do not overflow.
func (r *Reaction) ReactantPermutations(state *SystemState) float64 {
	perms := 1.0
	for _, rc := range r.reactantCounts {
		n := state.Get(rc.typ)
		for i := int64(0); i < rc.count; i++ {
			if n-i <= 0 {
				return 0
			}
			perms *= float64(n - i)
		}
	}
	return perms
}

// CanFire reports whether state holds the full reactant multiset.
func (r *Reaction) CanFire(state *SystemState) bool {
	for _, rc := range r.reactantCounts {
		if state.Get(rc.typ) < rc.count {
			return false
		}
	}
	return true
}

// Propensity is ReactantPermutations × rate, or 0 for reactions without a rate.
func (r *Reaction) Propensity(state *SystemState) float64 {
	if !r.hasRate {
		return 0
	}
	return r.ReactantPermutations(state) * r.rate
}

// IncrementState applies the reaction's delta to state in place. If any count
// would become negative the state is left untouched and ErrNegativePopulation
// is returned.
func (r *Reaction) IncrementState(state *SystemState) error {
	for _, d := range r.delta {
		if state.Get(d.typ)+d.count < 0 {
			return fmt.Errorf("firing %s in state %s: %w", r, state, ErrNegativePopulation)
		}
	}
	for _, d := range r.delta {
		if err := state.Add(d.typ, d.count); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reaction) String() string {
	return renderSide(r.reactants) + " -> " + renderSide(r.products)
}

func renderSide(types []Type) string {
	if len(types) == 0 {
		return "0"
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, " + ")
}
