package sim

import (
	"fmt"
	"math"
)

// PopulationSize is an initial count for one type.
type PopulationSize struct {
	Type Type
	Size int64
}

// ModelParams is the plain configuration NewModel validates.
type ModelParams struct {
	Registry          *TypeRegistry
	Reactions         []*Reaction
	MultiReactions    []*MultiReaction
	InitialPopulation []PopulationSize
	OriginTime        float64
	OriginType        Type
}

// Model aggregates types, reactions, initial sizes and the origin of the
// process. It is immutable after NewModel and safe to share between
// goroutines; per-goroutine propensity work goes through PropensityTable.
type Model struct {
	registry       *TypeRegistry
	reactions      []*Reaction
	multiReactions []*MultiReaction
	initial        []PopulationSize
	originTime     float64
	originType     Type

	// table backs the single-threaded CalculatePropensities convenience API.
	table *PropensityTable
}

// NewModel validates p and returns the model. All failures are *ConfigError.
func NewModel(p ModelParams) (*Model, error) {
	if p.Registry == nil {
		return nil, configErrorf("types", "no type registry")
	}
	if p.OriginType == "" {
		return nil, configErrorf("origin_type", "must specify an origin type")
	}
	if p.OriginType == Sampled || !p.Registry.Contains(p.OriginType) {
		return nil, &ConfigError{Field: "origin_type", Reason: fmt.Sprintf("%q is not a declared type", p.OriginType), Err: ErrUnknownType}
	}
	if math.IsNaN(p.OriginTime) || math.IsInf(p.OriginTime, 0) || p.OriginTime < 0 {
		return nil, configErrorf("origin_time", "must be a finite non-negative number, got %f", p.OriginTime)
	}
	for i, r := range p.Reactions {
		if err := checkTypes(p.Registry, fmt.Sprintf("reactions[%d]", i), r); err != nil {
			return nil, err
		}
	}
	for i, m := range p.MultiReactions {
		if err := checkTypes(p.Registry, fmt.Sprintf("multi_reactions[%d]", i), m.Reaction); err != nil {
			return nil, err
		}
	}
	seen := make(map[Type]bool)
	for i, ps := range p.InitialPopulation {
		field := fmt.Sprintf("initial_population[%d]", i)
		if ps.Type == Sampled || !p.Registry.Contains(ps.Type) {
			return nil, &ConfigError{Field: field, Reason: fmt.Sprintf("%q is not a declared type", ps.Type), Err: ErrUnknownType}
		}
		if ps.Size < 0 {
			return nil, configErrorf(field, "size must be non-negative, got %d", ps.Size)
		}
		if seen[ps.Type] {
			return nil, configErrorf(field, "duplicate initial size for %q", ps.Type)
		}
		seen[ps.Type] = true
	}

	m := &Model{
		registry:       p.Registry,
		reactions:      append([]*Reaction(nil), p.Reactions...),
		multiReactions: append([]*MultiReaction(nil), p.MultiReactions...),
		initial:        append([]PopulationSize(nil), p.InitialPopulation...),
		originTime:     p.OriginTime,
		originType:     p.OriginType,
	}
	m.table = m.NewPropensityTable()
	return m, nil
}

func checkTypes(reg *TypeRegistry, field string, r *Reaction) error {
	for i, t := range r.Reactants() {
		if !reg.Contains(t) {
			return &ConfigError{Field: fmt.Sprintf("%s.reactants[%d]", field, i), Reason: fmt.Sprintf("%q is not a declared type", t), Err: ErrUnknownType}
		}
	}
	for i, t := range r.Products() {
		if !reg.Contains(t) {
			return &ConfigError{Field: fmt.Sprintf("%s.products[%d]", field, i), Reason: fmt.Sprintf("%q is not a declared type", t), Err: ErrUnknownType}
		}
	}
	return nil
}

// Registry returns the model's types.
func (m *Model) Registry() *TypeRegistry { return m.registry }

// Reactions returns the rate-bearing and rateless reactions in configuration order.
func (m *Model) Reactions() []*Reaction { return m.reactions }

// MultiReactions returns the fixed-time reactions in configuration order.
func (m *Model) MultiReactions() []*MultiReaction { return m.multiReactions }

// OriginTime returns the age of the process origin relative to height zero.
func (m *Model) OriginTime() float64 { return m.originTime }

// OriginType returns the type of the single ancestral lineage at the origin.
func (m *Model) OriginType() Type { return m.originType }

// NodeTime converts a node height into forward time since the origin.
func (m *Model) NodeTime(height float64) float64 {
	return m.originTime - height
}

// InitialState returns a fresh copy of the initial population.
func (m *Model) InitialState() *SystemState {
	s := NewSystemState()
	for _, ps := range m.initial {
		// sizes are validated non-negative in NewModel
		_ = s.Set(ps.Type, ps.Size)
	}
	return s
}

// NewPropensityTable returns a private propensity engine over m's reactions.
func (m *Model) NewPropensityTable() *PropensityTable {
	return &PropensityTable{
		reactions: m.reactions,
		values:    make([]float64, len(m.reactions)),
	}
}

// CalculatePropensities recomputes the model's shared propensity table for
// state. It is not safe for concurrent use; concurrent callers each take a
// table from NewPropensityTable.
func (m *Model) CalculatePropensities(state *SystemState) {
	m.table.Calculate(state)
}

// Propensities returns the table computed by the last CalculatePropensities call.
func (m *Model) Propensities() ([]float64, error) {
	return m.table.Values()
}

// TotalPropensity returns the total computed by the last CalculatePropensities call.
func (m *Model) TotalPropensity() (float64, error) {
	return m.table.Total()
}

// PropensityTable is the transient per-state view of reaction propensities.
// Reads are rejected with ErrStalePropensities unless Calculate ran against
// the current version of the state being read.
type PropensityTable struct {
	reactions []*Reaction
	values    []float64
	total     float64

	state   *SystemState
	version uint64
}

// Calculate clears the table and recomputes every propensity and the total,
// in configuration order.
func (pt *PropensityTable) Calculate(state *SystemState) {
	pt.total = 0
	for i, r := range pt.reactions {
		a := r.Propensity(state)
		pt.values[i] = a
		pt.total += a
	}
	pt.state = state
	pt.version = state.Version()
}

func (pt *PropensityTable) fresh() error {
	if pt.state == nil || pt.state.Version() != pt.version {
		return ErrStalePropensities
	}
	return nil
}

// Values returns the per-reaction propensities, aligned with Reactions.
// The slice is owned by the table and overwritten by the next Calculate.
func (pt *PropensityTable) Values() ([]float64, error) {
	if err := pt.fresh(); err != nil {
		return nil, err
	}
	return pt.values, nil
}

// Total returns the summed propensity.
func (pt *PropensityTable) Total() (float64, error) {
	if err := pt.fresh(); err != nil {
		return 0, err
	}
	return pt.total, nil
}

// Reactions returns the reactions the table covers.
func (pt *PropensityTable) Reactions() []*Reaction { return pt.reactions }
