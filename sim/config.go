package sim

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ModelConfig is the YAML form of a model. Loaded via LoadModelConfig(path).
type ModelConfig struct {
	OriginTime        float64               `yaml:"origin_time"`
	OriginType        string                `yaml:"origin_type"`
	Types             []string              `yaml:"types"`
	Reactions         []ReactionConfig      `yaml:"reactions"`
	MultiReactions    []MultiReactionConfig `yaml:"multi_reactions,omitempty"`
	InitialPopulation map[string]int64      `yaml:"initial_population"`
}

// ReactionConfig describes a continuous-rate reaction. P2R maps each product
// to the index of its parent reactant (-1 for none).
type ReactionConfig struct {
	Name      string   `yaml:"name,omitempty"`
	Reactants []string `yaml:"reactants"`
	Products  []string `yaml:"products"`
	P2R       []int    `yaml:"p2r,omitempty"`
	Rate      *float64 `yaml:"rate,omitempty"`
}

// MultiReactionConfig describes a fixed-time reaction thinned per tuple.
type MultiReactionConfig struct {
	Name        string   `yaml:"name,omitempty"`
	Reactants   []string `yaml:"reactants"`
	Products    []string `yaml:"products"`
	P2R         []int    `yaml:"p2r,omitempty"`
	Probability float64  `yaml:"probability"`
	Time        float64  `yaml:"time"`
}

// LoadModelConfig reads and parses a YAML model file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model config: %w", err)
	}
	return ParseModelConfig(data)
}

// ParseModelConfig parses YAML model bytes with strict field checking.
func ParseModelConfig(data []byte) (*ModelConfig, error) {
	var cfg ModelConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing model config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration by building it and discarding the result.
func (c *ModelConfig) Validate() error {
	_, err := BuildModel(c)
	return err
}

// BuildModel turns a configuration into an immutable Model, failing fast on
// the first invalid field.
func BuildModel(c *ModelConfig) (*Model, error) {
	reg, err := NewTypeRegistry(c.Types)
	if err != nil {
		return nil, err
	}

	reactions := make([]*Reaction, 0, len(c.Reactions))
	for i, rc := range c.Reactions {
		prefix := fmt.Sprintf("reactions[%d]", i)
		def, err := reactionDef(reg, prefix, rc.Name, rc.Reactants, rc.Products, rc.P2R)
		if err != nil {
			return nil, err
		}
		def.Rate = rc.Rate
		r, err := NewReaction(def)
		if err != nil {
			return nil, prefixed(prefix, err)
		}
		reactions = append(reactions, r)
	}

	multis := make([]*MultiReaction, 0, len(c.MultiReactions))
	for i, mc := range c.MultiReactions {
		prefix := fmt.Sprintf("multi_reactions[%d]", i)
		def, err := reactionDef(reg, prefix, mc.Name, mc.Reactants, mc.Products, mc.P2R)
		if err != nil {
			return nil, err
		}
		m, err := NewMultiReaction(def, mc.Probability, mc.Time)
		if err != nil {
			return nil, prefixed(prefix, err)
		}
		multis = append(multis, m)
	}

	// Map iteration order is random; sort for a reproducible InitialState.
	names := make([]string, 0, len(c.InitialPopulation))
	for name := range c.InitialPopulation {
		names = append(names, name)
	}
	sort.Strings(names)
	initial := make([]PopulationSize, 0, len(names))
	for _, name := range names {
		t, err := reg.Lookup(name)
		if err != nil {
			return nil, prefixed("initial_population", err)
		}
		initial = append(initial, PopulationSize{Type: t, Size: c.InitialPopulation[name]})
	}

	var origin Type
	if c.OriginType != "" {
		origin, err = reg.Lookup(c.OriginType)
		if err != nil {
			return nil, prefixed("origin_type", err)
		}
	}

	return NewModel(ModelParams{
		Registry:          reg,
		Reactions:         reactions,
		MultiReactions:    multis,
		InitialPopulation: initial,
		OriginTime:        c.OriginTime,
		OriginType:        origin,
	})
}

func reactionDef(reg *TypeRegistry, prefix, name string, reactants, products []string, p2r []int) (ReactionDef, error) {
	def := ReactionDef{Name: name, ProductParents: p2r}
	for i, n := range reactants {
		t, err := reg.Lookup(n)
		if err != nil {
			return def, prefixed(fmt.Sprintf("%s.reactants[%d]", prefix, i), err)
		}
		def.Reactants = append(def.Reactants, t)
	}
	for i, n := range products {
		t, err := reg.Lookup(n)
		if err != nil {
			return def, prefixed(fmt.Sprintf("%s.products[%d]", prefix, i), err)
		}
		def.Products = append(def.Products, t)
	}
	return def, nil
}

// prefixed qualifies a ConfigError's field with the enclosing path.
func prefixed(prefix string, err error) error {
	ce, ok := err.(*ConfigError)
	if !ok {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	field := prefix
	if ce.Field != "" {
		field = prefix + "." + ce.Field
	}
	return &ConfigError{Field: field, Reason: ce.Reason, Err: ce.Err}
}
