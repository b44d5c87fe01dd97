package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the master seed of one estimator or trajectory run.
// Equal keys with equal model and events replay the same log-likelihood.
type SimulationKey int64

// NewSimulationKey wraps seed as a SimulationKey.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Stream names.
const (
	// SubsystemTrajectory drives forward trajectory simulation and is seeded
	// with the master seed unchanged, so `simulate --seed s` uses seed s.
	SubsystemTrajectory = "trajectory"

	// SubsystemResample drives ancestor selection between filter intervals.
	SubsystemResample = "resample"
)

// SubsystemParticle names the stream of particle slot i. A slot keeps its
// stream for the whole run while resampling moves particles between slots.
func SubsystemParticle(i int) string {
	return fmt.Sprintf("particle_%d", i)
}

// PartitionedRNG hands out one independent *rand.Rand per named stream, all
// derived from a single SimulationKey. A stream's seed depends only on the
// key and its name, so adding streams never shifts the draws of others.
//
// Streams are created lazily and cached. The map is not locked: create all
// streams on one goroutine before handing them to workers.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG returns an empty partition for key.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream called name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	rng, ok := p.streams[name]
	if !ok {
		rng = rand.New(rand.NewSource(p.seedFor(name)))
		p.streams[name] = rng
	}
	return rng
}

// ForParticle returns the stream of particle slot i.
func (p *PartitionedRNG) ForParticle(i int) *rand.Rand {
	return p.ForSubsystem(SubsystemParticle(i))
}

// Key returns the master key.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// seedFor mixes the stream name into the master seed with FNV-1a.
func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemTrajectory {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
