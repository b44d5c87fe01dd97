// Package sim provides the stochastic reaction-network core for reactsim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - reaction.go: Reaction definitions, lineage maps, kind classification, permutations
//   - model.go: The immutable Model aggregate and its PropensityTable
//   - ssa.go: The Gillespie direct-method loop (Running → AtBoundary)
//
// # Architecture
//
// The sim package defines the model and the single-trajectory simulator;
// the likelihood machinery lives in sub-packages:
//   - sim/tree/: Tree validation, event list building and collation
//   - sim/smc/: Particle filter estimating tree log-likelihoods
//   - sim/trace/: Per-interval filter trace recording
//
// Models are built once from a ModelConfig (config.go) and are read-only
// afterwards, so one Model is shared by every particle. Mutable per-particle
// data (SystemState, PropensityTable, *rand.Rand) is never shared.
//
// # Randomness
//
// All draws come from PartitionedRNG streams (rng.go) derived from a single
// SimulationKey, so equal seeds replay bit-for-bit regardless of how many
// goroutines run the particles.
package sim
