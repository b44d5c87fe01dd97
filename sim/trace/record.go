// Package trace provides per-interval recording of particle filter runs.
// This package has no dependencies on sim/ or sim/smc/; it stores pure data types.
package trace

// IntervalRecord captures the outcome of one filter interval.
type IntervalRecord struct {
	Index        int     // zero-based interval index
	Time         float64 // forward time at the interval's end
	Nodes        int     // tree nodes resolved at the interval's end
	Multis       int     // multi reactions scheduled inside the interval
	LogIncrement float64 // log(mean weight); -Inf when every particle died
	ESS          float64 // effective sample size before resampling
	Alive        int     // particles with non-zero weight
}
