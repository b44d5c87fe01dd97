package trace

import "math"

// TraceSummary aggregates statistics from a FilterTrace.
type TraceSummary struct {
	TotalIntervals int
	TotalNodes     int
	LogLikelihood  float64 // sum of log increments
	Collapsed      bool    // true if some interval lost every particle
	MinESS         float64
	MeanESS        float64
	MinESSFraction float64 // MinESS / particles; 0 when particles is unknown
	MinAlive       int
}

// Summarize computes aggregate statistics from a FilterTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(ft *FilterTrace) *TraceSummary {
	summary := &TraceSummary{}
	if ft == nil || len(ft.Intervals) == 0 {
		return summary
	}

	summary.TotalIntervals = len(ft.Intervals)
	summary.MinESS = math.Inf(1)
	summary.MinAlive = math.MaxInt
	totalESS := 0.0
	for _, r := range ft.Intervals {
		summary.TotalNodes += r.Nodes
		summary.LogLikelihood += r.LogIncrement
		if math.IsInf(r.LogIncrement, -1) {
			summary.Collapsed = true
		}
		totalESS += r.ESS
		summary.MinESS = math.Min(summary.MinESS, r.ESS)
		summary.MinAlive = min(summary.MinAlive, r.Alive)
	}
	summary.MeanESS = totalESS / float64(len(ft.Intervals))
	if ft.Config.Particles > 0 {
		summary.MinESSFraction = summary.MinESS / float64(ft.Config.Particles)
	}

	return summary
}
