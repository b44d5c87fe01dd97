package trace

import (
	"math"
	"testing"
)

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	ft := NewFilterTrace(TraceConfig{Level: TraceLevelIntervals})

	// WHEN summarized
	summary := Summarize(ft)

	// THEN all counts are zero
	if summary.TotalIntervals != 0 || summary.TotalNodes != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if summary.LogLikelihood != 0 || summary.MinESS != 0 || summary.MeanESS != 0 {
		t.Error("expected zero statistics")
	}
	if summary.Collapsed {
		t.Error("empty trace must not be collapsed")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	if s := Summarize(nil); s.TotalIntervals != 0 {
		t.Errorf("expected 0 intervals, got %d", s.TotalIntervals)
	}
}

func TestSummarize_PopulatedTrace_CorrectStatistics(t *testing.T) {
	// GIVEN a trace with known ESS and increments
	ft := NewFilterTrace(TraceConfig{Level: TraceLevelIntervals, Particles: 100})
	ft.RecordInterval(IntervalRecord{Index: 0, Nodes: 1, LogIncrement: -0.5, ESS: 90, Alive: 100})
	ft.RecordInterval(IntervalRecord{Index: 1, Nodes: 2, LogIncrement: -1.0, ESS: 30, Alive: 60})
	ft.RecordInterval(IntervalRecord{Index: 2, Nodes: 1, LogIncrement: -0.25, ESS: 60, Alive: 80})

	// WHEN summarized
	summary := Summarize(ft)

	// THEN totals and extremes match
	if summary.TotalIntervals != 3 || summary.TotalNodes != 4 {
		t.Errorf("expected 3 intervals and 4 nodes, got %d and %d", summary.TotalIntervals, summary.TotalNodes)
	}
	if math.Abs(summary.LogLikelihood-(-1.75)) > 1e-12 {
		t.Errorf("expected log-likelihood -1.75, got %v", summary.LogLikelihood)
	}
	if summary.MinESS != 30 || summary.MinAlive != 60 {
		t.Errorf("expected min ESS 30 and min alive 60, got %v and %d", summary.MinESS, summary.MinAlive)
	}
	if math.Abs(summary.MeanESS-60) > 1e-12 {
		t.Errorf("expected mean ESS 60, got %v", summary.MeanESS)
	}
	if math.Abs(summary.MinESSFraction-0.3) > 1e-12 {
		t.Errorf("expected ESS fraction 0.3, got %v", summary.MinESSFraction)
	}
}

func TestSummarize_CollapsedInterval_Flagged(t *testing.T) {
	// GIVEN a trace whose last interval lost every particle
	ft := NewFilterTrace(TraceConfig{Level: TraceLevelIntervals})
	ft.RecordInterval(IntervalRecord{Index: 0, LogIncrement: -1, ESS: 5, Alive: 5})
	ft.RecordInterval(IntervalRecord{Index: 1, LogIncrement: math.Inf(-1)})

	// WHEN summarized
	summary := Summarize(ft)

	// THEN the run is flagged and the total is -Inf
	if !summary.Collapsed {
		t.Error("expected collapsed=true")
	}
	if !math.IsInf(summary.LogLikelihood, -1) {
		t.Errorf("expected -Inf log-likelihood, got %v", summary.LogLikelihood)
	}
}
