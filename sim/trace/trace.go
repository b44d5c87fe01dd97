package trace

// TraceLevel controls the verbosity of filter tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelIntervals captures one record per filter interval.
	TraceLevelIntervals TraceLevel = "intervals"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelIntervals: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level     TraceLevel
	Particles int // particle count of the traced run, for normalizing ESS
}

// FilterTrace collects interval records during one likelihood evaluation.
type FilterTrace struct {
	Config    TraceConfig
	Intervals []IntervalRecord
}

// NewFilterTrace creates a FilterTrace ready for recording.
func NewFilterTrace(config TraceConfig) *FilterTrace {
	return &FilterTrace{
		Config:    config,
		Intervals: make([]IntervalRecord, 0),
	}
}

// RecordInterval appends an interval record.
func (ft *FilterTrace) RecordInterval(record IntervalRecord) {
	ft.Intervals = append(ft.Intervals, record)
}
