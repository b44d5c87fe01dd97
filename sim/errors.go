package sim

import (
	"errors"
	"fmt"
)

// Internal-consistency failures. These indicate a bug, never bad input.
var (
	// ErrStalePropensities is returned when propensities are read without a
	// CalculatePropensities call against the current state.
	ErrStalePropensities = errors.New("propensities are stale: recalculate for the current state")

	// ErrSelectionFellThrough is returned when the weighted reaction scan
	// exhausts the propensity table without choosing a reaction.
	ErrSelectionFellThrough = errors.New("reaction-choosing loop fell through")

	// ErrNegativePopulation is returned when a delta would drive a count below zero.
	ErrNegativePopulation = errors.New("negative population count")
)

// ErrUnknownType is wrapped by ConfigError when a name is not in the type registry.
var ErrUnknownType = errors.New("unknown type")

// ConfigError reports an invalid model configuration. It is always raised
// before any simulation work begins.
type ConfigError struct {
	Field  string // path of the offending field, e.g. "reactions[2].p2r"
	Reason string
	Err    error // optional wrapped sentinel
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid model configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid model configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
