// Package testutil provides shared test infrastructure for the reactsim
// packages. It holds model and tree fixtures as YAML text so that it never
// imports sim/ and can be used from sim's own internal tests.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// BirthModelYAML is a single-type pure birth model A -> A + A started from
// one individual. No sampling mechanism is modelled.
func BirthModelYAML(rate, origin float64) []byte {
	return []byte(fmt.Sprintf(`origin_time: %g
origin_type: A
types: [A]
reactions:
  - reactants: [A]
    products: [A, A]
    p2r: [0, 0]
    rate: %g
initial_population: {A: 1}
`, origin, rate))
}

// SamplingModelYAML is a model whose only reaction samples A at rate psi.
func SamplingModelYAML(psi, origin float64) []byte {
	return []byte(fmt.Sprintf(`origin_time: %g
origin_type: A
types: [A]
reactions:
  - reactants: [A]
    products: [sampled]
    p2r: [0]
    rate: %g
initial_population: {A: 1}
`, origin, psi))
}

// YuleSampledModelYAML is a pure birth model with a single sampling pulse
// of probability p at the present.
func YuleSampledModelYAML(rate, p, origin float64) []byte {
	return []byte(fmt.Sprintf(`origin_time: %g
origin_type: A
types: [A]
reactions:
  - reactants: [A]
    products: [A, A]
    p2r: [0, 0]
    rate: %g
multi_reactions:
  - reactants: [A]
    products: [sampled]
    p2r: [0]
    probability: %g
    time: %g
initial_population: {A: 1}
`, origin, rate, p, origin))
}

// TestdataPath resolves name inside the repository's testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func TestdataPath(t *testing.T, name string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Failed to find testdata file: %v", err)
	}
	return path
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
