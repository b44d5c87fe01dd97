package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/reactsim/reactsim/sim"
	"github.com/reactsim/reactsim/sim/tree"
)

var (
	// Inputs
	modelPath string // YAML model file
	treePath  string // YAML tree file

	// Run controls
	seed      int64   // Master seed for all random streams
	logLevel  string  // Log verbosity level
	particles int     // Particle count for likelihood estimates
	workers   int     // Concurrent particle propagations (0 = GOMAXPROCS)
	repeats   int     // Independent likelihood estimates to report
	endTime   float64 // Forward simulation end time (0 = model origin time)

	// Filter tracing
	traceLevel string // Trace verbosity (none, intervals)
	traceOut   string // CSV file for interval records
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "reactsim",
	Short: "Particle-filter likelihoods for typed trees under reaction networks",
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setLogLevel applies the --log flag. Invalid levels are fatal.
func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadModel reads and builds the model at path.
func loadModel(path string) (*sim.Model, error) {
	if path == "" {
		return nil, fmt.Errorf("--model is required")
	}
	cfg, err := sim.LoadModelConfig(path)
	if err != nil {
		return nil, err
	}
	model, err := sim.BuildModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return model, nil
}

// loadEvents reads the tree at path and converts it to an event list
// relative to the model's origin time.
func loadEvents(model *sim.Model, path string) (*tree.EventList, error) {
	if path == "" {
		return nil, fmt.Errorf("--tree is required")
	}
	t, err := tree.LoadTree(path)
	if err != nil {
		return nil, err
	}
	return tree.BuildEventList(t, model.OriginTime())
}

func init() {
	for _, c := range []*cobra.Command{densityCmd, eventsCmd, simulateCmd} {
		c.Flags().StringVar(&modelPath, "model", "", "Path to the YAML model")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{densityCmd, eventsCmd} {
		c.Flags().StringVar(&treePath, "tree", "", "Path to the YAML tree")
	}
	for _, c := range []*cobra.Command{densityCmd, simulateCmd} {
		c.Flags().Int64Var(&seed, "seed", 42, "Master seed for random streams")
	}

	densityCmd.Flags().IntVar(&particles, "particles", 1000, "Number of particles")
	densityCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent particle propagations (0 = GOMAXPROCS)")
	densityCmd.Flags().IntVar(&repeats, "repeats", 1, "Independent estimates with consecutive seeds")
	densityCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Filter trace verbosity (none, intervals)")
	densityCmd.Flags().StringVar(&traceOut, "trace-out", "", "Write interval records as CSV to this file (requires --trace-level intervals)")

	simulateCmd.Flags().Float64Var(&endTime, "end", 0, "Simulation end time (0 = model origin time)")
}
