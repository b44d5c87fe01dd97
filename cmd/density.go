package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/reactsim/reactsim/sim"
	"github.com/reactsim/reactsim/sim/smc"
	"github.com/reactsim/reactsim/sim/trace"
	"github.com/reactsim/reactsim/sim/tree"
)

// densityOptions are the density command's run parameters.
type densityOptions struct {
	Particles  int
	Workers    int
	Seed       int64
	Repeats    int
	TraceLevel string
	TraceOut   io.Writer // receives interval CSV of the first repeat; nil disables
}

// densityCmd estimates the log-likelihood of a tree
var densityCmd = &cobra.Command{
	Use:   "density",
	Short: "Estimate the log-likelihood of a tree under a model",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid --trace-level %q; valid levels are none, intervals", traceLevel)
		}
		if traceOut != "" && trace.TraceLevel(traceLevel) != trace.TraceLevelIntervals {
			logrus.Warnf("--trace-out has no effect without --trace-level intervals")
		}

		model, err := loadModel(modelPath)
		if err != nil {
			logrus.Fatalf("Failed to load model: %v", err)
		}
		events, err := loadEvents(model, treePath)
		if err != nil {
			logrus.Fatalf("Failed to load tree: %v", err)
		}

		opts := densityOptions{
			Particles:  particles,
			Workers:    workers,
			Seed:       seed,
			Repeats:    repeats,
			TraceLevel: traceLevel,
		}
		if traceOut != "" && trace.TraceLevel(traceLevel) == trace.TraceLevelIntervals {
			f, err := os.Create(traceOut)
			if err != nil {
				logrus.Fatalf("Failed to create trace file: %v", err)
			}
			defer func() {
				if err := f.Close(); err != nil {
					logrus.Errorf("Failed to close trace file: %v", err)
				}
			}()
			opts.TraceOut = f
		}

		if err := runDensity(cmd.Context(), cmd.OutOrStdout(), model, events, opts); err != nil {
			logrus.Fatalf("Likelihood estimation failed: %v", err)
		}
	},
}

// runDensity computes opts.Repeats independent estimates with seeds Seed,
// Seed+1, ... and writes one line per estimate. With more than one repeat
// the mean and variance of the finite estimates follow.
func runDensity(ctx context.Context, w io.Writer, model *sim.Model, events *tree.EventList, opts densityOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Repeats < 1 {
		return &sim.ConfigError{Field: "repeats", Reason: fmt.Sprintf("must be positive, got %d", opts.Repeats)}
	}

	var finite []float64
	for r := 0; r < opts.Repeats; r++ {
		cfg := smc.Config{
			Particles: opts.Particles,
			Workers:   opts.Workers,
			Seed:      opts.Seed + int64(r),
		}
		if r == 0 && trace.TraceLevel(opts.TraceLevel) == trace.TraceLevelIntervals {
			cfg.Trace = trace.NewFilterTrace(trace.TraceConfig{Level: trace.TraceLevelIntervals, Particles: opts.Particles})
		}

		logL, err := smc.LogLikelihood(ctx, model, events, cfg)
		if err != nil {
			return err
		}
		logrus.Infof("repeat %d (seed %d): log-likelihood %g", r, cfg.Seed, logL)
		if _, err := fmt.Fprintf(w, "seed=%d log_likelihood=%g\n", cfg.Seed, logL); err != nil {
			return err
		}
		if !math.IsInf(logL, 0) && !math.IsNaN(logL) {
			finite = append(finite, logL)
		}

		if cfg.Trace != nil {
			summary := trace.Summarize(cfg.Trace)
			logrus.Infof("trace: %d intervals, min ESS %.1f (%.1f%% of particles), collapsed=%v",
				summary.TotalIntervals, summary.MinESS, 100*summary.MinESSFraction, summary.Collapsed)
			if opts.TraceOut != nil {
				if err := trace.WriteCSV(opts.TraceOut, cfg.Trace); err != nil {
					return fmt.Errorf("writing trace: %w", err)
				}
			}
		}
	}

	if opts.Repeats > 1 {
		if len(finite) < 2 {
			_, err := fmt.Fprintf(w, "finite=%d of %d\n", len(finite), opts.Repeats)
			return err
		}
		mean, variance := stat.MeanVariance(finite, nil)
		if _, err := fmt.Fprintf(w, "finite=%d of %d mean=%g variance=%g\n", len(finite), opts.Repeats, mean, variance); err != nil {
			return err
		}
	}
	return nil
}
