package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/reactsim/reactsim/sim"
)

// simulateCmd runs the model forward and prints its trajectory
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a model forward and print the reaction trajectory as CSV",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		model, err := loadModel(modelPath)
		if err != nil {
			logrus.Fatalf("Failed to load model: %v", err)
		}
		if err := runSimulate(cmd.OutOrStdout(), model, endTime, seed); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

// runSimulate simulates model over [0, end] and writes the trajectory CSV.
// A zero end means the model's origin time.
func runSimulate(w io.Writer, model *sim.Model, end float64, seed int64) error {
	if end == 0 {
		end = model.OriginTime()
	}
	if end < 0 {
		return &sim.ConfigError{Field: "end", Reason: fmt.Sprintf("must not be negative, got %g", end)}
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed)).ForSubsystem(sim.SubsystemTrajectory)
	traj, err := sim.SimulateTrajectory(model, end, rng)
	if err != nil {
		return err
	}
	logrus.Infof("simulated %d events to t=%g; final state %s", len(traj.Events), traj.End, traj.Final)
	return traj.WriteCSV(w)
}
