package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"
)

// SystemEvent is one recorded firing: a rate reaction fires once, a
// MultiReaction records its number of successes as Multiplicity.
type SystemEvent struct {
	Reaction     string
	Time         float64
	Multiplicity int64
}

// Trajectory is the recorded history of one forward simulation.
type Trajectory struct {
	Events []SystemEvent
	Final  *SystemState
	End    float64
}

// SimulateTrajectory runs the process forward from the model's initial state
// over [0, tEnd], firing rate reactions with the SSA and multi reactions at
// their scheduled times. Multi reactions outside [0, tEnd] never fire.
func SimulateTrajectory(model *Model, tEnd float64, rng *rand.Rand) (*Trajectory, error) {
	state := model.InitialState()
	traj := &Trajectory{Final: state, End: tEnd}

	ssa := NewSimulator(model, rng, WithFireHook(func(_ int, r *Reaction, t float64) error {
		traj.Events = append(traj.Events, SystemEvent{Reaction: r.Name(), Time: t, Multiplicity: 1})
		return nil
	}))

	multis := make([]*MultiReaction, 0, len(model.MultiReactions()))
	for _, m := range model.MultiReactions() {
		if m.Time() >= 0 && m.Time() <= tEnd {
			multis = append(multis, m)
		}
	}
	sort.SliceStable(multis, func(i, j int) bool { return multis[i].Time() < multis[j].Time() })

	t := 0.0
	var err error
	for _, m := range multis {
		if t, err = ssa.Advance(state, t, m.Time()); err != nil {
			return nil, err
		}
		n, err := m.Fire(state, rng)
		if err != nil {
			return nil, err
		}
		traj.Events = append(traj.Events, SystemEvent{Reaction: m.Name(), Time: t, Multiplicity: n})
	}
	if _, err = ssa.Advance(state, t, tEnd); err != nil {
		return nil, err
	}
	return traj, nil
}

// WriteCSV writes one row per event: time, reaction, multiplicity.
func (tr *Trajectory) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"time", "reaction", "multiplicity"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, ev := range tr.Events {
		row := []string{
			strconv.FormatFloat(ev.Time, 'g', -1, 64),
			ev.Reaction,
			strconv.FormatInt(ev.Multiplicity, 10),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing event %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
