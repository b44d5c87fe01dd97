package tree

import (
	"fmt"
	"math"
	"sort"

	"github.com/reactsim/reactsim/sim"
)

// Tolerance is the time window within which tree events are considered
// coincident. It is used for collation and for grouping events into one
// filter interval.
const Tolerance = 1e-10

// EventNode is a tree node taking part in an event. Children is empty for leaves.
type EventNode struct {
	ID       NodeID
	Children []NodeID
}

// TreeEvent is one or more coincident nodes with the same type and leaf flag.
type TreeEvent struct {
	Time         float64 // forward time since the origin
	Type         sim.Type
	IsLeaf       bool
	Multiplicity int
	Nodes        []EventNode
}

// EventList is the time-ordered, collated event sequence for one tree.
type EventList struct {
	Root   NodeID
	Events []TreeEvent
}

// Len returns the number of collated events.
func (l *EventList) Len() int { return len(l.Events) }

// BuildEventList converts tree heights into forward times since origin,
// orders the nodes and collates coincident entries.
//
// Within a run of coincident times internal nodes come first in preorder,
// so a parent always precedes a child sharing its time, and leaves follow
// grouped by type. Every event of a run takes the run's earliest time.
func BuildEventList(t *Tree, origin float64) (*EventList, error) {
	type entry struct {
		ev    TreeEvent
		order int
	}
	entries := make([]entry, 0, t.Len())
	for i, id := range t.preorder {
		n := t.nodes[id]
		tm := origin - n.Height
		if tm < -Tolerance {
			return nil, fmt.Errorf("node %q at height %g is older than the origin at %g", id, n.Height, origin)
		}
		if tm < 0 {
			tm = 0
		}
		entries = append(entries, entry{
			ev: TreeEvent{
				Time:         tm,
				Type:         n.Type,
				IsLeaf:       n.IsLeaf(),
				Multiplicity: 1,
				Nodes:        []EventNode{{ID: id, Children: append([]NodeID(nil), n.Children...)}},
			},
			order: i,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ev.Time < entries[j].ev.Time })

	// Reorder each coincident run.
	for start := 0; start < len(entries); {
		end := start + 1
		for end < len(entries) && entries[end].ev.Time-entries[start].ev.Time < Tolerance {
			end++
		}
		run := entries[start:end]
		t0 := run[0].ev.Time
		sort.SliceStable(run, func(i, j int) bool {
			a, b := run[i], run[j]
			if a.ev.IsLeaf != b.ev.IsLeaf {
				return !a.ev.IsLeaf
			}
			if a.ev.IsLeaf && a.ev.Type != b.ev.Type {
				return a.ev.Type < b.ev.Type
			}
			return a.order < b.order
		})
		for i := range run {
			run[i].ev.Time = t0
		}
		start = end
	}

	raw := make([]TreeEvent, len(entries))
	for i, e := range entries {
		raw[i] = e.ev
	}
	return &EventList{Root: t.root, Events: Collate(raw)}, nil
}

// Collate merges consecutive events that lie within Tolerance, in either
// direction, of the first event of the merged run and share type and leaf flag. Multiplicities add
// and node lists concatenate in order.
func Collate(events []TreeEvent) []TreeEvent {
	out := make([]TreeEvent, 0, len(events))
	for _, ev := range events {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if math.Abs(ev.Time-last.Time) < Tolerance && ev.IsLeaf == last.IsLeaf && ev.Type == last.Type {
				last.Multiplicity += ev.Multiplicity
				last.Nodes = append(last.Nodes, ev.Nodes...)
				continue
			}
		}
		ev.Nodes = append([]EventNode(nil), ev.Nodes...)
		out = append(out, ev)
	}
	return out
}

// Groups splits the event list into runs of events within Tolerance of the
// run's first event. Each run is one filter interval.
func (l *EventList) Groups() [][]TreeEvent {
	var groups [][]TreeEvent
	for start := 0; start < len(l.Events); {
		end := start + 1
		for end < len(l.Events) && l.Events[end].Time-l.Events[start].Time < Tolerance {
			end++
		}
		groups = append(groups, l.Events[start:end])
		start = end
	}
	return groups
}
