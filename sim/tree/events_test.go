package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactsim/reactsim/sim"
)

func TestBuildEventList_OrdersByForwardTime(t *testing.T) {
	// GIVEN a three-tip tree and an origin at height 5
	tr, err := ParseTree([]byte(threeTipYAML))
	require.NoError(t, err)

	// WHEN the event list is built
	list, err := BuildEventList(tr, 5)
	require.NoError(t, err)

	// THEN events run from the root forwards with time = origin - height
	assert.Equal(t, NodeID("root"), list.Root)
	require.Equal(t, 5, list.Len())
	wantTimes := []float64{1, 2.5, 4, 4.5, 5}
	wantIDs := []NodeID{"root", "x", "b", "c", "a"}
	for i, ev := range list.Events {
		assert.InDelta(t, wantTimes[i], ev.Time, 1e-12)
		assert.Equal(t, wantIDs[i], ev.Nodes[0].ID)
		assert.Equal(t, 1, ev.Multiplicity)
	}
	assert.False(t, list.Events[0].IsLeaf)
	assert.Equal(t, []NodeID{"x", "c"}, list.Events[0].Nodes[0].Children)
	assert.True(t, list.Events[4].IsLeaf)
}

func TestBuildEventList_NodeOlderThanOrigin(t *testing.T) {
	tr, err := ParseTree([]byte(threeTipYAML))
	require.NoError(t, err)
	_, err = BuildEventList(tr, 3)
	assert.Error(t, err)
}

func TestBuildEventList_CoincidentLeavesCollapse(t *testing.T) {
	// GIVEN two same-type tips at the same height
	tr, err := NewTree([]Node{
		{ID: "r", Height: 1, Type: "A", Children: []NodeID{"a", "b"}},
		{ID: "a", Height: 0, Type: "A"},
		{ID: "b", Height: 0, Type: "A"},
	})
	require.NoError(t, err)

	// WHEN the event list is built
	list, err := BuildEventList(tr, 1)
	require.NoError(t, err)

	// THEN the tips form one event with multiplicity 2
	require.Equal(t, 2, list.Len())
	leaf := list.Events[1]
	assert.True(t, leaf.IsLeaf)
	assert.Equal(t, 2, leaf.Multiplicity)
	assert.Equal(t, []EventNode{{ID: "a"}, {ID: "b"}}, leaf.Nodes)
}

func TestBuildEventList_InternalBeforeLeafAtSameTime(t *testing.T) {
	// GIVEN an internal node sharing its height with an unrelated tip
	tr, err := NewTree([]Node{
		{ID: "r", Height: 2, Type: "A", Children: []NodeID{"a", "x"}},
		{ID: "a", Height: 1, Type: "A"},
		{ID: "x", Height: 1, Type: "A", Children: []NodeID{"b", "c"}},
		{ID: "b", Height: 0, Type: "A"},
		{ID: "c", Height: 0, Type: "A"},
	})
	require.NoError(t, err)

	list, err := BuildEventList(tr, 2)
	require.NoError(t, err)

	// THEN the internal node comes first within the coincident run
	require.Equal(t, 4, list.Len())
	assert.False(t, list.Events[1].IsLeaf)
	assert.Equal(t, NodeID("x"), list.Events[1].Nodes[0].ID)
	assert.True(t, list.Events[2].IsLeaf)
	assert.Equal(t, NodeID("a"), list.Events[2].Nodes[0].ID)

	// THEN both land in one filter group
	groups := list.Groups()
	require.Len(t, groups, 3)
	assert.Len(t, groups[1], 2)
}

func TestBuildEventList_NearlyCoincidentRunSharesOneTime(t *testing.T) {
	// GIVEN a tip 5e-11 older than an unrelated internal node
	tr, err := NewTree([]Node{
		{ID: "root", Height: 2, Type: "A", Children: []NodeID{"n1", "e"}},
		{ID: "n1", Height: 1, Type: "A", Children: []NodeID{"c", "d"}},
		{ID: "e", Height: 1 + 5e-11, Type: "A"},
		{ID: "c", Height: 0, Type: "A"},
		{ID: "d", Height: 0, Type: "A"},
	})
	require.NoError(t, err)

	// WHEN the event list is built with origin 3
	list, err := BuildEventList(tr, 3)
	require.NoError(t, err)

	// THEN the internal node leads the run and times never decrease
	require.Equal(t, 4, list.Len())
	assert.Equal(t, NodeID("n1"), list.Events[1].Nodes[0].ID)
	assert.Equal(t, NodeID("e"), list.Events[2].Nodes[0].ID)
	for i := 1; i < list.Len(); i++ {
		assert.LessOrEqual(t, list.Events[i-1].Time, list.Events[i].Time)
	}
	assert.Equal(t, list.Events[1].Time, list.Events[2].Time)
	assert.InDelta(t, 2.0, list.Events[1].Time, 1e-10)
	assert.Len(t, list.Groups(), 3)
}

func TestCollate(t *testing.T) {
	leaf := func(tm float64, typ sim.Type, id NodeID) TreeEvent {
		return TreeEvent{Time: tm, Type: typ, IsLeaf: true, Multiplicity: 1, Nodes: []EventNode{{ID: id}}}
	}
	tests := []struct {
		name  string
		in    []TreeEvent
		mults []int
	}{
		{
			name:  "same type within tolerance",
			in:    []TreeEvent{leaf(1, "A", "a"), leaf(1+Tolerance/2, "A", "b")},
			mults: []int{2},
		},
		{
			name:  "same type outside tolerance",
			in:    []TreeEvent{leaf(1, "A", "a"), leaf(1+2*Tolerance, "A", "b")},
			mults: []int{1, 1},
		},
		{
			name:  "different types same time",
			in:    []TreeEvent{leaf(1, "A", "a"), leaf(1, "B", "b")},
			mults: []int{1, 1},
		},
		{
			name: "leaf and internal same type",
			in: []TreeEvent{
				{Time: 1, Type: "A", Multiplicity: 1, Nodes: []EventNode{{ID: "x", Children: []NodeID{"a", "b"}}}},
				leaf(1, "A", "c"),
			},
			mults: []int{1, 1},
		},
		{
			name:  "unsorted input far apart",
			in:    []TreeEvent{leaf(5, "A", "a"), leaf(1, "A", "b")},
			mults: []int{1, 1},
		},
		{
			name:  "three in a row",
			in:    []TreeEvent{leaf(2, "A", "a"), leaf(2, "A", "b"), leaf(2, "A", "c")},
			mults: []int{3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Collate(tt.in)
			require.Len(t, out, len(tt.mults))
			for i, m := range tt.mults {
				assert.Equal(t, m, out[i].Multiplicity)
				assert.Len(t, out[i].Nodes, m)
			}
		})
	}
}
