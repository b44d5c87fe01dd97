package smc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reactsim/reactsim/sim"
	"github.com/reactsim/reactsim/sim/tree"
)

func buildModel(t *testing.T, yaml []byte) *sim.Model {
	t.Helper()
	cfg, err := sim.ParseModelConfig(yaml)
	require.NoError(t, err)
	m, err := sim.BuildModel(cfg)
	require.NoError(t, err)
	return m
}

func eventsFor(t *testing.T, origin float64, nodes ...tree.Node) *tree.EventList {
	t.Helper()
	tr, err := tree.NewTree(nodes)
	require.NoError(t, err)
	list, err := tree.BuildEventList(tr, origin)
	require.NoError(t, err)
	return list
}

func singleLeaf(typ sim.Type) tree.Node {
	return tree.Node{ID: "tip", Height: 0, Type: typ}
}

// cherry is a root at height h with two tips at height 0.
func cherry(h float64) []tree.Node {
	return []tree.Node{
		{ID: "root", Height: h, Type: "A", Children: []tree.NodeID{"a", "b"}},
		{ID: "a", Height: 0, Type: "A"},
		{ID: "b", Height: 0, Type: "A"},
	}
}
