// Package tree holds the observed genealogy and turns it into the ordered,
// collated event list consumed by the particle filter. Per-node type data
// lives on the plain Node record, keyed by a stable NodeID.
package tree

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reactsim/reactsim/sim"
)

// NodeID is a stable, user-supplied node identifier.
type NodeID string

// Node is one vertex of a rooted binary tree. Height is measured backwards
// from the present (height 0). Leaves have no children; internal nodes have
// exactly two.
type Node struct {
	ID       NodeID   `yaml:"id"`
	Height   float64  `yaml:"height"`
	Type     sim.Type `yaml:"type"`
	Children []NodeID `yaml:"children,omitempty"`
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Tree is an immutable validated genealogy.
type Tree struct {
	nodes    map[NodeID]*Node
	preorder []NodeID
	root     NodeID
}

// NewTree validates nodes and builds the tree. Every node must be reachable
// from exactly one root, internal nodes must have two children, and a child
// may not be older than its parent.
func NewTree(nodes []Node) (*Tree, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("tree has no nodes")
	}
	t := &Tree{nodes: make(map[NodeID]*Node, len(nodes))}
	for i := range nodes {
		n := nodes[i]
		if n.ID == "" {
			return nil, fmt.Errorf("nodes[%d]: id must not be empty", i)
		}
		if _, dup := t.nodes[n.ID]; dup {
			return nil, fmt.Errorf("nodes[%d]: duplicate id %q", i, n.ID)
		}
		if math.IsNaN(n.Height) || math.IsInf(n.Height, 0) {
			return nil, fmt.Errorf("node %q: height must be finite, got %f", n.ID, n.Height)
		}
		if n.Type == "" {
			return nil, fmt.Errorf("node %q: type must not be empty", n.ID)
		}
		if len(n.Children) != 0 && len(n.Children) != 2 {
			return nil, fmt.Errorf("node %q: has %d children; trees must be binary", n.ID, len(n.Children))
		}
		n.Children = append([]NodeID(nil), n.Children...)
		t.nodes[n.ID] = &n
	}

	parent := make(map[NodeID]NodeID, len(nodes))
	for _, n := range nodes {
		for _, c := range n.Children {
			child, ok := t.nodes[c]
			if !ok {
				return nil, fmt.Errorf("node %q: unknown child %q", n.ID, c)
			}
			if p, seen := parent[c]; seen {
				return nil, fmt.Errorf("node %q: has two parents (%q and %q)", c, p, n.ID)
			}
			if child.Height > n.Height+Tolerance {
				return nil, fmt.Errorf("node %q: child %q is older than its parent", n.ID, c)
			}
			parent[c] = n.ID
		}
	}

	for _, n := range nodes {
		if _, ok := parent[n.ID]; !ok {
			if t.root != "" {
				return nil, fmt.Errorf("tree has more than one root (%q and %q)", t.root, n.ID)
			}
			t.root = n.ID
		}
	}
	if t.root == "" {
		return nil, fmt.Errorf("tree has no root")
	}

	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.preorder = append(t.preorder, id)
		kids := t.nodes[id].Children
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	if len(t.preorder) != len(t.nodes) {
		return nil, fmt.Errorf("tree has %d nodes unreachable from root %q", len(t.nodes)-len(t.preorder), t.root)
	}
	return t, nil
}

// Root returns the root node's ID.
func (t *Tree) Root() NodeID { return t.root }

// Node returns the node with the given ID.
func (t *Tree) Node(id NodeID) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Preorder returns node IDs in preorder, children visited in listed order.
func (t *Tree) Preorder() []NodeID {
	return append([]NodeID(nil), t.preorder...)
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Leaves returns the number of tips.
func (t *Tree) Leaves() int {
	count := 0
	for _, n := range t.nodes {
		if n.IsLeaf() {
			count++
		}
	}
	return count
}

// Height returns the root height.
func (t *Tree) Height() float64 { return t.nodes[t.root].Height }

// File is the YAML form of a tree.
type File struct {
	Nodes []Node `yaml:"nodes"`
}

// LoadTree reads and validates a YAML tree file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadTree(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}
	return ParseTree(data)
}

// ParseTree decodes and validates YAML tree bytes.
func ParseTree(data []byte) (*Tree, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing tree: %w", err)
	}
	return NewTree(f.Nodes)
}
