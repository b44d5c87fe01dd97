package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/reactsim/reactsim/sim/tree"
)

// eventsCmd prints the collated event list of a tree
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print a tree's collated event list in forward time",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		model, err := loadModel(modelPath)
		if err != nil {
			logrus.Fatalf("Failed to load model: %v", err)
		}
		events, err := loadEvents(model, treePath)
		if err != nil {
			logrus.Fatalf("Failed to load tree: %v", err)
		}
		if err := writeEvents(cmd.OutOrStdout(), events); err != nil {
			logrus.Fatalf("Failed to write events: %v", err)
		}
	},
}

// writeEvents writes a tab-separated listing of events, one collated event
// per line. Internal nodes list their children in parentheses.
func writeEvents(w io.Writer, events *tree.EventList) error {
	var b strings.Builder
	fmt.Fprintf(&b, "root=%s\n", events.Root)
	b.WriteString("time\tkind\ttype\tmultiplicity\tnodes\n")
	for _, ev := range events.Events {
		kind := "internal"
		if ev.IsLeaf {
			kind = "leaf"
		}
		nodes := make([]string, len(ev.Nodes))
		for i, n := range ev.Nodes {
			if len(n.Children) == 0 {
				nodes[i] = string(n.ID)
				continue
			}
			kids := make([]string, len(n.Children))
			for j, c := range n.Children {
				kids[j] = string(c)
			}
			nodes[i] = fmt.Sprintf("%s(%s)", n.ID, strings.Join(kids, ","))
		}
		fmt.Fprintf(&b, "%g\t%s\t%s\t%d\t%s\n", ev.Time, kind, ev.Type, ev.Multiplicity, strings.Join(nodes, " "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
