package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var intervalHeader = []string{"index", "time", "nodes", "multis", "log_increment", "ess", "alive"}

// WriteCSV writes one row per interval record, preceded by a header row.
func WriteCSV(w io.Writer, ft *FilterTrace) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(intervalHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range ft.Intervals {
		row := []string{
			strconv.Itoa(r.Index),
			strconv.FormatFloat(r.Time, 'g', -1, 64),
			strconv.Itoa(r.Nodes),
			strconv.Itoa(r.Multis),
			strconv.FormatFloat(r.LogIncrement, 'g', -1, 64),
			strconv.FormatFloat(r.ESS, 'f', 4, 64),
			strconv.Itoa(r.Alive),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing interval %d: %w", r.Index, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
