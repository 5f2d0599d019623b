package gbench

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteResults serializes results back to CSV table form. When deltas is
// non-nil a difference_master column is inserted after time_unit, holding
// the fractional cpu_time change vs. the baseline branch for the cases
// that have one. Floats are written with three decimals.
func WriteResults(w io.Writer, results []Result, deltas map[string]float64) error {
	cw := csv.NewWriter(w)

	// Extra columns are keyed by name across all rows, in first-seen
	// order, so rows with differing extras still line up under the right
	// header.
	var extraKeys []string
	seenKey := make(map[string]bool)
	for _, res := range results {
		for _, f := range res.Extra {
			if !seenKey[f.Key] {
				seenKey[f.Key] = true
				extraKeys = append(extraKeys, f.Key)
			}
		}
	}

	header := []string{"name", "iterations", "real_time", "cpu_time", "time_unit"}
	if deltas != nil {
		header = append(header, deltaColumn)
	}
	header = append(header, extraKeys...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("gbench: writing header: %w", err)
	}

	for _, res := range results {
		rec := []string{
			res.Name,
			fmt.Sprintf("%d", res.Iterations),
			fmt.Sprintf("%.3f", res.RealTime),
			fmt.Sprintf("%.3f", res.CPUTime),
			res.TimeUnit,
		}
		if deltas != nil {
			if d, ok := deltas[res.Name]; ok {
				rec = append(rec, fmt.Sprintf("%.3f", d))
			} else {
				rec = append(rec, "")
			}
		}
		extras := make(map[string]string, len(res.Extra))
		for _, f := range res.Extra {
			extras[f.Key] = f.Value
		}
		for _, key := range extraKeys {
			rec = append(rec, extras[key])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("gbench: writing row %s: %w", res.Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
