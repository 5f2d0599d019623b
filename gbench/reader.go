package gbench

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// tableHeader marks the start of the measurement table. Google Benchmark
// always emits these four columns first, in this order.
const tableHeader = "name,iterations,real_time,cpu_time"

// preambleDateFormat is the timestamp format Google Benchmark prints in
// its run context block.
const preambleDateFormat = "2006-01-02 15:04:05"

// difference column names are derived data written by a previous upload;
// they are recomputed on every run and never read back.
const deltaColumn = "difference_master"

var ErrNoTable = errors.New("gbench: no measurement table found")

// ReadRun parses a Google Benchmark CSV result file: everything up to the
// table header is kept as preamble, the rest is parsed as CSV.
//
// Duplicate case names keep the first row in Results (matching what the
// table shows to a reader), but every duplicate's cpu_time is appended to
// CPUSamples so repetition runs stay usable as a statistical sample.
func ReadRun(r io.Reader) (*Run, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	run := &Run{}
	var table strings.Builder
	inTable := false
	for sc.Scan() {
		line := sc.Text()
		if !inTable && strings.HasPrefix(line, tableHeader) {
			inTable = true
		}
		if inTable {
			table.WriteString(line)
			table.WriteByte('\n')
			continue
		}
		run.Preamble = append(run.Preamble, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("gbench: reading results: %w", err)
	}
	if !inTable {
		return nil, ErrNoTable
	}

	parsePreamble(run)
	if err := parseTable(run, table.String()); err != nil {
		return nil, err
	}
	if len(run.Results) == 0 {
		return nil, errors.New("gbench: measurement table is empty")
	}
	return run, nil
}

func parsePreamble(run *Run) {
	for _, line := range run.Preamble {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if run.CPU == "" {
			run.CPU = trimmed
		}
		if run.Timestamp.IsZero() && strings.HasPrefix(trimmed, "20") {
			if t, err := time.Parse(preambleDateFormat, trimmed); err == nil {
				run.Timestamp = t
			}
		}
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now()
		log.Warn().Msg("No run date in preamble, using current time")
	}
}

func parseTable(run *Run, table string) error {
	cr := csv.NewReader(strings.NewReader(table))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("gbench: reading table header: %w", err)
	}

	seen := make(map[string]int) // name -> index into run.Results
	var dups []string
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("gbench: table line %d: %w", line, err)
		}
		if len(rec) < 5 {
			return fmt.Errorf("gbench: table line %d: got %d columns, want at least 5", line, len(rec))
		}

		res, err := parseRow(header, rec)
		if err != nil {
			return fmt.Errorf("gbench: table line %d: %w", line, err)
		}

		if i, ok := seen[res.Name]; ok {
			run.Results[i].CPUSamples = append(run.Results[i].CPUSamples, res.CPUTime)
			dups = append(dups, res.Name)
			continue
		}
		seen[res.Name] = len(run.Results)
		run.Results = append(run.Results, res)
	}

	if len(dups) > 0 {
		log.Warn().Strs("names", dups).Msg("Duplicate benchmark rows collapsed into samples")
	}
	return nil
}

func parseRow(header, rec []string) (Result, error) {
	res := Result{Name: rec[0], TimeUnit: rec[4]}

	var err error
	if res.Iterations, err = strconv.ParseInt(rec[1], 10, 64); err != nil {
		return res, fmt.Errorf("iterations %q: %w", rec[1], err)
	}
	if res.RealTime, err = strconv.ParseFloat(rec[2], 64); err != nil {
		return res, fmt.Errorf("real_time %q: %w", rec[2], err)
	}
	if res.CPUTime, err = strconv.ParseFloat(rec[3], 64); err != nil {
		return res, fmt.Errorf("cpu_time %q: %w", rec[3], err)
	}
	res.CPUSamples = []float64{res.CPUTime}

	for i := 5; i < len(rec); i++ {
		key := ""
		if i < len(header) {
			key = header[i]
		}
		if key == deltaColumn {
			continue
		}
		res.Extra = append(res.Extra, Field{Key: key, Value: rec[i]})
	}
	return res, nil
}
