// Package gbench reads and writes benchmark result files in the CSV
// format emitted by Google Benchmark (--benchmark_format=csv), including
// the free-form metadata preamble that precedes the measurement table.
package gbench

import "time"

// Field is a single extra CSV column carried through untouched, such as
// bytes_per_second or label. Order is preserved from the input file.
type Field struct {
	Key   string
	Value string
}

// Result is one row of the measurement table.
type Result struct {
	Name       string
	Iterations int64
	RealTime   float64
	CPUTime    float64
	TimeUnit   string

	// CPUSamples holds every cpu_time observed for this case name.
	// Google Benchmark emits one row per repetition under the same name,
	// so with --benchmark_repetitions=N this has N entries; otherwise one.
	CPUSamples []float64

	Extra []Field
}

// Run is a parsed result file: the metadata preamble plus the table.
type Run struct {
	// Timestamp is the run date parsed from the preamble. When the
	// preamble carries no parsable date this is the read time.
	Timestamp time.Time

	// CPU is the first preamble line, which Google Benchmark uses for
	// the CPU description.
	CPU string

	// Preamble holds every line before the table header, verbatim.
	// Context warnings (frequency scaling, debug builds) land here.
	Preamble []string

	Results []Result
}

// ByName indexes the results by case name.
func (r *Run) ByName() map[string]*Result {
	m := make(map[string]*Result, len(r.Results))
	for i := range r.Results {
		m[r.Results[i].Name] = &r.Results[i]
	}
	return m
}
