// Package regress decides whether a benchmark run got slower. It layers a
// statistical verdict over the raw percentage delta: per case, the new
// run's cpu_time sample is tested against the sample formed by the
// baseline branch's recent runs (Mann-Whitney U), and only a change that
// is both significant and above the case's threshold counts as a
// regression. Noisy or thin histories degrade to an indeterminate flag
// instead of a false alarm.
package regress

import (
	"math"
	"sort"

	"golang.org/x/perf/benchmath"
	"golang.org/x/perf/benchunit"
	"gonum.org/v1/gonum/stat"

	"github.com/wolfv/continuous-benchmark/gbench"
	"github.com/wolfv/continuous-benchmark/history"
)

// Verdict is the per-case outcome of the comparison.
type Verdict string

const (
	// VerdictPass: no meaningful change.
	VerdictPass Verdict = "pass"
	// VerdictRegression: significantly slower and above threshold.
	VerdictRegression Verdict = "regression"
	// VerdictImprovement: significantly faster and above threshold.
	VerdictImprovement Verdict = "improvement"
	// VerdictIndeterminate: the delta crosses the threshold but the
	// history is too thin or too noisy to call it.
	VerdictIndeterminate Verdict = "indeterminate"
	// VerdictAdded: case has no baseline history.
	VerdictAdded Verdict = "added"
	// VerdictRemoved: case exists in the baseline but not in this run.
	VerdictRemoved Verdict = "removed"
)

// Config tunes the detection.
type Config struct {
	// Alpha is the significance level for the Mann-Whitney U test.
	Alpha float64
	// Threshold is the default fractional cpu_time change below which a
	// case never alerts, significant or not.
	Threshold float64
	// MinSamples is the minimum size each side's sample needs before the
	// statistical test is trusted.
	MinSamples int
	// Window caps how many baseline runs feed the history sample.
	Window int
	// Thresholds optionally overrides Threshold per case.
	Thresholds *Manifest
}

// DefaultConfig mirrors benchstat's conventions: 5% alpha, 5% threshold,
// four samples a side.
func DefaultConfig() Config {
	return Config{Alpha: 0.05, Threshold: 0.05, MinSamples: 4, Window: 10}
}

func (c Config) thresholdFor(name string) float64 {
	if c.Thresholds != nil {
		if t, ok := c.Thresholds.Lookup(name); ok {
			return t
		}
	}
	return c.Threshold
}

// CaseDelta is the per-case comparison result.
type CaseDelta struct {
	Name string `json:"name"`

	// Baseline and Current are the representative cpu_time values: the
	// latest baseline run's reading and this run's reading.
	Baseline float64 `json:"baseline"`
	Current  float64 `json:"current"`

	// Delta is (Current-Baseline)/Baseline; NaN for added/removed cases.
	Delta float64 `json:"delta"`

	// P is the Mann-Whitney U p-value over the windowed samples; NaN when
	// the test did not run.
	P float64 `json:"p"`

	// BaselineN and CurrentN are the two sample sizes.
	BaselineN int `json:"baseline_n"`
	CurrentN  int `json:"current_n"`

	// BaselineMean and BaselineStddev summarize the history sample.
	BaselineMean   float64 `json:"baseline_mean"`
	BaselineStddev float64 `json:"baseline_stddev"`

	TimeUnit string  `json:"time_unit"`
	Verdict  Verdict `json:"verdict"`
}

// FormatBaseline renders the baseline reading with a scaled SI prefix,
// "12.35k ns" style.
func (c *CaseDelta) FormatBaseline() string {
	return formatScaled(c.Baseline, c.TimeUnit)
}

// FormatCurrent renders the current reading with a scaled SI prefix.
func (c *CaseDelta) FormatCurrent() string {
	return formatScaled(c.Current, c.TimeUnit)
}

func formatScaled(v float64, unit string) string {
	if math.IsNaN(v) {
		return "-"
	}
	s := benchunit.Scale(v, benchunit.Decimal)
	if unit == "" {
		return s
	}
	return s + " " + unit
}

// Analysis is the full comparison of one run against baseline history.
type Analysis struct {
	Cases []CaseDelta `json:"cases"`

	Regressions   int `json:"regressions"`
	Improvements  int `json:"improvements"`
	Indeterminate int `json:"indeterminate"`

	// BaselineRuns is how many history runs fed the samples.
	BaselineRuns int `json:"baseline_runs"`
}

// Deltas returns the name -> delta map for the cases that have one, in
// the shape the CSV writer wants.
func (a *Analysis) Deltas() map[string]float64 {
	m := make(map[string]float64)
	for _, c := range a.Cases {
		if !math.IsNaN(c.Delta) {
			m[c.Name] = c.Delta
		}
	}
	return m
}

// TopMovers returns up to n cases ordered by |delta| descending, skipping
// added and removed cases.
func (a *Analysis) TopMovers(n int) []CaseDelta {
	movers := make([]CaseDelta, 0, len(a.Cases))
	for _, c := range a.Cases {
		if !math.IsNaN(c.Delta) {
			movers = append(movers, c)
		}
	}
	sort.Slice(movers, func(i, j int) bool {
		return math.Abs(movers[i].Delta) > math.Abs(movers[j].Delta)
	})
	if len(movers) > n {
		movers = movers[:n]
	}
	return movers
}

// Compare analyzes the current run against the baseline branch's history,
// newest record first. Case order follows the current run, with removed
// baseline cases appended.
func Compare(current *gbench.Run, baseline []*history.Record, cfg Config) *Analysis {
	if cfg.Alpha <= 0 {
		cfg.Alpha = 0.05
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 4
	}
	if cfg.Window > 0 && len(baseline) > cfg.Window {
		baseline = baseline[:cfg.Window]
	}

	histSamples := baselineSamples(baseline)
	var latest map[string]*gbench.Result
	if len(baseline) > 0 {
		latestRun := &gbench.Run{Results: baseline[0].Results}
		latest = latestRun.ByName()
	}

	a := &Analysis{BaselineRuns: len(baseline)}
	seen := make(map[string]bool, len(current.Results))
	for _, res := range current.Results {
		seen[res.Name] = true
		a.Cases = append(a.Cases, compareCase(res, latest[res.Name], histSamples[res.Name], cfg))
	}

	// Baseline cases this run no longer measures.
	for _, prev := range removedCases(latest, seen) {
		a.Cases = append(a.Cases, CaseDelta{
			Name:     prev.Name,
			Baseline: prev.CPUTime,
			Current:  math.NaN(),
			Delta:    math.NaN(),
			P:        math.NaN(),
			TimeUnit: prev.TimeUnit,
			Verdict:  VerdictRemoved,
		})
	}

	for _, c := range a.Cases {
		switch c.Verdict {
		case VerdictRegression:
			a.Regressions++
		case VerdictImprovement:
			a.Improvements++
		case VerdictIndeterminate:
			a.Indeterminate++
		}
	}
	return a
}

// baselineSamples flattens the history into one cpu_time sample per case.
// Each run contributes all of its repetition values.
func baselineSamples(baseline []*history.Record) map[string][]float64 {
	samples := make(map[string][]float64)
	for _, rec := range baseline {
		for _, res := range rec.Results {
			vals := res.CPUSamples
			if len(vals) == 0 {
				vals = []float64{res.CPUTime}
			}
			samples[res.Name] = append(samples[res.Name], vals...)
		}
	}
	return samples
}

func removedCases(latest map[string]*gbench.Result, seen map[string]bool) []*gbench.Result {
	var removed []*gbench.Result
	for name, res := range latest {
		if !seen[name] {
			removed = append(removed, res)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].Name < removed[j].Name })
	return removed
}

func compareCase(res gbench.Result, prev *gbench.Result, hist []float64, cfg Config) CaseDelta {
	c := CaseDelta{
		Name:     res.Name,
		Current:  res.CPUTime,
		CurrentN: len(res.CPUSamples),
		TimeUnit: res.TimeUnit,
		Baseline: math.NaN(),
		Delta:    math.NaN(),
		P:        math.NaN(),
	}
	if prev == nil {
		c.Verdict = VerdictAdded
		return c
	}

	c.Baseline = prev.CPUTime
	c.BaselineN = len(hist)
	if prev.CPUTime != 0 {
		c.Delta = (res.CPUTime - prev.CPUTime) / prev.CPUTime
	}
	if len(hist) > 0 {
		c.BaselineMean, c.BaselineStddev = stat.MeanStdDev(hist, nil)
	}

	threshold := cfg.thresholdFor(res.Name)
	exceeded := !math.IsNaN(c.Delta) && math.Abs(c.Delta) >= threshold

	// The statistical test needs real samples on both sides. A single
	// current measurement against a thin history cannot reach
	// significance, so the verdict never escalates past indeterminate.
	if len(hist) >= cfg.MinSamples && len(res.CPUSamples) >= 2 {
		thresholds := benchmath.DefaultThresholds
		thresholds.CompareAlpha = cfg.Alpha
		old := benchmath.NewSample(hist, &thresholds)
		cur := benchmath.NewSample(res.CPUSamples, &thresholds)
		cmp := benchmath.AssumeNothing.Compare(old, cur)
		c.P = cmp.P

		if !math.IsNaN(cmp.P) && cmp.P < cfg.Alpha && exceeded {
			if c.Delta > 0 {
				c.Verdict = VerdictRegression
			} else {
				c.Verdict = VerdictImprovement
			}
			return c
		}
	}

	if exceeded {
		c.Verdict = VerdictIndeterminate
	} else {
		c.Verdict = VerdictPass
	}
	return c
}
