// Package report renders benchmark history as a standalone HTML page of
// charts, one time series per benchmark case.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/wolfv/continuous-benchmark/history"
)

type series struct {
	unit   string
	dates  []string
	values []opts.LineData
}

// RenderHistory writes an HTML page charting cpu_time over time. recs
// must be newest first, as the stores return them; caseName restricts
// the page to a single case, empty renders every case.
func RenderHistory(w io.Writer, caseName string, recs []*history.Record) error {
	if len(recs) == 0 {
		return fmt.Errorf("report: no runs to chart")
	}

	byCase := make(map[string]*series)
	// Oldest first so the x axis reads left to right.
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		date := rec.RecordedAt.Format("2006-01-02 15:04")
		for _, res := range rec.Results {
			if caseName != "" && res.Name != caseName {
				continue
			}
			s, ok := byCase[res.Name]
			if !ok {
				s = &series{unit: res.TimeUnit}
				byCase[res.Name] = s
			}
			s.dates = append(s.dates, date)
			s.values = append(s.values, opts.LineData{Value: res.CPUTime})
		}
	}
	if len(byCase) == 0 {
		return fmt.Errorf("report: case %q not found in history", caseName)
	}

	names := make([]string, 0, len(byCase))
	for name := range byCase {
		names = append(names, name)
	}
	sort.Strings(names)

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("benchmark history: %s/%s", recs[0].Hostname, recs[0].Branch)
	for _, name := range names {
		s := byCase[name]
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{
				Title:    name,
				Subtitle: fmt.Sprintf("cpu_time (%s), %s/%s", s.unit, recs[0].Hostname, recs[0].Branch),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: true}),
			charts.WithToolboxOpts(opts.Toolbox{Show: true}),
		)
		line.SetXAxis(s.dates).AddSeries("cpu_time", s.values)
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("report: rendering page: %w", err)
	}
	return nil
}
