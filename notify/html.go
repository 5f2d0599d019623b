package notify

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/wolfv/continuous-benchmark/regress"
)

// Mail clients strip <style> blocks, so every style is inlined on the
// elements directly.
const reportTemplate = `
{{- define "table" -}}
<table style="border-collapse: collapse; font-family: monospace;">
  <tr>
    <th style="padding: 2px 8px; text-align: left;">name</th>
    <th style="padding: 2px 8px; text-align: right;">baseline</th>
    <th style="padding: 2px 8px; text-align: right;">current</th>
    <th style="padding: 2px 8px; text-align: right;">difference_master</th>
    <th style="padding: 2px 8px; text-align: right;">p</th>
    <th style="padding: 2px 8px; text-align: left;">verdict</th>
  </tr>
  {{- range . }}
  <tr>
    <td style="padding: 2px 8px; text-align: left;">{{ .Name }}</td>
    <td style="padding: 2px 8px; text-align: right;">{{ .Baseline }}</td>
    <td style="padding: 2px 8px; text-align: right;">{{ .Current }}</td>
    <td style="padding: 2px 8px; text-align: right; color: {{ .DeltaColor }};">{{ .Delta }}</td>
    <td style="padding: 2px 8px; text-align: right;">{{ .P }}</td>
    <td style="padding: 2px 8px; text-align: left;">{{ .Verdict }}</td>
  </tr>
  {{- end }}
</table>
{{- end -}}
<h3 style="font-family: sans-serif;">Top movers</h3>
{{ template "table" .Top }}
<br><br>
<h3 style="font-family: sans-serif;">All benchmarks</h3>
{{ template "table" .All }}
`

var reportTmpl = template.Must(template.New("report").Parse(reportTemplate))

type htmlRow struct {
	Name       string
	Baseline   string
	Current    string
	Delta      string
	DeltaColor string
	P          string
	Verdict    string
}

const topMovers = 10

// RenderHTML produces the HTML report body: the ten largest movers by
// |delta| first, then the full table.
func RenderHTML(a *regress.Analysis) (string, error) {
	data := struct {
		Top []htmlRow
		All []htmlRow
	}{
		Top: htmlRows(a.TopMovers(topMovers)),
		All: htmlRows(a.Cases),
	}

	var b strings.Builder
	if err := reportTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("notify: rendering HTML report: %w", err)
	}
	return b.String(), nil
}

func htmlRows(cases []regress.CaseDelta) []htmlRow {
	rows := make([]htmlRow, 0, len(cases))
	for _, c := range cases {
		rows = append(rows, htmlRow{
			Name:       sanitizeName(c.Name),
			Baseline:   c.FormatBaseline(),
			Current:    c.FormatCurrent(),
			Delta:      formatDelta(c.Delta),
			DeltaColor: deltaColor(c.Delta),
			P:          formatP(c.P),
			Verdict:    string(c.Verdict),
		})
	}
	return rows
}

// sanitizeName rewrites template-argument brackets so case names like
// sum_2d<double> survive HTML rendering legibly.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "<", "[")
	return strings.ReplaceAll(name, ">", "]")
}

func formatDelta(d float64) string {
	if math.IsNaN(d) {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", d*100)
}

// deltaColor flags slower cases red and faster ones green; cpu_time
// going up is the bad direction.
func deltaColor(d float64) string {
	switch {
	case math.IsNaN(d) || d == 0:
		return "rgba(0, 0, 0, 1)"
	case d > 0:
		return "rgba(255, 0, 0, 1)"
	default:
		return "rgba(0, 170, 0, 1)"
	}
}

func formatP(p float64) string {
	if math.IsNaN(p) {
		return "-"
	}
	return fmt.Sprintf("%.3f", p)
}

// RenderPlain produces the plaintext alternative: a CSV of the same
// columns the HTML tables show.
func RenderPlain(a *regress.Analysis) string {
	var b strings.Builder
	b.WriteString("name,baseline,current,difference_master,p,verdict\n")
	for _, c := range a.Cases {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%s\n",
			c.Name,
			csvValue(c.Baseline),
			csvValue(c.Current),
			csvValue(c.Delta),
			csvValue(c.P),
			c.Verdict)
	}
	return b.String()
}

func csvValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.3f", v)
}
