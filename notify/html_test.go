package notify

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfv/continuous-benchmark/regress"
)

func sampleAnalysis() *regress.Analysis {
	return &regress.Analysis{
		Cases: []regress.CaseDelta{
			{Name: "sum_1d", Baseline: 100, Current: 150, Delta: 0.5, P: 0.002, TimeUnit: "ns", Verdict: regress.VerdictRegression},
			{Name: "sum_2d<double>", Baseline: 200, Current: 180, Delta: -0.1, P: 0.01, TimeUnit: "ns", Verdict: regress.VerdictImprovement},
			{Name: "copy_small", Baseline: 12, Current: 12.1, Delta: 0.008, P: 0.4, TimeUnit: "ns", Verdict: regress.VerdictPass},
			{Name: "new_case", Baseline: math.NaN(), Current: 5, Delta: math.NaN(), P: math.NaN(), TimeUnit: "ns", Verdict: regress.VerdictAdded},
		},
		Regressions:  1,
		Improvements: 1,
		BaselineRuns: 8,
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleAnalysis())
	require.NoError(t, err)

	assert.Contains(t, html, "Top movers")
	assert.Contains(t, html, "All benchmarks")

	// Regressions red, improvements green.
	assert.Contains(t, html, "rgba(255, 0, 0, 1)")
	assert.Contains(t, html, "rgba(0, 170, 0, 1)")

	// Template brackets sanitized, not HTML-escaped into entities soup.
	assert.Contains(t, html, "sum_2d[double]")
	assert.NotContains(t, html, "sum_2d<double>")

	// Added cases render placeholders, not NaN.
	assert.NotContains(t, html, "NaN")
}

func TestRenderHTML_TopMoversOrder(t *testing.T) {
	html, err := RenderHTML(sampleAnalysis())
	require.NoError(t, err)

	// The biggest mover appears before the smaller one in the top table.
	assert.Less(t, strings.Index(html, "sum_1d"), strings.Index(html, "copy_small"))
}

func TestRenderPlain(t *testing.T) {
	plain := RenderPlain(sampleAnalysis())

	lines := strings.Split(strings.TrimSpace(plain), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "name,baseline,current,difference_master,p,verdict", lines[0])
	assert.Equal(t, "sum_1d,100.000,150.000,0.500,0.002,regression", lines[1])
	assert.Equal(t, "new_case,,5.000,,,added", lines[4])
}

func TestNewMailer_Validation(t *testing.T) {
	_, err := NewMailer(MailConfig{})
	require.Error(t, err)

	_, err = NewMailer(MailConfig{Sender: "a@b.c", SMTPServer: "smtp.example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipients")

	m, err := NewMailer(MailConfig{
		Sender:     "a@b.c",
		Recipients: []string{"d@e.f"},
		SMTPServer: "smtp.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 587, m.cfg.SMTPPort)
}
