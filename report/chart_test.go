package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfv/continuous-benchmark/gbench"
	"github.com/wolfv/continuous-benchmark/history"
)

func chartRecords() []*history.Record {
	recs := make([]*history.Record, 3)
	for i := range recs {
		recs[i] = &history.Record{
			Hostname:   "bench01",
			Branch:     "master",
			RecordedAt: time.Date(2023, 4, 3-i, 12, 0, 0, 0, time.UTC),
			Results: []gbench.Result{
				{Name: "sum_1d", CPUTime: 100 + float64(i), TimeUnit: "ns"},
				{Name: "copy_small", CPUTime: 12, TimeUnit: "ns"},
			},
		}
	}
	return recs
}

func TestRenderHistory_AllCases(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, RenderHistory(&b, "", chartRecords()))

	html := b.String()
	assert.Contains(t, html, "sum_1d")
	assert.Contains(t, html, "copy_small")
	assert.Contains(t, html, "cpu_time")
}

func TestRenderHistory_SingleCase(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, RenderHistory(&b, "sum_1d", chartRecords()))

	html := b.String()
	assert.Contains(t, html, "sum_1d")
	assert.NotContains(t, html, "copy_small")
}

func TestRenderHistory_Errors(t *testing.T) {
	var b bytes.Buffer
	assert.Error(t, RenderHistory(&b, "", nil))
	assert.Error(t, RenderHistory(&b, "unknown_case", chartRecords()))
}
