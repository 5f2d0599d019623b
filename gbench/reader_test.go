package gbench

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResults = `Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz
2023-04-02 11:30:15
***WARNING*** CPU scaling is enabled
name,iterations,real_time,cpu_time,time_unit,bytes_per_second
sum_1d,1000,120.5,119.8,ns,831946
sum_2d,500,240.1,239.6,ns,415972
sum_2d,500,251.3,250.2,ns,398123
copy_small,20000,12.2,12.1,ns,8264462
`

func TestReadRun(t *testing.T) {
	run, err := ReadRun(strings.NewReader(sampleResults))
	require.NoError(t, err)

	assert.Equal(t, "Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz", run.CPU)
	assert.True(t, run.Timestamp.Equal(time.Date(2023, 4, 2, 11, 30, 15, 0, time.UTC)))
	assert.Len(t, run.Preamble, 3)

	require.Len(t, run.Results, 3)
	first := run.Results[0]
	assert.Equal(t, "sum_1d", first.Name)
	assert.Equal(t, int64(1000), first.Iterations)
	assert.Equal(t, 120.5, first.RealTime)
	assert.Equal(t, 119.8, first.CPUTime)
	assert.Equal(t, "ns", first.TimeUnit)
	assert.Equal(t, []float64{119.8}, first.CPUSamples)
	require.Len(t, first.Extra, 1)
	assert.Equal(t, Field{Key: "bytes_per_second", Value: "831946"}, first.Extra[0])
}

func TestReadRun_DuplicatesCollapse(t *testing.T) {
	run, err := ReadRun(strings.NewReader(sampleResults))
	require.NoError(t, err)

	byName := run.ByName()
	dup := byName["sum_2d"]
	require.NotNil(t, dup)

	// The table keeps the first row, the duplicate feeds the sample.
	assert.Equal(t, 239.6, dup.CPUTime)
	assert.Equal(t, []float64{239.6, 250.2}, dup.CPUSamples)
}

func TestReadRun_NoTable(t *testing.T) {
	_, err := ReadRun(strings.NewReader("just some text\nwithout a table\n"))
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestReadRun_EmptyTable(t *testing.T) {
	_, err := ReadRun(strings.NewReader("name,iterations,real_time,cpu_time,time_unit\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestReadRun_BadRow(t *testing.T) {
	in := "name,iterations,real_time,cpu_time,time_unit\nsum_1d,not-a-number,1.0,1.0,ns\n"
	_, err := ReadRun(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadRun_MissingDateFallsBack(t *testing.T) {
	in := "some preamble\nname,iterations,real_time,cpu_time,time_unit\nsum_1d,10,1.0,0.9,ns\n"
	before := time.Now()
	run, err := ReadRun(strings.NewReader(in))
	require.NoError(t, err)
	assert.False(t, run.Timestamp.Before(before))
}

func TestReadRun_SkipsStaleDeltaColumn(t *testing.T) {
	in := "name,iterations,real_time,cpu_time,time_unit,difference_master,label\n" +
		"sum_1d,10,1.0,0.9,ns,0.120,fast\n"
	run, err := ReadRun(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, run.Results[0].Extra, 1)
	assert.Equal(t, "label", run.Results[0].Extra[0].Key)
}

func TestWriteResults(t *testing.T) {
	run, err := ReadRun(strings.NewReader(sampleResults))
	require.NoError(t, err)

	var b strings.Builder
	deltas := map[string]float64{"sum_1d": 0.1234, "copy_small": -0.02}
	require.NoError(t, WriteResults(&b, run.Results, deltas))

	want := "name,iterations,real_time,cpu_time,time_unit,difference_master,bytes_per_second\n" +
		"sum_1d,1000,120.500,119.800,ns,0.123,831946\n" +
		"sum_2d,500,240.100,239.600,ns,,415972\n" +
		"copy_small,20000,12.200,12.100,ns,-0.020,8264462\n"
	assert.Equal(t, want, b.String())
}

func TestWriteResults_NoDeltas(t *testing.T) {
	run, err := ReadRun(strings.NewReader(sampleResults))
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, WriteResults(&b, run.Results, nil))
	assert.True(t, strings.HasPrefix(b.String(), "name,iterations,real_time,cpu_time,time_unit,bytes_per_second\n"))
	assert.NotContains(t, b.String(), "difference_master")
}

func TestWriteResults_UnevenExtras(t *testing.T) {
	results := []Result{
		{Name: "sum_1d", Iterations: 1000, RealTime: 120.5, CPUTime: 119.8, TimeUnit: "ns",
			Extra: []Field{{Key: "bytes_per_second", Value: "831946"}}},
		{Name: "sum_2d", Iterations: 500, RealTime: 240.1, CPUTime: 239.6, TimeUnit: "ns",
			Extra: []Field{{Key: "items_per_second", Value: "2082"}}},
		{Name: "copy_small", Iterations: 20000, RealTime: 12.2, CPUTime: 12.1, TimeUnit: "ns"},
	}

	var b strings.Builder
	require.NoError(t, WriteResults(&b, results, nil))

	// Extras land under their own header column regardless of which rows
	// carry them.
	want := "name,iterations,real_time,cpu_time,time_unit,bytes_per_second,items_per_second\n" +
		"sum_1d,1000,120.500,119.800,ns,831946,\n" +
		"sum_2d,500,240.100,239.600,ns,,2082\n" +
		"copy_small,20000,12.200,12.100,ns,,\n"
	assert.Equal(t, want, b.String())
}

func TestWriteReadRoundTrip(t *testing.T) {
	run, err := ReadRun(strings.NewReader(sampleResults))
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, WriteResults(&b, run.Results, map[string]float64{"sum_1d": 0.5}))

	// A stored snapshot reads back without the derived delta column.
	again, err := ReadRun(strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Len(t, again.Results, 3)
	assert.Equal(t, "sum_1d", again.Results[0].Name)
	assert.Equal(t, 119.8, again.Results[0].CPUTime)
	require.Len(t, again.Results[0].Extra, 1)
	assert.Equal(t, "bytes_per_second", again.Results[0].Extra[0].Key)
}
