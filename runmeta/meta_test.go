package runmeta

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMeta_Descriptions(t *testing.T) {
	m := &Meta{Hostname: "bench01", Branch: "feature/simd"}
	assert.Equal(t, "bench01_feature/simd", m.Description())
	assert.Equal(t, "bench01_master", m.BaselineDescription("master"))
}

func TestMeta_ShortCommit(t *testing.T) {
	m := &Meta{Commit: "0123456789abcdef0123456789abcdef01234567"}
	assert.Equal(t, "0123456789ab", m.ShortCommit())

	m.Commit = "abc"
	assert.Equal(t, "abc", m.ShortCommit())
}

func TestBanner(t *testing.T) {
	b := Banner("RESULTS")
	lines := strings.Split(strings.Trim(b, "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, strings.Repeat("=", 78), lines[0])
	assert.Len(t, lines[1], 78)
	assert.Contains(t, lines[1], "RESULTS")
	assert.True(t, strings.HasPrefix(lines[1], "|"))
	assert.True(t, strings.HasSuffix(lines[1], "|"))
}

func TestMeta_Report(t *testing.T) {
	m := &Meta{
		Hostname: "bench01",
		Branch:   "master",
		Commit:   "0123456789abcdef0123456789abcdef01234567",
		CPU:      "Intel(R) Core(TM) i7-8550U",
		Date:     time.Date(2023, 4, 2, 11, 30, 15, 0, time.UTC),
	}
	rep := m.Report([]string{"***WARNING*** CPU scaling is enabled"})

	assert.Contains(t, rep, "bench01, master, 0123456789ab")
	assert.Contains(t, rep, "Date:               2023-04-02 11:30:15")
	assert.Contains(t, rep, "Branch:             master")
	assert.Contains(t, rep, "CPU scaling is enabled")
	assert.Contains(t, rep, "CPU INFO")
}
