package graphite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sum_2d_uint8", "sum.2d_uint8"},
		{"copy", "copy"},
		{"_leading", "_leading"},
		{"a_b", "a.b"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MetricName(tt.in), tt.in)
	}
}
