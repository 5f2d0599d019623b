// Package graphite forwards benchmark timings to a Graphite-compatible
// metrics backend so Grafana can plot them over time. Metrics are filed
// under {hostname}.{branch}.{suite}.{case}.
package graphite

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	graphite "github.com/marpaia/graphite-golang"
	"github.com/rs/zerolog/log"

	"github.com/wolfv/continuous-benchmark/gbench"
)

const defaultPort = 2003

// Sender pushes one metric per benchmark case over the plaintext
// protocol.
type Sender struct {
	g *graphite.Graphite
}

// NewSender connects to server ("host" or "host:port") and namespaces
// every metric under {hostname}.{branch}.
func NewSender(server, hostname, branch string) (*Sender, error) {
	host := server
	port := defaultPort
	if h, p, err := net.SplitHostPort(server); err == nil {
		host = h
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("graphite: bad port in %q: %w", server, err)
		}
	}

	g, err := graphite.NewGraphiteWithMetricPrefix(host, port, hostname+"."+branch)
	if err != nil {
		return nil, fmt.Errorf("graphite: connecting to %s: %w", server, err)
	}
	return &Sender{g: g}, nil
}

// MetricName maps a benchmark case name onto the metric namespace: the
// first underscore separates suite from case and becomes a dot, so
// sum_2d_uint8 plots as sum.2d_uint8 alongside its siblings.
func MetricName(name string) string {
	if i := strings.Index(name, "_"); i > 0 {
		name = name[:i] + "." + name[i+1:]
	}
	return name
}

// SendRun pushes every case's cpu_time stamped with the run date.
func (s *Sender) SendRun(run *gbench.Run) error {
	metrics := make([]graphite.Metric, 0, len(run.Results))
	ts := run.Timestamp.Unix()
	for _, res := range run.Results {
		metrics = append(metrics, graphite.NewMetric(
			MetricName(res.Name),
			strconv.FormatFloat(res.CPUTime, 'f', -1, 64),
			ts,
		))
		log.Debug().Str("metric", MetricName(res.Name)).Float64("cpu_time", res.CPUTime).Msg("Uploading metric")
	}
	if err := s.g.SendMetrics(metrics); err != nil {
		return fmt.Errorf("graphite: sending %d metrics: %w", len(metrics), err)
	}
	return nil
}

// Close disconnects from the server.
func (s *Sender) Close() error {
	return s.g.Disconnect()
}
