package metrics

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

// GoRuntimeMetricName is the registry key of the Go runtime bundle
const GoRuntimeMetricName = "go_runtime"

// GathererMetric exposes every family of a client_golang gatherer as one registry entry
type GathererMetric struct {
	name     string
	gatherer prometheus.Gatherer
}

// NewGathererMetric wraps gatherer under name
func NewGathererMetric(name string, gatherer prometheus.Gatherer) *GathererMetric {
	return &GathererMetric{
		name:     name,
		gatherer: gatherer,
	}
}

// Name returns the registry key
func (g *GathererMetric) Name() string {
	return g.name
}

// Export gathers and renders all families in text format
func (g *GathererMetric) Export() ([]string, error) {
	families, err := g.gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather %s: %w", g.name, err)
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}

	text := strings.TrimRight(buf.String(), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// RegisterGoRuntime registers the client_golang Go collector (goroutines, GC, memstats)
func (r *Registry) RegisterGoRuntime() error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return fmt.Errorf("failed to register go collector: %w", err)
	}
	return r.Register(NewGathererMetric(GoRuntimeMetricName, reg))
}
