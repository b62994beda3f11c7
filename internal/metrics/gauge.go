package metrics

import (
	"fmt"
	"math"
	"sync"
)

// ValueOpts configures a Gauge or Counter
type ValueOpts struct {
	Name       string
	Help       string
	LabelNames []string
}

// valueVec holds one float per label tuple
type valueVec struct {
	name       string
	help       string
	metricType MetricType
	labelNames []string

	mu     sync.RWMutex
	values map[string]*valueSeries
}

type valueSeries struct {
	labelValues []string
	value       float64
}

func newValueVec(opts ValueOpts, metricType MetricType) (*valueVec, error) {
	if err := validateName(opts.Name); err != nil {
		return nil, err
	}
	if err := validateLabelNames(opts.Name, opts.LabelNames); err != nil {
		return nil, err
	}
	return &valueVec{
		name:       opts.Name,
		help:       opts.Help,
		metricType: metricType,
		labelNames: append([]string(nil), opts.LabelNames...),
		values:     make(map[string]*valueSeries),
	}, nil
}

func (v *valueVec) update(labels Labels, fn func(current float64) float64) error {
	values, key, err := labelValues(v.name, v.labelNames, labels)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	s, exists := v.values[key]
	if !exists {
		s = &valueSeries{labelValues: values}
		v.values[key] = s
	}
	s.value = fn(s.value)
	return nil
}

func (v *valueVec) get(labels Labels) (float64, bool) {
	_, key, err := labelValues(v.name, v.labelNames, labels)
	if err != nil {
		return 0, false
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	s, exists := v.values[key]
	if !exists {
		return 0, false
	}
	return s.value, true
}

// Name returns the metric name
func (v *valueVec) Name() string {
	return v.name
}

// Export renders every series as name{labels} value
func (v *valueVec) Export() ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	lines := headerLines(v.name, v.help, v.metricType)
	for _, key := range sortedSeriesKeys(v.values) {
		s := v.values[key]
		lines = append(lines, fmt.Sprintf("%s%s %s",
			v.name, formatLabels(v.labelNames, s.labelValues), formatFloat(s.value)))
	}
	return lines, nil
}

// Gauge is a value that can go up and down
type Gauge struct {
	*valueVec
}

// NewGauge creates a gauge
func NewGauge(opts ValueOpts) (*Gauge, error) {
	vec, err := newValueVec(opts, MetricTypeGauge)
	if err != nil {
		return nil, err
	}
	return &Gauge{vec}, nil
}

// Set sets the gauge for labels to value
func (g *Gauge) Set(value float64, labels Labels) error {
	return g.update(labels, func(float64) float64 { return value })
}

// Add adds delta (which may be negative) to the gauge for labels
func (g *Gauge) Add(delta float64, labels Labels) error {
	return g.update(labels, func(current float64) float64 { return current + delta })
}

// Get returns the current value for labels
func (g *Gauge) Get(labels Labels) (float64, bool) {
	return g.get(labels)
}

// Counter is a value that only increases
type Counter struct {
	*valueVec
}

// NewCounter creates a counter
func NewCounter(opts ValueOpts) (*Counter, error) {
	vec, err := newValueVec(opts, MetricTypeCounter)
	if err != nil {
		return nil, err
	}
	return &Counter{vec}, nil
}

// Inc adds one to the counter for labels
func (c *Counter) Inc(labels Labels) error {
	return c.Add(1, labels)
}

// Add adds a non-negative delta to the counter for labels
func (c *Counter) Add(delta float64, labels Labels) error {
	if delta < 0 || math.IsNaN(delta) {
		return &InvariantViolation{
			Metric: c.name,
			Reason: fmt.Sprintf("counter cannot decrease, got delta %v", delta),
		}
	}
	return c.update(labels, func(current float64) float64 { return current + delta })
}

// Get returns the current value for labels
func (c *Counter) Get(labels Labels) (float64, bool) {
	return c.get(labels)
}
