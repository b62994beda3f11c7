package metrics

import (
	"fmt"
	"math"
	"sync"
)

// HistogramOpts configures a Histogram
type HistogramOpts struct {
	Name       string
	Help       string
	Buckets    []float64 // upper bounds, strictly increasing; nil selects DefaultBuckets
	LabelNames []string
}

// Histogram counts observations into cumulative buckets per label tuple
type Histogram struct {
	name       string
	help       string
	buckets    []float64
	labelNames []string

	mu     sync.RWMutex
	series map[string]*histogramSeries
}

type histogramSeries struct {
	labelValues  []string
	bucketCounts []uint64 // aligned to buckets plus a trailing +Inf entry
	sum          float64
	count        uint64
}

// NewHistogram validates opts and creates an empty histogram
func NewHistogram(opts HistogramOpts) (*Histogram, error) {
	if err := validateName(opts.Name); err != nil {
		return nil, err
	}
	if err := validateLabelNames(opts.Name, opts.LabelNames, "le"); err != nil {
		return nil, err
	}

	buckets := opts.Buckets
	if buckets == nil {
		buckets = DefaultBuckets
	}
	if len(buckets) == 0 {
		return nil, configError(opts.Name, ErrInvalidBuckets, "at least one bucket is required")
	}
	for i, b := range buckets {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, configError(opts.Name, ErrInvalidBuckets, "bucket %d is not finite", i)
		}
		if i > 0 && b <= buckets[i-1] {
			return nil, configError(opts.Name, ErrInvalidBuckets,
				"buckets must be strictly increasing, got %v after %v", b, buckets[i-1])
		}
	}

	return &Histogram{
		name:       opts.Name,
		help:       opts.Help,
		buckets:    append([]float64(nil), buckets...),
		labelNames: append([]string(nil), opts.LabelNames...),
		series:     make(map[string]*histogramSeries),
	}, nil
}

// Name returns the metric name
func (h *Histogram) Name() string {
	return h.name
}

// Help returns the help text
func (h *Histogram) Help() string {
	return h.help
}

// LabelNames returns a copy of the declared label names
func (h *Histogram) LabelNames() []string {
	return append([]string(nil), h.labelNames...)
}

// Buckets returns a copy of the finite bucket bounds
func (h *Histogram) Buckets() []float64 {
	return append([]float64(nil), h.buckets...)
}

// Observe records value for the series identified by labels.
// labels must carry exactly the histogram's label names.
func (h *Histogram) Observe(value float64, labels Labels) error {
	if math.IsNaN(value) || value < 0 {
		return &InvariantViolation{
			Metric: h.name,
			Reason: fmt.Sprintf("observed value must be non-negative, got %v", value),
		}
	}

	values, key, err := labelValues(h.name, h.labelNames, labels)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	s, exists := h.series[key]
	if !exists {
		s = &histogramSeries{
			labelValues:  values,
			bucketCounts: make([]uint64, len(h.buckets)+1),
		}
		h.series[key] = s
	}

	for i, bound := range h.buckets {
		if value <= bound {
			s.bucketCounts[i]++
		}
	}
	s.bucketCounts[len(h.buckets)]++
	s.count++
	s.sum += value

	return nil
}

// Snapshot returns a copy of the series for labels, if it exists
func (h *Histogram) Snapshot(labels Labels) (SeriesSnapshot, bool) {
	_, key, err := labelValues(h.name, h.labelNames, labels)
	if err != nil {
		return SeriesSnapshot{}, false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	s, exists := h.series[key]
	if !exists {
		return SeriesSnapshot{}, false
	}
	return SeriesSnapshot{
		Labels:       labelsFromValues(h.labelNames, s.labelValues),
		Buckets:      h.Buckets(),
		BucketCounts: append([]uint64(nil), s.bucketCounts...),
		Sum:          s.sum,
		Count:        s.count,
	}, true
}

// SeriesCount returns the number of label tuples observed so far
func (h *Histogram) SeriesCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.series)
}

// Export renders the histogram in the Prometheus text exposition format
func (h *Histogram) Export() ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	lines := headerLines(h.name, h.help, MetricTypeHistogram)

	for _, key := range sortedSeriesKeys(h.series) {
		s := h.series[key]
		for i, bound := range h.buckets {
			lines = append(lines, fmt.Sprintf("%s_bucket%s %d",
				h.name, formatLabels(h.labelNames, s.labelValues, "le", formatFloat(bound)), s.bucketCounts[i]))
		}
		lines = append(lines, fmt.Sprintf("%s_bucket%s %d",
			h.name, formatLabels(h.labelNames, s.labelValues, "le", "+Inf"), s.bucketCounts[len(h.buckets)]))

		labelStr := formatLabels(h.labelNames, s.labelValues)
		lines = append(lines, fmt.Sprintf("%s_sum%s %s", h.name, labelStr, formatFloat(s.sum)))
		lines = append(lines, fmt.Sprintf("%s_count%s %d", h.name, labelStr, s.count))
	}

	return lines, nil
}
