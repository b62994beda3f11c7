package metrics

import "sort"

// ContentType is the media type of the text exposition produced by Registry.Export
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// MetricType identifies the kind of a metric in the # TYPE line
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
	MetricTypeUntyped   MetricType = "untyped"
)

// Metric is anything the registry can hold and expose
type Metric interface {
	Name() string
	Export() ([]string, error)
}

// Labels maps label names to values for a single observation
type Labels map[string]string

// DefaultBuckets are the request timing buckets in milliseconds
var DefaultBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 50, 100, 200, 500, 1000}

// SeriesSnapshot is a point-in-time copy of one histogram series
type SeriesSnapshot struct {
	Labels       Labels
	Buckets      []float64
	BucketCounts []uint64 // cumulative, last entry is +Inf
	Sum          float64
	Count        uint64
}

// sortedSeriesKeys returns map keys in ascending order so exports are stable
func sortedSeriesKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
