package metrics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Registry owns a set of uniquely named metrics and renders them in registration order
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		metrics: make(map[string]Metric),
		logger:  logger,
	}
}

// Register adds metric under its name. A duplicate name leaves the registry unchanged.
func (r *Registry) Register(metric Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := metric.Name()
	if _, exists := r.metrics[name]; exists {
		return &ConfigurationError{Metric: name, Err: ErrDuplicateMetric}
	}

	r.metrics[name] = metric
	r.order = append(r.order, name)
	r.logger.Debug().Str("metric", name).Msg("Metric registered")
	return nil
}

// MustRegister registers every metric and panics on the first error
func (r *Registry) MustRegister(metrics ...Metric) {
	for _, m := range metrics {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// NewHistogram creates a histogram and registers it
func (r *Registry) NewHistogram(opts HistogramOpts) (*Histogram, error) {
	h, err := NewHistogram(opts)
	if err != nil {
		return nil, err
	}
	if err := r.Register(h); err != nil {
		return nil, err
	}
	return h, nil
}

// NewGauge creates a gauge and registers it
func (r *Registry) NewGauge(opts ValueOpts) (*Gauge, error) {
	g, err := NewGauge(opts)
	if err != nil {
		return nil, err
	}
	if err := r.Register(g); err != nil {
		return nil, err
	}
	return g, nil
}

// NewCounter creates a counter and registers it
func (r *Registry) NewCounter(opts ValueOpts) (*Counter, error) {
	c, err := NewCounter(opts)
	if err != nil {
		return nil, err
	}
	if err := r.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get looks up a metric by name
func (r *Registry) Get(name string) (Metric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metrics[name]
	return m, ok
}

// Names returns metric names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Export concatenates the exposition of every metric in registration order
func (r *Registry) Export() (string, error) {
	r.mu.RLock()
	metrics := make([]Metric, 0, len(r.order))
	for _, name := range r.order {
		metrics = append(metrics, r.metrics[name])
	}
	r.mu.RUnlock()

	var b strings.Builder
	for _, m := range metrics {
		lines, err := m.Export()
		if err != nil {
			return "", fmt.Errorf("failed to export metric %s: %w", m.Name(), err)
		}
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
