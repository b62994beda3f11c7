package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestGathererMetric_RendersFamilies(t *testing.T) {
	gatherer := prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		return []*dto.MetricFamily{
			{
				Name: ptr("custom_gauge"),
				Help: ptr("A custom gauge"),
				Type: dto.MetricType_GAUGE.Enum(),
				Metric: []*dto.Metric{
					{Gauge: &dto.Gauge{Value: ptr(42.0)}},
				},
			},
		}, nil
	})

	lines, err := NewGathererMetric("custom", gatherer).Export()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"# HELP custom_gauge A custom gauge",
		"# TYPE custom_gauge gauge",
		"custom_gauge 42",
	}, lines)
}

func TestGathererMetric_GatherError(t *testing.T) {
	gatherer := prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		return nil, errors.New("collector failed")
	})

	_, err := NewGathererMetric("custom", gatherer).Export()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector failed")
}

func TestGathererMetric_Empty(t *testing.T) {
	lines, err := NewGathererMetric("empty", prometheus.NewRegistry()).Export()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRegisterGoRuntime(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	require.NoError(t, registry.RegisterGoRuntime())

	out, err := registry.Export()
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "# TYPE go_goroutines gauge"))

	err = registry.RegisterGoRuntime()
	assert.ErrorIs(t, err, ErrDuplicateMetric)
}
