package metrics

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateMetric    = errors.New("duplicate metric")
	ErrInvalidName        = errors.New("invalid metric name")
	ErrInvalidBuckets     = errors.New("invalid buckets")
	ErrInvalidLabelNames  = errors.New("invalid label names")
	ErrInvariantViolation = errors.New("instrumentation invariant violation")
)

// ConfigurationError is returned when a metric is defined or registered incorrectly.
// These are startup errors and callers are expected to treat them as fatal.
type ConfigurationError struct {
	Metric string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("metric %q: %v", e.Metric, e.Err)
	}
	return fmt.Sprintf("metric %q: %v: %s", e.Metric, e.Err, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// InvariantViolation is returned when an observation does not fit the metric,
// e.g. a label set that differs from the declared label names.
type InvariantViolation struct {
	Metric string
	Reason string
}

// Error implements the error interface
func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("metric %q: %v: %s", e.Metric, ErrInvariantViolation, e.Reason)
}

func (e *InvariantViolation) Unwrap() error {
	return ErrInvariantViolation
}

func configError(metric string, err error, format string, args ...interface{}) error {
	return &ConfigurationError{
		Metric: metric,
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}
