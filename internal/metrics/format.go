package metrics

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	metricNameRE = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
	labelNameRE  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	helpEscaper  = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
	valueEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
)

// keySeparator cannot appear in valid UTF-8 label values
const keySeparator = "\xff"

func validateName(name string) error {
	if !metricNameRE.MatchString(name) {
		return configError(name, ErrInvalidName, "must match %s", metricNameRE.String())
	}
	return nil
}

func validateLabelNames(metric string, labelNames []string, reserved ...string) error {
	seen := make(map[string]bool, len(labelNames))
	for _, name := range labelNames {
		if !labelNameRE.MatchString(name) || strings.HasPrefix(name, "__") {
			return configError(metric, ErrInvalidLabelNames, "invalid label name %q", name)
		}
		for _, r := range reserved {
			if name == r {
				return configError(metric, ErrInvalidLabelNames, "label name %q is reserved", name)
			}
		}
		if seen[name] {
			return configError(metric, ErrInvalidLabelNames, "duplicate label name %q", name)
		}
		seen[name] = true
	}
	return nil
}

// labelValues orders the supplied labels by labelNames and builds the series key.
// The label set must match labelNames exactly.
func labelValues(metric string, labelNames []string, labels Labels) ([]string, string, error) {
	if len(labels) != len(labelNames) {
		return nil, "", &InvariantViolation{
			Metric: metric,
			Reason: fmt.Sprintf("expected %d labels %v, got %d", len(labelNames), labelNames, len(labels)),
		}
	}

	values := make([]string, len(labelNames))
	for i, name := range labelNames {
		value, ok := labels[name]
		if !ok {
			return nil, "", &InvariantViolation{
				Metric: metric,
				Reason: fmt.Sprintf("missing label %q", name),
			}
		}
		values[i] = value
	}

	return values, strings.Join(values, keySeparator), nil
}

// headerLines returns the # HELP and # TYPE comments for a metric family
func headerLines(name, help string, metricType MetricType) []string {
	return []string{
		fmt.Sprintf("# HELP %s %s", name, helpEscaper.Replace(help)),
		fmt.Sprintf("# TYPE %s %s", name, metricType),
	}
}

// formatLabels renders names/values as {a="x",b="y"}, appending any extra pairs.
// Extra pairs are given as name, value, name, value...
func formatLabels(names, values []string, extra ...string) string {
	if len(names) == 0 && len(extra) == 0 {
		return ""
	}

	pairs := make([]string, 0, len(names)+len(extra)/2)
	for i, name := range names {
		pairs = append(pairs, fmt.Sprintf(`%s="%s"`, name, valueEscaper.Replace(values[i])))
	}
	for i := 0; i+1 < len(extra); i += 2 {
		pairs = append(pairs, fmt.Sprintf(`%s="%s"`, extra[i], valueEscaper.Replace(extra[i+1])))
	}

	return "{" + strings.Join(pairs, ",") + "}"
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

func labelsFromValues(names, values []string) Labels {
	labels := make(Labels, len(names))
	for i, name := range names {
		labels[name] = values[i]
	}
	return labels
}
