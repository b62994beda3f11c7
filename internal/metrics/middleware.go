package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestTimingMetricName is the histogram fed by RequestTimingMiddleware
const RequestTimingMetricName = "req_response_time_histogram"

// Label names recorded for each request
const (
	LabelMethod     = "method"
	LabelRoute      = "route"
	LabelStatusCode = "status_code"
)

// UnmatchedRoute is the route label for requests no route matched
const UnmatchedRoute = "unmatched"

// OtherMethod is the method label for non-standard request methods
const OtherMethod = "other"

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// methodLabel keeps the method label set fixed whatever clients send
func methodLabel(method string) string {
	if knownMethods[method] {
		return method
	}
	return OtherMethod
}

// RequestTimingOpts returns the histogram definition for request timings in milliseconds
func RequestTimingOpts() HistogramOpts {
	return HistogramOpts{
		Name:       RequestTimingMetricName,
		Help:       "Histogram for request response time",
		Buckets:    DefaultBuckets,
		LabelNames: []string{LabelMethod, LabelRoute, LabelStatusCode},
	}
}

// Observer receives one observation per completed request
type Observer interface {
	Observe(value float64, labels Labels) error
}

// TimingOptions tunes RequestTimingMiddleware
type TimingOptions struct {
	// Strict panics on rejected observations instead of logging and dropping them
	Strict bool
	Logger zerolog.Logger
	Now    func() time.Time
}

type timingState int

const (
	timingStarted timingState = iota
	timingFailed
	timingCompleted
)

// requestTimer moves Started -> (Failed ->) Completed exactly once
type requestTimer struct {
	start time.Time
	now   func() time.Time
	state timingState
}

func (t *requestTimer) fail() {
	if t.state == timingStarted {
		t.state = timingFailed
	}
}

// complete returns elapsed milliseconds, or false if already completed
func (t *requestTimer) complete() (float64, bool) {
	if t.state == timingCompleted {
		return 0, false
	}
	t.state = timingCompleted

	elapsed := t.now().Sub(t.start)
	if elapsed < 0 {
		elapsed = 0
	}
	return float64(elapsed) / float64(time.Millisecond), true
}

// RequestTimingMiddleware times each request and records it into observer
// with method, route template and final status code labels.
func RequestTimingMiddleware(observer Observer, opts TimingOptions) gin.HandlerFunc {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger

	return func(c *gin.Context) {
		timer := &requestTimer{start: now(), now: now}

		defer func() {
			recovered := recover()

			status := c.Writer.Status()
			if recovered != nil {
				timer.fail()
				if !c.Writer.Written() {
					status = http.StatusInternalServerError
				}
			} else if len(c.Errors) > 0 {
				timer.fail()
			}

			if elapsed, ok := timer.complete(); ok {
				route := c.FullPath()
				if route == "" {
					route = UnmatchedRoute
				}

				method := methodLabel(c.Request.Method)
				err := observer.Observe(elapsed, Labels{
					LabelMethod:     method,
					LabelRoute:      route,
					LabelStatusCode: strconv.Itoa(status),
				})
				if err != nil {
					// a handler panic takes precedence and is re-raised below
					if opts.Strict && recovered == nil {
						panic(err)
					}
					logger.Error().Err(err).
						Str("method", method).
						Str("route", route).
						Msg("Dropped request timing observation")
				}
			}

			if recovered != nil {
				panic(recovered)
			}
		}()

		c.Next()
	}
}
