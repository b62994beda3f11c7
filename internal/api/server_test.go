package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backendmonitoring/internal/handlers"
	"backendmonitoring/internal/metrics"
	"backendmonitoring/internal/models"
	"backendmonitoring/internal/workload"
)

// scriptedRandom replays fixed draws in order
type scriptedRandom struct {
	mu    sync.Mutex
	draws []int
}

func (r *scriptedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.draws[0]
	r.draws = r.draws[1:]
	return v
}

func immediately(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

type testServer struct {
	*Server
	registry  *metrics.Registry
	histogram *metrics.Histogram
}

func newTestServer(t *testing.T, rng workload.Random) *testServer {
	t.Helper()
	return newTestServerWith(t, workload.Options{Random: rng, After: immediately})
}

func newTestServerWith(t *testing.T, opts workload.Options) *testServer {
	t.Helper()

	registry := metrics.NewRegistry(zerolog.Nop())
	histogram, err := registry.NewHistogram(metrics.RequestTimingOpts())
	require.NoError(t, err)

	server, err := NewServer(ServerConfig{
		Port:    8080,
		Version: "1.0.0",
	}, Dependencies{
		Metrics:       registry,
		RequestTiming: histogram,
		Workload:      workload.NewSimulator(opts),
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	return &testServer{Server: server, registry: registry, histogram: histogram}
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func timingLabels(route string, status int) metrics.Labels {
	return metrics.Labels{
		metrics.LabelMethod:     "GET",
		metrics.LabelRoute:      route,
		metrics.LabelStatusCode: fmt.Sprintf("%d", status),
	}
}

func TestNewServer(t *testing.T) {
	registry := metrics.NewRegistry(zerolog.Nop())
	histogram, err := registry.NewHistogram(metrics.RequestTimingOpts())
	require.NoError(t, err)

	deps := Dependencies{
		Metrics:       registry,
		RequestTiming: histogram,
		Workload:      workload.NewSimulator(workload.Options{}),
		Logger:        zerolog.Nop(),
	}

	t.Run("creates server with valid configuration", func(t *testing.T) {
		config := ServerConfig{
			Port:           8080,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxHeaderBytes: 1 << 20,
			Version:        "1.0.0",
		}

		server, err := NewServer(config, deps)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Equal(t, ":8080", server.Addr())
		assert.Equal(t, 10*time.Second, server.httpServer.ReadTimeout)
	})

	t.Run("validates port number", func(t *testing.T) {
		_, err := NewServer(ServerConfig{Port: 0, Version: "1.0.0"}, deps)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid port")
	})

	t.Run("requires dependencies", func(t *testing.T) {
		_, err := NewServer(ServerConfig{Port: 8080}, Dependencies{Logger: zerolog.Nop()})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "dependencies are required")
	})

	t.Run("sets defaults", func(t *testing.T) {
		server, err := NewServer(ServerConfig{Port: 8080, Host: "127.0.0.1"}, deps)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:8080", server.Addr())
		assert.Equal(t, 30*time.Second, server.httpServer.ReadTimeout)
		assert.Equal(t, 30*time.Second, server.httpServer.WriteTimeout)
		assert.Equal(t, 60*time.Second, server.httpServer.IdleTimeout)
		assert.Equal(t, "/metrics", server.config.MetricsPath)
		assert.Equal(t, "unknown", server.config.Version)
	})
}

func TestServerStart(t *testing.T) {
	t.Run("returns nil after graceful shutdown", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := listener.Addr().String()
		require.NoError(t, listener.Close())

		server := &Server{
			logger: zerolog.Nop(),
			httpServer: &http.Server{
				Addr: addr,
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				}),
			},
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		require.Eventually(t, func() bool {
			resp, err := http.Get("http://" + addr + "/")
			if err != nil {
				return false
			}
			resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}, 2*time.Second, 20*time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		require.NoError(t, server.Shutdown(ctx))

		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Server did not shut down in time")
		}
	})

	t.Run("reports listen errors", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer listener.Close()

		server := &Server{
			logger:     zerolog.Nop(),
			httpServer: &http.Server{Addr: listener.Addr().String()},
		}

		assert.Error(t, server.Start())
	})
}

func TestServerShutdown(t *testing.T) {
	t.Run("respects shutdown timeout", func(t *testing.T) {
		handlerStarted := make(chan struct{})
		release := make(chan struct{})
		defer close(release)

		server := &Server{
			logger: zerolog.Nop(),
			httpServer: &http.Server{
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					close(handlerStarted)
					<-release
					w.WriteHeader(http.StatusOK)
				}),
			},
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		go server.httpServer.Serve(listener)

		go func() {
			resp, err := http.Get("http://" + listener.Addr().String() + "/")
			if err == nil {
				resp.Body.Close()
			}
		}()

		select {
		case <-handlerStarted:
		case <-time.After(1 * time.Second):
			t.Fatal("Handler did not start")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err = server.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestServerRoutes(t *testing.T) {
	t.Run("serves the greeting", func(t *testing.T) {
		server := newTestServer(t, nil)

		w := server.get("/")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, handlers.Greeting, w.Body.String())
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("runs the heavy computation", func(t *testing.T) {
		server := newTestServer(t, &scriptedRandom{draws: []int{990, 0}})

		w := server.get("/heavy-computation")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp models.ComputationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, 1000, resp.ElapsedMs)
		assert.Equal(t, "Heavy computation completed successfully in 1000ms", resp.Message)
	})

	t.Run("hides workload failures", func(t *testing.T) {
		server := newTestServer(t, &scriptedRandom{draws: []int{0, 4, 0}})

		w := server.get("/heavy-computation")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), workload.DatabaseCrash.String())

		var resp models.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.ErrorCodeInternal, resp.Error)
		assert.Equal(t, models.GenericErrorMessage, resp.Message)

		snapshot, ok := server.histogram.Snapshot(timingLabels("/heavy-computation", http.StatusInternalServerError))
		require.True(t, ok)
		assert.Equal(t, uint64(1), snapshot.Count)
	})

	t.Run("responds to health check", func(t *testing.T) {
		server := newTestServer(t, nil)

		w := server.get("/health")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp models.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "1.0.0", resp.Version)
	})

	t.Run("answers unknown routes with not found", func(t *testing.T) {
		server := newTestServer(t, nil)

		w := server.get("/nope")

		assert.Equal(t, http.StatusNotFound, w.Code)

		snapshot, ok := server.histogram.Snapshot(timingLabels(metrics.UnmatchedRoute, http.StatusNotFound))
		require.True(t, ok)
		assert.Equal(t, uint64(1), snapshot.Count)
	})
}

func TestServerMetricsEndpoint(t *testing.T) {
	t.Run("exposes recorded request timings", func(t *testing.T) {
		server := newTestServer(t, nil)

		require.Equal(t, http.StatusOK, server.get("/").Code)

		w := server.get("/metrics")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, metrics.ContentType, w.Header().Get("Content-Type"))
		body := w.Body.String()
		assert.Contains(t, body, "# TYPE req_response_time_histogram histogram")
		assert.Contains(t, body, `req_response_time_histogram_count{method="GET",route="/",status_code="200"} 1`)
		assert.True(t, strings.HasSuffix(body, "\n"))
	})

	t.Run("serves a custom metrics path", func(t *testing.T) {
		registry := metrics.NewRegistry(zerolog.Nop())
		histogram, err := registry.NewHistogram(metrics.RequestTimingOpts())
		require.NoError(t, err)

		server, err := NewServer(ServerConfig{Port: 8080, MetricsPath: "/internal/metrics"}, Dependencies{
			Metrics:       registry,
			RequestTiming: histogram,
			Workload:      workload.NewSimulator(workload.Options{After: immediately}),
			Logger:        zerolog.Nop(),
		})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/internal/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "req_response_time_histogram")
	})
}

func TestServerConcurrentRequests(t *testing.T) {
	const requests = 64

	// Later arrivals wait less, so responses complete in reverse order
	var (
		mu        sync.Mutex
		arrivals  int
		completed []int
	)
	reversed := func(time.Duration) <-chan time.Time {
		mu.Lock()
		arrival := arrivals
		arrivals++
		mu.Unlock()

		ch := make(chan time.Time, 1)
		time.AfterFunc(time.Duration(requests-arrival)*2*time.Millisecond, func() {
			mu.Lock()
			completed = append(completed, arrival)
			mu.Unlock()
			ch <- time.Now()
		})
		return ch
	}

	server := newTestServerWith(t, workload.Options{Random: workload.NewRandom(42), After: reversed})

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			server.get("/heavy-computation")
		}()
	}
	wg.Wait()

	var total uint64
	for _, status := range []int{http.StatusOK, http.StatusInternalServerError} {
		if snapshot, ok := server.histogram.Snapshot(timingLabels("/heavy-computation", status)); ok {
			total += snapshot.Count
			assert.Equal(t, snapshot.Count, snapshot.BucketCounts[len(snapshot.BucketCounts)-1])
		}
	}
	assert.Equal(t, uint64(requests), total)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, completed, requests)
	assert.NotEqual(t, 0, completed[0], "first arrival must not complete first")
}

func TestServerMethodLabelCardinality(t *testing.T) {
	server := newTestServer(t, nil)

	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, httptest.NewRequest(fmt.Sprintf("X%d", i), "/", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}

	assert.Equal(t, 1, server.histogram.SeriesCount())

	snapshot, ok := server.histogram.Snapshot(metrics.Labels{
		metrics.LabelMethod:     metrics.OtherMethod,
		metrics.LabelRoute:      metrics.UnmatchedRoute,
		metrics.LabelStatusCode: "404",
	})
	require.True(t, ok)
	assert.Equal(t, uint64(100), snapshot.Count)
}
