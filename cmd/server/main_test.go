package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ShipsLogsBeforeReturningError(t *testing.T) {
	var (
		mu     sync.Mutex
		pushed strings.Builder
	)
	loki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		pushed.Write(body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer loki.Close()

	// Occupy the port so the server cannot listen
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("PORT", strconv.Itoa(listener.Addr().(*net.TCPAddr).Port))
	t.Setenv("LOKI_HOST", loki.URL)
	t.Setenv("LOKI_FLUSH_INTERVAL", "1h")
	t.Setenv("METRICS_GO_RUNTIME", "false")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = run(ctx)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, pushed.String(), "Logger initialized")
	assert.Contains(t, pushed.String(), "Server error")
}

func TestRun_RejectsInvalidConfiguration(t *testing.T) {
	t.Setenv("PORT", "70000")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}
