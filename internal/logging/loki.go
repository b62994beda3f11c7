package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"backendmonitoring/internal/config"
)

// lokiPushPath is the Loki HTTP push endpoint
const lokiPushPath = "/loki/api/v1/push"

// LokiWriter ships log events to Loki in batches. Writes never block: when the
// buffer is full the event is dropped and counted.
type LokiWriter struct {
	url           string
	appLabel      string
	batchSize     int
	flushInterval time.Duration
	client        *http.Client
	errOut        io.Writer
	now           func() time.Time

	entries chan lokiEntry
	dropped atomic.Int64
}

type lokiEntry struct {
	ts    time.Time
	level string
	line  string
}

type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// NewLokiWriter creates a writer for cfg. Call Run to start shipping.
func NewLokiWriter(cfg config.LokiConfig) *LokiWriter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &LokiWriter{
		url:           cfg.Host + lokiPushPath,
		appLabel:      cfg.AppLabel,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		client: &http.Client{
			Timeout: timeout,
		},
		errOut:  os.Stderr,
		now:     time.Now,
		entries: make(chan lokiEntry, cfg.BufferSize),
	}
}

// Write implements io.Writer
func (w *LokiWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter
func (w *LokiWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	levelName := level.String()
	if levelName == "" {
		levelName = "unknown"
	}

	// zerolog reuses p after Write returns
	entry := lokiEntry{
		ts:    w.now(),
		level: levelName,
		line:  strings.TrimRight(string(p), "\n"),
	}

	select {
	case w.entries <- entry:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped returns how many events were discarded because the buffer was full
func (w *LokiWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Run ships batches until ctx is done, then flushes what is still buffered
func (w *LokiWriter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	batch := make([]lokiEntry, 0, w.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := w.push(ctx, batch); err != nil {
			fmt.Fprintf(w.errOut, "loki: dropped %d log events: %v\n", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-w.entries:
			batch = append(batch, entry)
			if len(batch) >= w.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), w.client.Timeout)
			defer cancel()
			for {
				select {
				case entry := <-w.entries:
					batch = append(batch, entry)
					if len(batch) >= w.batchSize {
						flush(shutdownCtx)
					}
				default:
					flush(shutdownCtx)
					return nil
				}
			}
		}
	}
}

func (w *LokiWriter) push(ctx context.Context, batch []lokiEntry) error {
	byLevel := make(map[string]*lokiStream)
	for _, entry := range batch {
		stream, exists := byLevel[entry.level]
		if !exists {
			stream = &lokiStream{
				Stream: map[string]string{
					"app":   w.appLabel,
					"level": entry.level,
				},
			}
			byLevel[entry.level] = stream
		}
		stream.Values = append(stream.Values, [2]string{
			strconv.FormatInt(entry.ts.UnixNano(), 10),
			entry.line,
		})
	}

	levels := make([]string, 0, len(byLevel))
	for level := range byLevel {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	payload := lokiPushRequest{Streams: make([]lokiStream, 0, len(levels))}
	for _, level := range levels {
		payload.Streams = append(payload.Streams, *byLevel[level])
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push logs: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
