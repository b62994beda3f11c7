package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/procfs"
	"github.com/rs/zerolog"
)

// DefaultSampleInterval is how often process metrics are refreshed
const DefaultSampleInterval = 5 * time.Second

// ProcessStats is one sample of OS-level process statistics
type ProcessStats struct {
	CPUSeconds          float64
	ResidentMemoryBytes float64
	OpenFDs             float64
	StartTimeSeconds    float64 // unix time
}

// ProcessSampler reads process statistics from the operating system
type ProcessSampler interface {
	Sample() (ProcessStats, error)
}

// ProcfsSampler samples the current process through /proc
type ProcfsSampler struct{}

// Sample implements ProcessSampler
func (ProcfsSampler) Sample() (ProcessStats, error) {
	p, err := procfs.Self()
	if err != nil {
		return ProcessStats{}, fmt.Errorf("failed to open /proc/self: %w", err)
	}

	stat, err := p.Stat()
	if err != nil {
		return ProcessStats{}, fmt.Errorf("failed to read process stat: %w", err)
	}

	startTime, err := stat.StartTime()
	if err != nil {
		return ProcessStats{}, fmt.Errorf("failed to read process start time: %w", err)
	}

	fds, err := p.FileDescriptorsLen()
	if err != nil {
		return ProcessStats{}, fmt.Errorf("failed to count file descriptors: %w", err)
	}

	return ProcessStats{
		CPUSeconds:          stat.CPUTime(),
		ResidentMemoryBytes: float64(stat.ResidentMemory()),
		OpenFDs:             float64(fds),
		StartTimeSeconds:    startTime,
	}, nil
}

// DefaultMetrics periodically copies process statistics into registry-owned metrics
type DefaultMetrics struct {
	sampler  ProcessSampler
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	cpu       *Counter
	resident  *Gauge
	openFDs   *Gauge
	startTime *Gauge
	uptime    *Gauge

	mu      sync.Mutex
	lastCPU float64
}

// CollectDefaultMetrics registers the process metrics and returns the sampler loop.
// Call Run to start sampling.
func (r *Registry) CollectDefaultMetrics(sampler ProcessSampler, interval time.Duration) (*DefaultMetrics, error) {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}

	d := &DefaultMetrics{
		sampler:  sampler,
		interval: interval,
		logger:   r.logger.With().Str("component", "default_metrics").Logger(),
		now:      time.Now,
	}

	var err error
	if d.cpu, err = r.NewCounter(ValueOpts{
		Name: "process_cpu_seconds_total",
		Help: "Total user and system CPU time spent in seconds.",
	}); err != nil {
		return nil, err
	}
	if d.resident, err = r.NewGauge(ValueOpts{
		Name: "process_resident_memory_bytes",
		Help: "Resident memory size in bytes.",
	}); err != nil {
		return nil, err
	}
	if d.openFDs, err = r.NewGauge(ValueOpts{
		Name: "process_open_fds",
		Help: "Number of open file descriptors.",
	}); err != nil {
		return nil, err
	}
	if d.startTime, err = r.NewGauge(ValueOpts{
		Name: "process_start_time_seconds",
		Help: "Start time of the process since unix epoch in seconds.",
	}); err != nil {
		return nil, err
	}
	if d.uptime, err = r.NewGauge(ValueOpts{
		Name: "process_uptime_seconds",
		Help: "Time since the process started in seconds.",
	}); err != nil {
		return nil, err
	}

	return d, nil
}

// Interval returns the sampling period
func (d *DefaultMetrics) Interval() time.Duration {
	return d.interval
}

// Run samples once immediately and then every interval until ctx is done
func (d *DefaultMetrics) Run(ctx context.Context) error {
	d.Sample()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.Sample()
		case <-ctx.Done():
			return nil
		}
	}
}

// Sample takes one reading. On failure the previous values are kept.
func (d *DefaultMetrics) Sample() {
	stats, err := d.sampler.Sample()
	if err != nil {
		d.logger.Warn().Err(err).Msg("Failed to sample process metrics")
		return
	}

	d.mu.Lock()
	delta := stats.CPUSeconds - d.lastCPU
	if delta > 0 {
		d.lastCPU = stats.CPUSeconds
	} else {
		delta = 0
	}
	d.mu.Unlock()

	uptime := float64(d.now().UnixNano())/1e9 - stats.StartTimeSeconds
	if uptime < 0 {
		uptime = 0
	}

	// Label-less metrics cannot fail on the label check
	_ = d.cpu.Add(delta, nil)
	_ = d.resident.Set(stats.ResidentMemoryBytes, nil)
	_ = d.openFDs.Set(stats.OpenFDs, nil)
	_ = d.startTime.Set(stats.StartTimeSeconds, nil)
	_ = d.uptime.Set(uptime, nil)
}
