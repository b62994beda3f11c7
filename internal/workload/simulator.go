package workload

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultMinDelayMs = 10
	DefaultMaxDelayMs = 3000

	// failureDraws is the size of the failure draw range [0, failureDraws)
	failureDraws = 7
	// failureSentinel is the draw that selects the failure branch
	failureSentinel = 4
)

// Random is the source of randomness used by the simulator
type Random interface {
	// Intn returns a uniform integer in [0, n)
	Intn(n int) int
}

// lockedRandom makes a *rand.Rand safe for concurrent requests
type lockedRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *lockedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// NewRandom returns a goroutine-safe Random seeded with seed
func NewRandom(seed int64) Random {
	return &lockedRandom{rng: rand.New(rand.NewSource(seed))}
}

// Options configures a Simulator
type Options struct {
	Random     Random
	MinDelayMs int
	MaxDelayMs int
	// After returns a channel that fires after d; defaults to time.After
	After func(d time.Duration) <-chan time.Time
}

// Simulator produces work with random latency and random failures
type Simulator struct {
	rng        Random
	minDelayMs int
	maxDelayMs int
	after      func(d time.Duration) <-chan time.Time
}

// NewSimulator creates a simulator, filling unset options with defaults
func NewSimulator(opts Options) *Simulator {
	if opts.Random == nil {
		opts.Random = NewRandom(time.Now().UnixNano())
	}
	if opts.MinDelayMs <= 0 && opts.MaxDelayMs <= 0 {
		opts.MinDelayMs = DefaultMinDelayMs
		opts.MaxDelayMs = DefaultMaxDelayMs
	}
	if opts.MaxDelayMs < opts.MinDelayMs {
		opts.MaxDelayMs = opts.MinDelayMs
	}
	if opts.After == nil {
		opts.After = time.After
	}

	return &Simulator{
		rng:        opts.Random,
		minDelayMs: opts.MinDelayMs,
		maxDelayMs: opts.MaxDelayMs,
		after:      opts.After,
	}
}

// randomInt returns a uniform integer in [lo, hi]
func (s *Simulator) randomInt(lo, hi int) int {
	return s.rng.Intn(hi-lo+1) + lo
}

// Run waits a random delay and then either succeeds or returns a *Failure.
// Cancelling ctx abandons the wait and returns ctx.Err().
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	ms := s.randomInt(s.minDelayMs, s.maxDelayMs)
	shouldFail := s.randomInt(0, failureDraws-1) == failureSentinel

	select {
	case <-s.after(time.Duration(ms) * time.Millisecond):
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	if shouldFail {
		kind := Kinds[s.randomInt(0, len(Kinds)-1)]
		return Result{}, &Failure{Kind: kind, ElapsedMs: ms}
	}

	return Result{ElapsedMs: ms}, nil
}
