// Package pool bounds the number of outbound evaluator and coach calls in
// flight across all game sessions.
package pool

import (
	"context"
	"sync/atomic"
	"time"
)

// Lane selects which semaphore a job runs under.
type Lane int

const (
	LaneEval  Lane = iota // evaluator calls: turn analysis, computer plays, cube
	LaneCoach             // coach calls: explanations and summaries
)

func (l Lane) String() string {
	if l == LaneCoach {
		return "coach"
	}
	return "eval"
}

// lane is one semaphore with its counters.
type lane struct {
	sem    chan struct{}
	queued int64
	active int64
	total  int64
}

func newLane(size int) *lane {
	return &lane{sem: make(chan struct{}, size)}
}

func (l *lane) acquire(ctx context.Context) error {
	atomic.AddInt64(&l.queued, 1)
	defer atomic.AddInt64(&l.queued, -1)

	select {
	case l.sem <- struct{}{}:
		atomic.AddInt64(&l.active, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *lane) tryAcquire() bool {
	select {
	case l.sem <- struct{}{}:
		atomic.AddInt64(&l.active, 1)
		return true
	default:
		return false
	}
}

func (l *lane) release() {
	atomic.AddInt64(&l.active, -1)
	atomic.AddInt64(&l.total, 1)
	<-l.sem
}

// WorkerPool manages concurrent outbound calls with one limit per lane.
type WorkerPool struct {
	lanes [2]*lane
}

// Config configures the worker pool.
type Config struct {
	MaxEvalWorkers  int `mapstructure:"max_eval_workers"`  // default: 8
	MaxCoachWorkers int `mapstructure:"max_coach_workers"` // default: 2
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxEvalWorkers:  8,
		MaxCoachWorkers: 2,
	}
}

// New creates a worker pool with the given configuration.
func New(config Config) *WorkerPool {
	def := DefaultConfig()
	if config.MaxEvalWorkers <= 0 {
		config.MaxEvalWorkers = def.MaxEvalWorkers
	}
	if config.MaxCoachWorkers <= 0 {
		config.MaxCoachWorkers = def.MaxCoachWorkers
	}
	return &WorkerPool{
		lanes: [2]*lane{newLane(config.MaxEvalWorkers), newLane(config.MaxCoachWorkers)},
	}
}

// Acquire acquires a slot in lane l.
// Returns an error if the context is cancelled while waiting.
func (p *WorkerPool) Acquire(ctx context.Context, l Lane) error {
	return p.lanes[l].acquire(ctx)
}

// TryAcquire tries to acquire a slot without blocking.
// Returns true if acquired, false if the lane is full.
func (p *WorkerPool) TryAcquire(l Lane) bool {
	return p.lanes[l].tryAcquire()
}

// AcquireWithTimeout tries to acquire a slot in lane l with a timeout.
func (p *WorkerPool) AcquireWithTimeout(l Lane, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.Acquire(ctx, l)
}

// Release releases a slot of lane l.
func (p *WorkerPool) Release(l Lane) {
	p.lanes[l].release()
}

// Do runs fn while holding a slot of lane l.
func (p *WorkerPool) Do(ctx context.Context, l Lane, fn func(context.Context) error) error {
	if err := p.Acquire(ctx, l); err != nil {
		return err
	}
	defer p.Release(l)
	return fn(ctx)
}

// LaneStats are the counters of one lane.
type LaneStats struct {
	Active int64 `json:"active"`
	Queued int64 `json:"queued"`
	Total  int64 `json:"total"`
	Max    int   `json:"max"`
}

// Stats returns current pool statistics.
type Stats struct {
	Eval  LaneStats `json:"eval"`
	Coach LaneStats `json:"coach"`
}

func (l *lane) stats() LaneStats {
	return LaneStats{
		Active: atomic.LoadInt64(&l.active),
		Queued: atomic.LoadInt64(&l.queued),
		Total:  atomic.LoadInt64(&l.total),
		Max:    cap(l.sem),
	}
}

// Stats returns current pool statistics.
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Eval:  p.lanes[LaneEval].stats(),
		Coach: p.lanes[LaneCoach].stats(),
	}
}
