package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPoolSaturated is returned by Acquire when the wait queue is full.
var ErrPoolSaturated = errors.New("engine: worker pool saturated")

// ErrPoolClosed is returned by Acquire after Stop.
var ErrPoolClosed = errors.New("engine: worker pool closed")

// ErrWorkerStart wraps factory errors returned by Acquire.
var ErrWorkerStart = errors.New("engine: worker failed to start")

// Outcome tells the pool how a borrowed worker behaved.
type Outcome int

const (
	// Healthy lowers the worker's error score.
	Healthy Outcome = iota
	// Failed raises the error score; the worker may be retired.
	Failed
	// Broken destroys the worker immediately.
	Broken
)

// Handle wraps a pooled worker with health tracking metadata.
//
// Scoring rules:
//   - Healthy: errScore -= 0.5 (min 0)
//   - Failed:  errScore += 1.0
//
// Retirement triggers (any one): errScore >= 3.0, useCount >= MaxUses,
// age >= MaxAge.
type Handle[T any] struct {
	ID    int64
	Value T

	errScore float64
	useCount int
	created  time.Time
	lastUsed time.Time
	mu       sync.Mutex
}

func (h *Handle[T]) record(o Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	h.lastUsed = time.Now()
	if o == Healthy {
		h.errScore = math.Max(0, h.errScore-0.5)
	} else {
		h.errScore += 1.0
	}
}

func (h *Handle[T]) shouldRetire(cfg PoolConfig) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.errScore >= 3.0 {
		return true
	}
	if cfg.MaxUses > 0 && h.useCount >= cfg.MaxUses {
		return true
	}
	if cfg.MaxAge > 0 && time.Since(h.created) >= cfg.MaxAge {
		return true
	}
	return false
}

func (h *Handle[T]) idleFor() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Since(h.lastUsed)
}

// PoolConfig holds configuration for the worker pool.
type PoolConfig struct {
	MinSize  int
	MaxSize  int
	MaxQueue int
	MaxUses  int
	MaxAge   time.Duration
	IdleTTL  time.Duration

	// MaintainEvery is the period of the retirement sweep. Default 10s.
	MaintainEvery time.Duration
}

// Factory creates a new worker.
type Factory[T any] func() (T, error)

// Destroyer releases a worker's resources. It must not block indefinitely.
type Destroyer[T any] func(T)

// Pool is a bounded pool of reusable workers with admission control:
// at most MaxSize workers are alive and checked out, at most MaxQueue callers
// wait for one, and further callers are rejected with ErrPoolSaturated.
type Pool[T any] struct {
	cfg       PoolConfig
	factory   Factory[T]
	destroyer Destroyer[T]

	slots   chan struct{} // admission tokens, one per concurrent borrower
	idle    chan *Handle[T]
	mu      sync.Mutex
	all     map[int64]*Handle[T] // all live handles
	nextID  atomic.Int64
	active   atomic.Int32 // checked-out handles
	waiting  atomic.Int32 // callers blocked on a slot
	sweeping atomic.Int32 // slots held by sweep

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewPool creates and starts a pool. It pre-creates MinSize workers; failures
// there are logged, not fatal, since workers are also created on demand.
func NewPool[T any](cfg PoolConfig, factory Factory[T], destroyer Destroyer[T]) *Pool[T] {
	if cfg.MaxSize < 1 {
		cfg.MaxSize = 1
	}
	if cfg.MinSize < 0 {
		cfg.MinSize = 0
	}
	if cfg.MinSize > cfg.MaxSize {
		cfg.MinSize = cfg.MaxSize
	}
	if cfg.MaxQueue < 0 {
		cfg.MaxQueue = 0
	}
	if cfg.MaintainEvery <= 0 {
		cfg.MaintainEvery = 10 * time.Second
	}

	p := &Pool[T]{
		cfg:       cfg,
		factory:   factory,
		destroyer: destroyer,
		slots:     make(chan struct{}, cfg.MaxSize),
		idle:      make(chan *Handle[T], cfg.MaxSize),
		all:       make(map[int64]*Handle[T]),
		stopped:   make(chan struct{}),
	}

	for i := 0; i < cfg.MinSize; i++ {
		h, err := p.createHandle()
		if err != nil {
			slog.Warn("pool: failed to pre-create worker", "error", err)
			continue
		}
		p.idle <- h
	}

	go p.maintainLoop()
	return p
}

// Acquire borrows a worker. It waits for a free slot while the queue has room,
// reuses an idle worker when one exists, and otherwise creates a new one.
// Every successful Acquire must be paired with exactly one Release.
func (p *Pool[T]) Acquire(ctx context.Context) (*Handle[T], error) {
	select {
	case <-p.stopped:
		return nil, ErrPoolClosed
	default:
	}

	// Fast path: free slot.
	select {
	case p.slots <- struct{}{}:
	default:
		// Slots held by sweep are returned within one inspection and do
		// not count against the queue.
		if int(p.waiting.Add(1)) > p.cfg.MaxQueue+int(p.sweeping.Load()) {
			p.waiting.Add(-1)
			return nil, ErrPoolSaturated
		}
		select {
		case p.slots <- struct{}{}:
			p.waiting.Add(-1)
		case <-ctx.Done():
			p.waiting.Add(-1)
			return nil, ctx.Err()
		case <-p.stopped:
			p.waiting.Add(-1)
			return nil, ErrPoolClosed
		}
	}

	// A slot bounds live workers: idle + checked out never exceeds MaxSize.
	select {
	case h := <-p.idle:
		p.active.Add(1)
		return h, nil
	default:
	}

	h, err := p.createHandle()
	if err != nil {
		<-p.slots
		return nil, fmt.Errorf("%w: %w", ErrWorkerStart, err)
	}
	p.active.Add(1)
	return h, nil
}

// Release returns a worker to the pool. Broken or unhealthy workers are
// destroyed; the next Acquire replaces them on demand.
func (p *Pool[T]) Release(h *Handle[T], o Outcome) {
	defer func() { <-p.slots }()
	p.active.Add(-1)

	if o == Broken {
		slog.Debug("pool: destroying broken worker", "id", h.ID)
		p.destroyHandle(h)
		return
	}

	h.record(o)
	if h.shouldRetire(p.cfg) {
		slog.Debug("pool: retiring worker", "id", h.ID)
		p.destroyHandle(h)
		return
	}

	p.putIdle(h)
}

// putIdle returns h to the idle set, or destroys it once the pool is stopped.
// Stop closes stopped and drains idle under mu, so a worker pushed here is
// always either drained by Stop or destroyed below.
func (p *Pool[T]) putIdle(h *Handle[T]) {
	p.mu.Lock()
	select {
	case <-p.stopped:
		p.mu.Unlock()
		p.destroyHandle(h)
		return
	default:
	}
	p.idle <- h
	p.mu.Unlock()
}

// Size returns the total number of live workers.
func (p *Pool[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all)
}

// ActiveCount returns the number of checked-out workers.
func (p *Pool[T]) ActiveCount() int {
	return int(p.active.Load())
}

// WaitingCount returns the number of callers queued for a slot.
func (p *Pool[T]) WaitingCount() int {
	return int(p.waiting.Load())
}

// MaxSize returns the configured worker cap.
func (p *Pool[T]) MaxSize() int {
	return p.cfg.MaxSize
}

// Stop shuts down the maintenance goroutine and destroys all idle workers.
// Workers checked out at that moment are destroyed when released.
func (p *Pool[T]) Stop() {
	var drained []*Handle[T]

	p.mu.Lock()
	p.stopOnce.Do(func() {
		close(p.stopped)
	})
drainLoop:
	for {
		select {
		case h := <-p.idle:
			drained = append(drained, h)
		default:
			break drainLoop
		}
	}
	p.mu.Unlock()

	for _, h := range drained {
		p.destroyHandle(h)
	}
}

// createHandle creates a new worker and starts tracking it.
func (p *Pool[T]) createHandle() (*Handle[T], error) {
	v, err := p.factory()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	h := &Handle[T]{
		ID:       p.nextID.Add(1),
		Value:    v,
		created:  now,
		lastUsed: now,
	}
	p.mu.Lock()
	p.all[h.ID] = h
	p.mu.Unlock()
	return h, nil
}

// destroyHandle removes a handle from tracking and calls the destroyer.
func (p *Pool[T]) destroyHandle(h *Handle[T]) {
	p.mu.Lock()
	delete(p.all, h.ID)
	p.mu.Unlock()
	p.destroyer(h.Value)
}

// maintainLoop periodically retires aged and long-idle workers.
func (p *Pool[T]) maintainLoop() {
	ticker := time.NewTicker(p.cfg.MaintainEvery)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopped:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// sweep inspects each idle worker once, keeping MinSize of them alive.
// It holds a slot while a worker is out of the idle channel so that a
// concurrent Acquire never mistakes the pool for empty.
func (p *Pool[T]) sweep() {
	n := len(p.idle)
	for i := 0; i < n; i++ {
		if !p.holdSweepSlot() {
			return
		}

		var h *Handle[T]
		select {
		case h = <-p.idle:
		default:
			p.releaseSweepSlot()
			return
		}

		expired := h.shouldRetire(p.cfg) ||
			(p.cfg.IdleTTL > 0 && h.idleFor() >= p.cfg.IdleTTL && p.Size() > p.cfg.MinSize)
		if expired {
			slog.Debug("pool: sweeping worker", "id", h.ID)
			p.destroyHandle(h)
		} else {
			p.putIdle(h)
		}
		p.releaseSweepSlot()
	}
}

// holdSweepSlot takes a free slot without waiting.
// sweeping covers the whole time the slot is held.
func (p *Pool[T]) holdSweepSlot() bool {
	p.sweeping.Add(1)
	select {
	case p.slots <- struct{}{}:
		return true
	default:
		p.sweeping.Add(-1)
		return false
	}
}

func (p *Pool[T]) releaseSweepSlot() {
	<-p.slots
	p.sweeping.Add(-1)
}
