package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lindholm/pdfcapture/log"
)

// acquireRetryLimit and acquireRetryWait bound Acquire's retry loop when no
// fresh instance was launched and the round-robin queue has nothing to hand
// out: three attempts, five seconds apart, matching the render pipeline's own bounded-retry shape
// rather than blocking indefinitely.
const (
	acquireRetryLimit = 3
	acquireRetryWait  = 5 * time.Second
)

// PoolConfig configures a Pool's size and per-instance lifecycle policy.
type PoolConfig struct {
	Size              int
	LaunchOpts        LaunchOptions
	RestartAfterCount int           // 0 disables the renders-served restart policy
	RestartAfterAge   time.Duration // 0 disables the age-based restart policy
	WarmupURL         string        // "" skips warmup; the URL itself is never loaded
	AcquireRetryLimit int           // not read by Pool; Acquire uses acquireRetryLimit
}

// PoolStats is a snapshot of Pool occupancy, exposed to the metrics package.
type PoolStats struct {
	Size          int
	Available     int
	TotalAcquired int64
	TotalRestarts int64
}

// Pool is a bounded set of Browser Processes, lazily started up to cfg.Size
// and shared non-exclusively: a single instance may serve multiple
// concurrent renders at once, bounded only by its own page pool, so Acquire
// hands out round-robin access to whichever instance's queue position comes
// up rather than an exclusive lease. When no instance can be launched or
// handed out, Acquire never blocks indefinitely — it retries a
// bounded number of times with a fixed wait and then returns
// ErrPoolLimitReached, leaving further backoff to the caller.
type Pool struct {
	logger *log.Logger
	cfg    PoolConfig

	startMu sync.Mutex

	mu        sync.Mutex
	instances []*Process
	queue     []*Process

	closed        atomic.Bool
	totalAcquired atomic.Int64
	totalRestarts atomic.Int64
}

// NewPool returns a Pool ready to serve Acquire calls. No browser is
// launched until the first Acquire; instances come up lazily, on demand, up
// to cfg.Size.
func NewPool(_ context.Context, cfg PoolConfig, logger *log.Logger) (*Pool, error) {
	if cfg.Size < 1 {
		return nil, fmt.Errorf("browser: pool size must be >= 1, got %d", cfg.Size)
	}
	return &Pool{logger: logger, cfg: cfg}, nil
}

func (p *Pool) launchAndWarmup(ctx context.Context) (*Process, error) {
	proc, err := Launch(ctx, p.cfg.LaunchOpts, p.logger)
	if err != nil {
		return nil, err
	}
	if p.cfg.WarmupURL != "" {
		if err := p.warmup(ctx, proc); err != nil {
			// Warmup (opening and closing one blank page) is diagnostic,
			// not load-bearing: a browser that fails it is still usable,
			// so this is logged and swallowed rather than failing the launch.
			p.logger.Warnf("browser:pool", "warmup failed: %v", err)
		}
	}
	return proc, nil
}

func (p *Pool) warmup(ctx context.Context, proc *Process) error {
	tid, conn, err := proc.NewPage(ctx)
	if err != nil {
		return err
	}
	defer proc.ClosePage(ctx, tid)

	_ = conn // the teacher's Warmup only needs the round trip, not the connection
	return nil
}

// Acquire returns a browser instance. It first tries to launch a fresh one
// if the pool is below cfg.Size; otherwise, or if that launch fails, it
// draws the next instance from the round-robin queue, retrying while the
// queue is empty or restarting a dead instance fails, a bounded number of
// times, waiting acquireRetryWait between attempts, and gives up with
// ErrPoolLimitReached (or the last restart error) rather than blocking
// forever.
func (p *Pool) Acquire(ctx context.Context) (*Process, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	if proc, started := p.startIfUnderCap(ctx); started {
		return proc, nil
	}

	var lastErr error
	for try := 0; try < acquireRetryLimit; try++ {
		proc, err := p.nextFromQueue(ctx)
		if err != nil {
			lastErr = err
		} else if proc != nil {
			return proc, nil
		}
		if try == acquireRetryLimit-1 {
			break
		}
		select {
		case <-time.After(acquireRetryWait):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrPoolLimitReached, ctx.Err())
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrPoolLimitReached
}

// startIfUnderCap launches a new instance and enrolls it in the queue if the
// pool has not yet reached cfg.Size. startMu serializes this against
// concurrent Acquire callers so two callers racing the last free slot don't
// both launch an instance.
func (p *Pool) startIfUnderCap(ctx context.Context) (*Process, bool) {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	p.mu.Lock()
	full := len(p.instances) >= p.cfg.Size
	p.mu.Unlock()
	if full {
		return nil, false
	}

	proc, err := p.launchAndWarmup(ctx)
	if err != nil {
		p.logger.Warnf("browser:pool", "launching new instance: %v", err)
		return nil, false
	}

	p.mu.Lock()
	p.instances = append(p.instances, proc)
	p.queue = append(p.queue, proc)
	p.mu.Unlock()

	p.totalAcquired.Add(1)
	return proc, true
}

// nextFromQueue rotates the round-robin queue and returns the instance now
// at its head, restarting it first if it is dead or past its restart policy
// threshold. It returns (nil, nil) if the queue is empty, which only happens
// while no instance has been launched yet (restarts swap in place).
func (p *Pool) nextFromQueue(ctx context.Context) (*Process, error) {
	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return nil, nil
	}
	proc := p.queue[0]
	p.queue = append(p.queue[1:], proc)
	idx := -1
	for i, inst := range p.instances {
		if inst == proc {
			idx = i
			break
		}
	}
	p.mu.Unlock()

	if idx == -1 {
		return proc, nil
	}

	if !proc.IsAlive(ctx) || p.shouldRestart(proc) {
		fresh, err := p.restart(ctx, idx, proc)
		if err != nil {
			return nil, fmt.Errorf("browser: restarting instance %d: %w", idx, err)
		}
		p.replaceInQueue(proc, fresh)
		proc = fresh
		p.totalRestarts.Add(1)
	}

	p.totalAcquired.Add(1)
	return proc, nil
}

func (p *Pool) replaceInQueue(old, fresh *Process) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, inst := range p.queue {
		if inst == old {
			p.queue[i] = fresh
		}
	}
}

func (p *Pool) shouldRestart(proc *Process) bool {
	if p.cfg.RestartAfterCount > 0 && proc.RendersServed() >= p.cfg.RestartAfterCount {
		return true
	}
	if p.cfg.RestartAfterAge > 0 && proc.Age() >= p.cfg.RestartAfterAge {
		return true
	}
	return false
}

func (p *Pool) restart(ctx context.Context, idx int, old *Process) (*Process, error) {
	_ = old.GracefulClose(5 * time.Second)

	fresh, err := p.launchAndWarmup(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.instances[idx] = fresh
	p.mu.Unlock()
	return fresh, nil
}

// Release records that proc served a render. Instances are shared
// non-exclusively through the round-robin queue, so there is no slot to
// give back — Release is bookkeeping only.
func (p *Pool) Release(proc *Process) {
	proc.recordRender()
}

// Stats returns a point-in-time snapshot of pool occupancy.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Size:          len(p.instances),
		Available:     len(p.queue),
		TotalAcquired: p.totalAcquired.Load(),
		TotalRestarts: p.totalRestarts.Load(),
	}
}

// Shutdown gracefully closes every browser instance in the pool.
func (p *Pool) Shutdown(_ context.Context) {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, proc := range p.instances {
		if proc == nil {
			continue
		}
		if err := proc.GracefulClose(5 * time.Second); err != nil {
			p.logger.Warnf("browser:pool", "error closing instance during shutdown: %v", err)
		}
	}
}
