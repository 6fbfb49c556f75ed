package page

import (
	"context"
	"sync"

	cdpE "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"

	"github.com/lindholm/pdfcapture/log"
)

// Executor is the CDP capability Render needs against one attached page:
// cdproto's request/response Executor, plus the fire-and-forget send this
// pipeline issues for calls nobody needs to wait on an acknowledgement for.
type Executor interface {
	cdpE.Executor
	FireAndForget(method string, params easyjson.Marshaler)
}

// processTargets is the subset of browser.Process a Pool needs: opening and
// closing page targets. Spelled out as an interface here (rather than
// importing the browser package directly) so page stays a leaf package
// browser does not need to know about.
type processTargets interface {
	NewPage(ctx context.Context) (target.ID, Executor, error)
	ClosePage(ctx context.Context, tid target.ID)
}

// Handle is one pooled page: its target id (needed to close it) and the
// Executor CDP calls against it go through.
type Handle struct {
	TargetID target.ID
	Exec     Executor
}

// Pool is a bounded, lazily populated LIFO pool of page targets within a
// single browser process. Acquire never blocks: once maxSize pages are
// outstanding it returns ErrPoolLimitReached immediately, leaving retry and
// backoff to the caller (render.Service implements that loop).
type Pool struct {
	proc    processTargets
	logger  *log.Logger
	maxSize int

	mu      sync.Mutex
	idle    []*Handle
	created int
	closed  bool
}

// NewPool returns a Pool that opens at most maxSize concurrent pages
// against proc.
func NewPool(proc processTargets, maxSize int, logger *log.Logger) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Pool{
		proc:    proc,
		logger:  logger,
		maxSize: maxSize,
	}
}

// Acquire returns an idle page if one exists, otherwise opens a new one (up
// to maxSize total), otherwise returns ErrPoolLimitReached without
// blocking.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		h := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return h, nil
	}
	if p.created >= p.maxSize {
		p.mu.Unlock()
		return nil, ErrPoolLimitReached
	}
	p.created++
	p.mu.Unlock()

	tid, exec, err := p.proc.NewPage(ctx)
	if err != nil {
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		return nil, err
	}
	return &Handle{TargetID: tid, Exec: exec}, nil
}

// Release returns h to the pool for reuse after a successful render, or
// closes it outright if the pool has already been closed.
func (p *Pool) Release(h *Handle) {
	p.mu.Lock()
	if p.closed {
		p.created--
		p.mu.Unlock()
		p.proc.ClosePage(context.Background(), h.TargetID)
		return
	}
	p.idle = append(p.idle, h)
	p.mu.Unlock()
}

// Dispose closes h outright instead of returning it to the pool, for a page
// that hit a pipeline error mid-render and cannot be trusted for reuse. It
// frees h's slot so a fresh page can be opened in its place.
func (p *Pool) Dispose(h *Handle) {
	p.mu.Lock()
	p.created--
	p.mu.Unlock()
	p.proc.ClosePage(context.Background(), h.TargetID)
}

// Close closes every currently idle page. Pages out on loan at the time of
// Close are closed as they are Released rather than force-closed, since
// the render still in flight against them owns them until then.
func (p *Pool) Close(ctx context.Context) {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, h := range idle {
		p.proc.ClosePage(ctx, h.TargetID)
	}
}
