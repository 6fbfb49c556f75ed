package render

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"

	"github.com/lindholm/pdfcapture/browser"
	"github.com/lindholm/pdfcapture/log"
	"github.com/lindholm/pdfcapture/page"
)

// ServiceConfig configures a Service's resource limits.
type ServiceConfig struct {
	MaxPagesPerBrowser int
	ResponseTimeout    time.Duration
}

// Service is the public facade this module exists to provide: given HTML
// and print settings, produce a PDF. It owns a browser.Pool and, per
// browser instance in that pool, a page.Pool of reusable page targets, and
// reduces whatever cdp/browser/page sentinel errors it encounters down to
// an Outcome the caller can act on without chasing error chains itself.
type Service struct {
	cfg      ServiceConfig
	logger   *log.Logger
	browsers *browser.Pool

	mu    sync.Mutex
	pages map[*browser.Process]*page.Pool
}

// NewService wraps an already-running browser.Pool in a Service.
func NewService(cfg ServiceConfig, browsers *browser.Pool, logger *log.Logger) *Service {
	if cfg.MaxPagesPerBrowser < 1 {
		cfg.MaxPagesPerBrowser = 10
	}
	if cfg.ResponseTimeout == 0 {
		cfg.ResponseTimeout = 30 * time.Second
	}
	return &Service{
		cfg:      cfg,
		logger:   logger,
		browsers: browsers,
		pages:    make(map[*browser.Process]*page.Pool),
	}
}

// GenerateReport renders html to a PDF according to ps and js, streaming
// the bytes into sink. The returned Outcome always reflects what happened;
// err carries the underlying cause for logging, and is non-nil whenever
// outcome != Success.
func (s *Service) GenerateReport(ctx context.Context, html string, ps page.PageSettings, js page.JsSettings, sink page.ByteSink) (Outcome, error) {
	proc, err := s.browsers.Acquire(ctx)
	if err != nil {
		return classifyAcquireError(ctx, err), err
	}
	defer s.browsers.Release(proc)

	pages := s.pagePoolFor(proc)
	handle, err := s.acquirePageWithRetry(ctx, pages)
	if err != nil {
		return classifyAcquireError(ctx, err), err
	}

	if err := page.Render(ctx, handle.Exec, s.logger, html, ps, js, sink); err != nil {
		pages.Dispose(handle)
		return classifyRenderError(ctx, err), err
	}
	pages.Release(handle)
	return Success, nil
}

// acquirePageWithRetry tries pages.Acquire up to three times, sleeping
// ResponseTimeout/3 between attempts, before surfacing whatever error the
// last attempt produced. page.Pool.Acquire never blocks on its own, so this
// loop is what turns "every page on this browser is busy right now" into a
// short, bounded wait rather than an immediate failure.
func (s *Service) acquirePageWithRetry(ctx context.Context, pages *page.Pool) (*page.Handle, error) {
	wait := s.cfg.ResponseTimeout / 3
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		handle, err := pages.Acquire(ctx)
		if err == nil {
			return handle, nil
		}
		lastErr = err
		if !errors.Is(err, page.ErrPoolLimitReached) {
			return nil, err
		}
		if attempt == 2 {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (s *Service) pagePoolFor(proc *browser.Process) *page.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pages[proc]
	if !ok {
		pool = page.NewPool(pageOpener{proc}, s.cfg.MaxPagesPerBrowser, s.logger)
		s.pages[proc] = pool
	}
	return pool
}

// pageOpener adapts *browser.Process to page's processTargets interface.
// browser.Process.NewPage returns a concrete *cdp.Conn rather than naming
// page.Executor, so browser never has to import page; this adapter is what
// lets render, which already imports both, bridge the two without either
// leaf package knowing about the other.
type pageOpener struct {
	proc *browser.Process
}

func (o pageOpener) NewPage(ctx context.Context) (target.ID, page.Executor, error) {
	return o.proc.NewPage(ctx)
}

func (o pageOpener) ClosePage(ctx context.Context, tid target.ID) {
	o.proc.ClosePage(ctx, tid)
}

// Shutdown closes every page pool this Service has created and then the
// underlying browser pool. It does not own lifecycle beyond that: a caller
// that constructed the browser.Pool is responsible for having started it.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	pools := make([]*page.Pool, 0, len(s.pages))
	for _, pool := range s.pages {
		pools = append(pools, pool)
	}
	s.pages = make(map[*browser.Process]*page.Pool)
	s.mu.Unlock()

	for _, pool := range pools {
		pool.Close(ctx)
	}
	s.browsers.Shutdown(ctx)
}

func classifyAcquireError(ctx context.Context, err error) Outcome {
	if ctx.Err() != nil {
		return Cancelled
	}
	if errors.Is(err, browser.ErrPoolLimitReached) || errors.Is(err, page.ErrPoolLimitReached) {
		return ServerBusy
	}
	return BrowserError
}

func classifyRenderError(ctx context.Context, err error) Outcome {
	if errors.Is(err, page.ErrJsTimeout) {
		return JsTimeout
	}
	if errors.Is(err, page.ErrStreamStopped) {
		return Cancelled
	}
	if ctx.Err() != nil {
		return Cancelled
	}
	return BrowserError
}
