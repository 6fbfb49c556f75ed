package browser

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	cdpE "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"

	"github.com/lindholm/pdfcapture/cdp"
	"github.com/lindholm/pdfcapture/log"
	"github.com/lindholm/pdfcapture/storage"
)

// LaunchOptions configures one Chromium process. It is the rough equivalent
// of the teacher's LaunchOptions, trimmed of every field that only made
// sense with a JS-VM caller choosing per-script launch flags.
type LaunchOptions struct {
	ExecutablePath     string
	Headless           bool
	NoSandbox          bool
	DisableDevShmUsage bool
	WindowWidth        int
	WindowHeight       int
	Timeout            time.Duration
	ResponseTimeout    time.Duration
	Env                []string
}

func (o LaunchOptions) withDefaults() LaunchOptions {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.ResponseTimeout == 0 {
		o.ResponseTimeout = cdp.DefaultResponseTimeout
	}
	if o.WindowWidth == 0 {
		o.WindowWidth = 1024
	}
	if o.WindowHeight == 0 {
		o.WindowHeight = 768
	}
	return o
}

// Process owns one Chromium process: its lifecycle, its root CDP
// connection, and the temp profile directory it was launched against.
type Process struct {
	logger *log.Logger

	cmd             *exec.Cmd
	userData        storage.Dir
	conn            *cdp.Conn
	wsURL           string
	responseTimeout time.Duration
	createdAt       time.Time

	mu      sync.Mutex
	renders int
	closed  bool
	doneCh  chan struct{}
	waitErr error

	pageMu sync.Mutex
	pages  map[target.ID]*cdp.Conn
}

// Launch starts a new Chromium process, waits for its DevTools endpoint to
// become reachable via the file-based handshake, and dials it.
func Launch(ctx context.Context, opts LaunchOptions, logger *log.Logger) (*Process, error) {
	opts = opts.withDefaults()

	execPath, err := FindBrowserExecutable(opts.ExecutablePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}

	var userData storage.Dir
	if err := userData.Make("", ""); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}

	flags := defaultFlags(opts.Headless, opts.NoSandbox, opts.DisableDevShmUsage, opts.WindowWidth, opts.WindowHeight)
	args, err := buildArgs(flags, userData.Dir)
	if err != nil {
		_ = userData.Cleanup()
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}

	launchCtx, cancelLaunch := context.WithCancel(ctx)
	cmd := exec.CommandContext(launchCtx, execPath, args...) //nolint:gosec
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	// Chromium's own stderr is captured (not inherited) and logged under
	// browser:stderr: reads containing an :ERROR: line at warn level,
	// everything else at debug level. Its stdout is discarded.
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancelLaunch()
		_ = userData.Cleanup()
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}
	cmd.Stdout = nil

	if err := cmd.Start(); err != nil {
		cancelLaunch()
		_ = userData.Cleanup()
		return nil, fmt.Errorf("%w: starting %s: %w", ErrLaunchFailed, execPath, err)
	}
	go drainStderr(stderr, logger)

	p := &Process{
		logger:    logger,
		cmd:       cmd,
		userData:  userData,
		createdAt: time.Now(),
		doneCh:    make(chan struct{}),
	}

	go func() {
		p.waitErr = cmd.Wait()
		close(p.doneCh)
		_ = userData.Cleanup()
	}()

	handshakeCtx, cancelHandshake := context.WithTimeout(ctx, opts.Timeout)
	defer cancelHandshake()
	wsURL, err := waitForDevToolsEndpoint(handshakeCtx, userData.Dir)
	if err != nil {
		cancelLaunch()
		return nil, err
	}

	conn, err := cdp.Dial(ctx, wsURL, opts.ResponseTimeout, logger)
	if err != nil {
		cancelLaunch()
		return nil, fmt.Errorf("%w: dialing browser endpoint: %w", ErrLaunchFailed, err)
	}
	p.conn = conn
	p.wsURL = wsURL
	p.responseTimeout = opts.ResponseTimeout
	p.pages = make(map[target.ID]*cdp.Conn)

	return p, nil
}

func drainStderr(stderr io.Reader, logger *log.Logger) {
	buf := make([]byte, 4096)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			if strings.Contains(string(buf[:n]), ":ERROR:") {
				logger.Warnf("browser:stderr", "%s", buf[:n])
			} else {
				logger.Debugf("browser:stderr", "%s", buf[:n])
			}
		}
		if err != nil {
			return
		}
	}
}

// Conn returns the browser-level CDP connection (no SessionID attached).
func (p *Process) Conn() *cdp.Conn { return p.conn }

// NewPage opens a new background page target and dials a dedicated
// Connection straight to its own devtools/page endpoint, rather than
// attaching a flat session on top of the browser-level Connection: every
// page gets its own multiplexed Connection, so one page's traffic (and one
// page's eventual Dispose) never touches another page's in-flight calls.
func (p *Process) NewPage(ctx context.Context) (target.ID, *cdp.Conn, error) {
	tid, err := target.CreateTarget("about:blank").WithBackground(true).Do(cdpE.WithExecutor(ctx, p.conn))
	if err != nil {
		return "", nil, fmt.Errorf("browser: creating target: %w", err)
	}

	pageURL, err := pageWebSocketURL(p.wsURL, tid)
	if err != nil {
		return "", nil, err
	}
	pageConn, err := cdp.Dial(ctx, pageURL, p.responseTimeout, p.logger)
	if err != nil {
		return "", nil, fmt.Errorf("browser: dialing page endpoint: %w", err)
	}

	p.pageMu.Lock()
	p.pages[tid] = pageConn
	p.pageMu.Unlock()

	return tid, pageConn, nil
}

// pageWebSocketURL derives a page's own devtools endpoint from the browser's,
// swapping the path the way Chromium's /json/new and /json/list endpoints
// both describe: same host and port, /devtools/page/{targetId} instead of
// /devtools/browser/{id}.
func pageWebSocketURL(browserWSURL string, tid target.ID) (string, error) {
	u, err := url.Parse(browserWSURL)
	if err != nil {
		return "", fmt.Errorf("browser: parsing devtools endpoint %q: %w", browserWSURL, err)
	}
	u.Path = "/devtools/page/" + string(tid)
	return u.String(), nil
}

// ClosePage disposes the page's own Connection and fires off
// Target.closeTarget on the browser Connection without waiting for an
// acknowledgement. Fire-and-forget per this service's crash policy: a
// target that already crashed will fail this call, and that failure is not
// propagated, matching the teacher's detach-on-crash handling in
// common/browser.go, which also never blocks teardown on a page that's
// already gone.
func (p *Process) ClosePage(_ context.Context, tid target.ID) {
	p.pageMu.Lock()
	conn, ok := p.pages[tid]
	delete(p.pages, tid)
	p.pageMu.Unlock()

	if ok {
		_ = conn.Dispose()
	}
	p.conn.FireAndForget("Target.closeTarget", target.CloseTarget(tid))
}

// IsAlive performs a cheap round trip against the browser target to check
// the process and its CDP connection are still responsive.
func (p *Process) IsAlive(ctx context.Context) bool {
	_, err := target.GetTargets().Do(cdpE.WithExecutor(ctx, p.conn))
	return err == nil
}

// Age reports how long ago this process was launched.
func (p *Process) Age() time.Duration { return time.Since(p.createdAt) }

// RendersServed reports how many pages have been rendered through this
// process since it was launched.
func (p *Process) RendersServed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renders
}

// recordRender increments the served-render counter. Called by the pool on
// release, not by Process itself, since Process has no notion of a render.
func (p *Process) recordRender() {
	p.mu.Lock()
	p.renders++
	p.mu.Unlock()
}

// GracefulClose asks the connection to close and waits (up to timeout) for
// the process to exit on its own before Terminate force-kills it.
func (p *Process) GracefulClose(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.pageMu.Lock()
	for tid, conn := range p.pages {
		_ = conn.Dispose()
		delete(p.pages, tid)
	}
	p.pageMu.Unlock()

	_ = p.conn.Dispose()

	select {
	case <-p.doneCh:
		return p.waitErr
	case <-time.After(timeout):
		return p.Terminate()
	}
}

// Terminate force-kills the underlying process.
func (p *Process) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("browser: killing process: %w", err)
	}
	<-p.doneCh
	return nil
}

// Done returns a channel closed once the underlying process has exited,
// whether cleanly or not — useful for a pool to notice an unexpected crash.
func (p *Process) Done() <-chan struct{} { return p.doneCh }
