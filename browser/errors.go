package browser

import "errors"

// ErrPoolClosed is returned by Acquire once the pool has been shut down.
var ErrPoolClosed = errors.New("browser: pool closed")

// ErrPoolLimitReached is returned by Acquire when its bounded retry loop
// ends with no instance to hand out. Instances are shared, not leased, so
// this happens only while no instance is running (launching one failed).
var ErrPoolLimitReached = errors.New("browser: pool limit reached")

// ErrLaunchFailed wraps failures to start or connect to a Chromium process.
var ErrLaunchFailed = errors.New("browser: launch failed")

// ErrExecutableNotFound is returned when no usable Chromium-family binary
// could be located on the host.
var ErrExecutableNotFound = errors.New("browser: no chromium executable found")

// ErrDevToolsHandshakeTimeout is returned when the DevToolsActivePort file
// did not appear within the configured timeout.
var ErrDevToolsHandshakeTimeout = errors.New("browser: DevToolsActivePort handshake timed out")
