package page

import "errors"

// ErrJsTimeout is returned by Render when the readiness helper keyed to
// JsSettings.ReadinessFlagName never resolved to signalReceived within
// JsSettings.CompletionTimeout.
var ErrJsTimeout = errors.New("page: js readiness expression timed out")

// ErrStreamStopped is returned by Render when the ByteSink reported itself
// Stopped mid-stream, aborting the IO.read loop early.
var ErrStreamStopped = errors.New("page: byte sink stopped accepting data")

// ErrPoolLimitReached is returned by Pool.Acquire when maxSize pages are
// already outstanding. Acquire never blocks waiting for one to free up; the
// caller implements its own retry with backoff.
var ErrPoolLimitReached = errors.New("page: pool limit reached")

// ErrPoolClosed is returned by Pool.Acquire once the pool has been closed.
var ErrPoolClosed = errors.New("page: pool closed")
