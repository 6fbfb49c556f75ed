package cdp

import "errors"

// ErrConnectionClosed is returned by Conn methods once the underlying
// WebSocket connection has been torn down, either because the remote end
// closed it or because Dispose was called.
var ErrConnectionClosed = errors.New("cdp: connection closed")

// ErrCallTimeout is returned by Execute when a deadline (the Conn's
// responseTimeout or the caller's own) expires before a matching response
// arrives. A cancelled context yields ctx.Err() instead.
var ErrCallTimeout = errors.New("cdp: call timed out waiting for response")

// ErrNoSession names a session id that is not attached. Conn keeps no
// record of sessions and does not return it: a call against a detached or
// crashed target fails with the error the browser replies with.
var ErrNoSession = errors.New("cdp: no such session")
