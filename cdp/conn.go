package cdp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	cdpE "github.com/chromedp/cdproto/cdp"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
	"golang.org/x/sync/errgroup"

	"github.com/lindholm/pdfcapture/log"
)

const writeBufferSize = 1 << 20

// DefaultResponseTimeout is the per-call deadline applied to every rpc when
// a Conn is dialed without an explicit one: a stalled CDP response should
// never hang a caller forever just because it forgot its own ctx deadline.
const DefaultResponseTimeout = 30 * time.Second

// Conn is a single WebSocket connection to a browser's DevTools endpoint,
// multiplexing concurrent RPC calls over it. Each outbound message is
// assigned a monotonically increasing id; a dedicated receive loop reads
// frames off the socket and routes each response to the one-shot channel
// the matching call is blocked on. There is no event bus: this service
// never subscribes to unsolicited CDP events, it only issues request/
// response calls, so the teacher's EventEmitter-based dispatch is replaced
// by a plain id-keyed pending map.
type Conn struct {
	logger *log.Logger

	responseTimeout time.Duration

	ws     *websocket.Conn
	sendCh chan sendReq

	pendingMu sync.Mutex
	pending   map[int64]chan *Message

	msgID int64

	closeOnce sync.Once
	done      chan struct{}
	closeErr  error
	closeMu   sync.Mutex

	group *errgroup.Group

	encoder jwriter.Writer
	decoder jlexer.Lexer
}

type sendReq struct {
	msg  *Message
	errc chan error
}

var _ cdpE.Executor = (*Conn)(nil)

// Dial opens a WebSocket connection to wsURL, the DevTools endpoint
// advertised by a browser process or a single page target, and starts its
// send/receive loops. responseTimeout bounds every subsequent rpc call
// against the returned Conn independent of the caller's own ctx; 0 falls
// back to DefaultResponseTimeout.
func Dial(ctx context.Context, wsURL string, responseTimeout time.Duration, logger *log.Logger) (*Conn, error) {
	if responseTimeout == 0 {
		responseTimeout = DefaultResponseTimeout
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 60 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
		TLSClientConfig:  (*tls.Config)(nil),
		WriteBufferSize:  writeBufferSize,
	}

	ws, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cdp: dialing %s: %w", wsURL, err)
	}

	group, gctx := errgroup.WithContext(ctx)
	c := &Conn{
		logger:          logger,
		responseTimeout: responseTimeout,
		ws:              ws,
		sendCh:          make(chan sendReq, 32),
		pending:         make(map[int64]chan *Message),
		done:            make(chan struct{}),
		group:           group,
	}

	group.Go(func() error { return c.recvLoop() })
	group.Go(func() error { return c.sendLoop(gctx) })

	return c, nil
}

// Dispose closes the WebSocket connection and fails every in-flight call
// with ErrConnectionClosed. It is idempotent.
func (c *Conn) Dispose() error {
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(10*time.Second))
		_ = c.ws.Close()
		close(c.done)

		c.pendingMu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()
	})
	c.closeMu.Lock()
	err := c.closeErr
	c.closeMu.Unlock()
	return err
}

// Wait blocks until both the send and receive loops have exited, returning
// the first error either of them observed (nil on a clean Dispose).
func (c *Conn) Wait() error {
	return c.group.Wait()
}

// Execute implements cdp.Executor for root-session (browser-target) calls:
// no SessionID is attached, which CDP treats as addressed to the browser
// itself rather than any particular page.
func (c *Conn) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	return c.call(ctx, "", method, params, res)
}

// Session returns an Executor that addresses calls to the given attached
// session (one open page target), by stamping SessionID on every outbound
// message the way the teacher's Session.Execute does.
func (c *Conn) Session(id SessionID) cdpE.Executor {
	return &session{conn: c, id: id}
}

// FireAndForget enqueues method/params for sending without registering a
// pending call to await a reply: no acknowledgement, no error propagation
// beyond a transport that is already gone. It ignores ctx deliberately —
// callers use it precisely on exit paths (a cancelled render still closing
// its IO stream) where a cancelled ctx must not prevent the send.
func (c *Conn) FireAndForget(method string, params easyjson.Marshaler) {
	c.fireAndForget("", method, params)
}

type session struct {
	conn *Conn
	id   SessionID
}

func (s *session) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	return s.conn.call(ctx, s.id, method, params, res)
}

// FireAndForget behaves like Conn.FireAndForget, addressed to this session.
func (s *session) FireAndForget(method string, params easyjson.Marshaler) {
	s.conn.fireAndForget(s.id, method, params)
}

func (c *Conn) fireAndForget(sid SessionID, method string, params easyjson.Marshaler) {
	id := atomic.AddInt64(&c.msgID, 1)

	var buf []byte
	if params != nil {
		var err error
		buf, err = easyjson.Marshal(params)
		if err != nil {
			c.logger.Errorf("cdp:send", "marshaling fire-and-forget params for %s: %v", method, err)
			return
		}
	}

	msg := &Message{ID: id, SessionID: sid, Method: cdproto.MethodType(method), Params: buf}
	errc := make(chan error, 1)
	select {
	case c.sendCh <- sendReq{msg: msg, errc: errc}:
	case <-c.done:
	case <-time.After(c.responseTimeout):
		c.logger.Warnf("cdp:send", "fire-and-forget %s dropped: send queue never drained", method)
	}
}

func (c *Conn) call(ctx context.Context, sid SessionID, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	ctx, cancel := context.WithTimeout(ctx, c.responseTimeout)
	defer cancel()

	id := atomic.AddInt64(&c.msgID, 1)

	var buf []byte
	if params != nil {
		var err error
		buf, err = easyjson.Marshal(params)
		if err != nil {
			return fmt.Errorf("cdp: marshaling params for %s: %w", method, err)
		}
	}

	ch := make(chan *Message, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	msg := &Message{
		ID:        id,
		SessionID: sid,
		Method:    cdproto.MethodType(method),
		Params:    buf,
	}

	errc := make(chan error, 1)
	select {
	case c.sendCh <- sendReq{msg: msg, errc: errc}:
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return callCtxErr(ctx, method)
	}
	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return callCtxErr(ctx, method)
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return ErrConnectionClosed
		}
		if reply.Error != nil {
			return fmt.Errorf("cdp: %s: %s", method, reply.Error.Message)
		}
		if res != nil {
			return unmarshalParams(reply.Result, res)
		}
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return callCtxErr(ctx, method)
	}
}

// callCtxErr distinguishes why ctx.Done() fired on a call bound by both the
// caller's own deadline and this Conn's responseTimeout: an expired deadline
// (this Conn's responseTimeout or the caller's own) surfaces as
// ErrCallTimeout, a caller cancellation passes through as ctx.Err().
func callCtxErr(ctx context.Context, method string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", method, ErrCallTimeout)
	}
	return ctx.Err()
}

func (c *Conn) sendLoop(ctx context.Context) error {
	for {
		select {
		case req := <-c.sendCh:
			buf, err := encode(&c.encoder, req.msg)
			if err != nil {
				req.errc <- err
				continue
			}
			c.logger.Debugf("cdp:send", "-> %s", buf)
			err = c.ws.WriteMessage(websocket.TextMessage, buf)
			req.errc <- err
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		}
	}
}

func (c *Conn) recvLoop() error {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.closeMu.Lock()
			c.closeErr = err
			c.closeMu.Unlock()
			_ = c.Dispose()
			return err
		}

		c.logger.Debugf("cdp:recv", "<- %s", raw)

		var msg Message
		if err := decode(&c.decoder, raw, &msg); err != nil {
			c.logger.Errorf("cdp:recv", "malformed message: %v", err)
			continue
		}

		if msg.ID == 0 {
			// An unsolicited event; this service never subscribes to any,
			// so there is nothing to route it to.
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[msg.ID]
		c.pendingMu.Unlock()
		if !ok {
			continue
		}
		select {
		case ch <- &msg:
		case <-c.done:
			return nil
		}
	}
}
