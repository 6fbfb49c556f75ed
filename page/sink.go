package page

// ByteSink is the backpressure-aware capability Page.Render writes decoded
// PDF bytes into. It is an interface rather than a concrete io.Writer so a
// caller can apply its own flow control (an HTTP ResponseWriter backed by a
// bounded connection, a rate-limited upload, an in-memory buffer) without
// the render pipeline needing to know which.
type ByteSink interface {
	// Write delivers the next chunk of decoded PDF bytes. It may block to
	// apply backpressure; a non-nil error aborts the render.
	Write(p []byte) (int, error)
	// Complete is called exactly once, after the last successful Write,
	// to signal the stream is finished.
	Complete() error
	// Stopped reports whether the sink has already given up (e.g. the
	// downstream HTTP client disconnected), letting the pipeline bail out
	// of its IO.read loop instead of decoding bytes nobody wants.
	Stopped() bool
}

// BufferSink is a ByteSink that accumulates everything in memory, for
// callers (tests, the one-shot CLI) that want the whole PDF as a []byte
// rather than a stream.
type BufferSink struct {
	buf     []byte
	stopped bool
}

func (s *BufferSink) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *BufferSink) Complete() error { return nil }

func (s *BufferSink) Stopped() bool { return s.stopped }

// Stop marks the sink as no longer accepting data, causing the in-flight
// render's IO.read loop to stop early.
func (s *BufferSink) Stop() { s.stopped = true }

// Bytes returns everything written so far.
func (s *BufferSink) Bytes() []byte { return s.buf }
