package page

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	cdpE "github.com/chromedp/cdproto/cdp"
	"github.com/mailru/easyjson"

	"github.com/lindholm/pdfcapture/log"
)

// scriptedExecutor dispatches CDP calls by method name, returning a canned
// JSON result for each, the way a fake CDP server would. It exists so
// page.Render's call sequence (Network.setCacheDisabled -> Page.getFrameTree
// -> Page.setDocumentContent -> [Runtime.evaluate] -> Page.printToPDF ->
// IO.read* -> IO.close) can be exercised without a real browser.
type scriptedExecutor struct {
	mu sync.Mutex

	ready bool

	pdfChunks   [][]byte
	noStream    bool
	readCalls   int
	fireAndForget []string
}

func (s *scriptedExecutor) Execute(_ context.Context, method string, _ easyjson.Marshaler, res easyjson.Unmarshaler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch method {
	case "Page.getFrameTree":
		return easyjson.Unmarshal([]byte(`{"frameTree":{"frame":{"id":"frame-1","loaderId":"loader-1","url":"about:blank","mimeType":"text/html","securityOrigin":""}}}`), res)
	case "Runtime.evaluate":
		signal := "Timed out waiting for flag"
		if s.ready {
			signal = signalReceived
		}
		return easyjson.Unmarshal([]byte(`{"result":{"type":"string","value":"`+signal+`"}}`), res)
	case "Page.printToPDF":
		if s.noStream {
			return easyjson.Unmarshal([]byte(`{"stream":""}`), res)
		}
		return easyjson.Unmarshal([]byte(`{"stream":"stream-1"}`), res)
	case "IO.read":
		i := s.readCalls
		s.readCalls++
		if i >= len(s.pdfChunks) {
			return easyjson.Unmarshal([]byte(`{"base64Encoded":true,"data":"","eof":true}`), res)
		}
		encoded := base64.StdEncoding.EncodeToString(s.pdfChunks[i])
		eof := i == len(s.pdfChunks)-1
		return easyjson.Unmarshal([]byte(`{"base64Encoded":true,"data":"`+encoded+`","eof":`+boolStr(eof)+`}`), res)
	default:
		return errors.New("scriptedExecutor: unexpected method " + method)
	}
}

func (s *scriptedExecutor) FireAndForget(method string, _ easyjson.Marshaler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fireAndForget = append(s.fireAndForget, method)
}

func (s *scriptedExecutor) sawFireAndForget(method string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.fireAndForget {
		if m == method {
			return true
		}
	}
	return false
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

var _ cdpE.Executor = (*scriptedExecutor)(nil)
var _ Executor = (*scriptedExecutor)(nil)

func TestRenderStreamsDecodedBytes(t *testing.T) {
	exec := &scriptedExecutor{pdfChunks: [][]byte{[]byte("hello "), []byte("world")}}
	sink := &BufferSink{}

	err := Render(context.Background(), exec, log.NewNullLogger(), "<html></html>", DefaultPageSettings(), JsSettings{}, sink)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(sink.Bytes()) != "hello world" {
		t.Errorf("Bytes() = %q", sink.Bytes())
	}
	if !exec.sawFireAndForget("IO.close") {
		t.Error("expected IO.close to be fired and forgotten")
	}
	if !exec.sawFireAndForget("Network.setCacheDisabled") {
		t.Error("expected Network.setCacheDisabled to be fired and forgotten")
	}
	if !exec.sawFireAndForget("Page.setDocumentContent") {
		t.Error("expected Page.setDocumentContent to be fired and forgotten")
	}
}

func TestRenderWaitsForReadinessSignal(t *testing.T) {
	exec := &scriptedExecutor{ready: true, pdfChunks: [][]byte{[]byte("ok")}}
	sink := &BufferSink{}
	js := JsSettings{WaitForCompletion: true, ReadinessFlagName: "reportIsReady", CompletionTimeout: time.Second, PollInterval: time.Millisecond}

	err := Render(context.Background(), exec, log.NewNullLogger(), "<html></html>", DefaultPageSettings(), js, sink)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(sink.Bytes()) != "ok" {
		t.Errorf("Bytes() = %q", sink.Bytes())
	}
}

func TestRenderReturnsJsTimeoutWhenNeverReady(t *testing.T) {
	exec := &scriptedExecutor{ready: false}
	sink := &BufferSink{}
	js := JsSettings{WaitForCompletion: true, ReadinessFlagName: "reportIsReady", CompletionTimeout: 20 * time.Millisecond, PollInterval: 5 * time.Millisecond}

	err := Render(context.Background(), exec, log.NewNullLogger(), "<html></html>", DefaultPageSettings(), js, sink)
	if !errors.Is(err, ErrJsTimeout) {
		t.Fatalf("err = %v, want ErrJsTimeout", err)
	}
}

func TestStreamPDFStopsWhenSinkStopped(t *testing.T) {
	exec := &scriptedExecutor{pdfChunks: [][]byte{[]byte("a"), []byte("b")}}
	sink := &BufferSink{}
	sink.Stop()

	err := streamPDF(context.Background(), exec, log.NewNullLogger(), DefaultPageSettings(), sink)
	if !errors.Is(err, ErrStreamStopped) {
		t.Fatalf("err = %v, want ErrStreamStopped", err)
	}
	if exec.readCalls != 0 {
		t.Errorf("expected no IO.read calls once the sink is already stopped, got %d", exec.readCalls)
	}
}

func TestStreamPDFCompletesOnEmptyStreamHandle(t *testing.T) {
	exec := &scriptedExecutor{noStream: true}
	sink := &BufferSink{}

	err := streamPDF(context.Background(), exec, log.NewNullLogger(), DefaultPageSettings(), sink)
	if err != nil {
		t.Fatalf("streamPDF: %v", err)
	}
	if exec.readCalls != 0 {
		t.Errorf("expected no IO.read calls for an empty stream handle, got %d", exec.readCalls)
	}
	if len(sink.Bytes()) != 0 {
		t.Errorf("Bytes() = %q, want empty", sink.Bytes())
	}
}
