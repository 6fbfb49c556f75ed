package page

import (
	"context"
	"fmt"
	"strconv"

	cdpE "github.com/chromedp/cdproto/cdp"
	cdpio "github.com/chromedp/cdproto/io"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"

	"github.com/lindholm/pdfcapture/cdp"
	"github.com/lindholm/pdfcapture/log"
)

// ioReadChunkSize is how many bytes each IO.read call asks Chromium for.
const ioReadChunkSize = 51200

// signalReceived is the only string the readiness helper is trusted to
// return: anything else, including an empty result, means the window flag
// it polled for never became true before its timeout.
const signalReceived = "Signal received"

// Render drives one attached page session through the full print pipeline:
// send Network.setCacheDisabled(false), which leaves the HTTP cache enabled,
// set the HTML as the document, optionally wait for
// a JS readiness signal, call Page.printToPDF in streamed mode, and copy
// the decoded PDF bytes into sink as they arrive. It does not open or close
// the page target itself — that is the caller's (render.Service's) job,
// since the target's lifetime is tied to the browser pool, not to one
// render.
func Render(ctx context.Context, exec Executor, logger *log.Logger, html string, ps PageSettings, js JsSettings, sink ByteSink) error {
	exec.FireAndForget("Network.setCacheDisabled", network.SetCacheDisabled(false))

	tree, err := page.GetFrameTree().Do(cdpE.WithExecutor(ctx, exec))
	if err != nil {
		return fmt.Errorf("page: getting frame tree: %w", err)
	}

	exec.FireAndForget("Page.setDocumentContent", page.SetDocumentContent(tree.Frame.ID, html))

	if js.WaitForCompletion {
		if err := waitForSignal(ctx, exec, js); err != nil {
			return err
		}
	}

	return streamPDF(ctx, exec, logger, ps, sink)
}

// waitForSignal issues a single Runtime.evaluate of a helper keyed to
// js.ReadinessFlagName, and trusts nothing from it but the literal string
// signalReceived. The helper itself owns the wait: it polls
// window[flagName] internally and resolves once it is true or once
// js.CompletionTimeout elapses, so this is one RPC round trip regardless of
// how long the page takes to become ready.
func waitForSignal(ctx context.Context, exec cdpE.Executor, js JsSettings) error {
	js = js.withDefaults()

	result, exc, err := runtime.Evaluate(readinessHelper(js)).
		WithAwaitPromise(true).
		WithReturnByValue(true).
		Do(cdpE.WithExecutor(ctx, exec))
	if err != nil {
		return fmt.Errorf("page: evaluating readiness helper: %w", err)
	}
	if exc != nil {
		return fmt.Errorf("page: %s", exc.Text)
	}

	var signal string
	if result != nil {
		_ = jsonUnquote(result.Value, &signal)
	}
	if signal != signalReceived {
		return ErrJsTimeout
	}
	return nil
}

// readinessHelper builds the JS expression Render evaluates to wait for
// js.ReadinessFlagName, entirely inside the page's own event loop: the core
// never polls the page itself, it issues this once and awaits the promise.
func readinessHelper(js JsSettings) string {
	flag := strconv.Quote(js.ReadinessFlagName)
	timeoutMs := js.CompletionTimeout.Milliseconds()
	pollMs := js.PollInterval.Milliseconds()
	if pollMs < 1 {
		pollMs = 1
	}
	return `(function(){` +
		`var flag=` + flag + `,deadline=Date.now()+` + strconv.FormatInt(timeoutMs, 10) + `;` +
		`return new Promise(function(resolve){` +
		`(function poll(){` +
		`if(window[flag]){resolve(` + strconv.Quote(signalReceived) + `);return;}` +
		`if(Date.now()>=deadline){resolve("Timed out waiting for "+flag);return;}` +
		`setTimeout(poll,` + strconv.FormatInt(pollMs, 10) + `);` +
		`})();` +
		`});` +
		`})()`
}

// jsonUnquote decodes a JSON-encoded string literal produced by
// Runtime.evaluate's returnByValue result. It is not general-purpose JSON
// decoding: the helper is only ever asked to return a string.
func jsonUnquote(raw []byte, out *string) error {
	if len(raw) == 0 {
		return nil
	}
	s, err := strconv.Unquote(string(raw))
	if err != nil {
		return fmt.Errorf("page: decoding readiness result %s: %w", raw, err)
	}
	*out = s
	return nil
}

// streamPDF issues Page.printToPDF in streamed mode and copies the decoded
// PDF bytes into sink, one IO.read chunk at a time, rather than collecting
// the whole document in Chromium's memory first — large PDFs are not
// unusual, and printToPDF's non-streamed mode returns the entire file as
// one base64 string in the CDP response, which this service avoids.
func streamPDF(ctx context.Context, exec Executor, logger *log.Logger, ps PageSettings, sink ByteSink) error {
	params := page.PrintToPDF().
		WithLandscape(ps.Landscape).
		WithDisplayHeaderFooter(ps.DisplayHeaderFooter).
		WithHeaderTemplate(ps.HeaderTemplate).
		WithFooterTemplate(ps.FooterTemplate).
		WithPrintBackground(ps.PrintBackground).
		WithScale(ps.Scale).
		WithPaperWidth(ps.PaperWidthInches).
		WithPaperHeight(ps.PaperHeightInches).
		WithMarginTop(ps.MarginTopInches).
		WithMarginBottom(ps.MarginBottomInches).
		WithMarginLeft(ps.MarginLeftInches).
		WithMarginRight(ps.MarginRightInches).
		WithPageRanges(ps.PageRanges).
		WithPreferCSSPageSize(ps.PreferCSSPageSize).
		WithTransferMode(page.PrintToPDFTransferModeReturnAsStream)

	_, stream, err := params.Do(cdpE.WithExecutor(ctx, exec))
	if err != nil {
		return fmt.Errorf("page: printToPDF: %w", err)
	}

	if stream == "" {
		logger.Debugf("page:render", "printToPDF returned no stream handle, 0 bytes")
		return sink.Complete()
	}

	return copyStream(ctx, exec, logger, stream, sink)
}

func copyStream(ctx context.Context, exec Executor, logger *log.Logger, stream cdpio.StreamHandle, sink ByteSink) error {
	defer exec.FireAndForget("IO.close", cdpio.Close(stream))

	var decoder cdp.Base64Decoder
	for {
		if sink.Stopped() {
			return ErrStreamStopped
		}

		var readResult cdpio.ReadReturns
		readErr := cdpE.Execute(cdpE.WithExecutor(ctx, exec), cdpio.CommandRead, cdpio.Read(stream).WithSize(ioReadChunkSize), &readResult)
		if readErr != nil {
			return fmt.Errorf("page: IO.read: %w", readErr)
		}
		encoded, data, eof := readResult.Base64encoded, readResult.Data, readResult.EOF

		chunk := []byte(data)
		if encoded {
			var err error
			chunk, err = decoder.Push(chunk)
			if err != nil {
				return err
			}
		}

		if len(chunk) > 0 {
			if _, err := sink.Write(chunk); err != nil {
				return fmt.Errorf("page: writing to sink: %w", err)
			}
		}

		if eof {
			if encoded {
				tail, err := decoder.Close()
				if err != nil {
					return err
				}
				if len(tail) > 0 {
					if _, err := sink.Write(tail); err != nil {
						return fmt.Errorf("page: writing to sink: %w", err)
					}
				}
			}
			logger.Debugf("page:render", "printToPDF stream complete")
			return sink.Complete()
		}
	}
}
