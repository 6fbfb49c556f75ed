package render

// Outcome classifies how a GenerateReport call ended. It is a small sum
// type rather than a bare error so a caller (the HTTP daemon, the CLI, a
// metrics collector) can map it onto the wire status it needs — busy vs.
// crashed vs. timed out each deserve a different HTTP status and retry
// policy — without parsing error strings or chaining errors.Is calls of
// its own.
type Outcome int

const (
	// Success means the sink received a complete PDF.
	Success Outcome = iota
	// ServerBusy means the browser pool, or the chosen browser's page pool,
	// reported its limit reached after its bounded retries while the
	// caller's context was still live; the caller should retry, possibly
	// against a different instance of this service.
	ServerBusy
	// Cancelled means the caller's context ended (cancelled or past its
	// deadline) or the sink stopped accepting bytes before the PDF was
	// complete; bytes already written to the sink are not a full PDF.
	Cancelled
	// BrowserError means the browser crashed, its CDP connection dropped,
	// or a CDP call it was asked to make failed — anything that isn't a
	// JS-readiness timeout or a caller-side cancellation.
	BrowserError
	// JsTimeout means the page never satisfied its JsSettings.ReadinessFlagName
	// readiness poll within JsSettings.CompletionTimeout.
	JsTimeout
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ServerBusy:
		return "server_busy"
	case Cancelled:
		return "cancelled"
	case BrowserError:
		return "browser_error"
	case JsTimeout:
		return "js_timeout"
	default:
		return "unknown"
	}
}
