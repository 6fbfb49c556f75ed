package page

import "time"

// PageSettings describes the PDF layout Page.printToPDF should produce.
// Every field maps directly onto a printToPDF parameter; this service does
// not interpret or validate layout semantics beyond what CDP itself
// enforces, matching the teacher's corpus's general "pass options through"
// stance on printer settings (alnah-go-md2pdf's PagePrintToPDF options are
// the same shape).
type PageSettings struct {
	Landscape           bool
	DisplayHeaderFooter bool
	HeaderTemplate      string
	FooterTemplate      string
	PrintBackground     bool
	Scale               float64
	PaperWidthInches    float64
	PaperHeightInches   float64
	MarginTopInches     float64
	MarginBottomInches  float64
	MarginLeftInches    float64
	MarginRightInches   float64
	PageRanges          string
	PreferCSSPageSize   bool
}

// DefaultPageSettings returns US-Letter, 0.4in-margin, background-printing
// defaults, spelled out explicitly so callers can start from a known-good
// value and override only what they care about.
func DefaultPageSettings() PageSettings {
	return PageSettings{
		PrintBackground:    true,
		Scale:              1,
		PaperWidthInches:   8.5,
		PaperHeightInches:  11,
		MarginTopInches:    0.4,
		MarginBottomInches: 0.4,
		MarginLeftInches:   0.4,
		MarginRightInches:  0.4,
	}
}

// JsSettings controls the optional readiness wait this service runs before
// printing. When WaitForCompletion is set, Render evaluates a helper inside
// the page that resolves once window[ReadinessFlagName] becomes true, or
// after CompletionTimeout elapses, and trusts nothing but that helper's
// literal result string — it never inspects or polls page state itself.
type JsSettings struct {
	WaitForCompletion bool
	ReadinessFlagName string
	CompletionTimeout time.Duration
	PollInterval      time.Duration
}

// defaultReadinessFlagName is the window-level flag the readiness helper
// looks for when the caller doesn't name one of its own.
const defaultReadinessFlagName = "reportIsReady"

func (j JsSettings) withDefaults() JsSettings {
	if j.ReadinessFlagName == "" {
		j.ReadinessFlagName = defaultReadinessFlagName
	}
	if j.CompletionTimeout == 0 {
		j.CompletionTimeout = 3 * time.Second
	}
	if j.PollInterval == 0 {
		j.PollInterval = 25 * time.Millisecond
	}
	return j
}

// BuildHeaderTemplate composes a simple header/footer HTML snippet from
// page-number/date/text fields, for callers that would rather not
// hand-author the HTML printToPDF's headerTemplate/footerTemplate expect.
// This is a convenience only: HeaderTemplate/FooterTemplate are still
// passed through to Chromium verbatim either way.
func BuildHeaderTemplate(left, center, right string) string {
	return `<div style="font-size:10px; width:100%; display:flex; justify-content:space-between; padding:0 0.4in;">` +
		`<span>` + left + `</span><span>` + center + `</span><span>` + right + `</span></div>`
}

// PageNumberFooterTemplate is a ready-made footer showing "Page X of Y",
// the single most common footer any PDF-rendering caller asks for.
func PageNumberFooterTemplate() string {
	return `<div style="font-size:10px; width:100%; text-align:center;">` +
		`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
}
