package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lindholm/pdfcapture/log"
	"github.com/lindholm/pdfcapture/metrics"
	"github.com/lindholm/pdfcapture/page"
	"github.com/lindholm/pdfcapture/render"
)

// renderRequest is the JSON body POST /render accepts: the HTML to render
// plus the subset of PageSettings/JsSettings callers commonly need to
// override. Fields left zero or absent fall back to DefaultPageSettings()
// and renderHandler.defaults.
type renderRequest struct {
	HTML                string  `json:"html"`
	Landscape           bool    `json:"landscape"`
	DisplayHeaderFooter bool    `json:"displayHeaderFooter"`
	HeaderTemplate      string  `json:"headerTemplate"`
	FooterTemplate      string  `json:"footerTemplate"`
	PrintBackground     *bool   `json:"printBackground"`
	WaitForReady        bool    `json:"waitForReady"`
	ReadinessFlagName   string  `json:"readinessFlagName"`
	WaitTimeoutMs       int     `json:"waitTimeoutMs"`
	PaperWidthInches    float64 `json:"paperWidthInches"`
	PaperHeightInches   float64 `json:"paperHeightInches"`
}

type renderHandler struct {
	svc      *render.Service
	defaults page.JsSettings
	logger   *log.Logger
	metrics  *metrics.Metrics
}

func (h *renderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondStatus(w, r, http.StatusMethodNotAllowed)
		return
	}

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondStatus(w, r, http.StatusBadRequest)
		return
	}
	if req.HTML == "" {
		h.respondStatus(w, r, http.StatusBadRequest)
		return
	}

	ps := page.DefaultPageSettings()
	ps.Landscape = req.Landscape
	ps.DisplayHeaderFooter = req.DisplayHeaderFooter
	ps.HeaderTemplate = req.HeaderTemplate
	ps.FooterTemplate = req.FooterTemplate
	if req.PrintBackground != nil {
		ps.PrintBackground = *req.PrintBackground
	}
	if req.PaperWidthInches > 0 {
		ps.PaperWidthInches = req.PaperWidthInches
	}
	if req.PaperHeightInches > 0 {
		ps.PaperHeightInches = req.PaperHeightInches
	}

	js := h.defaults
	js.WaitForCompletion = req.WaitForReady
	if req.ReadinessFlagName != "" {
		js.ReadinessFlagName = req.ReadinessFlagName
	}
	if req.WaitTimeoutMs > 0 {
		js.CompletionTimeout = time.Duration(req.WaitTimeoutMs) * time.Millisecond
	}

	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	sink := &streamingSink{w: w}
	start := time.Now()
	outcome, err := h.svc.GenerateReport(r.Context(), req.HTML, ps, js, sink)
	h.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	h.metrics.RendersTotal.WithLabelValues(outcome.String()).Inc()

	if outcome != render.Success {
		h.logger.Warnf("render:http", "request %s failed with outcome %s: %v", requestID, outcome, err)
		if !sink.wroteHeader {
			h.respondStatus(w, r, statusFor(outcome))
		}
		return
	}
	h.metrics.HTTPRequests.WithLabelValues("/render", "200").Inc()
}

func (h *renderHandler) respondStatus(w http.ResponseWriter, r *http.Request, status int) {
	w.WriteHeader(status)
	h.metrics.HTTPRequests.WithLabelValues(r.URL.Path, strconv.Itoa(status)).Inc()
}

// statusClientClosedRequest is nginx's de facto 499, not a registered
// status and so absent from net/http, but the standard way this service's
// corpus reports a caller cancelling a streamed response mid-flight.
const statusClientClosedRequest = 499

func statusFor(outcome render.Outcome) int {
	switch outcome {
	case render.ServerBusy:
		return http.StatusServiceUnavailable
	case render.Cancelled:
		return statusClientClosedRequest
	case render.JsTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// streamingSink adapts an http.ResponseWriter to page.ByteSink, writing
// the PDF straight through to the client instead of buffering it, and
// treating a client disconnect as Stopped so the render pipeline's
// IO.read loop can bail out instead of decoding bytes nobody will read.
type streamingSink struct {
	w           http.ResponseWriter
	wroteHeader bool
	stopped     bool
}

func (s *streamingSink) Write(p []byte) (int, error) {
	if !s.wroteHeader {
		s.w.Header().Set("Content-Type", "application/pdf")
		s.w.WriteHeader(http.StatusOK)
		s.wroteHeader = true
	}
	n, err := s.w.Write(p)
	if err != nil {
		s.stopped = true
	}
	return n, err
}

func (s *streamingSink) Complete() error { return nil }

func (s *streamingSink) Stopped() bool { return s.stopped }
