package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lindholm/pdfcapture/render"
)

func TestStatusForMapsOutcomes(t *testing.T) {
	cases := map[render.Outcome]int{
		render.ServerBusy:   http.StatusServiceUnavailable,
		render.Cancelled:    499,
		render.JsTimeout:    http.StatusRequestTimeout,
		render.BrowserError: http.StatusInternalServerError,
	}
	for outcome, want := range cases {
		if got := statusFor(outcome); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", outcome, got, want)
		}
	}
}

func TestStreamingSinkWritesHeaderOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := &streamingSink{w: rec}

	if _, err := sink.Write([]byte("a")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := sink.Write([]byte("b")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Code = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != "ab" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if sink.Stopped() {
		t.Error("a successful write should not mark the sink stopped")
	}
}

type erroringWriter struct{ http.ResponseWriter }

func (erroringWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

func TestStreamingSinkStopsOnWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := &streamingSink{w: erroringWriter{rec}}

	if _, err := sink.Write([]byte("a")); err == nil {
		t.Fatal("expected the write error to propagate")
	}
	if !sink.Stopped() {
		t.Error("expected Stopped() to be true after a write error")
	}
	if err := sink.Complete(); err != nil {
		t.Errorf("Complete: %v", err)
	}
}
