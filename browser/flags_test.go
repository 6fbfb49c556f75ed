package browser

import (
	"strings"
	"testing"
)

func TestDefaultFlagsHeadlessExtras(t *testing.T) {
	f := defaultFlags(true, false, false, 800, 600)
	if _, ok := f["hide-scrollbars"]; !ok {
		t.Error("expected hide-scrollbars when headless")
	}
	if f["headless"] != true {
		t.Error("expected headless=true")
	}
	if f["window-size"] != "800,600" {
		t.Errorf("window-size = %v", f["window-size"])
	}
}

func TestDefaultFlagsNonHeadlessOmitsExtras(t *testing.T) {
	f := defaultFlags(false, false, false, 800, 600)
	if _, ok := f["hide-scrollbars"]; ok {
		t.Error("hide-scrollbars should be absent when not headless")
	}
}

func TestDefaultFlagsSandboxAndShm(t *testing.T) {
	f := defaultFlags(true, true, true, 800, 600)
	if f["no-sandbox"] != true {
		t.Error("expected no-sandbox when NoSandbox requested")
	}
	if f["disable-dev-shm-usage"] != true {
		t.Error("expected disable-dev-shm-usage when requested")
	}
}

func TestBuildArgsEncodesStringsAndBools(t *testing.T) {
	flags := map[string]any{
		"headless":    true,
		"password-store": "basic",
		"no-sandbox":  false,
	}
	args, err := buildArgs(flags, "/tmp/profile")
	if err != nil {
		t.Fatalf("buildArgs: %v", err)
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--headless") {
		t.Error("expected --headless")
	}
	if !strings.Contains(joined, "--password-store=basic") {
		t.Error("expected --password-store=basic")
	}
	if strings.Contains(joined, "--no-sandbox") {
		t.Error("no-sandbox=false should not produce a flag")
	}
	if !strings.Contains(joined, "--user-data-dir=/tmp/profile") {
		t.Error("expected user-data-dir flag")
	}
	if !strings.Contains(joined, "--remote-debugging-port=0") {
		t.Error("expected auto-added remote-debugging-port=0")
	}
}

func TestBuildArgsRejectsUnsupportedValueType(t *testing.T) {
	_, err := buildArgs(map[string]any{"bad": 42}, "/tmp/profile")
	if err == nil {
		t.Fatal("expected an error for a non-string/bool flag value")
	}
}

func TestBuildArgsRespectsExplicitDebugPort(t *testing.T) {
	flags := map[string]any{"remote-debugging-port": "9222"}
	args, err := buildArgs(flags, "/tmp/profile")
	if err != nil {
		t.Fatalf("buildArgs: %v", err)
	}
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "--remote-debugging-port=0") {
		t.Error("should not auto-add remote-debugging-port=0 when caller set one")
	}
}
