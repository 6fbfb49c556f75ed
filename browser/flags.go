package browser

import "fmt"

// defaultFlags is the fixed set of Chromium command-line flags this service
// launches every browser with, after Puppeteer's/Playwright's well-known
// "headless automation" default set (the same list the teacher's
// prepareFlags builds), minus anything that only makes sense when a caller
// can override launch args per-request — this service always launches with
// exactly one fixed profile, it never forwards caller-chosen CLI flags.
func defaultFlags(headless bool, noSandbox, disableDevShmUsage bool, windowWidth, windowHeight int) map[string]any {
	f := map[string]any{
		"disable-background-networking":                      true,
		"enable-features":                                    "NetworkService,NetworkServiceInProcess",
		"disable-background-timer-throttling":                true,
		"disable-backgrounding-occluded-windows":             true,
		"disable-breakpad":                                   true,
		"disable-component-extensions-with-background-pages": true,
		"disable-default-apps":                               true,
		"disable-extensions":                                 true,
		"disable-features":                "ImprovedCookieControls,LazyFrameLoading,GlobalMediaControls,DestroyProfileOnBrowserClose,MediaRouter,AcceptCHFrame",
		"disable-hang-monitor":            true,
		"disable-ipc-flooding-protection": true,
		"disable-popup-blocking":          true,
		"disable-prompt-on-repost":        true,
		"disable-renderer-backgrounding":  true,
		"force-color-profile":             "srgb",
		"metrics-recording-only":          true,
		"no-first-run":                    true,
		"no-default-browser-check":        true,
		"no-service-autorun":              true,
		"no-startup-window":               true,
		"password-store":                  "basic",
		"use-mock-keychain":               true,
		"headless":                        headless,
		"window-size":                     fmt.Sprintf("%d,%d", windowWidth, windowHeight),
	}
	if disableDevShmUsage {
		f["disable-dev-shm-usage"] = true
	}
	if headless {
		f["hide-scrollbars"] = true
		f["mute-audio"] = true
		f["blink-settings"] = "primaryHoverType=2,availableHoverTypes=2,primaryPointerType=4,availablePointerTypes=4"
	}
	if noSandbox {
		f["no-sandbox"] = true
	}
	return f
}

// buildArgs turns a flag map into a CLI argument slice, in the same
// string/bool-only encoding the teacher's parseArgs uses, plus the two
// auto-added flags required by the DevTools handshake: a file-based
// discovery port and a writable directory to put that file in.
func buildArgs(flags map[string]any, userDataDir string) ([]string, error) {
	args := make([]string, 0, len(flags)+2)
	for name, value := range flags {
		switch v := value.(type) {
		case string:
			args = append(args, fmt.Sprintf("--%s=%s", name, v))
		case bool:
			if v {
				args = append(args, fmt.Sprintf("--%s", name))
			}
		default:
			return nil, fmt.Errorf("browser: invalid flag value for %q: %T", name, value)
		}
	}

	args = append(args, fmt.Sprintf("--user-data-dir=%s", userDataDir))

	// --remote-debugging-port=0 asks Chromium to pick an ephemeral port and
	// record it, together with the WS endpoint path, in a file named
	// DevToolsActivePort under --user-data-dir. That file, not chromium's
	// stdout, is what browser/discover.go watches for.
	if _, ok := flags["remote-debugging-port"]; !ok {
		args = append(args, "--remote-debugging-port=0")
	}

	return args, nil
}
