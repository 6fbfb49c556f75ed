package browser

import (
	"os"
	"os/exec"
	"path/filepath"
)

// candidateExecutables is checked in order; the first name resolvable via
// exec.LookPath wins. Mirrors the teacher's findExecPath/executablePath
// search lists, which themselves follow Puppeteer's.
var candidateExecutables = [...]string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
	"/usr/bin/google-chrome",

	"chrome",
	"chrome.exe",
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,

	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// FindBrowserExecutable locates a Chromium-family binary on the host.
// explicit, if non-empty, is used as-is without further searching — a
// caller-configured path always wins. Returns ErrExecutableNotFound if
// nothing usable is found.
func FindBrowserExecutable(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if p := os.Getenv("USERPROFILE"); p != "" {
		winPath := filepath.Join(p, `AppData\Local\Google\Chrome\Application\chrome.exe`)
		if _, err := exec.LookPath(winPath); err == nil {
			return winPath, nil
		}
	}

	for _, path := range candidateExecutables {
		if _, err := exec.LookPath(path); err == nil {
			return path, nil
		}
	}

	return "", ErrExecutableNotFound
}
