package browser

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// devToolsActivePortFile is the name Chromium writes its discovery file
// under --user-data-dir once the DevTools HTTP/WS server is listening.
const devToolsActivePortFile = "DevToolsActivePort"

// waitForDevToolsEndpoint blocks until userDataDir/DevToolsActivePort
// appears (or ctx is done) and returns the fully qualified browser-level
// WebSocket endpoint it encodes.
//
// Chromium's own file format is two lines: the ephemeral port number, then
// a path (typically "/devtools/browser/<uuid>"). This uses a filesystem
// watcher scoped to this one browser's own user-data-dir, per-instance —
// there is no process-wide singleton watcher, so two browsers launching
// concurrently never share or contend over a watch.
func waitForDevToolsEndpoint(ctx context.Context, userDataDir string) (string, error) {
	path := filepath.Join(userDataDir, devToolsActivePortFile)

	if wsURL, err := readDevToolsActivePort(path); err == nil {
		return wsURL, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("browser: creating filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(userDataDir); err != nil {
		return "", fmt.Errorf("browser: watching %q: %w", userDataDir, err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return "", fmt.Errorf("%w: watcher closed", ErrDevToolsHandshakeTimeout)
			}
			if filepath.Base(ev.Name) != devToolsActivePortFile {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			wsURL, err := readDevToolsActivePort(path)
			if err != nil {
				// Chromium writes the file in two steps (create, then write
				// its contents); a Create event can race the write. Keep
				// watching rather than failing on the first empty read.
				continue
			}
			return wsURL, nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return "", fmt.Errorf("%w: watcher closed", ErrDevToolsHandshakeTimeout)
			}
			return "", fmt.Errorf("browser: watcher error: %w", err)
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrDevToolsHandshakeTimeout, ctx.Err())
		}
	}
}

func readDevToolsActivePort(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if len(lines) < 2 {
		return "", fmt.Errorf("browser: %s has %d line(s), want 2", devToolsActivePortFile, len(lines))
	}

	port := lines[0]
	wsPath := lines[1]
	return fmt.Sprintf("ws://127.0.0.1:%s%s", port, wsPath), nil
}
