// Command pdfcapture renders a single HTML file to PDF using one
// short-lived Chromium instance, for one-shot and scripted use. The
// long-running pool/daemon variant of this service is cmd/pdfcaptured.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lindholm/pdfcapture/browser"
	"github.com/lindholm/pdfcapture/errext"
	"github.com/lindholm/pdfcapture/errext/exitcodes"
	"github.com/lindholm/pdfcapture/log"
	"github.com/lindholm/pdfcapture/page"
	"github.com/lindholm/pdfcapture/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		msg, fields := errext.Format(err)
		fmt.Fprintln(os.Stderr, msg)
		for k, v := range fields {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", k, v)
		}
		os.Exit(exitCodeOf(err))
	}
}

func exitCodeOf(err error) int {
	var ecerr errext.HasExitCode
	if errors.As(err, &ecerr) {
		return int(ecerr.ExitCode())
	}
	return int(exitcodes.RenderFailed)
}

type captureFlags struct {
	output       string
	headless     bool
	noSandbox    bool
	landscape    bool
	printBG      bool
	waitForReady bool
	readyFlag    string
	waitTimeout  time.Duration
	launchWait   time.Duration
	execPath     string
}

func newRootCmd() *cobra.Command {
	f := &captureFlags{}

	cmd := &cobra.Command{
		Use:   "pdfcapture <input.html>",
		Short: "Render an HTML file to a PDF using headless Chromium",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd.Context(), args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output PDF path (default: input with .pdf extension)")
	cmd.Flags().BoolVar(&f.headless, "headless", true, "run Chromium headless")
	cmd.Flags().BoolVar(&f.noSandbox, "no-sandbox", false, "pass --no-sandbox to Chromium (containers without a sandbox)")
	cmd.Flags().BoolVar(&f.landscape, "landscape", false, "print in landscape orientation")
	cmd.Flags().BoolVar(&f.printBG, "print-background", true, "include CSS backgrounds in the output")
	cmd.Flags().BoolVar(&f.waitForReady, "wait-for-ready", false, "wait for a window readiness flag before printing")
	cmd.Flags().StringVar(&f.readyFlag, "ready-flag", "reportIsReady", "window property --wait-for-ready polls for")
	cmd.Flags().DurationVar(&f.waitTimeout, "wait-timeout", 3*time.Second, "timeout for --wait-for-ready")
	cmd.Flags().DurationVar(&f.launchWait, "launch-timeout", 30*time.Second, "timeout waiting for Chromium to start")
	cmd.Flags().StringVar(&f.execPath, "executable-path", "", "path to the Chromium/Chrome binary (default: auto-detect)")

	return cmd
}

func runCapture(parentCtx context.Context, inputPath string, f *captureFlags) error {
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	html, err := os.ReadFile(inputPath) //nolint:gosec
	if err != nil {
		return errext.WithExitCodeIfNone(fmt.Errorf("reading %s: %w", inputPath, err), exitcodes.InvalidConfig)
	}

	outputPath := f.output
	if outputPath == "" {
		outputPath = outputPathFor(inputPath)
	}

	logger := log.New(logrus.New(), nil)

	proc, err := browser.Launch(ctx, browser.LaunchOptions{
		ExecutablePath: f.execPath,
		Headless:       f.headless,
		NoSandbox:      f.noSandbox,
		Timeout:        f.launchWait,
	}, logger)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.BrowserLaunchFailed)
	}
	defer func() { _ = proc.GracefulClose(5 * time.Second) }()

	_, exec, err := proc.NewPage(ctx)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.BrowserLaunchFailed)
	}

	ps := page.DefaultPageSettings()
	ps.Landscape = f.landscape
	ps.PrintBackground = f.printBG

	js := page.JsSettings{WaitForCompletion: f.waitForReady, ReadinessFlagName: f.readyFlag, CompletionTimeout: f.waitTimeout}

	sink := &page.BufferSink{}
	if err := page.Render(ctx, exec, logger, string(html), ps, js, sink); err != nil {
		if errors.Is(err, page.ErrJsTimeout) {
			return errext.WithExitCodeIfNone(err, exitcodes.RenderTimedOut)
		}
		return errext.WithExitCodeIfNone(err, exitcodes.RenderFailed)
	}

	persister := storage.LocalFilePersister{}
	if err := persister.Persist(ctx, outputPath, bytes.NewReader(sink.Bytes())); err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.RenderFailed)
	}

	fmt.Fprintf(os.Stdout, "%s\n", outputPath)
	return nil
}

func outputPathFor(inputPath string) string {
	ext := len(inputPath)
	for i := len(inputPath) - 1; i >= 0; i-- {
		if inputPath[i] == '.' {
			ext = i
			break
		}
		if inputPath[i] == '/' {
			break
		}
	}
	return inputPath[:ext] + ".pdf"
}
