// Package raster converts the rendered calendar page to a PNG using a
// headless Chromium instance driven by chromedp.
package raster

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultTimeout = 30 * time.Second

// Options defines one screenshot capture.
type Options struct {
	// URL of the calendar page, e.g. "http://127.0.0.1:8080/calendar".
	URL string

	// OutputPath is where the PNG will be written.
	OutputPath string

	// Width and Height are the viewport dimensions, matching the SVG
	// canvas so the screenshot contains exactly the calendar.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means defaultTimeout.
	Timeout time.Duration
}

// CapturePNG navigates to opts.URL, waits for the page to flag itself
// ready via a data-ready="true" attribute, and writes a full screenshot to
// opts.OutputPath.
func CapturePNG(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("raster: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("raster: OutputPath is required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("raster: viewport %dx%d is invalid", opts.Width, opts.Height)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Small extra delay for final paints.
		chromedp.Sleep(250 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("raster: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("raster: write PNG: %w", err)
	}
	return nil
}
