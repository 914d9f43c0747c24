package renderer

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

// playwrightRenderer runs the playwright driver for the renderer's lifetime
// but launches a fresh browser per fetch, trading speed for a clean profile
// on every request.
type playwrightRenderer struct {
	pw   *playwright.Playwright
	opts Options
	log  zerolog.Logger
}

const (
	playwrightGotoTimeout   = 30000.0 // ms
	playwrightSettleTimeout = 5000.0
)

func newPlaywrightRenderer(opts Options, log zerolog.Logger) (*playwrightRenderer, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}
	log.Debug().Msg("playwright driver started")
	return &playwrightRenderer{pw: pw, opts: opts, log: log}, nil
}

func (r *playwrightRenderer) Render(ctx context.Context, url string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	}
	if r.opts.ProxyURL != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: r.opts.ProxyURL}
	}
	browser, err := r.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return Page{}, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer browser.Close()

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(r.opts.UserAgent),
		Viewport:  &playwright.Size{Width: 1280, Height: 1800},
	})
	if err != nil {
		return Page{}, fmt.Errorf("failed to create browser context: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return Page{}, fmt.Errorf("failed to open page: %w", err)
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(playwrightGotoTimeout),
	}); err != nil {
		return Page{}, fmt.Errorf("navigation failed for %s: %w", url, err)
	}

	// Best effort, same as the chromedp engine: sold-out pages never
	// hydrate a price span.
	if err := page.Locator(settleSelector).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(playwrightSettleTimeout),
	}); err != nil {
		r.log.Debug().Str("url", url).Msg("no price elements appeared before settle timeout")
	}

	html, err := page.Content()
	if err != nil {
		return Page{}, fmt.Errorf("failed to read page content for %s: %w", url, err)
	}
	text, err := page.Locator("body").InnerText()
	if err != nil || strings.TrimSpace(text) == "" {
		text = VisibleText(html)
	}
	return Page{HTML: html, VisibleText: text}, nil
}

func (r *playwrightRenderer) Close() error {
	if err := r.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright driver: %w", err)
	}
	r.log.Debug().Msg("playwright driver stopped")
	return nil
}
