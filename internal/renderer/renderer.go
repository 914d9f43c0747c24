// Package renderer fetches a URL through a headless browser and returns the
// rendered markup plus the page's visible text. Two engines are available:
// a long-lived chromedp session reused across fetches, and a playwright
// engine that launches a fresh browser per fetch.
package renderer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
)

// Page is the outcome of one rendered fetch.
type Page struct {
	HTML        string
	VisibleText string
}

// Renderer renders URLs. Implementations are safe for use from a single
// polling goroutine; Close releases any underlying browser session.
type Renderer interface {
	Render(ctx context.Context, url string) (Page, error)
	Close() error
}

// Options carries the engine-independent knobs.
type Options struct {
	UserAgent string
	ProxyURL  string
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// selector the engines wait on before snapshotting; a price value span is
// the last thing the result page hydrates.
const settleSelector = `span[class*="SearchResultRoomPlanChildCard_value"]`

// New builds the renderer for the configured engine. A session engine that
// cannot start its browser fails here, which aborts the caller's start.
func New(cfg config.Config, log zerolog.Logger) (Renderer, error) {
	opts := Options{UserAgent: defaultUserAgent}
	if cfg.EnableProxy && cfg.ProxyURL != "" {
		opts.ProxyURL = cfg.ProxyURL
	}

	switch cfg.Engine {
	case config.EngineChromedp:
		return newChromedpRenderer(opts, log)
	case config.EnginePlaywright:
		return newPlaywrightRenderer(opts, log)
	default:
		return nil, fmt.Errorf("unknown rendering engine %q", cfg.Engine)
	}
}
