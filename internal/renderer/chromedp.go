package renderer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// chromedpRenderer keeps a single browser session alive across fetches and
// opens a fresh tab per URL. Render is serialized with a mutex so the
// session is never shared between overlapping calls.
type chromedpRenderer struct {
	mu          sync.Mutex
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancelBrows context.CancelFunc
	log         zerolog.Logger
}

const (
	chromedpNavigateTimeout = 30 * time.Second
	chromedpSettleTimeout   = 5 * time.Second
	chromedpSettleSleep     = 1500 * time.Millisecond
)

func newChromedpRenderer(opts Options, log zerolog.Logger) (*chromedpRenderer, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 1800),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.ProxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyURL))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrows := chromedp.NewContext(allocCtx)

	// Start the browser now so a broken Chrome install fails the start
	// instead of the first poll.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrows()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start chrome session: %w", err)
	}

	log.Debug().Msg("chrome session started")
	return &chromedpRenderer{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancelBrows: cancelBrows,
		log:         log,
	}, nil
}

func (r *chromedpRenderer) Render(ctx context.Context, url string) (Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tab, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	// Tie the tab to the caller's context so a stop request interrupts an
	// in-flight navigation.
	go func() {
		select {
		case <-ctx.Done():
			cancelTab()
		case <-tab.Done():
		}
	}()

	navCtx, cancelNav := context.WithTimeout(tab, chromedpNavigateTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return Page{}, fmt.Errorf("navigation failed for %s: %w", url, err)
	}

	// Best effort: the offer cards hydrate after load. A timeout here is
	// normal on sold-out pages that render no price spans.
	settleCtx, cancelSettle := context.WithTimeout(tab, chromedpSettleTimeout)
	if err := chromedp.Run(settleCtx, chromedp.WaitVisible(settleSelector, chromedp.ByQuery)); err != nil {
		r.log.Debug().Str("url", url).Msg("no price elements appeared before settle timeout")
	}
	cancelSettle()

	var html, text string
	snapCtx, cancelSnap := context.WithTimeout(tab, chromedpNavigateTimeout)
	defer cancelSnap()
	if err := chromedp.Run(snapCtx,
		chromedp.Sleep(chromedpSettleSleep),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Text("body", &text, chromedp.ByQuery),
	); err != nil {
		return Page{}, fmt.Errorf("snapshot failed for %s: %w", url, err)
	}

	if strings.TrimSpace(text) == "" {
		text = VisibleText(html)
	}
	return Page{HTML: html, VisibleText: text}, nil
}

func (r *chromedpRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelBrows()
	r.cancelAlloc()
	r.log.Debug().Msg("chrome session closed")
	return nil
}
