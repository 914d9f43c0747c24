// Package checker runs the full pipeline for a single hotel: build the
// search URL, render the page, extract offers, apply filters and assemble
// the per-hotel result. Renderer failures degrade to an unknown result so
// the polling loop keeps going.
package checker

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/models"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/renderer"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/scraper"
)

const baseURL = "https://www.toyoko-inn.com/eng/search/result/room_plan/"

// BuildURL assembles the room-plan query URL for one hotel and date range.
// Parameter order is fixed; the site is sensitive to it in practice.
func BuildURL(cfg config.Config, code string) string {
	return fmt.Sprintf("%s?hotel=%s&people=%d&room=%d&smoking=%s&start=%s&end=%s",
		baseURL, code, cfg.People, cfg.Rooms, cfg.Smoking, cfg.StartDate, cfg.EndDate)
}

// Checker checks one hotel at a time against a shared renderer.
type Checker struct {
	renderer  renderer.Renderer
	extractor *scraper.Extractor
	log       zerolog.Logger
}

func New(r renderer.Renderer, sel scraper.SelectorConfig, log zerolog.Logger) *Checker {
	return &Checker{
		renderer:  r,
		extractor: scraper.NewExtractor(sel),
		log:       log,
	}
}

// Check produces the HotelResult for one hotel under the round's config
// snapshot. It never returns an error: a failed fetch or parse yields a
// degraded result with unknown availability.
func (c *Checker) Check(ctx context.Context, cfg config.Config, code string) models.HotelResult {
	url := BuildURL(cfg, code)

	page, err := c.renderer.Render(ctx, url)
	if err != nil {
		c.log.Warn().Err(err).Str("hotel", code).Msg("render failed, reporting unknown availability")
		return models.DegradedResult(code, url)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		c.log.Warn().Err(err).Str("hotel", code).Msg("markup parse failed, reporting unknown availability")
		return models.DegradedResult(code, url)
	}

	result := models.HotelResult{
		Code: code,
		URL:  url,
		Name: c.extractor.HotelName(doc),
	}

	offers, stats := c.extractor.Extract(doc)
	filtered, unmet := scraper.Filter(offers, cfg.RoomRequirement, cfg.BudgetEnabled, cfg.BudgetLimit)
	reduced := scraper.Reduce(filtered)
	result.RequirementUnmet = unmet
	result.OffersDisplay = scraper.DisplayList(reduced)

	// Priced inventory that is exclusively excluded-class must never read
	// as availability, even when a best offer exists.
	excludedOnly := stats.HadPriced && !stats.HadOrdinaryPriced && stats.HadExcludedPriced

	if len(reduced) > 0 && !excludedOnly {
		best := reduced[0]
		result.Available = models.Available
		result.MinPrice = best.PriceValue
		result.MinPriceText = best.PriceText
		result.MinPriceRoom = best.RoomTitle
		result.MinPricePlan = best.PlanName
		result.MinMemberPriceText = best.MemberPriceText
		result.MinRemaining = best.Remaining
		return result
	}

	if excludedOnly {
		result.Available = models.Unavailable
	} else if scraper.DetectPriceSignal(page.VisibleText) {
		result.Available = models.Available
	} else {
		result.Available = models.Unavailable
	}
	return result
}
