// Package scraper turns a rendered search-result page into structured room
// offers. Parsing is tolerant: a block that yields nothing still produces an
// offer with empty fields so price-presence bookkeeping stays consistent.
package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/models"
)

var (
	priceRe       = regexp.MustCompile(`¥\s*([\d,]+)`)
	priceTokenRe  = regexp.MustCompile(`¥\s*[\d,]+`)
	memberPriceRe = regexp.MustCompile(`(?i)Club\s*Card\s*Member\s*Price\s*(¥\s*[\d,]+)`)
	remainingRe   = regexp.MustCompile(`(?i)Only\s+\d+\s+Rooms?\s+Left`)
	reserveRe     = regexp.MustCompile(`(?i)\bReserve\b`)
	digitsRe      = regexp.MustCompile(`(\d+)`)

	yenSignalRe     = regexp.MustCompile(`¥\s*\d`)
	groupedDigitsRe = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+\b`)
)

// Extractor parses offers out of a rendered document.
type Extractor struct {
	sel RoomPlanSelectors
}

func NewExtractor(sel SelectorConfig) *Extractor {
	return &Extractor{sel: sel.RoomPlan}
}

// ParsePriceValue extracts the first yen amount from text and returns it as
// an integer. The second return is false when no parsable price is present.
func ParsePriceValue(text string) (int, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseRemaining normalizes a remaining-rooms phrase:
//
//	"Only 3 Rooms Left" -> "3"
//	"Only 1 Room Left"  -> "1"
//	"Reserve"           -> "≥10"
//
// Anything else returns "".
func ParseRemaining(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}
	low := strings.ToLower(t)
	if strings.HasPrefix(low, "only") {
		if m := digitsRe.FindStringSubmatch(t); m != nil {
			return m[1]
		}
	}
	if low == "reserve" {
		return models.RemainingReserve
	}
	return ""
}

// IsExcludedRoom reports whether a room title names an accessibility or
// special-purpose room that must not count toward availability.
func IsExcludedRoom(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "heartful") || strings.Contains(t, "accessible")
}

// HotelName pulls the hotel display name from the page heading, falling back
// to the document title. Returns "" when neither is present.
func (e *Extractor) HotelName(doc *goquery.Document) string {
	if h := strings.TrimSpace(doc.Find(e.sel.HotelName).First().Text()); h != "" {
		return h
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// DetectPriceSignal is the last-resort availability heuristic over the
// page's visible text, used only when structured parsing found no priced
// offers at all. It fires on any yen token or large grouped-digit number.
func DetectPriceSignal(visibleText string) bool {
	text := strings.Join(strings.Fields(visibleText), " ")
	return yenSignalRe.MatchString(text) || groupedDigitsRe.MatchString(text)
}

// Extract walks every room-group block and its plan rows, plus plan rows
// that appear outside any group (associated with the nearest preceding
// group title in document order). Ignored-class rooms are returned with
// Ignored set; stats record price presence across the three classes.
func (e *Extractor) Extract(doc *goquery.Document) ([]models.Offer, models.ExtractStats) {
	var offers []models.Offer
	var stats models.ExtractStats

	add := func(child *goquery.Selection, roomTitle string) {
		offer := e.extractChild(child, roomTitle)
		if offer.HasPrice() {
			stats.HadPriced = true
			if offer.Ignored {
				stats.HadExcludedPriced = true
			} else {
				stats.HadOrdinaryPriced = true
			}
		}
		offers = append(offers, offer)
	}

	seen := make(map[*html.Node]bool)
	doc.Find(e.sel.ParentCard).Each(func(_ int, card *goquery.Selection) {
		roomTitle := strings.TrimSpace(card.Find(e.sel.ParentTitle).First().Text())
		card.Find(e.sel.ChildCard).Each(func(_ int, child *goquery.Selection) {
			for _, n := range child.Nodes {
				seen[n] = true
			}
			add(child, roomTitle)
		})
	})

	// Plan rows outside any group block. The markup occasionally emits the
	// group title as a sibling instead of an ancestor.
	orphanTitles := e.precedingTitles(doc, seen)
	doc.Find(e.sel.ChildCard).Each(func(_ int, child *goquery.Selection) {
		if len(child.Nodes) == 0 || seen[child.Nodes[0]] {
			return
		}
		add(child, orphanTitles[child.Nodes[0]])
	})

	return offers, stats
}

func (e *Extractor) extractChild(child *goquery.Selection, roomTitle string) models.Offer {
	offer := models.Offer{
		RoomTitle: roomTitle,
		PlanName:  strings.TrimSpace(child.Find(e.sel.ChildTitle).First().Text()),
		Ignored:   IsExcludedRoom(roomTitle),
	}

	if block := child.Find(e.sel.PriceBlock).First(); block.Length() > 0 {
		if val := block.Find(e.sel.PriceValue).First(); val.Length() > 0 {
			offer.PriceText = strings.TrimSpace(val.Text())
		} else if m := priceTokenRe.FindString(blockText(block)); m != "" {
			offer.PriceText = strings.TrimSpace(m)
		}
	}
	if offer.PriceText != "" {
		if v, ok := ParsePriceValue(offer.PriceText); ok {
			offer.PriceValue = &v
		}
	}

	if mem := child.Find(e.sel.MemberValue).First(); mem.Length() > 0 {
		offer.MemberPriceText = strings.TrimSpace(mem.Text())
	}
	if offer.MemberPriceText == "" {
		if m := memberPriceRe.FindStringSubmatch(blockText(child)); m != nil {
			offer.MemberPriceText = strings.TrimSpace(m[1])
		}
	}

	text := blockText(child)
	if m := remainingRe.FindString(text); m != "" {
		offer.Remaining = ParseRemaining(m)
	} else if reserveRe.MatchString(text) {
		offer.Remaining = models.RemainingReserve
	}

	return offer
}

// precedingTitles maps each orphan plan-row node to the text of the nearest
// group title that precedes it in document order. A single pre-order walk
// mirrors document order.
func (e *Extractor) precedingTitles(doc *goquery.Document, grouped map[*html.Node]bool) map[*html.Node]string {
	titleOf := make(map[*html.Node]string)
	doc.Find(e.sel.ParentTitle).Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			titleOf[n] = strings.TrimSpace(s.Text())
		}
	})
	orphan := make(map[*html.Node]bool)
	doc.Find(e.sel.ChildCard).Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			if !grouped[n] {
				orphan[n] = true
			}
		}
	})

	out := make(map[*html.Node]string, len(orphan))
	var last string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if t, ok := titleOf[n]; ok {
			last = t
		}
		if orphan[n] {
			out[n] = last
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}
	return out
}

// blockText joins all descendant text with single spaces, so phrases split
// across inline elements still match the textual patterns above.
func blockText(s *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range s.Nodes {
		collectText(n, &sb)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
