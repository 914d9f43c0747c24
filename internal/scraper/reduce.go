package scraper

import (
	"sort"
	"strings"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/models"
)

// Reduce deduplicates filtered offers by case-folded room title, keeping the
// cheapest per title, and returns them sorted price-ascending. Offers
// without a parsable price cannot be ranked and are dropped here. The first
// element, when present, is the canonical best offer.
func Reduce(offers []models.Offer) []models.Offer {
	bestByRoom := make(map[string]models.Offer)
	order := make([]string, 0, len(offers))
	for _, o := range offers {
		if !o.HasPrice() {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(o.RoomTitle))
		prev, ok := bestByRoom[key]
		if !ok {
			bestByRoom[key] = o
			order = append(order, key)
			continue
		}
		if *o.PriceValue < *prev.PriceValue {
			bestByRoom[key] = o
		}
	}

	deduped := make([]models.Offer, 0, len(order))
	for _, key := range order {
		deduped = append(deduped, bestByRoom[key])
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return *deduped[i].PriceValue < *deduped[j].PriceValue
	})
	return deduped
}

// DisplayList projects reduced offers into their presentation shape.
func DisplayList(offers []models.Offer) []models.OfferDisplay {
	out := make([]models.OfferDisplay, 0, len(offers))
	for _, o := range offers {
		out = append(out, models.OfferDisplay{
			PriceText:       o.PriceText,
			MemberPriceText: o.MemberPriceText,
			Remaining:       o.Remaining,
			RoomTitle:       o.RoomTitle,
		})
	}
	return out
}
