package scraper

import (
	"strings"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/models"
)

// RoomType classifies a room title as single, double or twin by substring
// match, first match wins. Unclassifiable titles return "".
func RoomType(title string) string {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "single"):
		return config.RoomSingle
	case strings.Contains(t, "double"):
		return config.RoomDouble
	case strings.Contains(t, "twin"):
		return config.RoomTwin
	default:
		return ""
	}
}

// Filter narrows raw offers by room-type requirement and budget, in that
// order. Excluded-class rooms are dropped up front. The second return is
// true when a non-empty candidate set was emptied by either pass.
func Filter(offers []models.Offer, requirement string, budgetEnabled bool, budgetLimit int) ([]models.Offer, bool) {
	candidates := make([]models.Offer, 0, len(offers))
	for _, o := range offers {
		if !o.Ignored {
			candidates = append(candidates, o)
		}
	}

	unmet := false
	switch requirement {
	case config.RoomSingle, config.RoomDouble, config.RoomTwin:
		matched := candidates[:0:0]
		for _, o := range candidates {
			if RoomType(o.RoomTitle) == requirement {
				matched = append(matched, o)
			}
		}
		if len(candidates) > 0 && len(matched) == 0 {
			unmet = true
		}
		candidates = matched
	}

	if budgetEnabled {
		priced := candidates[:0:0]
		for _, o := range candidates {
			if o.HasPrice() {
				priced = append(priced, o)
			}
		}
		within := priced[:0:0]
		for _, o := range priced {
			if *o.PriceValue <= budgetLimit {
				within = append(within, o)
			}
		}
		if len(priced) > 0 && len(within) == 0 {
			unmet = true
		}
		candidates = within
	}

	return candidates, unmet
}
