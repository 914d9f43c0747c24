package notifier

import (
	"fmt"
	"strings"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/alert"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/models"
)

// OfferLines renders the qualifying offers of a result as bullet lines,
// falling back to the single best-offer fields when no display list exists.
func OfferLines(r models.HotelResult) []string {
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}

	if len(r.OffersDisplay) > 0 {
		lines := make([]string, 0, len(r.OffersDisplay))
		for _, o := range r.OffersDisplay {
			if o.MemberPriceText != "" {
				lines = append(lines, fmt.Sprintf("• %s | %s (%s) | Left: %s",
					orDash(o.RoomTitle), orDash(o.PriceText), o.MemberPriceText, orDash(o.Remaining)))
			} else {
				lines = append(lines, fmt.Sprintf("• %s | %s | Left: %s",
					orDash(o.RoomTitle), orDash(o.PriceText), orDash(o.Remaining)))
			}
		}
		return lines
	}

	if r.MinMemberPriceText != "" {
		return []string{fmt.Sprintf("• %s | %s (%s) | Left: %s",
			orDash(r.MinPriceRoom), orDash(r.MinPriceText), r.MinMemberPriceText, orDash(r.MinRemaining))}
	}
	return []string{fmt.Sprintf("• %s | %s | Left: %s",
		orDash(r.MinPriceRoom), orDash(r.MinPriceText), orDash(r.MinRemaining))}
}

// ForEvent composes the notification for one alert transition.
func ForEvent(ev alert.Event) Intent {
	r := ev.Result
	name := r.Name
	if name == "" {
		name = "(Hotel name not found)"
	}
	dates := fmt.Sprintf("%s → %s", ev.Key.StartDate, ev.Key.EndDate)

	switch ev.Kind {
	case alert.NoLongerAvailable:
		body := strings.Join([]string{
			"❌ Toyoko Inn no longer available",
			"HotelName: " + name,
			"Date: " + dates,
			"URL: " + r.URL,
		}, "\n")
		return Intent{
			Subject: "❌ Toyoko Inn no longer available",
			Body:    body,
			Short:   name + "\n" + dates,
		}
	case alert.Reminder:
		return availableIntent(r, name, dates, "✅ Toyoko Inn Available room(s) (reminder)")
	default:
		return availableIntent(r, name, dates, "✅ Toyoko Inn Available room(s)")
	}
}

func availableIntent(r models.HotelResult, name, dates, subject string) Intent {
	lines := []string{subject, "HotelName: " + name, "Date: " + dates}
	if offerLines := OfferLines(r); len(offerLines) > 0 {
		lines = append(lines, "Offers:")
		lines = append(lines, offerLines...)
	}
	lines = append(lines, "URL: "+r.URL)

	return Intent{
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
		Short:   fmt.Sprintf("%s\n%s %s\n%s", name, r.MinPriceText, r.MinPriceRoom, dates),
	}
}

// StartSummary announces a fresh tracking run with its key parameters.
func StartSummary(cfg config.Config) Intent {
	codes := "(none)"
	if len(cfg.HotelCodes) > 0 {
		codes = strings.Join(cfg.HotelCodes, ", ")
	}
	body := strings.Join([]string{
		"🟢 Tracking started",
		fmt.Sprintf("Dates: %s → %s", cfg.StartDate, cfg.EndDate),
		fmt.Sprintf("People: %d | Rooms: %d | Smoking: %s", cfg.People, cfg.Rooms, cfg.Smoking),
		fmt.Sprintf("Hotels (%d): %s", len(cfg.HotelCodes), codes),
	}, "\n")

	return Intent{
		Subject: "🟢 Tracking started",
		Body:    body,
		Short:   fmt.Sprintf("%s → %s\n%s", cfg.StartDate, cfg.EndDate, codes),
	}
}
