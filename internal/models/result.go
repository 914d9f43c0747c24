package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Availability is the tri-state outcome of checking one hotel. Unknown means
// the fetch/parse pipeline itself failed and must never be conflated with
// Unavailable.
type Availability int

const (
	Unavailable Availability = iota
	Available
	Unknown
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the tri-state as true/false/null so status consumers
// can distinguish "no rooms" from "check failed".
func (a Availability) MarshalJSON() ([]byte, error) {
	switch a {
	case Available:
		return []byte("true"), nil
	case Unavailable:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (a *Availability) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "true":
		*a = Available
	case "false":
		*a = Unavailable
	case "null":
		*a = Unknown
	default:
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		if b {
			*a = Available
		} else {
			*a = Unavailable
		}
	}
	return nil
}

// Offer is one priced room/plan row extracted from a result page.
// PriceValue is nil when no currency amount could be parsed.
type Offer struct {
	RoomTitle       string `json:"room_title,omitempty"`
	PlanName        string `json:"plan_name,omitempty"`
	PriceText       string `json:"price_text,omitempty"`
	PriceValue      *int   `json:"price_val,omitempty"`
	MemberPriceText string `json:"member_price_text,omitempty"`
	// Remaining is the normalized remaining-rooms signal: a digit string
	// ("1".."9"...) for "Only N Rooms Left", RemainingReserve for
	// reserve-style availability, empty when unknown.
	Remaining string `json:"remaining_norm,omitempty"`
	// Ignored marks accessibility/special rooms excluded from the primary
	// candidate set but still tracked for the excluded-only detection.
	Ignored bool `json:"-"`
}

// RemainingReserve is the sentinel for "Reserve" rows, meaning at least ten
// rooms are open.
const RemainingReserve = "≥10"

// HasPrice reports whether the offer carries a parsable price and can be
// ranked.
func (o Offer) HasPrice() bool {
	return o.PriceValue != nil
}

// ExtractStats records price-presence bookkeeping across a whole page,
// including offers dropped from the candidate set. It backs the policy that
// excluded-only inventory is reported as unavailable.
type ExtractStats struct {
	HadPriced         bool // any offer had a parsable price
	HadOrdinaryPriced bool // any non-excluded offer had a parsable price
	HadExcludedPriced bool // any excluded-class offer had a parsable price
}

// OfferDisplay is the presentation slice of a deduplicated offer.
type OfferDisplay struct {
	PriceText       string `json:"price_text,omitempty"`
	MemberPriceText string `json:"member_price_text,omitempty"`
	Remaining       string `json:"remaining_norm,omitempty"`
	RoomTitle       string `json:"room_title,omitempty"`
}

// HotelResult is the outcome of checking one hotel for one date range.
type HotelResult struct {
	Code      string       `json:"code"`
	URL       string       `json:"url"`
	Name      string       `json:"name,omitempty"`
	Available Availability `json:"available"`

	MinPrice           *int   `json:"min_price,omitempty"`
	MinPriceText       string `json:"min_price_text,omitempty"`
	MinPriceRoom       string `json:"min_price_room,omitempty"`
	MinPricePlan       string `json:"min_price_plan,omitempty"`
	MinMemberPriceText string `json:"min_member_price_text,omitempty"`
	MinRemaining       string `json:"min_remaining,omitempty"`

	OffersDisplay    []OfferDisplay `json:"offers_display,omitempty"`
	RequirementUnmet bool           `json:"requirement_unmet"`
}

// DegradedResult builds the Unknown result returned when the render/parse
// pipeline failed for a hotel.
func DegradedResult(code, url string) HotelResult {
	return HotelResult{Code: code, URL: url, Available: Unknown}
}

// AlertKey identifies one independent alert-state lifecycle.
type AlertKey struct {
	Code      string
	StartDate string
	EndDate   string
}

func (k AlertKey) String() string {
	return k.Code + "|" + k.StartDate + "|" + k.EndDate
}

// AlertState is the per-key notification state. Mutated only by the tracker
// worker; readers receive copies.
type AlertState struct {
	Available bool      `json:"available"`
	Sent      int       `json:"sent"`
	Last      time.Time `json:"last"`
}

// Progress is the atomically-read snapshot of the current round.
type Progress struct {
	Round           int `json:"round"`
	Done            int `json:"done"`
	Total           int `json:"total"`
	UptimeSec       int `json:"uptime_sec"`
	RoundElapsedSec int `json:"round_elapsed_sec"`
}
