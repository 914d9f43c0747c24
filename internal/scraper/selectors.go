package scraper

import (
	"encoding/json"
	"fmt"
	"os"
)

// SelectorConfig holds every CSS selector used against the rendered search
// result page. The site ships hashed class names, so selectors match on
// stable class-name fragments rather than exact classes.
type SelectorConfig struct {
	RoomPlan RoomPlanSelectors `json:"room_plan"`
}

type RoomPlanSelectors struct {
	ParentCard  string `json:"parent_card"`  // room-group block
	ParentTitle string `json:"parent_title"` // room title inside a group
	ChildCard   string `json:"child_card"`   // one plan row
	ChildTitle  string `json:"child_title"`  // plan name
	PriceBlock  string `json:"price_block"`  // non-member price container
	PriceValue  string `json:"price_value"`  // formatted price inside a block
	MemberValue string `json:"member_value"` // member price value
	HotelName   string `json:"hotel_name"`   // page heading with the hotel name
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}

	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
// This supports loading from embedded data via go:embed.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}

	return config, nil
}

// DefaultSelectors returns the fallback configuration if no JSON file is
// loaded. The embedded selectors.json should be preferred.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		RoomPlan: RoomPlanSelectors{
			ParentCard:  `div[class*="SearchResultRoomPlanParentCard_card"]`,
			ParentTitle: `[class*="SearchResultRoomPlanParentCard_title"]`,
			ChildCard:   `div[class*="SearchResultRoomPlanChildCard_card-wrapper"]`,
			ChildTitle:  `[class*="SearchResultRoomPlanChildCard_title"]`,
			PriceBlock:  `div[class*="SearchResultRoomPlanChildCard_price"]`,
			PriceValue:  `span[class*="SearchResultRoomPlanChildCard_value"]`,
			MemberValue: `div[class*="SearchResultRoomPlanChildCard_member-section"] span[class*="SearchResultRoomPlanChildCard_value"]`,
			HotelName:   `h1[class*="room_plan_title"]`,
		},
	}
}
