package scraper

import (
	"embed"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

//go:embed selectors.json
var embeddedSelectors embed.FS

var (
	selMu   sync.RWMutex
	current = DefaultSelectors()
)

// GetCurrentSelectors returns the active selector configuration.
func GetCurrentSelectors() SelectorConfig {
	selMu.RLock()
	defer selMu.RUnlock()
	return current
}

// SetCurrentSelectors replaces the active selector configuration.
func SetCurrentSelectors(sel SelectorConfig) {
	selMu.Lock()
	current = sel
	selMu.Unlock()
}

// LoadConfig tries to load selectors in the following order:
// 1. Embedded selectors.json
// 2. External file defined by SELECTORS_CONFIG_PATH (or default "config/selectors.json")
// 3. Hardcoded defaults
func LoadConfig(log zerolog.Logger) SelectorConfig {
	data, err := embeddedSelectors.ReadFile("selectors.json")
	if err == nil {
		sel, parseErr := LoadSelectorsFromBytes(data)
		if parseErr == nil {
			log.Debug().Msg("loaded selectors from embedded config")
			return sel
		}
		log.Warn().Err(parseErr).Msg("embedded selectors failed to parse, trying file fallback")
	}

	configPath := os.Getenv("SELECTORS_CONFIG_PATH")
	if configPath == "" {
		configPath = "config/selectors.json"
	}

	if fileSel, err := LoadSelectors(configPath); err == nil {
		log.Info().Str("path", configPath).Msg("loaded selectors from external file")
		return fileSel
	}

	log.Info().Msg("using hardcoded default selectors")
	return DefaultSelectors()
}
