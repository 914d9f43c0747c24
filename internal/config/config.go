// Package config holds the tracker configuration: defaults, JSON file
// persistence, legacy-key migration, and range clamping. Out-of-range or
// malformed input is sanitized rather than rejected; the validator runs
// after normalization as a consistency guard.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Rendering engines.
const (
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"
)

// Room-type requirements.
const (
	RoomAny    = "any"
	RoomSingle = "single"
	RoomDouble = "double"
	RoomTwin   = "twin"
)

// Default values mirrored by Default().
const (
	DefaultLoopIntervalSeconds  = 30
	DefaultPerHotelDelaySeconds = 3
	DefaultPeople               = 1
	DefaultRooms                = 1
	DefaultSmoking              = "noSmoking"
	DefaultBudgetLimit          = 30000
	DefaultAlertRepeatInterval  = 30
	DefaultSMTPPort             = 465
)

// Config is the single canonical configuration document. Every field is
// covered by the persisted key/value shape; consumers always go through
// Normalize so business logic never branches on key presence.
type Config struct {
	StartDate  string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	HotelCodes []string `json:"hotel_codes" validate:"dive,len=5,numeric"`

	LoopIntervalSeconds  int `json:"loop_interval_seconds" validate:"min=1"`
	PerHotelDelaySeconds int `json:"per_hotel_delay_seconds" validate:"min=1,max=30"`

	People          int    `json:"people" validate:"min=1,max=5"`
	Rooms           int    `json:"rooms" validate:"min=1,max=9"`
	Smoking         string `json:"smoking" validate:"oneof=Smoking noSmoking all"`
	RoomRequirement string `json:"room_requirement" validate:"oneof=any single double twin"`

	BudgetEnabled bool `json:"budget_enabled"`
	BudgetLimit   int  `json:"budget_limit" validate:"min=0"`

	EnableProxy bool   `json:"enable_proxy"`
	ProxyURL    string `json:"proxy_url"`

	EnableTelegram bool   `json:"enable_telegram"`
	BotToken       string `json:"bot_token"`
	ChatID         string `json:"chat_id"`

	EnableLocal bool `json:"enable_local"`

	EnableEmail bool   `json:"enable_email"`
	SMTPHost    string `json:"smtp_host"`
	SMTPPort    int    `json:"smtp_port" validate:"min=1,max=65535"`
	SMTPTLS     bool   `json:"smtp_tls"`
	SMTPUser    string `json:"smtp_user"`
	SMTPPass    string `json:"smtp_pass"`
	EmailFrom   string `json:"email_from"`
	EmailTo     string `json:"email_to"`

	AlertRepeat            int `json:"available_alert_repeat" validate:"min=0"`
	AlertRepeatIntervalSec int `json:"available_alert_repeat_interval_sec" validate:"min=1"`

	Engine string `json:"engine" validate:"oneof=chromedp playwright"`
}

// Default returns the baseline configuration: tonight's stay, no channels
// enabled, playwright rendering.
func Default() Config {
	now := time.Now()
	return Config{
		StartDate:              now.Format("2006-01-02"),
		EndDate:                now.AddDate(0, 0, 1).Format("2006-01-02"),
		HotelCodes:             []string{},
		LoopIntervalSeconds:    DefaultLoopIntervalSeconds,
		PerHotelDelaySeconds:   DefaultPerHotelDelaySeconds,
		People:                 DefaultPeople,
		Rooms:                  DefaultRooms,
		Smoking:                DefaultSmoking,
		RoomRequirement:        RoomAny,
		BudgetLimit:            DefaultBudgetLimit,
		SMTPPort:               DefaultSMTPPort,
		AlertRepeatIntervalSec: DefaultAlertRepeatInterval,
		Engine:                 EnginePlaywright,
	}
}

var validate = validator.New()

// legacyAliases maps superseded persisted key names to their canonical
// field. migrateDocument copies the legacy value only when the canonical
// key is absent, so new documents always win.
var legacyAliases = map[string]string{
	"om_requirement": "room_requirement",
}

func migrateDocument(data []byte) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config document is not a JSON object: %w", err)
	}
	for legacy, canonical := range legacyAliases {
		if _, ok := doc[canonical]; ok {
			continue
		}
		if v, ok := doc[legacy]; ok {
			doc[canonical] = v
		}
	}
	return json.Marshal(doc)
}

// Merge overlays a partial JSON document (a start/save payload or a
// persisted file) onto c, runs the legacy migration, and normalizes the
// result. Absent keys keep their current values.
func (c *Config) Merge(data []byte) error {
	migrated, err := migrateDocument(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(migrated, c); err != nil {
		return fmt.Errorf("failed to decode config document: %w", err)
	}
	c.Normalize()
	return nil
}

// Normalize clamps numeric fields to their documented ranges and resets
// invalid enum or date fields to defaults. It runs on every load and on
// every start/save payload, not just at construction.
func (c *Config) Normalize() {
	def := Default()

	if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
		c.StartDate = def.StartDate
	}
	if _, err := time.Parse("2006-01-02", c.EndDate); err != nil {
		c.EndDate = def.EndDate
	}
	codes := make([]string, 0, len(c.HotelCodes))
	for _, code := range c.HotelCodes {
		if isHotelCode(code) {
			codes = append(codes, code)
		}
	}
	c.HotelCodes = codes

	c.LoopIntervalSeconds = clamp(c.LoopIntervalSeconds, 1, 86400)
	c.PerHotelDelaySeconds = clamp(c.PerHotelDelaySeconds, 1, 30)
	c.People = clamp(c.People, 1, 5)
	c.Rooms = clamp(c.Rooms, 1, 9)

	switch c.Smoking {
	case "Smoking", "noSmoking", "all":
	default:
		c.Smoking = def.Smoking
	}
	switch c.RoomRequirement {
	case RoomAny, RoomSingle, RoomDouble, RoomTwin:
	default:
		c.RoomRequirement = RoomAny
	}
	switch c.Engine {
	case EngineChromedp, EnginePlaywright:
	default:
		c.Engine = def.Engine
	}

	if c.BudgetLimit < 0 {
		c.BudgetLimit = def.BudgetLimit
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		c.SMTPPort = def.SMTPPort
	}
	if c.AlertRepeat < 0 {
		c.AlertRepeat = 0
	}
	if c.AlertRepeatIntervalSec < 1 {
		c.AlertRepeatIntervalSec = 1
	}
}

// Validate checks the normalized config against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// TelegramEnabled reports whether the Telegram channel is fully configured.
func (c *Config) TelegramEnabled() bool {
	return c.EnableTelegram && c.BotToken != "" && c.ChatID != ""
}

// EmailEnabled reports whether the mail channel is fully configured.
func (c *Config) EmailEnabled() bool {
	return c.EnableEmail && c.SMTPHost != "" && c.EmailFrom != "" && c.EmailTo != ""
}

// LoadFile merges the JSON document at path into c. A missing file is not
// an error; the receiver is left unchanged.
func (c *Config) LoadFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := c.Merge(data); err != nil {
		return false, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return true, nil
}

// SaveFile writes the full config document to path.
func (c *Config) SaveFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c Config) Clone() Config {
	out := c
	out.HotelCodes = append([]string(nil), c.HotelCodes...)
	return out
}

func isHotelCode(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
