package config

import "os"

// Settings are process-level knobs read from the environment once at
// startup. They are separate from Config, which users edit at runtime.
type Settings struct {
	ListenAddr     string
	LogLevel       string
	SavePath       string
	AutoSavePath   string
	HotelNamesPath string
}

// LoadSettings reads the environment, applying defaults for anything unset.
// main calls godotenv before this so a local .env file participates.
func LoadSettings() Settings {
	s := Settings{
		ListenAddr:     ":5000",
		LogLevel:       "info",
		SavePath:       "save.json",
		AutoSavePath:   "auto_save.json",
		HotelNamesPath: "toyoko_hotel_names.json",
	}
	if v := os.Getenv("PORT"); v != "" {
		s.ListenAddr = ":" + v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		s.ListenAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("SAVE_PATH"); v != "" {
		s.SavePath = v
	}
	if v := os.Getenv("AUTO_SAVE_PATH"); v != "" {
		s.AutoSavePath = v
	}
	if v := os.Getenv("HOTEL_NAMES_PATH"); v != "" {
		s.HotelNamesPath = v
	}
	return s
}
