package global

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the ambient configuration persisted between runs. Account
// credentials never live here; they come from the environment.
type Config struct {
	ServerURL string
	LoginURL  string
	LogDir    string
	Debug     bool
}

func DefaultConfigDir() string {
	configDir, _ := os.UserConfigDir()
	return filepath.Join(configDir, "poke-env")
}

func DefaultConfigLocation() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func SaveConfig(config Config) error {
	jsonString, err := json.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(DefaultConfigLocation(), jsonString, 0666)
}

// LoadConfig reads the config file, creating it with defaults on first run.
func LoadConfig() Config {
	configDir := DefaultConfigDir()
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return populateConfig(Config{})
	}

	contents, err := os.ReadFile(DefaultConfigLocation())
	if err != nil || len(contents) == 0 {
		config := populateConfig(Config{})
		if err := SaveConfig(config); err == nil {
			return config
		}
		return config
	}

	var config Config
	if err := json.Unmarshal(contents, &config); err != nil {
		return populateConfig(Config{})
	}
	return populateConfig(config)
}

func populateConfig(config Config) Config {
	if config.ServerURL == "" {
		config.ServerURL = "ws://localhost:8000/showdown/websocket"
	}
	if config.LoginURL == "" {
		config.LoginURL = "https://play.pokemonshowdown.com/api/login"
	}
	if config.LogDir == "" {
		config.LogDir = filepath.Join(DefaultConfigDir(), "logs")
	}
	return config
}
