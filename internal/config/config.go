package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

type Config struct {
	// Card is the selected card name (e.g. "hw:0").
	Card string `json:"card"`
	// Channels remembers the selected channel per card, so switching
	// cards and back restores the previous channel.
	Channels map[string]string `json:"channels"`
	// Normalize applies the perceptual volume curve instead of the
	// linear one.
	Normalize bool `json:"normalize"`
	// ScrollStep is the percent change per scroll notch.
	ScrollStep int `json:"scroll_step"`
	// FineScrollStep is the percent change per notch with the fine
	// modifier held.
	FineScrollStep int `json:"fine_scroll_step"`
	// Notifications enables desktop popups on volume/mute changes.
	Notifications bool `json:"notifications"`
	// ReopenOnUnplug reopens the configured device automatically after
	// a disconnect instead of waiting for an explicit reselect.
	ReopenOnUnplug bool   `json:"reopen_on_unplug"`
	LogLevel       string `json:"log_level"`
}

// Channel returns the remembered channel for a card, or "" if none.
func (c *Config) Channel(card string) string {
	if c.Channels == nil {
		return ""
	}
	return c.Channels[card]
}

// SetChannel remembers the selected channel for a card.
func (c *Config) SetChannel(card, channel string) {
	if c.Channels == nil {
		c.Channels = make(map[string]string)
	}
	c.Channels[card] = channel
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	path := Path()

	cfg := &Config{
		Card:           "",
		Channels:       map[string]string{},
		Normalize:      false,
		ScrollStep:     5,
		FineScrollStep: 1,
		Notifications:  true,
		ReopenOnUnplug: false,
		LogLevel:       "info",
	}

	// Load existing config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := Path()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Path returns the platform-specific config file path
func Path() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "volume-tray", "config.json")
}
