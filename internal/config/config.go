// Package config manages persistent user preferences for castctl.
// Settings are stored as JSON at os.UserConfigDir()/castkit/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all persistent user preferences.
type Config struct {
	DefaultAppID string        `json:"default_app_id"`
	Volume       float64       `json:"volume"`
	LastDevice   string        `json:"last_device"`
	Devices      []DeviceEntry `json:"devices"`
}

// DeviceEntry is a saved receiver shown by `castctl devices`.
type DeviceEntry struct {
	Name     string `json:"name"`
	HostName string `json:"host_name"`
	Port     int    `json:"port"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		DefaultAppID: "CC1AD845",
		Volume:       1.0,
	}
}

// Path returns the absolute path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "castkit", "config.json"), nil
}

// Load reads the config file and returns it. If the file is missing or
// unreadable, the default config is returned — never an error.
func Load() Config {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to disk, creating the directory if needed.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// RememberDevice upserts entry by HostName, preserving insertion order
// for everything else.
func (c *Config) RememberDevice(entry DeviceEntry) {
	for i, d := range c.Devices {
		if d.HostName == entry.HostName {
			c.Devices[i] = entry
			return
		}
	}
	c.Devices = append(c.Devices, entry)
}
