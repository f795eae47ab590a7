package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the main configuration structure.
type Config struct {
	// Directories scanned for playable files.
	MIDIDir  string `json:"midiDir,omitempty"`
	AudioDir string `json:"audioDir,omitempty"`

	// Path of the persisted track-to-channel map.
	MapFile string `json:"mapFile,omitempty"`

	// Output ports whose names start with this prefix are skipped.
	// Defaults to the ALSA loopback so playback doesn't echo back.
	ExcludePort string `json:"excludePort,omitempty"`

	LogFile string `json:"logFile,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir, err := ConfigDir()
	if err != nil {
		dir = "."
	}
	return &Config{
		MIDIDir:     filepath.Join(home, "Music", "MIDI"),
		AudioDir:    filepath.Join(home, "Music", "MP3"),
		MapFile:     filepath.Join(dir, "track_map.json"),
		ExcludePort: "Midi Through",
		LogFile:     filepath.Join(dir, "debug.log"),
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midifileplayer"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
