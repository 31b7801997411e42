package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// InstrumentKind selects the sound source
type InstrumentKind string

const (
	InstrumentSynth  InstrumentKind = "synth"  // SoundFont through the audio device
	InstrumentMIDI   InstrumentKind = "midi"   // note on/off to a MIDI output port
	InstrumentSilent InstrumentKind = "silent" // log and drop
)

// MIDIConfig controls the MIDI input connection
type MIDIConfig struct {
	Preferred   string `json:"preferred,omitempty"` // substring of the input port name to prefer
	AutoConnect bool   `json:"autoConnect"`
}

// InstrumentConfig defines where notes are sounded
type InstrumentConfig struct {
	Kind       InstrumentKind `json:"kind"`
	SoundFont  string         `json:"soundFont,omitempty"`
	OutputPort string         `json:"outputPort,omitempty"`
	Channel    int            `json:"channel,omitempty"` // 1-16
}

// UIConfig stores UI preferences
type UIConfig struct {
	DefaultTempo int    `json:"defaultTempo,omitempty"`
	Octaves      []int  `json:"octaves,omitempty"`
	Palette      string `json:"palette,omitempty"` // GIMP .gpl file
}

// Config is the main configuration structure
type Config struct {
	MIDI       MIDIConfig       `json:"midi"`
	Instrument InstrumentConfig `json:"instrument"`
	UI         UIConfig         `json:"ui,omitempty"`
	DataDir    string           `json:"dataDir,omitempty"`
	LogLevel   string           `json:"logLevel,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MIDI: MIDIConfig{
			AutoConnect: true,
		},
		Instrument: InstrumentConfig{
			Kind:    InstrumentSynth,
			Channel: 1,
		},
		UI: UIConfig{
			DefaultTempo: 120,
			Octaves:      []int{2, 3, 4, 5},
		},
		LogLevel: "info",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-pianoroll"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file. Fields missing from the file keep their
// defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the rest of the program can't use
func (c *Config) Validate() error {
	switch c.Instrument.Kind {
	case InstrumentSynth, InstrumentMIDI, InstrumentSilent:
	default:
		return fmt.Errorf("unknown instrument kind %q", c.Instrument.Kind)
	}
	if c.Instrument.Channel < 1 || c.Instrument.Channel > 16 {
		return fmt.Errorf("instrument channel %d out of range 1-16", c.Instrument.Channel)
	}
	if len(c.UI.Octaves) == 0 {
		return fmt.Errorf("at least one octave is required")
	}
	for i, o := range c.UI.Octaves {
		if o < -1 || o > 8 {
			return fmt.Errorf("octave %d out of range", o)
		}
		if i > 0 && o != c.UI.Octaves[i-1]+1 {
			return fmt.Errorf("octaves must be consecutive")
		}
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating the directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ResolveDataDir returns DataDir, or ~/.config/go-pianoroll/data when unset
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}
