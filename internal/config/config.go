package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Options are the detection knobs. One immutable value is built at startup
// and shared read-only by the scanner and mitigator.
type Options struct {
	// MinSuspiciousFrameSize is the minimum rendered width and height, in
	// device pixels, for a blob-sourced frame to be treated as an intended
	// interactive surface rather than an ad or widget.
	MinSuspiciousFrameSize int `yaml:"minSuspiciousFrameSize"`
	// ScanIntervalMS is the period of the level-triggered full rescan.
	ScanIntervalMS int `yaml:"scanIntervalMs"`

	EnableBlobBlocking      bool `yaml:"enableBlobBlocking"`
	EnableSignatureBlocking bool `yaml:"enableSignatureBlocking"`

	// ReadyDelayMS delays the first scan after page load so frames get a
	// chance to begin loading before content access is attempted.
	ReadyDelayMS int `yaml:"readyDelayMs"`
	// SettleDelayMS is the debounce window applied to DOM insertion bursts.
	SettleDelayMS int `yaml:"settleDelayMs"`
	// PayloadDelayMS arms the one-shot inline-script scan.
	PayloadDelayMS int `yaml:"payloadDelayMs"`
}

// Config is the agent configuration file structure.
type Config struct {
	Version     string  `yaml:"version"`
	DevToolsURL string  `yaml:"devToolsURL"`
	Detection   Options `yaml:"detection"`

	Sink struct {
		// DSN of the local violation store; empty disables persistence.
		DSN string `yaml:"dsn"`
		// Endpoint of an external collector; empty disables posting.
		Endpoint      string `yaml:"endpoint"`
		RetentionDays int    `yaml:"retentionDays"`
	} `yaml:"sink"`

	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	cfg := &Config{
		Version:     "1.0.0",
		DevToolsURL: "http://127.0.0.1:9222",
		Detection: Options{
			MinSuspiciousFrameSize:  400,
			ScanIntervalMS:          2000,
			EnableBlobBlocking:      true,
			EnableSignatureBlocking: true,
			ReadyDelayMS:            1500,
			SettleDelayMS:           500,
			PayloadDelayMS:          3000,
		},
	}
	cfg.Sink.DSN = "violations.sqlite3"
	cfg.Sink.RetentionDays = 30
	cfg.Log.Level = "info"
	return cfg
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
