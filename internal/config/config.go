// SPDX-License-Identifier: MIT

// Package config loads daemon configuration with precedence
// environment > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the tunable knobs. Everything else (default voice, chunk
// strategy, cleaning flags) lives in the persisted settings table and is
// editable at runtime.
const (
	DefaultListenAddr    = ":8080"
	DefaultUndoWindow    = 2 * time.Minute
	DefaultFetchTimeout  = 30 * time.Second
	DefaultGitTimeout    = 2 * time.Minute
	DefaultMaxFetchBytes = 512 * 1024
	DefaultIngestRPM     = 30
)

// AppConfig holds the process-wide configuration.
type AppConfig struct {
	DataDir       string        `yaml:"dataDir"`
	VoicesDir     string        `yaml:"voicesDir"`
	ListenAddr    string        `yaml:"listenAddr"`
	LogLevel      string        `yaml:"logLevel"`
	UndoWindow    time.Duration `yaml:"undoWindow"`
	FetchTimeout  time.Duration `yaml:"fetchTimeout"`
	GitTimeout    time.Duration `yaml:"gitTimeout"`
	MaxFetchBytes int64         `yaml:"maxFetchBytes"`
	IngestRPM     int           `yaml:"ingestRatePerMinute"`
	MetricsOn     bool          `yaml:"metrics"`
	TTSCommand    string        `yaml:"ttsCommand"`
}

// DBPath returns the location of the SQLite database inside the data dir.
func (c AppConfig) DBPath() string { return filepath.Join(c.DataDir, "library.db") }

// AudioDir returns the root of per-episode audio directories.
func (c AppConfig) AudioDir() string { return filepath.Join(c.DataDir, "audio") }

// SourcesDir returns the root of per-source blob directories.
func (c AppConfig) SourcesDir() string { return filepath.Join(c.DataDir, "sources") }

func defaults() AppConfig {
	return AppConfig{
		DataDir:       "data",
		ListenAddr:    DefaultListenAddr,
		LogLevel:      "info",
		UndoWindow:    DefaultUndoWindow,
		FetchTimeout:  DefaultFetchTimeout,
		GitTimeout:    DefaultGitTimeout,
		MaxFetchBytes: DefaultMaxFetchBytes,
		IngestRPM:     DefaultIngestRPM,
		MetricsOn:     true,
		TTSCommand:    "pocket-tts",
	}
}

// Load builds the configuration. If path is empty, <data>/config.yaml is
// used when it exists. Environment variables override file values.
func Load(path string) (AppConfig, error) {
	cfg := defaults()

	if path == "" {
		dataDir := ParseString("PAPERCAST_DATA", cfg.DataDir)
		auto := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(auto); err == nil {
			path = auto
		}
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.DataDir = ParseString("PAPERCAST_DATA", cfg.DataDir)
	cfg.VoicesDir = ParseString("PAPERCAST_VOICES_DIR", cfg.VoicesDir)
	cfg.ListenAddr = ParseString("PAPERCAST_LISTEN", cfg.ListenAddr)
	cfg.LogLevel = ParseString("PAPERCAST_LOG_LEVEL", cfg.LogLevel)
	cfg.UndoWindow = ParseDuration("PAPERCAST_UNDO_WINDOW", cfg.UndoWindow)
	cfg.FetchTimeout = ParseDuration("PAPERCAST_FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.GitTimeout = ParseDuration("PAPERCAST_GIT_TIMEOUT", cfg.GitTimeout)
	cfg.MaxFetchBytes = ParseInt64("PAPERCAST_MAX_FETCH_BYTES", cfg.MaxFetchBytes)
	cfg.IngestRPM = ParseInt("PAPERCAST_INGEST_RPM", cfg.IngestRPM)
	cfg.MetricsOn = ParseBool("PAPERCAST_METRICS", cfg.MetricsOn)
	cfg.TTSCommand = ParseString("PAPERCAST_TTS_CMD", cfg.TTSCommand)

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if c.UndoWindow <= 0 {
		return fmt.Errorf("undo window must be positive, got %s", c.UndoWindow)
	}
	if c.MaxFetchBytes <= 0 {
		return fmt.Errorf("max fetch bytes must be positive, got %d", c.MaxFetchBytes)
	}
	return nil
}
