// Package config defines service configuration structures and loading hooks.
//
// Durations are carried as integer milliseconds so that flat env keys such as
// STANDINGS_REFRESH_INTERVAL_MS map one-to-one onto fields.
package config

import (
	"time"
)

// DefaultExtractorEndpoint is the public Gemini REST base URL.
const DefaultExtractorEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// SourceURL is the leaderboard page polled on every refresh.
	SourceURL string `koanf:"source_url" validate:"required,url"`
	// SourceRelay is an optional relay prefix; the escaped SourceURL is appended to it.
	SourceRelay     string `koanf:"source_relay" validate:"omitempty,url"`
	SourceTimeoutMS int    `koanf:"source_timeout_ms" validate:"gt=0"`
	SourceMaxBytes  int64  `koanf:"source_max_bytes" validate:"gt=0"`
	SourceTextOnly  bool   `koanf:"source_text_only"`

	// RefreshIntervalMS is the automatic refresh period.
	RefreshIntervalMS int `koanf:"refresh_interval_ms" validate:"gte=100"`
	// TriggerQueueSize bounds pending refresh triggers.
	TriggerQueueSize int `koanf:"trigger_queue_size" validate:"gte=1"`

	ExtractorEndpoint      string `koanf:"extractor_endpoint" validate:"required,url"`
	ExtractorModel         string `koanf:"extractor_model" validate:"required"`
	ExtractorAPIKey        string `koanf:"extractor_api_key"`
	ExtractorTimeoutMS     int    `koanf:"extractor_timeout_ms" validate:"gt=0"`
	ExtractorMaxInputChars int    `koanf:"extractor_max_input_chars" validate:"gt=0"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"gte=1"`

	// HistoryPath is the sqlite file for snapshot history. Empty disables history.
	HistoryPath      string `koanf:"history_path"`
	HistoryRetention int    `koanf:"history_retention" validate:"gte=1"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// OTLPEndpoint is the OTLP/HTTP trace collector URL. Empty disables export.
	OTLPEndpoint string `koanf:"otlp_endpoint" validate:"omitempty,url"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		SourceURL:              "https://example.com/leaderboard",
		SourceTimeoutMS:        15_000,
		SourceMaxBytes:         2 << 20,
		SourceTextOnly:         true,
		RefreshIntervalMS:      10_000,
		TriggerQueueSize:       1,
		ExtractorEndpoint:      DefaultExtractorEndpoint,
		ExtractorModel:         "gemini-2.5-flash",
		ExtractorTimeoutMS:     30_000,
		ExtractorMaxInputChars: 60_000,
		MaxLeaderboardLimit:    100,
		HistoryRetention:       500,
		CORSAllowedOrigins:     []string{"*"},
	}
}

// RefreshInterval returns the automatic refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

// SourceTimeout returns the fetch timeout.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutMS) * time.Millisecond
}

// ExtractorTimeout returns the extraction timeout.
func (c *Config) ExtractorTimeout() time.Duration {
	return time.Duration(c.ExtractorTimeoutMS) * time.Millisecond
}

// HistoryEnabled reports whether snapshot history should be persisted.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryPath != ""
}
