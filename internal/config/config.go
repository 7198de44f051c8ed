// Package config provides the configuration structure for the tts-predictor.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                        string `toml:"url"`
	PredictionRequestedSubject string `toml:"prediction_requested_subject"`
	PredictionCompletedSubject string `toml:"prediction_completed_subject"`
	AudioObjectStoreBucket     string `toml:"audio_object_store_bucket"`
}

// EngineConfig holds the configuration for the synthesis engine endpoint.
type EngineConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ClassifierConfig holds the configuration for the optional text-emotion
// classifier endpoint. When Enabled is false the predictor falls back to the
// neutral emotion for text-driven requests.
type ClassifierConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Enabled        bool   `toml:"enabled"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS       NATSConfig       `toml:"nats"`
	Engine     EngineConfig     `toml:"engine"`
	Classifier ClassifierConfig `toml:"classifier"`
	Paths      PathsConfig      `toml:"paths"`
}

// Load loads the configuration for the tts-predictor.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
