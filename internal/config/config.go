// Package config reads service settings from environment-style key/value pairs.
// Upstream credentials are resolved separately by the upstream package.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"voice-cleanup-go/internal/cleaning"
	"voice-cleanup-go/internal/transcription"
)

// DefaultMaxUploadBytes matches the OpenAI audio upload limit.
const DefaultMaxUploadBytes = 25 << 20

type Config struct {
	Port        string
	Environment string

	TranscriptionModel string
	CleanupModel       string
	CleanupTimeout     time.Duration
	CleanupMaxRetries  int
	CleanupTemperature float64

	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// Load builds a Config from lookup (usually os.LookupEnv), applying defaults for
// unset keys and rejecting malformed numbers.
func Load(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if lookup != nil {
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return def
	}

	cfg := Config{
		Port:               get("PORT", "8080"),
		Environment:        get("ENVIRONMENT", "local"),
		TranscriptionModel: get("TRANSCRIPTION_MODEL", transcription.DefaultModel),
		CleanupModel:       get("CLEANUP_MODEL", cleaning.DefaultModel),
	}

	timeoutMs, err := strconv.Atoi(get("CLEANUP_TIMEOUT_MS", strconv.FormatInt(cleaning.DefaultTimeout.Milliseconds(), 10)))
	if err != nil || timeoutMs <= 0 {
		return Config{}, fmt.Errorf("CLEANUP_TIMEOUT_MS must be a positive integer")
	}
	cfg.CleanupTimeout = time.Duration(timeoutMs) * time.Millisecond

	cfg.CleanupMaxRetries, err = strconv.Atoi(get("CLEANUP_MAX_RETRIES", strconv.Itoa(cleaning.DefaultMaxRetries)))
	if err != nil || cfg.CleanupMaxRetries < 0 {
		return Config{}, fmt.Errorf("CLEANUP_MAX_RETRIES must be a non-negative integer")
	}

	cfg.CleanupTemperature, err = strconv.ParseFloat(get("CLEANUP_TEMPERATURE", strconv.FormatFloat(cleaning.DefaultTemperature, 'f', -1, 64)), 64)
	if err != nil || cfg.CleanupTemperature < 0 || cfg.CleanupTemperature > 2 {
		return Config{}, fmt.Errorf("CLEANUP_TEMPERATURE must be between 0 and 2")
	}

	cfg.MaxUploadBytes, err = strconv.ParseInt(get("MAX_UPLOAD_BYTES", strconv.Itoa(DefaultMaxUploadBytes)), 10, 64)
	if err != nil || cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer")
	}

	cfg.ShutdownTimeout, err = time.ParseDuration(get("SHUTDOWN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// CleaningOptions maps the cleanup settings onto the cleaning service.
func (c Config) CleaningOptions() cleaning.Options {
	opts := cleaning.DefaultOptions()
	opts.Timeout = c.CleanupTimeout
	opts.MaxRetries = c.CleanupMaxRetries
	opts.Model = c.CleanupModel
	opts.Temperature = c.CleanupTemperature
	return opts
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
