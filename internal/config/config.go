// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidThumbnailFormat is returned when THUMBNAIL_FORMAT is neither png nor bmp.
	ErrInvalidThumbnailFormat = errors.New("config: THUMBNAIL_FORMAT must be png or bmp")
	// ErrInvalidConcurrency is returned when a concurrency limit is not positive.
	ErrInvalidConcurrency = errors.New("config: MAX_CONCURRENT_JOBS and EXTRACT_PARALLELISM must be positive")
	// ErrInvalidEventBuffer is returned when an event queue size is not positive.
	ErrInvalidEventBuffer = errors.New("config: EVENT_BUFFER_SIZE and DISPATCH_BUFFER_SIZE must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// FFmpeg settings
	FFmpegPath      string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	ThumbnailFormat string `env:"THUMBNAIL_FORMAT, default=png" json:"thumbnail_format"` // "png" or "bmp"

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/video-trimmer" json:"temp_dir"`

	// Processing settings
	MaxConcurrentJobs  int `env:"MAX_CONCURRENT_JOBS, default=4" json:"max_concurrent_jobs"`
	ExtractParallelism int `env:"EXTRACT_PARALLELISM, default=2" json:"extract_parallelism"`
	EventBufferSize    int `env:"EVENT_BUFFER_SIZE, default=16" json:"event_buffer_size"`
	DispatchBufferSize int `env:"DISPATCH_BUFFER_SIZE, default=64" json:"dispatch_buffer_size"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.ThumbnailFormat) {
	case "png", "bmp":
	default:
		return ErrInvalidThumbnailFormat
	}
	if c.MaxConcurrentJobs <= 0 || c.ExtractParallelism <= 0 {
		return ErrInvalidConcurrency
	}
	if c.EventBufferSize <= 0 || c.DispatchBufferSize <= 0 {
		return ErrInvalidEventBuffer
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, FFmpegPath: %s, ThumbnailFormat: %s, TempDir: %s, MaxConcurrentJobs: %d, ExtractParallelism: %d, EventBufferSize: %d, DispatchBufferSize: %d, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.FFmpegPath,
		c.ThumbnailFormat,
		c.TempDir,
		c.MaxConcurrentJobs,
		c.ExtractParallelism,
		c.EventBufferSize,
		c.DispatchBufferSize,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
