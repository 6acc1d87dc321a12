package config

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"PORT",
	"FFMPEG_PATH",
	"THUMBNAIL_FORMAT",
	"TEMP_DIR",
	"MAX_CONCURRENT_JOBS",
	"EXTRACT_PARALLELISM",
	"EVENT_BUFFER_SIZE",
	"DISPATCH_BUFFER_SIZE",
	"S3_BUCKET",
	"S3_REGION",
	"S3_ENDPOINT",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"LOG_FORMAT",
	"LOG_LEVEL",
}

// clearEnv unsets every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnvVars {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func validConfig() *Config {
	return &Config{
		ThumbnailFormat:    "png",
		MaxConcurrentJobs:  4,
		ExtractParallelism: 2,
		EventBufferSize:    16,
		DispatchBufferSize: 64,
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "png", cfg.ThumbnailFormat)
	assert.Equal(t, "/tmp/video-trimmer", cfg.TempDir)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, 2, cfg.ExtractParallelism)
	assert.Equal(t, 16, cfg.EventBufferSize)
	assert.Equal(t, 64, cfg.DispatchBufferSize)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("THUMBNAIL_FORMAT", "bmp")
	t.Setenv("TEMP_DIR", "/custom/temp")
	t.Setenv("MAX_CONCURRENT_JOBS", "8")
	t.Setenv("EXTRACT_PARALLELISM", "3")
	t.Setenv("EVENT_BUFFER_SIZE", "64")
	t.Setenv("DISPATCH_BUFFER_SIZE", "256")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "bmp", cfg.ThumbnailFormat)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.Equal(t, 8, cfg.MaxConcurrentJobs)
	assert.Equal(t, 3, cfg.ExtractParallelism)
	assert.Equal(t, 64, cfg.EventBufferSize)
	assert.Equal(t, 256, cfg.DispatchBufferSize)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "http://minio:9000", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.S3Enabled())
}

func TestLoad_InvalidInteger(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	// go-envconfig returns an error when parsing fails
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RunsValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("THUMBNAIL_FORMAT", "gif")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidThumbnailFormat)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid config", func(*Config) {}, nil},
		{"bmp format", func(c *Config) { c.ThumbnailFormat = "bmp" }, nil},
		{"upper-case format", func(c *Config) { c.ThumbnailFormat = "PNG" }, nil},
		{"unknown format", func(c *Config) { c.ThumbnailFormat = "jpeg" }, ErrInvalidThumbnailFormat},
		{"zero jobs", func(c *Config) { c.MaxConcurrentJobs = 0 }, ErrInvalidConcurrency},
		{"negative parallelism", func(c *Config) { c.ExtractParallelism = -1 }, ErrInvalidConcurrency},
		{"zero event buffer", func(c *Config) { c.EventBufferSize = 0 }, ErrInvalidEventBuffer},
		{"zero dispatch buffer", func(c *Config) { c.DispatchBufferSize = 0 }, ErrInvalidEventBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 8080
	cfg.TempDir = "/tmp/test"
	cfg.S3Bucket = "bucket"
	cfg.AWSAccessKeyID = "access-key-id"
	cfg.AWSSecretAccessKey = "secret-key"

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "bucket")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "access-key-id")
}

func TestConfig_NewLogger(t *testing.T) {
	for _, format := range []string{"json", "text", ""} {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{LogFormat: format, LogLevel: "warn"}

			logger := cfg.NewLogger()
			require.NotNil(t, logger)
			assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
			assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
