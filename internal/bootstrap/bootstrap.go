// Package bootstrap provides dependency initialization for the video-trimmer server.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/video-trimmer/internal/config"
	"github.com/maauso/video-trimmer/internal/job"
	"github.com/maauso/video-trimmer/internal/media"
	"github.com/maauso/video-trimmer/internal/metrics"
	"github.com/maauso/video-trimmer/internal/storage"
	"github.com/maauso/video-trimmer/internal/video"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Registry     *job.Registry
	VideoService *video.Service
	Metrics      *metrics.Metrics
}

// Close releases the registry. Call it after the HTTP server has stopped.
func (d *Dependencies) Close() {
	d.Registry.Close()
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	format, err := media.ParseImageFormat(cfg.ThumbnailFormat)
	if err != nil {
		return nil, fmt.Errorf("thumbnail format: %w", err)
	}
	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, media.WithImageFormat(format))

	m := metrics.New()

	registry := job.NewRegistry(processor, logger,
		job.WithMaxConcurrentJobs(cfg.MaxConcurrentJobs),
		job.WithDispatchBuffer(cfg.DispatchBufferSize),
		job.WithMetrics(m),
	)

	svc := video.NewService(processor, processor, store, logger,
		video.WithMetrics(m),
		video.WithParallelism(cfg.ExtractParallelism),
	)

	return &Dependencies{
		Registry:     registry,
		VideoService: svc,
		Metrics:      m,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
