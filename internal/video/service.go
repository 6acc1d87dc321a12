// Package video provides the one-shot use cases: trimming a clip and
// extracting thumbnails without going through a streaming job.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/maauso/video-trimmer/internal/job"
	"github.com/maauso/video-trimmer/internal/media"
	"github.com/maauso/video-trimmer/internal/metrics"
	"github.com/maauso/video-trimmer/internal/storage"
)

// ErrMissingSource is returned when no source video was given.
var ErrMissingSource = errors.New("source is required")

// minTrimMs is the shortest range a trim accepts; seeks are whole seconds.
const minTrimMs = 1000

// TrimInput contains the parameters of a trim.
type TrimInput struct {
	// Source is the local path or file:// URL of the input video.
	Source string
	// Destination is a file name relative to the storage temp directory.
	// When empty a unique temp file is used.
	Destination string
	// StartMs is the beginning of the kept range.
	StartMs int64
	// EndMs is the end of the kept range.
	EndMs int64
	// PushToS3 publishes the result and removes the local temp file.
	PushToS3 bool
}

// TrimOutput contains the result of a trim.
type TrimOutput struct {
	// ExitCode is the transcoder's exit status; always set once the process ran.
	ExitCode int
	// OutputFile is the local path of the trimmed video (empty once published from temp).
	OutputFile string
	// VideoURL is the published URL when PushToS3 was requested.
	VideoURL string
	// SizeBytes is the size of the trimmed video.
	SizeBytes int64
}

// ExtractThumbnailsInput contains the parameters of a batch extraction.
type ExtractThumbnailsInput struct {
	Source string
	Params job.Params
}

// Service runs trims and one-shot thumbnail extraction.
type Service struct {
	extractor   media.FrameExtractor
	trimmer     media.Trimmer
	store       storage.Storage
	metrics     *metrics.Metrics
	logger      *slog.Logger
	parallelism int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics sets the metrics the service reports to.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithParallelism sets how many frames ExtractThumbnails decodes at once.
func WithParallelism(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// NewService creates a new Service.
func NewService(extractor media.FrameExtractor, trimmer media.Trimmer, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		extractor:   extractor,
		trimmer:     trimmer,
		store:       store,
		logger:      logger,
		parallelism: 2,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// Trim cuts [StartMs, EndMs) out of the source with stream copy.
// The range must span at least one second.
// The returned output carries the exit code even when err is non-nil.
func (s *Service) Trim(ctx context.Context, in TrimInput) (*TrimOutput, error) {
	if in.Source == "" {
		return nil, fmt.Errorf("%w: %w", job.ErrInvalidArgument, ErrMissingSource)
	}
	if in.StartMs < 0 || in.EndMs <= in.StartMs {
		return nil, fmt.Errorf("%w: range [%d, %d) is empty", job.ErrInvalidArgument, in.StartMs, in.EndMs)
	}
	if in.EndMs-in.StartMs < minTrimMs {
		return nil, fmt.Errorf("%w: range [%d, %d) is shorter than %dms", job.ErrInvalidArgument, in.StartMs, in.EndMs, minTrimMs)
	}

	var dst string
	ownsDst := false
	if in.Destination != "" {
		path, err := s.store.Resolve(ctx, in.Destination)
		if err != nil {
			if errors.Is(err, storage.ErrOutsideTempDir) {
				return nil, fmt.Errorf("%w: %w", job.ErrInvalidArgument, err)
			}
			return nil, fmt.Errorf("resolve destination: %w", err)
		}
		dst = path
	} else {
		path, err := s.store.TempPath(ctx, "trim", extensionOf(in.Source))
		if err != nil {
			return nil, fmt.Errorf("allocate destination: %w", err)
		}
		dst = path
		ownsDst = true
	}

	logger := s.logger.With(
		slog.String("source", in.Source),
		slog.String("destination", dst),
	)
	logger.Info("trim started",
		slog.Int64("start_ms", in.StartMs),
		slog.Int64("end_ms", in.EndMs),
	)

	started := time.Now()
	code, err := s.trimmer.Trim(ctx, in.Source, dst, in.StartMs, in.EndMs)
	s.metrics.TrimDuration.Observe(time.Since(started).Seconds())
	out := &TrimOutput{ExitCode: code}
	if err != nil {
		s.metrics.TrimsTotal.WithLabelValues("failure").Inc()
		if ownsDst {
			s.cleanup(dst)
		}
		logger.Error("trim failed",
			slog.Int("exit_code", code),
			slog.String("error", err.Error()),
		)
		return out, err
	}

	out.OutputFile = dst
	if info, statErr := os.Stat(dst); statErr == nil {
		out.SizeBytes = info.Size()
	}
	logger.Info("trim completed",
		slog.Int("exit_code", code),
		slog.String("size", humanize.Bytes(uint64(out.SizeBytes))), // #nosec G115 - size from os.Stat is never negative
		slog.Duration("took", time.Since(started)),
	)

	if in.PushToS3 {
		key := fmt.Sprintf("trims/%s%s", uuid.New().String(), extensionOf(dst))
		url, err := s.store.Publish(ctx, key, dst)
		if err != nil {
			s.metrics.TrimsTotal.WithLabelValues("failure").Inc()
			return out, fmt.Errorf("publish trim: %w", err)
		}
		out.VideoURL = url
		logger.Info("trim published", slog.String("url", url))

		if ownsDst {
			s.cleanup(dst)
			out.OutputFile = ""
		}
	}

	s.metrics.TrimsTotal.WithLabelValues("success").Inc()
	return out, nil
}

// ExtractThumbnail returns the first frame of source scaled to cover
// width x height and centre-cropped.
func (s *Service) ExtractThumbnail(ctx context.Context, source string, width, height int) (*job.FrameRecord, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: %w", job.ErrInvalidArgument, ErrMissingSource)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", job.ErrInvalidArgument, width, height)
	}

	data, err := s.extractor.ExtractFrame(ctx, source, 0, width, height)
	if err != nil {
		return nil, fmt.Errorf("extract thumbnail: %w", err)
	}
	return &job.FrameRecord{Width: width, Height: height, Data: data}, nil
}

// ExtractThumbnails decodes every frame of the schedule and returns them in
// schedule order. Frames that fail to decode are left out.
func (s *Service) ExtractThumbnails(ctx context.Context, in ExtractThumbnailsInput) ([]job.FrameRecord, error) {
	if in.Source == "" {
		return nil, fmt.Errorf("%w: %w", job.ErrInvalidArgument, ErrMissingSource)
	}
	timestamps, err := job.Timestamps(in.Params)
	if err != nil {
		return nil, err
	}

	results := make([]*job.FrameRecord, len(timestamps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, ts := range timestamps {
		g.Go(func() error {
			data, err := s.extractor.ExtractFrame(gctx, in.Source, ts, in.Params.Width, in.Params.Height)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.metrics.FrameFailures.Inc()
				s.logger.Warn("thumbnail frame skipped",
					slog.String("source", in.Source),
					slog.Int("index", i),
					slog.Int64("timestamp_ms", ts),
					slog.String("error", err.Error()),
				)
				return nil
			}
			s.metrics.FramesExtracted.Inc()
			results[i] = &job.FrameRecord{
				Width:       in.Params.Width,
				Height:      in.Params.Height,
				Data:        data,
				Index:       i,
				TimestampMs: ts,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract thumbnails: %w", err)
	}

	frames := make([]job.FrameRecord, 0, len(results))
	for _, r := range results {
		if r != nil {
			frames = append(frames, *r)
		}
	}
	return frames, nil
}

func (s *Service) cleanup(path string) {
	if err := s.store.Cleanup(context.Background(), []string{path}); err != nil {
		s.logger.Warn("failed to remove temp file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// extensionOf returns the file extension of a path or URL, ".mp4" if it has none.
func extensionOf(p string) string {
	if ext := filepath.Ext(p); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".mp4"
}
