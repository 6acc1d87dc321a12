package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrInvalidTimestamp is returned when a frame timestamp is negative.
	ErrInvalidTimestamp = errors.New("invalid timestamp: must not be negative")
	// ErrInvalidRange is returned when a trim range is empty or negative.
	ErrInvalidRange = errors.New("invalid range: end must be after start")
	// ErrSourceNotFound is returned when the source file does not exist.
	ErrSourceNotFound = errors.New("source not found")
	// ErrPermissionDenied is returned when the source file cannot be read.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrFrameNotFound is returned when no frame could be decoded at the requested position.
	ErrFrameNotFound = errors.New("frame not found")
	// ErrExtractionFailed is returned when ffmpeg fails while decoding a frame.
	ErrExtractionFailed = errors.New("frame extraction failed")
	// ErrProcessFailure is returned when the transcoder exits with a non-zero code.
	ErrProcessFailure = errors.New("transcoder process failed")
	// ErrUnsupportedSource is returned for sources that are not local files.
	ErrUnsupportedSource = errors.New("unsupported source: only local files are accepted")
	// ErrUnsupportedFormat is returned for an image format ffmpeg is not asked to produce.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// ImageFormat is the encoding of extracted frames.
type ImageFormat string

const (
	// FormatPNG encodes frames as PNG.
	FormatPNG ImageFormat = "png"
	// FormatBMP encodes frames as BMP with a file header.
	FormatBMP ImageFormat = "bmp"
)

// ParseImageFormat validates a format name.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch ImageFormat(strings.ToLower(s)) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatBMP:
		return FormatBMP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FFmpegProcessor implements FrameExtractor and Trimmer using the ffmpeg CLI.
type FFmpegProcessor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	format     ImageFormat
}

// ProcessorOption configures an FFmpegProcessor.
type ProcessorOption func(*FFmpegProcessor)

// WithImageFormat sets the encoding of extracted frames.
func WithImageFormat(f ImageFormat) ProcessorOption {
	return func(p *FFmpegProcessor) {
		if f != "" {
			p.format = f
		}
	}
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
// Frames are encoded as PNG unless WithImageFormat says otherwise.
func NewFFmpegProcessor(ffmpegPath string, opts ...ProcessorOption) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	p := &FFmpegProcessor{ffmpegPath: ffmpegPath, format: FormatPNG}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns the encoding of extracted frames.
func (p *FFmpegProcessor) Format() ImageFormat {
	return p.format
}

// ExtractFrame decodes the frame at timestampMs, scales it to cover
// width x height and centre-crops it to exactly that size.
func (p *FFmpegProcessor) ExtractFrame(ctx context.Context, source string, timestampMs int64, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if timestampMs < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTimestamp, timestampMs)
	}
	source, err := resolveSource(source)
	if err != nil {
		return nil, err
	}

	// increase + crop: scale factor is the larger of the two axis ratios,
	// the overflow is trimmed evenly from both sides.
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", width, height, width, height)

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeek(timestampMs), // Input seek: fast, lands on the nearest frame
		"-i", source,
		"-frames:v", "1",
		"-vf", filter,
		"-f", "image2pipe",
		"-c:v", string(p.format),
		"pipe:1",
	}

	out, err := p.runFFmpeg(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s at %dms", ErrFrameNotFound, source, timestampMs)
	}
	return out, nil
}

// Trim cuts [startMs, endMs) out of src into dst with stream copy.
// Seek and duration are truncated to whole seconds, so a range shorter than
// one second produces an empty clip; callers reject such ranges.
func (p *FFmpegProcessor) Trim(ctx context.Context, src, dst string, startMs, endMs int64) (int, error) {
	if startMs < 0 || endMs <= startMs {
		return -1, fmt.Errorf("%w: start=%dms, end=%dms", ErrInvalidRange, startMs, endMs)
	}
	src, err := resolveSource(src)
	if err != nil {
		return -1, err
	}

	_, err = p.runFFmpeg(ctx, TrimArgs(src, dst, startMs, endMs))
	if err != nil {
		var ffErr *FFmpegError
		if errors.As(err, &ffErr) {
			return ffErr.ExitCode, fmt.Errorf("%w: %w", ErrProcessFailure, err)
		}
		return -1, fmt.Errorf("%w: %w", ErrProcessFailure, err)
	}
	return 0, nil
}

// TrimArgs builds the ffmpeg argument list for a stream-copy trim.
// Seek and duration are whole seconds formatted by FormatSeconds.
func TrimArgs(src, dst string, startMs, endMs int64) []string {
	return []string{
		"-y", // Overwrite output file without asking
		"-ss", FormatSeconds(startMs / 1000),
		"-t", FormatSeconds((endMs - startMs) / 1000),
		"-accurate_seek",
		"-i", src,
		"-codec", "copy", // Stream copy, no re-encode
		"-avoid_negative_ts", "1",
		dst,
	}
}

// resolveSource strips a file:// scheme, checks that the file is readable and
// returns its absolute path. Any other URL scheme is rejected, and absolute
// paths keep ffmpeg from reading a name like "concat:a|b" as a protocol.
func resolveSource(source string) (string, error) {
	source = strings.TrimPrefix(source, "file://")
	if strings.Contains(source, "://") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}

	f, err := os.Open(source) // #nosec G304 - existence check only, the file is read by ffmpeg
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		case errors.Is(err, os.ErrPermission):
			return "", fmt.Errorf("%w: %s", ErrPermissionDenied, source)
		default:
			return "", fmt.Errorf("open source: %w", err)
		}
	}
	_ = f.Close()

	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("resolve source: %w", err)
	}
	return abs, nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns its stdout.
// A failed run yields an *FFmpegError carrying stderr and the exit code.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) ([]byte, error) {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &FFmpegError{
			Args:     args,
			Stderr:   stderr.String(),
			ExitCode: exitCode,
			Err:      err,
		}
	}

	return stdout.Bytes(), nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error (exit %d): %v\nargs: %v\nstderr: %s", e.ExitCode, e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

var (
	_ FrameExtractor = (*FFmpegProcessor)(nil)
	_ Trimmer        = (*FFmpegProcessor)(nil)
)
