// Package media provides the ffmpeg-backed collaborators used to produce
// thumbnails and trim videos.
package media

import "context"

// FrameExtractor decodes single frames from a video.
type FrameExtractor interface {
	// ExtractFrame returns the encoded frame closest to timestampMs, scaled
	// so it covers a width x height canvas (aspect ratio preserved) and then
	// centre-cropped to exactly that size.
	// Returns ErrFrameNotFound when the source has no frame at that position.
	ExtractFrame(ctx context.Context, source string, timestampMs int64, width, height int) ([]byte, error)
}

// Trimmer cuts a time range out of a video without re-encoding.
type Trimmer interface {
	// Trim copies the [startMs, endMs) range of src into dst using stream copy.
	// The transcoder's exit code is always returned; a non-zero code comes with
	// an error wrapping ErrProcessFailure.
	Trim(ctx context.Context, src, dst string, startMs, endMs int64) (exitCode int, err error)
}
