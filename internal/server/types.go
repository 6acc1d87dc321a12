// Package server provides the HTTP server for the video-trimmer service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// InitThumbnailRequest is the HTTP request body for registering a thumbnail job.
type InitThumbnailRequest struct {
	// Source is the local path or file:// URL of the video to read frames from.
	Source string `json:"source" validate:"required"`
}

// InitThumbnailResponse is the HTTP response after registering a thumbnail job.
type InitThumbnailResponse struct {
	// Handle identifies the job in every later call.
	Handle int64 `json:"handle"`
}

// StartThumbnailRequest is the HTTP request body for starting a thumbnail job.
// Only upper bounds are checked here; the registry rejects an empty count,
// a reversed range or a non-positive size with INVALID_ARGUMENT.
type StartThumbnailRequest struct {
	StartMs          int64 `json:"start_ms"`
	EndMs            int64 `json:"end_ms"`
	TotalThumbsCount int   `json:"total_thumbs_count" validate:"max=1000"`
	Width            int   `json:"width" validate:"max=4096"`
	Height           int   `json:"height" validate:"max=4096"`
}

// StartThumbnailResponse reports whether production was scheduled.
type StartThumbnailResponse struct {
	Accepted bool `json:"accepted"`
}

// StopThumbnailResponse reports whether the handle was known.
type StopThumbnailResponse struct {
	Found bool `json:"found"`
}

// RemoveThumbnailResponse reports whether a job was removed.
type RemoveThumbnailResponse struct {
	Removed bool `json:"removed"`
}

// DisposeResponse reports how many jobs were disposed.
type DisposeResponse struct {
	Disposed int `json:"disposed"`
}

// ThumbnailJobResponse is the HTTP response for getting a thumbnail job.
type ThumbnailJobResponse struct {
	Handle           int64      `json:"handle"`
	Source           string     `json:"source"`
	Status           string     `json:"status"`
	StartMs          int64      `json:"start_ms"`
	EndMs            int64      `json:"end_ms"`
	TotalThumbsCount int        `json:"total_thumbs_count"`
	Width            int        `json:"width"`
	Height           int        `json:"height"`
	Delivered        int        `json:"delivered"`
	Streaming        bool       `json:"streaming"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// TrimRequest is the HTTP request body for trimming a video.
type TrimRequest struct {
	// Source is the local path or file:// URL of the input video.
	Source string `json:"source" validate:"required"`
	// Destination is a file name relative to the temp directory; a unique
	// temp file is used when empty.
	Destination string `json:"destination"`
	StartMs     int64  `json:"start_ms" validate:"min=0"`
	EndMs       int64  `json:"end_ms" validate:"required,gtfield=StartMs"`
	// PushToS3 indicates whether to upload the trimmed video to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// TrimResponse is the HTTP response after a trim.
type TrimResponse struct {
	ExitCode   int    `json:"exit_code"`
	OutputFile string `json:"output_file,omitempty"`
	VideoURL   string `json:"video_url,omitempty"`
	SizeBytes  int64  `json:"size_bytes"`
}

// ThumbnailRequest is the HTTP request body for extracting one thumbnail.
type ThumbnailRequest struct {
	Source string `json:"source" validate:"required"`
	Width  int    `json:"width" validate:"required,min=1,max=4096"`
	Height int    `json:"height" validate:"required,min=1,max=4096"`
}

// ThumbnailsRequest is the HTTP request body for extracting a batch of thumbnails.
// Schedule parameters are checked like StartThumbnailRequest.
type ThumbnailsRequest struct {
	Source           string `json:"source" validate:"required"`
	StartMs          int64  `json:"start_ms"`
	EndMs            int64  `json:"end_ms"`
	TotalThumbsCount int    `json:"total_thumbs_count" validate:"max=1000"`
	Width            int    `json:"width" validate:"max=4096"`
	Height           int    `json:"height" validate:"max=4096"`
}

// FrameResponse is one thumbnail. Data is base64-encoded in JSON.
type FrameResponse struct {
	EventType   string `json:"event_type"`
	Handle      int64  `json:"handle"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Index       int    `json:"index"`
	TimestampMs int64  `json:"timestamp_ms"`
	Data        []byte `json:"data"`
}

// ThumbnailsResponse is the HTTP response for a batch extraction.
type ThumbnailsResponse struct {
	Frames []FrameResponse `json:"frames"`
}

// DoneEvent is the last event of a thumbnail stream.
type DoneEvent struct {
	EventType string `json:"event_type"`
	Handle    int64  `json:"handle"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// Jobs is the number of registered thumbnail jobs.
	Jobs int `json:"jobs"`
}
