package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/video-trimmer/internal/job"
	"github.com/maauso/video-trimmer/internal/media"
	"github.com/maauso/video-trimmer/internal/storage"
	"github.com/maauso/video-trimmer/internal/video"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	registry    *job.Registry
	videos      *video.Service
	validator   *validator.Validate
	logger      *slog.Logger
	eventBuffer int
	keepAlive   time.Duration
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithEventBufferSize sets how many undelivered events a stream may queue
// before frames are dropped.
func WithEventBufferSize(n int) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.eventBuffer = n
		}
	}
}

// WithKeepAlive sets the interval of SSE keep-alive comments.
func WithKeepAlive(d time.Duration) HandlerOption {
	return func(h *Handlers) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *job.Registry, videos *video.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		registry:    registry,
		videos:      videos,
		validator:   validator.New(),
		logger:      logger,
		eventBuffer: 16,
		keepAlive:   15 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Jobs: h.registry.Len()})
}

// InitThumbnailRequest handles POST /thumbnails/requests.
func (h *Handlers) InitThumbnailRequest(w http.ResponseWriter, r *http.Request) {
	var req InitThumbnailRequest
	if !h.decode(w, r, &req) {
		return
	}

	handle, err := h.registry.Create(req.Source)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, InitThumbnailResponse{Handle: int64(handle)})
}

// StartThumbnailRequest handles POST /thumbnails/requests/{handle}/start.
func (h *Handlers) StartThumbnailRequest(w http.ResponseWriter, r *http.Request) {
	handle, ok := parseHandle(w, r)
	if !ok {
		return
	}
	var req StartThumbnailRequest
	if !h.decode(w, r, &req) {
		return
	}

	accepted, err := h.registry.Start(handle, job.Params{
		StartMs:          req.StartMs,
		EndMs:            req.EndMs,
		TotalThumbsCount: req.TotalThumbsCount,
		Width:            req.Width,
		Height:           req.Height,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if accepted {
		status = http.StatusAccepted
	}
	writeJSON(w, status, StartThumbnailResponse{Accepted: accepted})
}

// StopThumbnailRequest handles POST /thumbnails/requests/{handle}/stop.
func (h *Handlers) StopThumbnailRequest(w http.ResponseWriter, r *http.Request) {
	handle, ok := parseHandle(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, StopThumbnailResponse{Found: h.registry.Stop(handle)})
}

// RemoveThumbnailRequest handles DELETE /thumbnails/requests/{handle}.
func (h *Handlers) RemoveThumbnailRequest(w http.ResponseWriter, r *http.Request) {
	handle, ok := parseHandle(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, RemoveThumbnailResponse{Removed: h.registry.Remove(handle)})
}

// GetThumbnailRequest handles GET /thumbnails/requests/{handle}.
func (h *Handlers) GetThumbnailRequest(w http.ResponseWriter, r *http.Request) {
	handle, ok := parseHandle(w, r)
	if !ok {
		return
	}

	snap, err := h.registry.Get(handle)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(snap))
}

// DisposeAll handles POST /dispose.
func (h *Handlers) DisposeAll(w http.ResponseWriter, r *http.Request) {
	n := h.registry.Len()
	h.registry.DisposeAll()
	writeJSON(w, http.StatusOK, DisposeResponse{Disposed: n})
}

// Trim handles POST /trim.
func (h *Handlers) Trim(w http.ResponseWriter, r *http.Request) {
	var req TrimRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.videos.Trim(r.Context(), video.TrimInput{
		Source:      req.Source,
		Destination: req.Destination,
		StartMs:     req.StartMs,
		EndMs:       req.EndMs,
		PushToS3:    req.PushToS3,
	})
	if err != nil {
		if out != nil && errors.Is(err, media.ErrProcessFailure) {
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("trim failed with exit code %d", out.ExitCode), "PROCESS_FAILURE")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TrimResponse{
		ExitCode:   out.ExitCode,
		OutputFile: out.OutputFile,
		VideoURL:   out.VideoURL,
		SizeBytes:  out.SizeBytes,
	})
}

// ExtractThumbnail handles POST /thumbnail.
func (h *Handlers) ExtractThumbnail(w http.ResponseWriter, r *http.Request) {
	var req ThumbnailRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.videos.ExtractThumbnail(r.Context(), req.Source, req.Width, req.Height)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFrameResponse(*rec))
}

// ExtractThumbnails handles POST /thumbnails.
func (h *Handlers) ExtractThumbnails(w http.ResponseWriter, r *http.Request) {
	var req ThumbnailsRequest
	if !h.decode(w, r, &req) {
		return
	}

	frames, err := h.videos.ExtractThumbnails(r.Context(), video.ExtractThumbnailsInput{
		Source: req.Source,
		Params: job.Params{
			StartMs:          req.StartMs,
			EndMs:            req.EndMs,
			TotalThumbsCount: req.TotalThumbsCount,
			Width:            req.Width,
			Height:           req.Height,
		},
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := ThumbnailsResponse{Frames: make([]FrameResponse, 0, len(frames))}
	for _, f := range frames {
		resp.Frames = append(resp.Frames, toFrameResponse(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads and validates a JSON body, writing the error response on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// writeServiceError maps domain errors to HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, job.ErrInvalidArgument),
		errors.Is(err, media.ErrInvalidDimensions),
		errors.Is(err, media.ErrInvalidTimestamp),
		errors.Is(err, media.ErrInvalidRange),
		errors.Is(err, media.ErrUnsupportedSource),
		errors.Is(err, storage.ErrOutsideTempDir),
		errors.Is(err, storage.ErrS3NotConfigured):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_ARGUMENT")
	case errors.Is(err, job.ErrUnknownHandle):
		writeError(w, http.StatusNotFound, "unknown handle", "UNKNOWN_HANDLE")
	case errors.Is(err, media.ErrSourceNotFound), errors.Is(err, media.ErrFrameNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, media.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error(), "PERMISSION_DENIED")
	case errors.Is(err, media.ErrProcessFailure):
		writeError(w, http.StatusInternalServerError, "transcoder process failed", "PROCESS_FAILURE")
	case errors.Is(err, media.ErrExtractionFailed):
		writeError(w, http.StatusInternalServerError, "frame extraction failed", "EXTRACTION_FAILURE")
	case errors.Is(err, job.ErrRegistryClosed):
		writeError(w, http.StatusServiceUnavailable, "service is shutting down", "UNAVAILABLE")
	default:
		h.logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// parseHandle reads the {handle} path value, writing a 400 if it is not an integer.
func parseHandle(w http.ResponseWriter, r *http.Request) (job.Handle, bool) {
	raw := r.PathValue("handle")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid handle %q", raw), "INVALID_ARGUMENT")
		return 0, false
	}
	return job.Handle(n), true
}

func toJobResponse(s job.Snapshot) ThumbnailJobResponse {
	resp := ThumbnailJobResponse{
		Handle:           int64(s.Handle),
		Source:           s.SourceRef,
		Status:           string(s.Status),
		StartMs:          s.Params.StartMs,
		EndMs:            s.Params.EndMs,
		TotalThumbsCount: s.Params.TotalThumbsCount,
		Width:            s.Params.Width,
		Height:           s.Params.Height,
		Delivered:        s.Delivered,
		Streaming:        s.HasSink,
		CreatedAt:        s.CreatedAt,
	}
	if !s.StartedAt.IsZero() {
		resp.StartedAt = &s.StartedAt
	}
	if !s.CompletedAt.IsZero() {
		resp.CompletedAt = &s.CompletedAt
	}
	return resp
}

func toFrameResponse(f job.FrameRecord) FrameResponse {
	return FrameResponse{
		EventType:   string(job.EventResult),
		Handle:      int64(f.Handle),
		Width:       f.Width,
		Height:      f.Height,
		Index:       f.Index,
		TimestampMs: f.TimestampMs,
		Data:        f.Data,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
