package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/maauso/video-trimmer/internal/job"
)

// ThumbnailEvents handles GET /thumbnails/requests/{handle}/events.
//
// It attaches a sink to the job for the lifetime of the connection and
// streams a "status" event with the current snapshot, one "result" event per
// frame and a final "done" event when the job completes. Frames the client
// is too slow to take are dropped; "done" is always sent. The most recent
// connection owns the job's sink, and a replaced connection ends at its
// next keep-alive, as does the stream of a stopped or removed job.
func (h *Handlers) ThumbnailEvents(w http.ResponseWriter, r *http.Request) {
	handle, ok := parseHandle(w, r)
	if !ok {
		return
	}

	sink := job.NewChannelSink(h.eventBuffer)
	if !h.registry.AttachSink(handle, sink) {
		writeError(w, http.StatusNotFound, "unknown handle", "UNKNOWN_HANDLE")
		return
	}
	defer h.registry.DetachSink(handle, sink)

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	snap, err := h.registry.Get(handle)
	if err != nil {
		return
	}
	h.sseWrite(w, rc, "status", toJobResponse(snap))
	switch snap.Status {
	case job.StatusCompleted:
		h.finishStream(w, rc, sink, handle)
		return
	case job.StatusCancelled:
		return
	}

	logger := h.logger.With(slog.Int64("handle", int64(handle)))
	logger.Debug("thumbnail stream opened")
	defer func() {
		logger.Debug("thumbnail stream closed", slog.Int64("dropped", sink.Dropped()))
	}()

	ctx := r.Context()
	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	// A completed job whose completion signal has not arrived by the
	// following tick is finished here.
	completedSeen := false
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sink.Events():
			h.sseWrite(w, rc, string(job.EventResult), toFrameResponse(ev.Frame))
		case <-sink.Done():
			h.finishStream(w, rc, sink, handle)
			return
		case <-keepAlive.C:
			snap, err := h.registry.Get(handle)
			if err != nil || snap.Status == job.StatusCancelled || !h.registry.Attached(handle, sink) {
				return
			}
			if snap.Status == job.StatusCompleted {
				if completedSeen {
					h.finishStream(w, rc, sink, handle)
					return
				}
				completedSeen = true
			}
			sendKeepAlive(w, rc)
		}
	}
}

// finishStream writes the frames still buffered in sink followed by "done".
func (h *Handlers) finishStream(w http.ResponseWriter, rc *http.ResponseController, sink *job.ChannelSink, handle job.Handle) {
	for {
		select {
		case ev := <-sink.Events():
			h.sseWrite(w, rc, string(job.EventResult), toFrameResponse(ev.Frame))
		default:
			h.sseWrite(w, rc, string(job.EventDone), DoneEvent{EventType: string(job.EventDone), Handle: int64(handle)})
			return
		}
	}
}

// sseWrite writes one SSE event with a JSON payload and flushes it.
func (h *Handlers) sseWrite(w http.ResponseWriter, rc *http.ResponseController, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode event", slog.String("event", event), slog.String("error", err.Error()))
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	_ = rc.Flush()
}

// sendKeepAlive writes an SSE comment to keep the connection active.
func sendKeepAlive(w http.ResponseWriter, rc *http.ResponseController) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	_ = rc.Flush()
}
