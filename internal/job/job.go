// Package job provides the streaming thumbnail job registry.
// It includes the Job entity with its state machine, the frame schedule,
// sinks for delivering produced frames, and the Registry that owns the
// lifecycle of every job keyed by an opaque handle.
package job

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Handle identifies one streaming job instance.
type Handle int64

// Status represents the current state of a Job.
type Status string

const (
	// StatusCreated indicates the job exists but has not been started.
	StatusCreated Status = "CREATED"
	// StatusRunning indicates frames are being produced.
	StatusRunning Status = "RUNNING"
	// StatusCancelled indicates production was stopped before the end.
	StatusCancelled Status = "CANCELLED"
	// StatusCompleted indicates every scheduled frame was attempted.
	StatusCompleted Status = "COMPLETED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
// A created job that is stopped before it ever ran is cancelled and can
// no longer be started.
var validTransitions = map[Status][]Status{
	StatusCreated:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCancelled, StatusCompleted},
	StatusCancelled: {},
	StatusCompleted: {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Params are the production parameters supplied when a job is started.
type Params struct {
	// StartMs is the timestamp of the first frame.
	StartMs int64
	// EndMs is the timestamp of the last frame.
	EndMs int64
	// TotalThumbsCount is how many frames to produce.
	TotalThumbsCount int
	// Width is the target frame width in pixels.
	Width int
	// Height is the target frame height in pixels.
	Height int
}

// Job is one pending or in-flight thumbnail streaming request.
// All fields are guarded by mu; use Snapshot for reads from outside the package.
type Job struct {
	mu sync.Mutex

	handle    Handle
	sourceRef string
	status    Status
	params    Params
	sink      Sink
	cancel    context.CancelFunc
	delivered int

	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
}

// newJob creates a Job in CREATED state bound to sourceRef.
func newJob(h Handle, sourceRef string) *Job {
	return &Job{
		handle:    h,
		sourceRef: sourceRef,
		status:    StatusCreated,
		createdAt: time.Now(),
	}
}

// transitionLocked changes the status; the caller must hold j.mu.
func (j *Job) transitionLocked(to Status) error {
	if !canTransition(j.status, to) {
		return ErrInvalidTransition
	}
	j.status = to

	now := time.Now()
	switch to {
	case StatusRunning:
		j.startedAt = now
	case StatusCancelled, StatusCompleted:
		j.completedAt = now
	}
	return nil
}

// cancelLocked moves a non-terminal job to CANCELLED and releases its producer.
// The caller must hold j.mu. Returns false if the job was already terminal.
func (j *Job) cancelLocked() bool {
	if j.status.IsTerminal() {
		return false
	}
	_ = j.transitionLocked(StatusCancelled)
	if j.cancel != nil {
		j.cancel()
	}
	return true
}

// Status returns the current job status.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Snapshot is a point-in-time copy of a Job, safe to share.
type Snapshot struct {
	Handle      Handle
	SourceRef   string
	Status      Status
	Params      Params
	Delivered   int // frames the sink accepted
	HasSink     bool
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// Snapshot returns a copy of the job's state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		Handle:      j.handle,
		SourceRef:   j.sourceRef,
		Status:      j.status,
		Params:      j.params,
		Delivered:   j.delivered,
		HasSink:     j.sink != nil,
		CreatedAt:   j.createdAt,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
	}
}
