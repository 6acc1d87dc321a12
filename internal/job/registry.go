package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/maauso/video-trimmer/internal/job/handle"
	"github.com/maauso/video-trimmer/internal/media"
	"github.com/maauso/video-trimmer/internal/metrics"
)

var (
	// ErrUnknownHandle is returned when an operation names a job that does not exist.
	ErrUnknownHandle = errors.New("unknown handle")
	// ErrRegistryClosed is returned when the registry has been shut down.
	ErrRegistryClosed = errors.New("registry closed")
	// ErrProducerFailed is reported when a producer stops on an unexpected failure.
	ErrProducerFailed = errors.New("producer failed")
)

// Registry owns a set of cancelable thumbnail streaming jobs keyed by handle.
//
// Bookkeeping (Create, Start, Stop, Remove, DisposeAll, sink changes) is
// serialized by one mutex. Each started job gets one producer goroutine that
// waits for a slot on a bounded pool, asks the extractor for its frames one by
// one, and posts every result to a single dispatcher goroutine. The dispatcher
// re-checks the job under its lock before calling the sink, so once Stop,
// Remove, DetachSink or DisposeAll has returned nothing more reaches the sink.
type Registry struct {
	mu      sync.Mutex
	jobs    map[Handle]*Job
	handles handle.Allocator
	closed  bool

	extractor media.FrameExtractor
	logger    *slog.Logger
	metrics   *metrics.Metrics

	maxConcurrentJobs int
	dispatchBuffer    int
	pool              *semaphore.Weighted

	// baseCtx outlives Stop; it is only cancelled by Close.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	producers  sync.WaitGroup
	deliveries chan func()
	dispatched chan struct{}
	closeOnce  sync.Once
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxConcurrentJobs sets how many jobs may produce frames at the same time.
func WithMaxConcurrentJobs(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxConcurrentJobs = n
		}
	}
}

// WithDispatchBuffer sets how many deliveries may be queued for the dispatcher.
func WithDispatchBuffer(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.dispatchBuffer = n
		}
	}
}

// WithMetrics sets the metrics the registry reports to.
func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRegistry creates a Registry and starts its dispatcher.
// Call Close to release it.
func NewRegistry(extractor media.FrameExtractor, logger *slog.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		jobs:              make(map[Handle]*Job),
		extractor:         extractor,
		logger:            logger,
		maxConcurrentJobs: 4,
		dispatchBuffer:    64,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}

	r.pool = semaphore.NewWeighted(int64(r.maxConcurrentJobs))
	r.baseCtx, r.baseCancel = context.WithCancel(context.Background())
	r.deliveries = make(chan func(), r.dispatchBuffer)
	r.dispatched = make(chan struct{})

	go r.dispatch()
	return r
}

// Create registers a new job for sourceRef in CREATED state and returns its handle.
func (r *Registry) Create(sourceRef string) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, ErrRegistryClosed
	}

	id, err := r.handles.Next()
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}
	h := Handle(id)
	r.jobs[h] = newJob(h, sourceRef)

	r.logger.Debug("thumbnail job created",
		slog.Int64("handle", int64(h)),
		slog.String("source", sourceRef),
	)
	return h, nil
}

// Start moves a CREATED job to RUNNING and schedules its producer.
// It returns false without error when the handle is unknown or the job was
// already started, stopped or finished. Invalid parameters are rejected with
// ErrInvalidArgument before anything is scheduled.
func (r *Registry) Start(h Handle, p Params) (bool, error) {
	timestamps, err := Timestamps(p)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, nil
	}
	j, ok := r.jobs[h]
	if !ok {
		return false, nil
	}

	j.mu.Lock()
	if err := j.transitionLocked(StatusRunning); err != nil {
		status := j.status
		j.mu.Unlock()
		r.logger.Debug("thumbnail job not startable",
			slog.Int64("handle", int64(h)),
			slog.String("status", string(status)),
		)
		return false, nil
	}
	ctx, cancel := context.WithCancel(r.baseCtx)
	j.cancel = cancel
	j.params = p
	source := j.sourceRef
	j.mu.Unlock()

	r.logger.Info("thumbnail job started",
		slog.Int64("handle", int64(h)),
		slog.Int64("start_ms", p.StartMs),
		slog.Int64("end_ms", p.EndMs),
		slog.Int("total_thumbs_count", p.TotalThumbsCount),
		slog.Int("width", p.Width),
		slog.Int("height", p.Height),
	)

	r.producers.Add(1)
	go r.produce(ctx, cancel, j, source, p, timestamps)
	return true, nil
}

// Stop requests cancellation of the job's production.
// Returns false if the handle is unknown.
func (r *Registry) Stop(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[h]
	if !ok {
		return false
	}

	j.mu.Lock()
	cancelled := j.cancelLocked()
	j.mu.Unlock()

	if cancelled {
		r.logger.Info("thumbnail job stopped", slog.Int64("handle", int64(h)))
	}
	return true
}

// Remove stops the job if needed and deletes it.
// Afterwards the handle behaves as if it had never been created.
func (r *Registry) Remove(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[h]
	if !ok {
		return false
	}
	r.releaseLocked(j)
	delete(r.jobs, h)

	r.logger.Debug("thumbnail job removed", slog.Int64("handle", int64(h)))
	return true
}

// DisposeAll stops every job and empties the registry.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.jobs)
	for h, j := range r.jobs {
		r.releaseLocked(j)
		delete(r.jobs, h)
	}

	if n > 0 {
		r.logger.Info("thumbnail jobs disposed", slog.Int("count", n))
	}
}

// releaseLocked cancels j and detaches its sink; the caller must hold r.mu.
func (r *Registry) releaseLocked(j *Job) {
	j.mu.Lock()
	j.cancelLocked()
	j.sink = nil
	j.mu.Unlock()
}

// AttachSink binds s as the consumer of the job's frames, replacing any previous sink.
// Returns false if the handle is unknown.
func (r *Registry) AttachSink(h Handle, s Sink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[h]
	if !ok {
		return false
	}
	j.mu.Lock()
	j.sink = s
	j.mu.Unlock()
	return true
}

// DetachSink unbinds s from the job if it is still the job's consumer.
// Production continues; frames produced while no sink is attached are dropped.
// Returns false if the handle is unknown or another sink has replaced s.
func (r *Registry) DetachSink(h Handle, s Sink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[h]
	if !ok {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.sink != s {
		return false
	}
	j.sink = nil
	return true
}

// Attached reports whether s is the current consumer of the job.
func (r *Registry) Attached(h Handle, s Sink) bool {
	r.mu.Lock()
	j, ok := r.jobs[h]
	r.mu.Unlock()
	if !ok {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sink == s
}

// Get returns a snapshot of the job.
// Returns ErrUnknownHandle if the job does not exist.
func (r *Registry) Get(h Handle) (Snapshot, error) {
	r.mu.Lock()
	j, ok := r.jobs[h]
	r.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrUnknownHandle
	}
	return j.Snapshot(), nil
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Close disposes every job, waits for producers to exit and stops the dispatcher.
// In-flight extractions are cancelled.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		r.DisposeAll()
		r.baseCancel()
		r.producers.Wait()

		close(r.deliveries)
		<-r.dispatched
	})
}

// produce runs one job's frame sequence on the bounded pool.
func (r *Registry) produce(ctx context.Context, cancel context.CancelFunc, j *Job, source string, p Params, timestamps []int64) {
	defer r.producers.Done()
	defer cancel()

	if err := r.pool.Acquire(ctx, 1); err != nil {
		// Stopped while waiting for a slot.
		r.metrics.JobsFinished.WithLabelValues(string(StatusCancelled)).Inc()
		return
	}
	defer r.pool.Release(1)

	r.metrics.ActiveProducers.Inc()
	defer r.metrics.ActiveProducers.Dec()

	if err := r.runFrames(ctx, j, source, p, timestamps); err != nil {
		r.logger.Error("thumbnail producer failed",
			slog.Int64("handle", int64(j.handle)),
			slog.String("error", err.Error()),
		)
	}

	j.mu.Lock()
	completed := j.transitionLocked(StatusCompleted) == nil
	final := j.status
	j.mu.Unlock()

	r.metrics.JobsFinished.WithLabelValues(string(final)).Inc()
	if completed {
		r.logger.Info("thumbnail job completed", slog.Int64("handle", int64(j.handle)))
		r.post(func() { r.deliverComplete(j) })
	}
}

// runFrames extracts and posts each frame until done or cancelled.
// Cancellation is checked between frames only; an extraction that has begun
// runs to completion.
func (r *Registry) runFrames(ctx context.Context, j *Job, source string, p Params, timestamps []int64) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrProducerFailed, rec)
		}
	}()

	for i, ts := range timestamps {
		if ctx.Err() != nil {
			return nil
		}

		data, extractErr := r.extractor.ExtractFrame(r.baseCtx, source, ts, p.Width, p.Height)
		if extractErr != nil {
			r.metrics.FrameFailures.Inc()
			r.logger.Warn("thumbnail frame skipped",
				slog.Int64("handle", int64(j.handle)),
				slog.Int("index", i),
				slog.Int64("timestamp_ms", ts),
				slog.String("error", extractErr.Error()),
			)
			continue
		}
		r.metrics.FramesExtracted.Inc()

		rec := FrameRecord{
			Handle:      j.handle,
			Width:       p.Width,
			Height:      p.Height,
			Data:        data,
			Index:       i,
			TimestampMs: ts,
		}
		r.post(func() { r.deliverFrame(j, rec) })
	}
	return nil
}

// post queues fn for the dispatcher.
func (r *Registry) post(fn func()) {
	r.deliveries <- fn
}

// dispatch runs queued deliveries in order on a single goroutine.
func (r *Registry) dispatch() {
	defer close(r.dispatched)
	for fn := range r.deliveries {
		fn()
	}
}

func (r *Registry) deliverFrame(j *Job, rec FrameRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status == StatusCancelled || j.sink == nil {
		r.metrics.FramesDropped.Inc()
		return
	}
	if !j.sink.Frame(rec) {
		r.metrics.FramesDropped.Inc()
		return
	}
	j.delivered++
	r.metrics.FramesDelivered.Inc()
}

func (r *Registry) deliverComplete(j *Job) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status != StatusCompleted || j.sink == nil {
		return
	}
	j.sink.Complete(j.handle)
}
