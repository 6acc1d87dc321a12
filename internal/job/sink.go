package job

import (
	"sync"
	"sync/atomic"
)

// FrameRecord is one produced thumbnail.
type FrameRecord struct {
	// Handle is the job that produced the frame (zero for one-shot extraction).
	Handle Handle
	// Width is the frame width in pixels.
	Width int
	// Height is the frame height in pixels.
	Height int
	// Data is the encoded image.
	Data []byte
	// Index is the position of the frame within its batch.
	Index int
	// TimestampMs is where in the source the frame was taken.
	TimestampMs int64
}

// Sink consumes the frames of one job.
// Calls are made from the registry's single delivery goroutine and must not block.
// Sinks are compared by identity, so implementations must be comparable
// (pointer types are).
type Sink interface {
	// Frame delivers a produced frame and reports whether the consumer took it.
	Frame(rec FrameRecord) bool
	// Complete signals that every scheduled frame has been attempted.
	Complete(h Handle)
}

// EventType distinguishes the events emitted by a ChannelSink.
type EventType string

const (
	// EventResult carries a frame.
	EventResult EventType = "result"
	// EventDone marks the end of the stream.
	EventDone EventType = "done"
)

// Event is what a ChannelSink emits.
type Event struct {
	Type   EventType
	Handle Handle
	Frame  FrameRecord
}

// ChannelSink is a Sink backed by a buffered channel.
// Frames are dropped when the buffer is full so a slow reader never stalls
// production. Completion is signalled separately by closing Done, so it is
// never lost to a full buffer.
type ChannelSink struct {
	ch      chan Event
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

// Events returns the channel frames are delivered on.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Done is closed once the job has completed.
// Frames still buffered in Events were delivered before it.
func (s *ChannelSink) Done() <-chan struct{} {
	return s.done
}

// Dropped returns how many frames were discarded because the buffer was full.
func (s *ChannelSink) Dropped() int64 {
	return s.dropped.Load()
}

// Frame implements Sink.
func (s *ChannelSink) Frame(rec FrameRecord) bool {
	select {
	case s.ch <- Event{Type: EventResult, Handle: rec.Handle, Frame: rec}:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Complete implements Sink. Only the first call has an effect.
func (s *ChannelSink) Complete(Handle) {
	s.once.Do(func() { close(s.done) })
}

var _ Sink = (*ChannelSink)(nil)
