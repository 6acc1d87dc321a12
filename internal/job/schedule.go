package job

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when production parameters are unusable.
var ErrInvalidArgument = errors.New("invalid argument")

// Validate checks the parameters before any work is scheduled.
func (p Params) Validate() error {
	if p.TotalThumbsCount <= 0 {
		return fmt.Errorf("%w: totalThumbsCount must be positive, got %d", ErrInvalidArgument, p.TotalThumbsCount)
	}
	if p.StartMs < 0 {
		return fmt.Errorf("%w: startMs must not be negative, got %d", ErrInvalidArgument, p.StartMs)
	}
	if p.EndMs < p.StartMs {
		return fmt.Errorf("%w: endMs %d is before startMs %d", ErrInvalidArgument, p.EndMs, p.StartMs)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidArgument, p.Width, p.Height)
	}
	return nil
}

// Timestamps returns the frame timestamps, in milliseconds, for p.
// Frames are spread evenly: startMs + i*interval with
// interval = (endMs-startMs)/(totalThumbsCount-1) in whole milliseconds.
// A single frame is taken at startMs.
func Timestamps(p Params) ([]int64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if p.TotalThumbsCount == 1 {
		return []int64{p.StartMs}, nil
	}

	interval := (p.EndMs - p.StartMs) / int64(p.TotalThumbsCount-1)
	out := make([]int64, p.TotalThumbsCount)
	for i := range out {
		out[i] = p.StartMs + int64(i)*interval
	}
	return out, nil
}
