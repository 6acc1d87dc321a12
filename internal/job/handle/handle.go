// Package handle provides allocation of opaque job handles.
package handle

import (
	"errors"
	"math"
	"sync/atomic"
)

// ErrExhausted is returned when the handle space has been used up.
var ErrExhausted = errors.New("handle space exhausted")

// Allocator hands out monotonically increasing handles starting at zero.
// A handle is never issued twice by the same Allocator.
// The zero value is ready to use.
type Allocator struct {
	next atomic.Int64
}

// Next returns the next free handle.
// Returns ErrExhausted once math.MaxInt64 handles have been issued.
func (a *Allocator) Next() (int64, error) {
	for {
		cur := a.next.Load()
		if cur == math.MaxInt64 {
			return 0, ErrExhausted
		}
		if a.next.CompareAndSwap(cur, cur+1) {
			return cur, nil
		}
	}
}

// Issued returns how many handles have been handed out so far.
func (a *Allocator) Issued() int64 {
	return a.next.Load()
}
