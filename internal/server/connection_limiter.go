package server

import "sync/atomic"

// connectionLimiter caps total concurrent websocket connections per instance.
// Lock-free; a max of 0 disables the cap.
type connectionLimiter struct {
	current atomic.Int64
	max     int64
}

func newConnectionLimiter(max int64) *connectionLimiter {
	return &connectionLimiter{max: max}
}

// Acquire claims a connection slot. Returns false at capacity.
func (l *connectionLimiter) Acquire() bool {
	if l.max <= 0 {
		l.current.Add(1)
		return true
	}
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release frees a connection slot.
func (l *connectionLimiter) Release() {
	l.current.Add(-1)
}

// Current returns the number of held slots.
func (l *connectionLimiter) Current() int64 {
	return l.current.Load()
}
