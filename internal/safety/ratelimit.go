package safety

import (
	"sync"
	"time"
)

// Limiter is a single global sliding window over command submissions.
// All retained timestamps lie within now - window.
type Limiter struct {
	mu     sync.Mutex
	stamps []time.Time
	max    int
	window time.Duration
}

// NewLimiter creates a sliding-window limiter allowing max commands
// per window.
func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
	}
}

// Allow records an attempt and reports whether it fits in the window.
// Rejected attempts are not recorded.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-l.window)

	var recent []time.Time
	for _, t := range l.stamps {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.stamps = recent
		return false
	}

	l.stamps = append(recent, now)
	return true
}

// Reset drops all recorded timestamps.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stamps = nil
}
