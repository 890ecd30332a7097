package policies

import (
	"sync"
	"time"
)

// rateCounter tracks the number of events in the current fixed window; the
// count resets to zero once a full window has elapsed since it started.
type rateCounter struct {
	duration    time.Duration // immutable
	mu          sync.Mutex
	windowStart time.Time
	count       int64
}

func newRateCounter(d time.Duration) *rateCounter {
	return &rateCounter{duration: d, windowStart: time.Now()}
}

func (rc *rateCounter) Add(delta int64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if now := time.Now(); now.Sub(rc.windowStart) >= rc.duration {
		rc.count, rc.windowStart = 0, now
	}
	rc.count += delta
}

func (rc *rateCounter) Rate() int64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if now := time.Now(); now.Sub(rc.windowStart) >= rc.duration {
		rc.count, rc.windowStart = 0, now
	}
	return rc.count
}
