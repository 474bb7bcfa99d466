package httpclient

import (
	"sync"
	"time"
)

// rateLimiter is a sliding-window limiter over a ring buffer of request
// timestamps, avoiding an unbounded growing list.
type rateLimiter struct {
	mu         sync.Mutex
	window     time.Duration
	limit      int
	timestamps []time.Time // ring buffer, oldest first
	head       int
	size       int
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &rateLimiter{
		window:     time.Second,
		limit:      limit,
		timestamps: make([]time.Time, limit),
	}
}

// wait blocks until a slot is available under the sliding window, then
// records the new timestamp. It reports whether it had to wait; Client.do
// counts those waits in the rate-limited stat counter.
func (r *rateLimiter) wait(now func() time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	waited := false
	for {
		cutoff := now().Add(-r.window)
		r.evictLocked(cutoff)

		if r.size < r.limit {
			break
		}

		oldest := r.timestamps[r.head]
		sleepFor := oldest.Add(r.window).Sub(now())
		if sleepFor <= 0 {
			continue
		}
		waited = true
		r.mu.Unlock()
		time.Sleep(sleepFor)
		r.mu.Lock()
	}

	r.pushLocked(now())
	return waited
}

func (r *rateLimiter) evictLocked(cutoff time.Time) {
	for r.size > 0 && r.timestamps[r.head].Before(cutoff) {
		r.head = (r.head + 1) % r.limit
		r.size--
	}
}

func (r *rateLimiter) pushLocked(t time.Time) {
	idx := (r.head + r.size) % r.limit
	r.timestamps[idx] = t
	if r.size < r.limit {
		r.size++
	} else {
		// Window invariant (size < limit checked by caller) makes this
		// branch unreachable, but guard against ring overwrite anyway.
		r.head = (r.head + 1) % r.limit
	}
}
