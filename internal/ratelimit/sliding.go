// Package ratelimit implements per-(assistant, client) sliding-window request
// limiting behind a small Limiter interface. The interface is the injection
// seam: the shipped implementation keeps its windows in process memory, and a
// deployment running several server instances can substitute one backed by a
// shared, atomically-updatable store without touching the callers.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter answers whether one more request from a client is allowed under an
// assistant's limit configuration.
type Limiter interface {
	// Allow checks and records a request for (assistantID, clientID).
	// Timestamps older than the window are discarded first; when the
	// remaining count has reached max, the request is rejected and not
	// recorded.
	Allow(assistantID, clientID string, max int, window time.Duration) bool
}

// gcEvery is the number of Allow calls between opportunistic sweeps of
// windows whose every timestamp has aged out.
const gcEvery = 5000

// SlidingWindow is an in-memory Limiter. Windows are created on demand in a
// map guarded by a mutex; stale entries are lazily evicted on each check and
// fully swept opportunistically so memory stays bounded.
//
// State is process-local and lost on restart. Safe for concurrent use.
type SlidingWindow struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	calls   uint64

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewSlidingWindow constructs an empty in-memory limiter.
func NewSlidingWindow() *SlidingWindow {
	return &SlidingWindow{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (s *SlidingWindow) Allow(assistantID, clientID string, max int, window time.Duration) bool {
	if max <= 0 || window <= 0 {
		return true
	}
	key := assistantID + "\x00" + clientID
	now := s.now()
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Sweep before touching the requested key so a fully aged window can be
	// dropped even when it is the one being checked.
	s.calls++
	if s.calls >= gcEvery {
		for k, ts := range s.windows {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(s.windows, k)
			}
		}
		s.calls = 0
	}

	ts := s.windows[key]
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= max {
		s.windows[key] = kept
		return false
	}
	s.windows[key] = append(kept, now)
	return true
}
