package store

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is the number of hits between evictions of idle keys.
const sweepEvery = 1024

type hitLog struct {
	hits   []time.Time
	window time.Duration
}

// RateLimitMemoryStore is an in-process sliding-window counter for ratelimit.Limiter.
type RateLimitMemoryStore struct {
	mu    sync.Mutex
	logs  map[string]*hitLog
	calls int
}

// NewRateLimitMemoryStore creates a new in-memory rate limit counter.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		logs: make(map[string]*hitLog),
	}
}

// Hit records a request for key and returns the number of requests inside window.
func (s *RateLimitMemoryStore) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	entry, ok := s.logs[key]
	if !ok {
		entry = &hitLog{window: window}
		s.logs[key] = entry
	}

	entry.hits = append(prune(entry.hits, now.Add(-window)), now)

	s.calls++
	if s.calls%sweepEvery == 0 {
		s.sweep(now)
	}

	return int64(len(entry.hits)), nil
}

// Len returns the number of tracked keys.
func (s *RateLimitMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.logs)
}

// sweep drops keys whose newest hit has left their window.
func (s *RateLimitMemoryStore) sweep(now time.Time) {
	for key, entry := range s.logs {
		if len(entry.hits) == 0 || !entry.hits[len(entry.hits)-1].After(now.Add(-entry.window)) {
			delete(s.logs, key)
		}
	}
}

// prune removes hits at or before cutoff. hits is sorted oldest first.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}

	return append(hits[:0], hits[i:]...)
}
