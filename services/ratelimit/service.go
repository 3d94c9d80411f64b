// Package ratelimit limits how many requests each client may make within a
// sliding window.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed           bool
	Limit             int
	RequestsRemaining int
	ResetAt           time.Time
	RetryAfter        time.Duration
	ViolationReason   string
}

// RateLimitService keeps a sliding window of request times per client key
type RateLimitService struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	clients   map[string][]time.Time
	lastPrune time.Time
	now       func() time.Time
	logger    *zap.Logger
}

// NewRateLimitService allows limit requests per window for each key
func NewRateLimitService(limit int, window time.Duration, logger *zap.Logger) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitService{
		limit:   limit,
		window:  window,
		clients: make(map[string][]time.Time),
		now:     time.Now,
		logger:  logger,
	}
}

// Allow checks the key against its window and records the request if allowed
func (s *RateLimitService) Allow(key string) RateLimitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.maybePrune(now)

	times := s.trim(s.clients[key], now)
	if len(times) >= s.limit {
		s.clients[key] = times
		resetAt := times[0].Add(s.window)
		s.logger.Debug("rate limit exceeded",
			zap.String("client", key),
			zap.Int("limit", s.limit))
		return RateLimitResult{
			Allowed:         false,
			Limit:           s.limit,
			ResetAt:         resetAt,
			RetryAfter:      resetAt.Sub(now),
			ViolationReason: fmt.Sprintf("exceeded %d requests per %s", s.limit, s.window),
		}
	}

	times = append(times, now)
	s.clients[key] = times
	return RateLimitResult{
		Allowed:           true,
		Limit:             s.limit,
		RequestsRemaining: s.limit - len(times),
		ResetAt:           times[0].Add(s.window),
	}
}

// Clients returns the number of keys currently tracked
func (s *RateLimitService) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// trim drops request times that have left the window
func (s *RateLimitService) trim(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// maybePrune forgets idle clients at most once per window
func (s *RateLimitService) maybePrune(now time.Time) {
	if now.Sub(s.lastPrune) < s.window {
		return
	}
	s.lastPrune = now
	for key, times := range s.clients {
		if len(s.trim(times, now)) == 0 {
			delete(s.clients, key)
		}
	}
}
