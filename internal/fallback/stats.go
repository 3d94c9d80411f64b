package fallback

import (
	"fmt"
	"sync"
	"time"
)

// MethodStats is the usage record of one strategy (or the primary).
type MethodStats struct {
	TotalAttempts      int64      `json:"total_attempts"`
	SuccessfulAttempts int64      `json:"successful_attempts"`
	SuccessRate        float64    `json:"success_rate"`
	LastUsed           *time.Time `json:"last_used,omitempty"`
}

// Stats counts attempts and successes per strategy name.
type Stats struct {
	mu      sync.RWMutex
	entries map[string]*statEntry
	now     func() time.Time
}

type statEntry struct {
	mu        sync.Mutex
	attempts  int64
	successes int64
	lastUsed  time.Time
}

func NewStats() *Stats {
	return &Stats{
		entries: make(map[string]*statEntry),
		now:     time.Now,
	}
}

func (s *Stats) entry(name string) *statEntry {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[name]; !ok {
		e = &statEntry{}
		s.entries[name] = e
	}
	return e
}

// Record counts one attempt. It returns ErrStateCorruption if the entry's
// counters are inconsistent after the update.
func (s *Stats) Record(name string, success bool) error {
	if name == "" {
		return fmt.Errorf("stats: empty strategy name")
	}

	e := s.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.attempts++
	if success {
		e.successes++
	}
	e.lastUsed = s.now()

	if e.attempts < 0 || e.successes < 0 || e.successes > e.attempts {
		return fmt.Errorf("%w: %s has %d successes over %d attempts", ErrStateCorruption, name, e.successes, e.attempts)
	}
	return nil
}

// Snapshot returns a copy of all entries.
func (s *Stats) Snapshot() map[string]MethodStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]MethodStats, len(s.entries))
	for name, e := range s.entries {
		e.mu.Lock()
		ms := MethodStats{
			TotalAttempts:      e.attempts,
			SuccessfulAttempts: e.successes,
		}
		if e.attempts > 0 {
			ms.SuccessRate = float64(e.successes) / float64(e.attempts)
		}
		if !e.lastUsed.IsZero() {
			t := e.lastUsed
			ms.LastUsed = &t
		}
		e.mu.Unlock()
		out[name] = ms
	}
	return out
}
