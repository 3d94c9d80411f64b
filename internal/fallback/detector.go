package fallback

import (
	"fmt"
	"sync"
	"time"

	"github.com/upb/ai-product-council/services/providers"
)

// State is the operating mode of the orchestrator.
type State string

const (
	StatePrimary  State = "primary"
	StateDegraded State = "degraded"
)

const (
	DefaultFailureWindow    = 60 * time.Second
	DefaultFailureThreshold = 3
)

// DetectorConfig configures the failure detector.
type DetectorConfig struct {
	// Window is how far back failures are counted.
	Window time.Duration

	// Threshold is the failure count inside Window that degrades the primary.
	Threshold int

	// Cooldown, when positive, returns a degraded detector to primary after
	// that long. Zero means recovery happens only through Reset.
	Cooldown time.Duration
}

// Detector tracks qualifying primary failures in a sliding window and
// decides between primary and degraded operation.
type Detector struct {
	mu          sync.Mutex
	config      DetectorConfig
	now         func() time.Time
	state       State
	failures    []time.Time
	lastFailure time.Time
	degradedAt  time.Time
	transitions int64
}

// DetectorSnapshot is a consistent read of the detector.
type DetectorSnapshot struct {
	State         State
	ErrorCount    int
	LastErrorTime *time.Time
	DegradedSince *time.Time
	Transitions   int64
}

func NewDetector(config DetectorConfig) *Detector {
	if config.Window <= 0 {
		config.Window = DefaultFailureWindow
	}
	if config.Threshold <= 0 {
		config.Threshold = DefaultFailureThreshold
	}
	return &Detector{
		config: config,
		now:    time.Now,
		state:  StatePrimary,
	}
}

// State returns the current state, applying the recovery cooldown if set.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.maybeRecover(d.now())
	return d.state
}

// RecordFailure records a primary failure of the given kind. Non-qualifying
// kinds are ignored. It returns true only for the call that caused the
// transition to degraded.
func (d *Detector) RecordFailure(kind providers.FailureKind) bool {
	if !kind.Qualifies() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.maybeRecover(now)
	d.prune(now)
	d.failures = append(d.failures, now)
	d.lastFailure = now

	if d.state == StatePrimary && len(d.failures) >= d.config.Threshold {
		d.state = StateDegraded
		d.degradedAt = now
		d.transitions++
		return true
	}
	return false
}

// RecordSuccess lets expired failures fall out of the window. It does not
// clear failures that are still inside it.
func (d *Detector) RecordSuccess() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prune(d.now())
}

// Reset clears the window and returns to primary. It returns the state held
// before the reset.
func (d *Detector) Reset() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.state
	d.state = StatePrimary
	d.failures = nil
	d.degradedAt = time.Time{}
	d.lastFailure = time.Time{}
	return prev
}

// Snapshot returns the detector's state and window contents.
func (d *Detector) Snapshot() DetectorSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.maybeRecover(now)
	d.prune(now)

	snap := DetectorSnapshot{
		State:       d.state,
		ErrorCount:  len(d.failures),
		Transitions: d.transitions,
	}
	if !d.lastFailure.IsZero() {
		t := d.lastFailure
		snap.LastErrorTime = &t
	}
	if d.state == StateDegraded {
		t := d.degradedAt
		snap.DegradedSince = &t
	}
	return snap
}

// Validate checks the snapshot for impossible values.
func (s DetectorSnapshot) Validate() error {
	if s.State != StatePrimary && s.State != StateDegraded {
		return fmt.Errorf("%w: unknown state %q", ErrStateCorruption, s.State)
	}
	if s.ErrorCount < 0 || s.Transitions < 0 {
		return fmt.Errorf("%w: negative detector counters", ErrStateCorruption)
	}
	return nil
}

func (d *Detector) prune(now time.Time) {
	cutoff := now.Add(-d.config.Window)
	i := 0
	for i < len(d.failures) && !d.failures[i].After(cutoff) {
		i++
	}
	if i > 0 {
		d.failures = append(d.failures[:0], d.failures[i:]...)
	}
}

func (d *Detector) maybeRecover(now time.Time) {
	if d.state != StateDegraded || d.config.Cooldown <= 0 {
		return
	}
	if now.Sub(d.degradedAt) >= d.config.Cooldown {
		d.state = StatePrimary
		d.failures = nil
		d.degradedAt = time.Time{}
	}
}
