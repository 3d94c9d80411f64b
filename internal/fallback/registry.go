package fallback

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultHybridMaxSources bounds how many strategies a hybrid invokes.
const DefaultHybridMaxSources = 3

// Entry is a registered strategy and its name.
type Entry struct {
	Name     string
	Strategy Strategy
}

// Registry holds the configured strategies in registration order.
type Registry struct {
	mu         sync.RWMutex
	entries    []Entry
	factor     float64
	maxSources int
}

// NewRegistry creates a registry whose hybrids penalize components by factor.
func NewRegistry(factor float64, maxSources int) *Registry {
	if maxSources <= 0 {
		maxSources = DefaultHybridMaxSources
	}
	return &Registry{factor: factor, maxSources: maxSources}
}

// Register appends a strategy. Names must be unique and not reserved.
func (r *Registry) Register(name string, s Strategy) error {
	if name == "" {
		return errors.New("strategy name cannot be empty")
	}
	if s == nil {
		return errors.New("strategy cannot be nil")
	}
	if name == SourcePrimary || name == SourceHybrid {
		return fmt.Errorf("strategy name %q is reserved", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.Name == name {
			return fmt.Errorf("strategy %q already registered", name)
		}
	}
	r.entries = append(r.entries, Entry{Name: name, Strategy: s})
	return nil
}

// Entries returns all registered strategies.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Descriptor is the static description of a registered strategy.
type Descriptor struct {
	Name           string
	Available      bool
	BaseConfidence float64
}

// Describe reports every registered strategy in registration order.
func (r *Registry) Describe() []Descriptor {
	entries := r.Entries()
	out := make([]Descriptor, 0, len(entries))
	for _, e := range entries {
		out = append(out, Descriptor{
			Name:           e.Name,
			Available:      e.Strategy.IsAvailable(),
			BaseConfidence: e.Strategy.BaseConfidence(),
		})
	}
	return out
}

// Available returns the strategies whose availability currently holds.
func (r *Registry) Available() []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Strategy.IsAvailable() {
			out = append(out, e)
		}
	}
	return out
}

// SelectBest returns the available strategy with the highest base confidence
// that is not excluded. Ties go to the one registered first.
func (r *Registry) SelectBest(exclude ...string) (Entry, bool) {
	var (
		best  Entry
		found bool
	)
	for _, e := range r.Available() {
		if contains(exclude, e.Name) {
			continue
		}
		if !found || e.Strategy.BaseConfidence() > best.Strategy.BaseConfidence() {
			best, found = e, true
		}
	}
	return best, found
}

// BuildHybrid wraps all currently available strategies, or fails with
// ErrInsufficientFallbacks when fewer than minCount are available.
func (r *Registry) BuildHybrid(minCount int) (*Hybrid, error) {
	avail := r.Available()
	if len(avail) < minCount {
		return nil, fmt.Errorf("%w: %d available, hybrid needs %d", ErrInsufficientFallbacks, len(avail), minCount)
	}
	return newHybrid(avail, r.factor, r.maxSources), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
