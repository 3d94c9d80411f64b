package providers

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
)

// Registry manages model instances by provider name
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]Model),
	}
}

// Register registers a model under its provider name
func (r *Registry) Register(model Model) error {
	if model == nil {
		return errors.New("provider cannot be nil")
	}

	name := model.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[name]; exists {
		return ErrProviderAlreadyRegistered
	}
	r.models[name] = model

	return nil
}

// Get retrieves a model by provider name
func (r *Registry) Get(name string) (Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	model, exists := r.models[name]
	if !exists {
		return nil, ErrProviderNotFound
	}

	return model, nil
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.models)
}
