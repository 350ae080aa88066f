package collector

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// RegistrationError wraps a failure to register, gather or encode metric families
type RegistrationError struct {
	Err error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registry: %v", e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Registry is the process-wide metric registry shared by every scrape.
// Gauge updates take the write lock, gathering takes the read lock, so a scrape
// never observes a half-applied poll.
type Registry struct {
	mu  sync.RWMutex
	reg *prometheus.Registry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{reg: prometheus.NewRegistry()}
}

// Register adds collectors to the registry. Registering the same family twice fails.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range cs {
		if err := r.reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return &RegistrationError{Err: fmt.Errorf("family already registered: %w", err)}
			}
			return &RegistrationError{Err: err}
		}
	}
	return nil
}

// Update runs fn with exclusive access to the registry's metrics
func (r *Registry) Update(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// Gather snapshots all families under the read lock
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mfs, err := r.reg.Gather()
	if err != nil {
		return nil, &RegistrationError{Err: err}
	}
	return mfs, nil
}

// View runs fn with shared access to the registry, for callers that must
// hold the read lock across gathering and encoding
func (r *Registry) View(fn func(g prometheus.Gatherer) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(r.reg)
}
