package core

import (
	"github.com/go-chi/chi/v5"
)

// Service is an HTTP surface mounted by the edge router under "/"+Name().
type Service interface {
	// Name returns the unique identifier for this service (e.g. "files").
	// It doubles as the route prefix.
	Name() string

	// RegisterRoutes sets up HTTP routes for this service on the provided
	// sub-router.
	RegisterRoutes(router chi.Router)
}

// Registry holds the services a server exposes, in registration order.
type Registry struct {
	services []Service
}

func NewRegistry() *Registry {
	return &Registry{services: make([]Service, 0)}
}

// Register adds a service. Registering a second service with the same
// name replaces the first.
func (r *Registry) Register(s Service) {
	for i, existing := range r.services {
		if existing.Name() == s.Name() {
			r.services[i] = s
			return
		}
	}
	r.services = append(r.services, s)
}

// Services returns the registered services.
func (r *Registry) Services() []Service {
	out := make([]Service, len(r.services))
	copy(out, r.services)
	return out
}
