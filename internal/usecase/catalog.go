package usecase

import (
	"context"
	"fmt"
	"sync"

	"announce-helper/internal/domain"
)

// Catalog caches the output endpoint enumeration. It is refreshed
// explicitly and read concurrently by regulators and display surfaces.
type Catalog struct {
	control domain.EndpointControl

	mu        sync.RWMutex
	endpoints []domain.OutputEndpoint
}

// NewCatalog creates an empty catalog backed by control.
func NewCatalog(control domain.EndpointControl) *Catalog {
	return &Catalog{control: control}
}

// Refresh re-enumerates endpoints. The previous list is kept on failure.
func (c *Catalog) Refresh(ctx context.Context) ([]domain.OutputEndpoint, error) {
	list, err := c.control.Endpoints(ctx)
	if err != nil {
		return c.List(), fmt.Errorf("%w: %w", domain.ErrProbe, err)
	}
	c.mu.Lock()
	c.endpoints = append([]domain.OutputEndpoint(nil), list...)
	c.mu.Unlock()
	return c.List(), nil
}

// List returns a copy of the cached endpoints.
func (c *Catalog) List() []domain.OutputEndpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.OutputEndpoint(nil), c.endpoints...)
}

// Resolve finds target in the cache, by ID first and then by name.
func (c *Catalog) Resolve(target domain.OutputEndpoint) (domain.OutputEndpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if target.ID != "" {
		for _, ep := range c.endpoints {
			if ep.ID == target.ID {
				return ep, true
			}
		}
	}
	if target.Name != "" {
		for _, ep := range c.endpoints {
			if ep.Name == target.Name {
				return ep, true
			}
		}
	}
	return domain.OutputEndpoint{}, false
}
