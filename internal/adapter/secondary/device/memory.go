package device

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"announce-helper/internal/domain"
)

// Memory is an in-process endpoint control for platforms without CoreAudio.
type Memory struct {
	mu        sync.Mutex
	endpoints []domain.OutputEndpoint
	current   map[domain.EndpointRole]string
}

// NewMemory routes both roles to the first endpoint.
func NewMemory(endpoints ...domain.OutputEndpoint) *Memory {
	m := &Memory{
		endpoints: endpoints,
		current:   make(map[domain.EndpointRole]string, len(domain.Roles)),
	}
	if len(endpoints) > 0 {
		for _, role := range domain.Roles {
			m.current[role] = endpoints[0].ID
		}
	}
	return m
}

var _ domain.EndpointControl = (*Memory)(nil)

func (m *Memory) Endpoints(context.Context) ([]domain.OutputEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.endpoints), nil
}

func (m *Memory) Current(_ context.Context, role domain.EndpointRole) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.current[role]
	if !ok {
		return "", fmt.Errorf("%w: %s: no default device", domain.ErrProbe, role)
	}
	return id, nil
}

func (m *Memory) Set(_ context.Context, role domain.EndpointRole, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.ContainsFunc(m.endpoints, func(e domain.OutputEndpoint) bool { return e.ID == id }) {
		return fmt.Errorf("%w: %s: no device for uid %q", domain.ErrApply, role, id)
	}
	m.current[role] = id
	return nil
}
