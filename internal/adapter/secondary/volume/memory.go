package volume

import (
	"context"
	"sync"

	"announce-helper/internal/domain"
)

// Memory implements domain.VolumeControl in process, for platforms without
// an automation bridge.
type Memory struct {
	mu     sync.Mutex
	volume int
}

// NewMemory starts at the given volume.
func NewMemory(initial int) *Memory {
	return &Memory{volume: initial}
}

var _ domain.VolumeControl = (*Memory)(nil)

func (m *Memory) Volume(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume, nil
}

func (m *Memory) SetVolume(_ context.Context, volume int) error {
	if err := domain.ValidateVolume(volume); err != nil {
		return err
	}
	m.mu.Lock()
	m.volume = volume
	m.mu.Unlock()
	return nil
}
