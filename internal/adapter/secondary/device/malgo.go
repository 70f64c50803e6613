//go:build cgo

package device

import (
	"fmt"

	"github.com/gen2brain/malgo"

	"announce-helper/internal/domain"
)

// enumeratePlayback lists playback devices through miniaudio. On macOS the
// miniaudio device id is the CoreAudio device UID as a C string.
func enumeratePlayback() ([]domain.OutputEndpoint, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init audio context: %w", domain.ErrProbe, err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	devices, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %w", domain.ErrProbe, err)
	}

	out := make([]domain.OutputEndpoint, 0, len(devices))
	for _, dev := range devices {
		out = append(out, domain.OutputEndpoint{
			ID:   deviceUID(dev.ID[:]),
			Name: dev.Name(),
		})
	}
	return out, nil
}
