// Package device controls the default audio output device.
package device

import (
	"bytes"
	"context"

	"announce-helper/internal/domain"
)

// CoreAudio implements domain.EndpointControl. Endpoints are enumerated
// through miniaudio; the default-device roles are read and written through
// the CoreAudio hardware properties. Every ID is a device UID.
type CoreAudio struct{}

// NewCoreAudio returns the platform endpoint control.
func NewCoreAudio() *CoreAudio {
	return &CoreAudio{}
}

var _ domain.EndpointControl = (*CoreAudio)(nil)

func (c *CoreAudio) Endpoints(ctx context.Context) ([]domain.OutputEndpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return enumeratePlayback()
}

func (c *CoreAudio) Current(ctx context.Context, role domain.EndpointRole) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return defaultDevice(role)
}

func (c *CoreAudio) Set(ctx context.Context, role domain.EndpointRole, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return setDefaultDevice(role, id)
}

// deviceUID trims a NUL-terminated device id buffer.
func deviceUID(id []byte) string {
	if i := bytes.IndexByte(id, 0); i >= 0 {
		id = id[:i]
	}
	return string(id)
}
