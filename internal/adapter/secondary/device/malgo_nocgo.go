//go:build !cgo

package device

import (
	"fmt"

	"announce-helper/internal/domain"
)

func enumeratePlayback() ([]domain.OutputEndpoint, error) {
	return nil, fmt.Errorf("%w: %w", domain.ErrProbe, domain.ErrUnsupported)
}
