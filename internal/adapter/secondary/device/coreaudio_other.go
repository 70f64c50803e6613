//go:build !darwin || !cgo

package device

import (
	"fmt"

	"announce-helper/internal/domain"
)

func defaultDevice(role domain.EndpointRole) (string, error) {
	return "", fmt.Errorf("%w: %s: %w", domain.ErrProbe, role, domain.ErrUnsupported)
}

func setDefaultDevice(role domain.EndpointRole, _ string) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrApply, role, domain.ErrUnsupported)
}
