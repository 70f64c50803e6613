package usecase

import (
	"context"
	"time"

	"announce-helper/internal/domain"
)

// VerifyPolicy decides what a failed post-apply verification means.
type VerifyPolicy int

const (
	// VerifyAdvisory trusts the set call; a mismatch is only reported.
	VerifyAdvisory VerifyPolicy = iota
	// VerifyBlocking turns a mismatch into an apply failure.
	VerifyBlocking
)

func (p VerifyPolicy) String() string {
	if p == VerifyBlocking {
		return "blocking"
	}
	return "advisory"
}

// enforce maps a verification error to the error the caller returns.
func (p VerifyPolicy) enforce(err error) error {
	if err == nil || p == VerifyAdvisory {
		return nil
	}
	return err
}

// RegulatorConfig holds the per-regulator verification knobs.
type RegulatorConfig struct {
	Policy VerifyPolicy
	// Settle is the wait between a set call and the re-probe.
	Settle time.Duration
	// SwitchSettle is the wait after the external switching utility.
	SwitchSettle time.Duration
	// Tolerance is the accepted difference for volume checks.
	Tolerance int
}

// VolumeConfig derives the advisory volume policy from tuning values.
func VolumeConfig(t domain.Tuning) RegulatorConfig {
	return RegulatorConfig{
		Policy:    VerifyAdvisory,
		Settle:    t.VolumeSettle,
		Tolerance: t.VolumeTolerance,
	}
}

// EndpointConfig derives the blocking endpoint policy from tuning values.
func EndpointConfig(t domain.Tuning) RegulatorConfig {
	return RegulatorConfig{
		Policy:       VerifyBlocking,
		Settle:       t.EndpointSettle,
		SwitchSettle: t.PostSwitchSettle,
	}
}

// settle waits d, returning early when ctx is done.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
