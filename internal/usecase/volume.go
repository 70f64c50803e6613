package usecase

import (
	"context"
	"fmt"
	"sync"

	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
)

// VolumeRegulator saves, applies and restores the output volume.
// With VerifyAdvisory a mismatch after a set is surfaced in the returned
// Verification but the call still succeeds.
type VolumeRegulator struct {
	control domain.VolumeControl
	cfg     RegulatorConfig

	mu    sync.Mutex
	saved *int
}

// NewVolumeRegulator wraps control with the given verification policy.
func NewVolumeRegulator(control domain.VolumeControl, cfg RegulatorConfig) *VolumeRegulator {
	return &VolumeRegulator{control: control, cfg: cfg}
}

// Save stores the current volume. On probe failure the snapshot is cleared
// and the error wraps domain.ErrProbe.
func (r *VolumeRegulator) Save(ctx context.Context) error {
	v, err := r.control.Volume(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.saved = nil
		return fmt.Errorf("%w: %w", domain.ErrProbe, err)
	}
	r.saved = &v
	return nil
}

// Saved returns the stored volume, if any.
func (r *VolumeRegulator) Saved() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved == nil {
		return 0, false
	}
	return *r.saved, true
}

// Discard drops the snapshot without restoring it.
func (r *VolumeRegulator) Discard() {
	r.mu.Lock()
	r.saved = nil
	r.mu.Unlock()
}

// Apply sets the volume to target. Out-of-range targets are rejected before
// any OS call.
func (r *VolumeRegulator) Apply(ctx context.Context, target int) (domain.Verification, error) {
	check := domain.Verification{Requested: target}
	if err := domain.ValidateVolume(target); err != nil {
		return check, err
	}
	if err := r.control.SetVolume(ctx, target); err != nil {
		return check, fmt.Errorf("%w: %w", domain.ErrApply, err)
	}

	check, err := r.verify(ctx, target)
	if err != nil {
		logging.Warnf("volume verification (%s): %v", r.cfg.Policy, err)
		if err := r.cfg.Policy.enforce(err); err != nil {
			return check, err
		}
	}
	return check, nil
}

// Restore re-applies the saved volume. The snapshot is consumed whether or
// not the apply succeeds, so a second call fails with domain.ErrNothingSaved.
func (r *VolumeRegulator) Restore(ctx context.Context) (domain.Verification, error) {
	r.mu.Lock()
	saved := r.saved
	r.saved = nil
	r.mu.Unlock()

	if saved == nil {
		return domain.Verification{}, fmt.Errorf("%w: %w", domain.ErrRestore, domain.ErrNothingSaved)
	}
	check, err := r.Apply(ctx, *saved)
	if err != nil {
		return check, fmt.Errorf("%w: %w", domain.ErrRestore, err)
	}
	return check, nil
}

func (r *VolumeRegulator) verify(ctx context.Context, target int) (domain.Verification, error) {
	check := domain.Verification{Requested: target}
	if err := settle(ctx, r.cfg.Settle); err != nil {
		return check, err
	}
	got, err := r.control.Volume(ctx)
	if err != nil {
		return check, fmt.Errorf("%w: %w", domain.ErrProbe, err)
	}
	check.Probed = true
	check.Observed = got
	if abs(got-target) > r.cfg.Tolerance {
		check.Mismatch = true
		return check, fmt.Errorf("%w: 設定値: %d%%, 実際の値: %d%%", domain.ErrApply, target, got)
	}
	return check, nil
}
