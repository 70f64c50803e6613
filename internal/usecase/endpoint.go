package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
)

// EndpointRegulator saves, applies and restores the default output device
// for both output roles. Apply prefers the injected Switcher and falls back
// to EndpointControl.Set; with VerifyBlocking a change that cannot be
// observed on both roles is a failure.
type EndpointRegulator struct {
	control  domain.EndpointControl
	switcher domain.Switcher
	catalog  *Catalog
	cfg      RegulatorConfig

	mu    sync.Mutex
	saved map[domain.EndpointRole]string
}

// NewEndpointRegulator builds a regulator. switcher may be nil.
func NewEndpointRegulator(control domain.EndpointControl, switcher domain.Switcher, catalog *Catalog, cfg RegulatorConfig) *EndpointRegulator {
	return &EndpointRegulator{
		control:  control,
		switcher: switcher,
		catalog:  catalog,
		cfg:      cfg,
	}
}

// Save captures the current device of every role. Roles whose probe fails
// stay unknown; the returned error wraps domain.ErrProbe if any failed.
func (r *EndpointRegulator) Save(ctx context.Context) error {
	saved := make(map[domain.EndpointRole]string, len(domain.Roles))
	var errs []error
	for _, role := range domain.Roles {
		id, err := r.control.Current(ctx, role)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", role, err))
			continue
		}
		saved[role] = id
	}

	r.mu.Lock()
	if len(saved) == 0 {
		r.saved = nil
	} else {
		r.saved = saved
	}
	r.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrProbe, errors.Join(errs...))
	}
	return nil
}

// Saved returns a copy of the snapshot.
func (r *EndpointRegulator) Saved() map[domain.EndpointRole]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved == nil {
		return nil
	}
	out := make(map[domain.EndpointRole]string, len(r.saved))
	for k, v := range r.saved {
		out[k] = v
	}
	return out
}

// Discard drops the snapshot without restoring it.
func (r *EndpointRegulator) Discard() {
	r.mu.Lock()
	r.saved = nil
	r.mu.Unlock()
}

// Apply routes output to target. The Unchanged sentinel succeeds without
// touching the OS.
func (r *EndpointRegulator) Apply(ctx context.Context, target domain.OutputEndpoint) error {
	if target.IsUnchanged() {
		return nil
	}
	ep, ok := r.catalog.Resolve(target)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrEndpointNotFound, target.Label())
	}

	if r.switcher != nil {
		err := r.switcher.TrySwitch(ctx, ep)
		if err == nil {
			err = r.cfg.Policy.enforce(r.verify(ctx, ep.ID, r.cfg.SwitchSettle))
			if err == nil {
				logging.Infof("output switched to %s via %s", ep.Label(), r.switcher.Name())
				return nil
			}
		}
		logging.Infof("%s could not switch to %s, falling back: %v", r.switcher.Name(), ep.Label(), err)
	}

	var errs []error
	for _, role := range domain.Roles {
		if err := r.control.Set(ctx, role, ep.ID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", role, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrApply, errors.Join(errs...))
	}
	if err := r.cfg.Policy.enforce(r.verify(ctx, ep.ID, r.cfg.Settle)); err != nil {
		return err
	}
	logging.Infof("output switched to %s", ep.Label())
	return nil
}

// Restore re-applies the saved device of every role directly through
// EndpointControl. The snapshot is cleared regardless of the outcome and the
// call is never retried.
func (r *EndpointRegulator) Restore(ctx context.Context) error {
	r.mu.Lock()
	saved := r.saved
	r.saved = nil
	r.mu.Unlock()

	if len(saved) == 0 {
		return fmt.Errorf("%w: %w", domain.ErrRestore, domain.ErrNothingSaved)
	}
	var errs []error
	for _, role := range domain.Roles {
		id, ok := saved[role]
		if !ok {
			continue
		}
		if err := r.control.Set(ctx, role, id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", role, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrRestore, errors.Join(errs...))
	}
	return nil
}

// verify waits d and checks that every role now points at id.
func (r *EndpointRegulator) verify(ctx context.Context, id string, d time.Duration) error {
	if err := settle(ctx, d); err != nil {
		return err
	}
	for _, role := range domain.Roles {
		got, err := r.control.Current(ctx, role)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrApply, role, err)
		}
		if got != id {
			return fmt.Errorf("%w: %s is %q, expected %q", domain.ErrApply, role, got, id)
		}
	}
	return nil
}
