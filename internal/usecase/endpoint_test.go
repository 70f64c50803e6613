package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"announce-helper/internal/domain"
)

var (
	speakers = domain.OutputEndpoint{ID: "BuiltInSpeakerDevice", Name: "Mac mini Speakers"}
	hdmi     = domain.OutputEndpoint{ID: "HDMI-1", Name: "LG HDR 4K"}
)

func newEndpointFixture(t *testing.T, switcher domain.Switcher) (*EndpointRegulator, *fakeEndpoints) {
	t.Helper()
	control := newFakeEndpoints(speakers.ID, speakers, hdmi)
	catalog := NewCatalog(control)
	_, err := catalog.Refresh(context.Background())
	require.NoError(t, err)
	return NewEndpointRegulator(control, switcher, catalog, blocking()), control
}

func TestEndpointApplyUnchangedMakesNoCalls(t *testing.T) {
	reg, control := newEndpointFixture(t, nil)

	require.NoError(t, reg.Apply(context.Background(), domain.Unchanged))
	assert.Zero(t, control.calls())
}

func TestEndpointApplyUnknownTarget(t *testing.T) {
	reg, control := newEndpointFixture(t, nil)

	err := reg.Apply(context.Background(), domain.OutputEndpoint{Name: "AirPods"})
	assert.ErrorIs(t, err, domain.ErrEndpointNotFound)
	assert.Zero(t, control.calls())
}

func TestEndpointApplyByNameFallback(t *testing.T) {
	reg, control := newEndpointFixture(t, nil)

	require.NoError(t, reg.Apply(context.Background(), domain.OutputEndpoint{Name: hdmi.Name}))
	assert.Equal(t, map[domain.EndpointRole]string{
		domain.RoleOutput:       hdmi.ID,
		domain.RoleSystemOutput: hdmi.ID,
	}, control.state())
}

func TestEndpointApplyPrefersSwitcher(t *testing.T) {
	control := newFakeEndpoints(speakers.ID, speakers, hdmi)
	catalog := NewCatalog(control)
	_, err := catalog.Refresh(context.Background())
	require.NoError(t, err)
	sw := &fakeSwitcher{control: control}
	reg := NewEndpointRegulator(control, sw, catalog, blocking())

	require.NoError(t, reg.Apply(context.Background(), hdmi))
	assert.Equal(t, []string{hdmi.Name}, sw.used)
	assert.Zero(t, control.sets)
}

func TestEndpointApplyFallsBackWhenSwitcherFails(t *testing.T) {
	control := newFakeEndpoints(speakers.ID, speakers, hdmi)
	catalog := NewCatalog(control)
	_, err := catalog.Refresh(context.Background())
	require.NoError(t, err)
	sw := &fakeSwitcher{control: control, err: domain.ErrSwitcherUnavailable}
	reg := NewEndpointRegulator(control, sw, catalog, blocking())

	require.NoError(t, reg.Apply(context.Background(), hdmi))
	assert.Equal(t, 2, control.sets)
	assert.Equal(t, hdmi.ID, control.state()[domain.RoleOutput])
}

func TestEndpointUnverifiedChangeIsBlocking(t *testing.T) {
	reg, control := newEndpointFixture(t, nil)
	control.ignore = true

	err := reg.Apply(context.Background(), hdmi)
	assert.ErrorIs(t, err, domain.ErrApply)
}

func TestEndpointRoundTrip(t *testing.T) {
	reg, control := newEndpointFixture(t, nil)
	ctx := context.Background()
	before := control.state()

	require.NoError(t, reg.Save(ctx))
	require.NoError(t, reg.Apply(ctx, hdmi))
	require.NoError(t, reg.Restore(ctx))

	assert.Equal(t, before, control.state())
}

func TestEndpointRestoreTwiceFailsFast(t *testing.T) {
	reg, control := newEndpointFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx))
	require.NoError(t, reg.Restore(ctx))
	sets := control.sets

	err := reg.Restore(ctx)
	assert.ErrorIs(t, err, domain.ErrRestore)
	assert.ErrorIs(t, err, domain.ErrNothingSaved)
	assert.Equal(t, sets, control.sets)
}

func TestEndpointSaveProbeFailure(t *testing.T) {
	reg, control := newEndpointFixture(t, nil)
	control.probeErr = errOS

	err := reg.Save(context.Background())
	assert.ErrorIs(t, err, domain.ErrProbe)
	assert.Nil(t, reg.Saved())
}

func TestCatalogResolve(t *testing.T) {
	control := newFakeEndpoints(speakers.ID, speakers, hdmi)
	catalog := NewCatalog(control)
	_, err := catalog.Refresh(context.Background())
	require.NoError(t, err)

	ep, ok := catalog.Resolve(domain.OutputEndpoint{ID: hdmi.ID, Name: "stale name"})
	require.True(t, ok)
	assert.Equal(t, hdmi, ep)

	ep, ok = catalog.Resolve(domain.OutputEndpoint{ID: "gone", Name: speakers.Name})
	require.True(t, ok)
	assert.Equal(t, speakers, ep)

	_, ok = catalog.Resolve(domain.OutputEndpoint{Name: "AirPods"})
	assert.False(t, ok)
}
