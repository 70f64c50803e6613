package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"announce-helper/internal/domain"
)

func TestVolumeApplyRejectsOutOfRangeWithoutOSCalls(t *testing.T) {
	for _, target := range []int{-1, 101, 150, -100} {
		fake := &fakeVolume{value: 40}
		reg := NewVolumeRegulator(fake, instant())

		_, err := reg.Apply(context.Background(), target)
		assert.ErrorIs(t, err, domain.ErrInvalidVolume, "target %d", target)
		assert.Zero(t, fake.calls(), "target %d", target)
	}
}

func TestVolumeApplyBoundaries(t *testing.T) {
	for _, target := range []int{0, 100} {
		fake := &fakeVolume{value: 40}
		reg := NewVolumeRegulator(fake, instant())

		check, err := reg.Apply(context.Background(), target)
		require.NoError(t, err)
		assert.True(t, check.Probed)
		assert.Equal(t, target, check.Observed)
	}
}

func TestVolumeMismatchIsAdvisory(t *testing.T) {
	fake := &fakeVolume{value: 30, offset: 5}
	reg := NewVolumeRegulator(fake, instant())

	check, err := reg.Apply(context.Background(), 50)
	require.NoError(t, err)
	assert.True(t, check.Mismatch)
	assert.Equal(t, 55, check.Observed)
}

func TestVolumeWithinToleranceIsNoMismatch(t *testing.T) {
	fake := &fakeVolume{value: 30, offset: 2}
	reg := NewVolumeRegulator(fake, instant())

	check, err := reg.Apply(context.Background(), 50)
	require.NoError(t, err)
	assert.False(t, check.Mismatch)
}

func TestVolumeMismatchBlocking(t *testing.T) {
	fake := &fakeVolume{value: 30, offset: 5}
	reg := NewVolumeRegulator(fake, RegulatorConfig{Policy: VerifyBlocking, Tolerance: 2})

	_, err := reg.Apply(context.Background(), 50)
	assert.ErrorIs(t, err, domain.ErrApply)
}

func TestVolumeSetFailureWrapsApply(t *testing.T) {
	fake := &fakeVolume{value: 30, setErr: errOS}
	reg := NewVolumeRegulator(fake, instant())

	_, err := reg.Apply(context.Background(), 50)
	assert.ErrorIs(t, err, domain.ErrApply)
	assert.ErrorIs(t, err, errOS)
}

func TestVolumeSaveProbeFailure(t *testing.T) {
	fake := &fakeVolume{probeErr: errOS}
	reg := NewVolumeRegulator(fake, instant())

	err := reg.Save(context.Background())
	assert.ErrorIs(t, err, domain.ErrProbe)
	_, ok := reg.Saved()
	assert.False(t, ok)
}

func TestVolumeRestoreTwiceFailsFast(t *testing.T) {
	fake := &fakeVolume{value: 30}
	reg := NewVolumeRegulator(fake, instant())
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx))
	_, err := reg.Apply(ctx, 80)
	require.NoError(t, err)
	_, err = reg.Restore(ctx)
	require.NoError(t, err)

	setsBefore := len(fake.sets)
	_, err = reg.Restore(ctx)
	assert.ErrorIs(t, err, domain.ErrRestore)
	assert.ErrorIs(t, err, domain.ErrNothingSaved)
	assert.Len(t, fake.sets, setsBefore)
}

func TestVolumeRestoreClearsSnapshotOnFailure(t *testing.T) {
	fake := &fakeVolume{value: 30}
	reg := NewVolumeRegulator(fake, instant())
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx))
	fake.setErr = errOS
	_, err := reg.Restore(ctx)
	assert.ErrorIs(t, err, domain.ErrRestore)

	_, err = reg.Restore(ctx)
	assert.ErrorIs(t, err, domain.ErrNothingSaved)
}

func TestVolumeRoundTrip(t *testing.T) {
	for _, x := range []int{0, 1, 30, 55, 99, 100} {
		fake := &fakeVolume{value: 42}
		reg := NewVolumeRegulator(fake, instant())
		ctx := context.Background()

		before, err := fake.Volume(ctx)
		require.NoError(t, err)
		require.NoError(t, reg.Save(ctx))
		_, err = reg.Apply(ctx, x)
		require.NoError(t, err)
		_, err = reg.Restore(ctx)
		require.NoError(t, err)

		assert.Equal(t, before, fake.current(), "x=%d", x)
	}
}
