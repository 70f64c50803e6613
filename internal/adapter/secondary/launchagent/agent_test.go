package launchagent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"announce-helper/internal/domain"
)

type fakeLaunchctl struct {
	calls  [][]string
	listed string
	err    error
}

func (f *fakeLaunchctl) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return []byte("Load failed: 5: Input/output error"), f.err
	}
	if len(args) > 0 && args[0] == "list" {
		return []byte(f.listed), nil
	}
	return nil, nil
}

func newAgent(t *testing.T) (*Agent, *fakeLaunchctl) {
	t.Helper()
	fake := &fakeLaunchctl{}
	return New(WithDir(t.TempDir()), WithRunner(fake.run)), fake
}

func settings() domain.Settings {
	s := domain.DefaultSettings()
	s.HelperPath = "/Users/moto/bin/announce-helper"
	s.Volume = 25
	s.CommandArgs = `-a "Automator Runner" /Applications/Automator/AnnounceTime.app`
	return s
}

func TestBuild(t *testing.T) {
	a, _ := newAgent(t)

	d, err := a.Build(settings())
	require.NoError(t, err)
	assert.Equal(t, "com.moto.announcetime", d.Label)
	assert.Equal(t, []string{
		"/Users/moto/bin/announce-helper", "--volume", "25", "--",
		"/usr/bin/open", "-a", "Automator Runner", "/Applications/Automator/AnnounceTime.app",
	}, d.ProgramArguments)
	assert.Equal(t, 900, d.StartInterval)
	assert.False(t, d.KeepAlive)
	assert.Equal(t, "/tmp/announcetime.log", d.StandardOutPath)
	assert.Equal(t, "/tmp/announcetime.err", d.StandardErrorPath)
}

func TestBuildDefaultHelperPath(t *testing.T) {
	a, _ := newAgent(t)
	s := settings()
	s.HelperPath = ""

	d, err := a.Build(s)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(d.ProgramArguments[0], filepath.Join("bin", "announce-helper")))
}

func TestBuildRejectsInvalid(t *testing.T) {
	a, _ := newAgent(t)
	s := settings()
	s.Volume = 101
	_, err := a.Build(s)
	assert.ErrorIs(t, err, domain.ErrInvalidVolume)

	s = settings()
	s.CommandPath = ""
	_, err = a.Build(s)
	assert.ErrorIs(t, err, domain.ErrEmptyCommand)
}

func TestEnableWritesPlistAndLoads(t *testing.T) {
	a, fake := newAgent(t)

	require.NoError(t, a.Enable(context.Background(), settings()))

	path := a.PlistPath("com.moto.announcetime")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<key>StartInterval</key>")

	var decoded Descriptor
	_, err = plist.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "25", decoded.ProgramArguments[2])

	assert.Equal(t, [][]string{{"/bin/launchctl", "load", path}}, fake.calls)
}

func TestDisable(t *testing.T) {
	a, fake := newAgent(t)
	require.NoError(t, a.Disable(context.Background(), settings()))
	assert.Equal(t, [][]string{{"/bin/launchctl", "unload", a.PlistPath("com.moto.announcetime")}}, fake.calls)
}

func TestLaunchctlFailure(t *testing.T) {
	a, fake := newAgent(t)
	fake.err = errors.New("exit status 5")
	err := a.Enable(context.Background(), settings())
	assert.ErrorContains(t, err, "Input/output error")
}

func TestEnabled(t *testing.T) {
	a, fake := newAgent(t)
	fake.listed = "PID\tStatus\tLabel\n-\t0\tcom.apple.something\n-\t0\tcom.moto.announcetime\n"

	on, err := a.Enabled(context.Background(), settings())
	require.NoError(t, err)
	assert.True(t, on)

	fake.listed = "PID\tStatus\tLabel\n-\t0\tcom.moto.announcetime.other\n"
	on, err = a.Enabled(context.Background(), settings())
	require.NoError(t, err)
	assert.False(t, on)
}
