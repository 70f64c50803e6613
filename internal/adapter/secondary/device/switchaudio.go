package device

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
)

// SwitcherPaths are probed in order by DetectSwitcher.
var SwitcherPaths = []string{
	"/usr/local/bin/SwitchAudioSource",
	"/opt/homebrew/bin/SwitchAudioSource",
}

// InstallHint tells the user how to get the switching utility.
const InstallHint = "brew install switchaudio-osx"

// Runner runs a program and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// SwitchAudio switches the output device with SwitchAudioSource, which
// changes the device by its display name.
type SwitchAudio struct {
	path string
	run  Runner
}

// NewSwitchAudio uses the utility at path.
func NewSwitchAudio(path string, run Runner) *SwitchAudio {
	if run == nil {
		run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		}
	}
	return &SwitchAudio{path: path, run: run}
}

func (s *SwitchAudio) Name() string { return "SwitchAudioSource" }

func (s *SwitchAudio) TrySwitch(ctx context.Context, target domain.OutputEndpoint) error {
	out, err := s.run(ctx, s.path, "-t", "output", "-s", target.Name)
	if err != nil {
		return fmt.Errorf("%s -s %q: %w (%s)", s.path, target.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// NoSwitcher is selected when the utility is not installed. It always
// declines, so the regulator falls back to the platform API.
type NoSwitcher struct{}

func (NoSwitcher) Name() string { return "none" }

func (NoSwitcher) TrySwitch(context.Context, domain.OutputEndpoint) error {
	return domain.ErrSwitcherUnavailable
}

// DetectSwitcher returns a SwitchAudio for the first existing path, or
// NoSwitcher.
func DetectSwitcher(paths ...string) domain.Switcher {
	if len(paths) == 0 {
		paths = SwitcherPaths
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			logging.Debugf("using output switcher %s", p)
			return NewSwitchAudio(p, nil)
		}
	}
	logging.Infof("SwitchAudioSource not found, install it with: %s", InstallHint)
	return NoSwitcher{}
}
