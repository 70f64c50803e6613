package volume

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
)

const (
	getScript = "output volume of (get volume settings)"
	setScript = "set volume output volume %d"

	permissionHint = "アクセシビリティの権限が必要です。システム設定 > プライバシーとセキュリティ > アクセシビリティ でアプリを有効にしてください。"
)

// ErrPermission is returned when the automation bridge is not allowed to
// control the system.
var ErrPermission = errors.New("automation permission denied")

// Exec runs a program and returns its combined output.
type Exec func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// AppleScript implements domain.VolumeControl using macOS osascript.
type AppleScript struct {
	exec Exec
}

// NewAppleScript creates a controller that shells out to osascript.
func NewAppleScript() *AppleScript {
	return &AppleScript{exec: runCombined}
}

// NewAppleScriptWithExec is NewAppleScript with a custom process runner.
func NewAppleScriptWithExec(fn Exec) *AppleScript {
	return &AppleScript{exec: fn}
}

var _ domain.VolumeControl = (*AppleScript)(nil)

// Volume returns the current output volume.
func (a *AppleScript) Volume(ctx context.Context) (int, error) {
	out, err := a.exec(ctx, "osascript", "-e", getScript)
	if err != nil {
		return 0, classify(err, out)
	}
	text := strings.TrimSpace(string(out))
	v, err := strconv.Atoi(text)
	if err != nil {
		// "missing value" is reported while no output device is available
		return 0, fmt.Errorf("unexpected osascript output %q", text)
	}
	return v, nil
}

// SetVolume sets the output volume. The bridge reports success even when
// nothing changed, so callers verify by reading it back.
func (a *AppleScript) SetVolume(ctx context.Context, volume int) error {
	if err := domain.ValidateVolume(volume); err != nil {
		return err
	}
	out, err := a.exec(ctx, "osascript", "-e", fmt.Sprintf(setScript, volume))
	if err != nil {
		return classify(err, out)
	}
	return nil
}

func classify(err error, out []byte) error {
	msg := strings.TrimSpace(string(out))
	if strings.Contains(msg, "-1743") || strings.Contains(msg, "not allowed") {
		logging.Warnf("%s", permissionHint)
		return fmt.Errorf("%w: %s", ErrPermission, msg)
	}
	return fmt.Errorf("osascript failed: %w (%s)", err, msg)
}
