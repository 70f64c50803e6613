package domain

import (
	"context"
	"io"
	"time"
)

// VolumeControl is a secondary port over the automation bridge that reads
// and sets the output volume.
type VolumeControl interface {
	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, volume int) error
}

// EndpointControl is a secondary port over the platform audio API.
// IDs are device UIDs as returned by Endpoints.
type EndpointControl interface {
	Endpoints(ctx context.Context) ([]OutputEndpoint, error)
	Current(ctx context.Context, role EndpointRole) (string, error)
	Set(ctx context.Context, role EndpointRole, id string) error
}

// Switcher is an optional strategy that switches the output device through
// an external utility. It is tried before EndpointControl.Set.
type Switcher interface {
	Name() string
	TrySwitch(ctx context.Context, target OutputEndpoint) error
}

// ExecResult is what a finished command reports.
type ExecResult struct {
	ExitCode int
	Output   []byte
	Duration time.Duration
	// Err is set when the process could not be waited for.
	Err error
}

// CommandRunner starts a command and delivers its completion on the
// returned channel. The channel receives exactly one value and is closed.
// There is no cancellation: a started command always runs to completion.
// stdout and stderr receive the child's streams as they are produced and
// may be nil.
type CommandRunner interface {
	Start(cmd CommandSpec, stdout, stderr io.Writer) (<-chan ExecResult, error)
}

// LogStore is the durable, append-only log.
type LogStore interface {
	Append(entry LogEntry) error
	ReadAll() ([]LogEntry, error)
	Clear() error
}

// SettingsRepository persists Settings.
type SettingsRepository interface {
	Load() (Settings, error)
	Save(settings Settings) error
}

// Scheduler registers the periodic invocation of the CLI helper with the OS.
type Scheduler interface {
	Enable(ctx context.Context, settings Settings) error
	Disable(ctx context.Context, settings Settings) error
	Enabled(ctx context.Context, settings Settings) (bool, error)
}

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, message string) error
}
