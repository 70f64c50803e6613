package domain

import "errors"

var (
	// ErrInvalidVolume indicates that the volume value is out of range.
	ErrInvalidVolume = errors.New("volume must be between 0 and 100")

	// ErrInvalidTuning indicates a negative tolerance or settle interval.
	ErrInvalidTuning = errors.New("tuning values must not be negative")

	// ErrProbe indicates that the current audio state could not be read.
	ErrProbe = errors.New("audio state probe failed")

	// ErrApply indicates that a set call failed or could not be verified.
	ErrApply = errors.New("audio state apply failed")

	// ErrEndpointNotFound indicates that the target is not in the current enumeration.
	ErrEndpointNotFound = errors.New("output endpoint not found")

	// ErrSpawn indicates that the command could not be started.
	ErrSpawn = errors.New("command could not be started")

	// ErrExecution indicates that the command ran but exited non-zero.
	ErrExecution = errors.New("command exited with non-zero status")

	// ErrRestore indicates that reverting the audio state failed.
	ErrRestore = errors.New("audio state restore failed")

	// ErrNothingSaved indicates a restore without a preceding successful save.
	ErrNothingSaved = errors.New("nothing saved to restore")

	// ErrSessionActive indicates a run request while another session is in flight.
	ErrSessionActive = errors.New("a session is already running")

	// ErrUnsupported indicates that the platform primitive is not available.
	ErrUnsupported = errors.New("not supported on this platform")

	// ErrSwitcherUnavailable indicates that no external switching utility is installed.
	ErrSwitcherUnavailable = errors.New("switching utility not available")

	// ErrEmptyCommand indicates a session request without a command.
	ErrEmptyCommand = errors.New("command is empty")
)
