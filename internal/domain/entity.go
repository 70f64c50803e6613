package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the layout used for every timestamp written to the log file.
const TimestampLayout = "2006-01-02 15:04:05"

// Volume bounds, inclusive.
const (
	MinVolume = 0
	MaxVolume = 100
)

// ValidateVolume rejects values outside [MinVolume, MaxVolume].
func ValidateVolume(v int) error {
	if v < MinVolume || v > MaxVolume {
		return ErrInvalidVolume
	}
	return nil
}

// OutputEndpoint is an audio output destination. ID is the stable device UID,
// Name the human readable name shown to the user.
// The zero value is the "leave unchanged" sentinel.
type OutputEndpoint struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Unchanged means "do not touch the current output device".
var Unchanged = OutputEndpoint{}

// IsUnchanged reports whether e is the sentinel.
func (e OutputEndpoint) IsUnchanged() bool {
	return e.ID == "" && e.Name == ""
}

// Label returns the name, falling back to the ID.
func (e OutputEndpoint) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// EndpointRole distinguishes the two default-output roles macOS keeps.
type EndpointRole int

const (
	RoleOutput EndpointRole = iota
	RoleSystemOutput
)

// Roles lists every role in the order they are applied and restored.
var Roles = []EndpointRole{RoleOutput, RoleSystemOutput}

func (r EndpointRole) String() string {
	switch r {
	case RoleOutput:
		return "output"
	case RoleSystemOutput:
		return "system-output"
	default:
		return "unknown"
	}
}

// SavedAudioState is the snapshot taken at the start of a session.
// A nil Volume or a missing role means the probe failed and that dimension
// is not restored.
type SavedAudioState struct {
	Volume *int
	Output map[EndpointRole]string
}

// CommandSpec is the external command run inside a session.
type CommandSpec struct {
	Path string
	Args []string
}

// Line joins path and arguments with spaces, the form handed to the shell.
func (c CommandSpec) Line() string {
	parts := make([]string, 0, len(c.Args)+1)
	if c.Path != "" {
		parts = append(parts, c.Path)
	}
	parts = append(parts, c.Args...)
	return strings.Join(parts, " ")
}

// Empty reports whether there is nothing to run.
func (c CommandSpec) Empty() bool {
	return strings.TrimSpace(c.Line()) == ""
}

// Preview returns at most n characters of the command line.
func (c CommandSpec) Preview(n int) string {
	r := []rune(c.Line())
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}

// LogEntry is one line of the durable log.
type LogEntry struct {
	ID        uuid.UUID `json:"id"`
	Timestamp string    `json:"timestamp"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
}

// NewLogEntry stamps a message with t.
func NewLogEntry(t time.Time, message, errDetail string) LogEntry {
	return LogEntry{
		ID:        uuid.New(),
		Timestamp: t.Format(TimestampLayout),
		Message:   message,
		Error:     errDetail,
	}
}

// HasError reports whether the entry carries an error detail.
func (e LogEntry) HasError() bool {
	return e.Error != ""
}

// SessionPhase is the state of the orchestrator.
type SessionPhase int

const (
	PhaseIdle SessionPhase = iota
	PhaseSaving
	PhaseApplying
	PhaseExecuting
	PhaseRestoring
	PhaseDone
)

func (p SessionPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSaving:
		return "saving"
	case PhaseApplying:
		return "applying"
	case PhaseExecuting:
		return "executing"
	case PhaseRestoring:
		return "restoring"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Settings is the persisted user configuration shared by the panel, the
// shell and the scheduled-execution descriptor.
type Settings struct {
	Volume       int
	OutputDevice string
	CommandPath  string
	CommandArgs  string
	LogPath      string
	HelperPath   string
	AgentLabel   string
	Notify       bool
	Tuning       Tuning
}

// Tuning holds the empirical constants of the regulators.
type Tuning struct {
	VolumeTolerance  int
	VolumeSettle     time.Duration
	EndpointSettle   time.Duration
	PostSwitchSettle time.Duration
}

// DefaultTuning returns the constants observed to work on macOS 13+.
func DefaultTuning() Tuning {
	return Tuning{
		VolumeTolerance:  2,
		VolumeSettle:     200 * time.Millisecond,
		EndpointSettle:   200 * time.Millisecond,
		PostSwitchSettle: 500 * time.Millisecond,
	}
}

// DefaultSettings returns the values used on first start and on reset.
func DefaultSettings() Settings {
	return Settings{
		Volume:       30,
		OutputDevice: "",
		CommandPath:  "/usr/bin/open",
		CommandArgs:  "/Applications/Automator/AnnounceTime.app",
		LogPath:      "/tmp/announce-helper.log",
		AgentLabel:   "com.moto.announcetime",
		Tuning:       DefaultTuning(),
	}
}

// Validate checks the fields that would make a session or descriptor invalid.
func (s Settings) Validate() error {
	if err := ValidateVolume(s.Volume); err != nil {
		return err
	}
	if s.Tuning.VolumeTolerance < 0 {
		return ErrInvalidTuning
	}
	if s.Tuning.VolumeSettle < 0 || s.Tuning.EndpointSettle < 0 || s.Tuning.PostSwitchSettle < 0 {
		return ErrInvalidTuning
	}
	return nil
}
