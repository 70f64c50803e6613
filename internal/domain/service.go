package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	fieldSeparator = " | "
	errorOpen      = "[エラー: "
	errorClose     = "]"
	notChanged     = "未変更"

	// CommandPreviewLength is how many characters of the command the summary line keeps.
	CommandPreviewLength = 50
)

// lineBreaks folds multi-line text, such as joined errors, into one log line.
var lineBreaks = strings.NewReplacer("\r\n", "; ", "\n", "; ", "\r", "; ")

// FormatLogLine renders an entry as it is stored, without the trailing newline.
func FormatLogLine(e LogEntry) string {
	line := e.Timestamp + fieldSeparator + lineBreaks.Replace(e.Message)
	if e.HasError() {
		line += " " + errorOpen + lineBreaks.Replace(e.Error) + errorClose
	}
	return line
}

// ParseLogLine is the inverse of FormatLogLine. Lines that do not start with
// a timestamp are kept whole as the message.
func ParseLogLine(line string) LogEntry {
	entry := LogEntry{ID: uuid.New()}
	ts, rest, ok := strings.Cut(line, fieldSeparator)
	if !ok {
		entry.Message = line
		return entry
	}
	if _, err := time.ParseInLocation(TimestampLayout, ts, time.Local); err != nil {
		entry.Message = line
		return entry
	}
	entry.Timestamp = ts
	entry.Message = rest
	if !strings.HasSuffix(rest, errorClose) {
		return entry
	}
	if i := strings.LastIndex(rest, errorOpen); i >= 0 {
		entry.Error = rest[i+len(errorOpen) : len(rest)-len(errorClose)]
		entry.Message = strings.TrimRight(rest[:i], " ")
	}
	return entry
}

// SummaryMessage builds the headless summary line body:
// 音量: <volume|未変更> | 出力先: <device|未変更> | コマンド: <preview>.
func SummaryMessage(volume *int, device string, cmd CommandSpec) string {
	vol := notChanged
	if volume != nil {
		vol = strconv.Itoa(*volume)
	}
	dev := notChanged
	if device != "" {
		dev = device
	}
	return fmt.Sprintf("音量: %s | 出力先: %s | コマンド: %s", vol, dev, cmd.Preview(CommandPreviewLength))
}

// Verification is the outcome of re-probing after a set call.
type Verification struct {
	Requested int
	Observed  int
	// Probed is false when the re-probe itself failed.
	Probed   bool
	Mismatch bool
}

// SessionReport collects the outcome of every step of one session.
type SessionReport struct {
	ID        uuid.UUID
	Command   CommandSpec
	Volume    *int
	Endpoint  OutputEndpoint
	StartedAt time.Time
	EndedAt   time.Time

	Saved SavedAudioState
	// VolumeSaveErr is set when the current volume could not be read, so
	// an applied override is left in place.
	VolumeSaveErr error

	VolumeApplyErr       error
	VolumeCheck          *Verification
	EndpointApplyErr     error
	SpawnErr             error
	ExitCode             int
	Output               []byte
	VolumeRestoreErr     error
	EndpointRestoreErr   error
	VolumeRestoreRetried bool

	VolumeApplyAttempts     int
	EndpointApplyAttempts   int
	VolumeRestoreAttempts   int
	EndpointRestoreAttempts int

	Entries []LogEntry
}

// ExecErr returns the error of the Executing step, if any.
func (r SessionReport) ExecErr() error {
	if r.SpawnErr != nil {
		return r.SpawnErr
	}
	if r.ExitCode != 0 {
		return fmt.Errorf("%w (終了コード: %d)", ErrExecution, r.ExitCode)
	}
	return nil
}

// Err joins every failure that makes the session unsuccessful.
// Endpoint restore failures are logged but do not fail the session.
func (r SessionReport) Err() error {
	return errors.Join(r.VolumeApplyErr, r.EndpointApplyErr, r.ExecErr(), r.VolumeRestoreErr)
}

// Failed reports whether the session should exit non-zero.
func (r SessionReport) Failed() bool {
	return r.Err() != nil
}

// ErrorDetail renders the most significant failure for the summary line.
// Command failures win over override failures. Failures that do not fail
// the session are still reported so that the line records them.
func (r SessionReport) ErrorDetail() string {
	switch {
	case r.SpawnErr != nil:
		return "コマンド実行エラー: " + r.SpawnErr.Error()
	case r.ExitCode != 0:
		return fmt.Sprintf("コマンド実行エラー (終了コード: %d)", r.ExitCode)
	case r.VolumeApplyErr != nil:
		return "音量設定に失敗"
	case r.EndpointApplyErr != nil:
		return "出力先設定に失敗"
	case r.VolumeRestoreErr != nil:
		return "音量復元に失敗"
	case r.VolumeSaveErr != nil && r.Volume != nil:
		return "音量取得に失敗 (復元なし)"
	case r.EndpointRestoreErr != nil:
		return "出力先復元に失敗"
	default:
		return ""
	}
}
