package runner

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"

	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
)

// DefaultShell runs the joined command line.
const DefaultShell = "/bin/sh"

// Shell implements domain.CommandRunner by handing the command line to a
// shell, so that the arguments of a stored command string are split by the
// shell and not by us.
type Shell struct {
	shell string
}

// NewShell uses path as the shell, DefaultShell when empty.
func NewShell(path string) *Shell {
	if path == "" {
		path = DefaultShell
	}
	return &Shell{shell: path}
}

var _ domain.CommandRunner = (*Shell)(nil)

// Start spawns the command. Both streams are captured together and each is
// also copied to its own writer when that is not nil.
func (s *Shell) Start(command domain.CommandSpec, stdout, stderr io.Writer) (<-chan domain.ExecResult, error) {
	line := command.Line()
	cmd := exec.Command(s.shell, "-c", line)

	combined := &lockedBuffer{}
	cmd.Stdout = tee(combined, stdout)
	cmd.Stderr = tee(combined, stderr)

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	logging.Debugf("started pid %d: %s -c %q", cmd.Process.Pid, s.shell, line)

	done := make(chan domain.ExecResult, 1)
	go func() {
		defer close(done)
		err := cmd.Wait()
		res := domain.ExecResult{
			Output:   combined.Bytes(),
			Duration: time.Since(started),
		}
		var exitErr *exec.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			res.ExitCode = -1
			res.Err = err
		}
		logging.Debugf("pid %d exited with %d after %s", cmd.Process.Pid, res.ExitCode, res.Duration)
		done <- res
	}()
	return done, nil
}

// lockedBuffer is written from the stdout and stderr copy goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func tee(capture, pass io.Writer) io.Writer {
	if pass == nil {
		return capture
	}
	return io.MultiWriter(capture, pass)
}
