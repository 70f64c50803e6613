// Package launchagent registers the helper as a periodic launchd job.
package launchagent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"howett.net/plist"

	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
)

const (
	// StartInterval is the recurrence of the job in seconds.
	StartInterval = 900

	StdoutPath = "/tmp/announcetime.log"
	StderrPath = "/tmp/announcetime.err"

	launchctl = "/bin/launchctl"
)

// Descriptor is the launchd job definition.
type Descriptor struct {
	Label             string   `plist:"Label"`
	ProgramArguments  []string `plist:"ProgramArguments"`
	StartInterval     int      `plist:"StartInterval"`
	KeepAlive         bool     `plist:"KeepAlive"`
	StandardOutPath   string   `plist:"StandardOutPath"`
	StandardErrorPath string   `plist:"StandardErrorPath"`
}

// Runner runs a program and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Agent implements domain.Scheduler with a LaunchAgent plist and launchctl.
type Agent struct {
	dir  string
	home string
	run  Runner
}

// Option configures an Agent.
type Option func(*Agent)

// WithDir overrides ~/Library/LaunchAgents.
func WithDir(dir string) Option {
	return func(a *Agent) { a.dir = dir }
}

// WithRunner replaces the launchctl invocation.
func WithRunner(run Runner) Option {
	return func(a *Agent) { a.run = run }
}

// New creates an Agent for the current user.
func New(opts ...Option) *Agent {
	home, _ := os.UserHomeDir()
	a := &Agent{
		home: home,
		dir:  filepath.Join(home, "Library", "LaunchAgents"),
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ domain.Scheduler = (*Agent)(nil)

// PlistPath is where the descriptor for label is written.
func (a *Agent) PlistPath(label string) string {
	return filepath.Join(a.dir, label+".plist")
}

// HelperPath is the helper executable the job runs.
func (a *Agent) HelperPath(s domain.Settings) string {
	if s.HelperPath != "" {
		return s.HelperPath
	}
	return filepath.Join(a.home, "bin", "announce-helper")
}

// Build derives the job from the settings. The argument string is split
// with shell quoting rules.
func (a *Agent) Build(s domain.Settings) (Descriptor, error) {
	if err := s.Validate(); err != nil {
		return Descriptor{}, err
	}
	if strings.TrimSpace(s.CommandPath) == "" {
		return Descriptor{}, domain.ErrEmptyCommand
	}
	extra, err := shlex.Split(s.CommandArgs)
	if err != nil {
		return Descriptor{}, fmt.Errorf("split command args: %w", err)
	}

	args := []string{a.HelperPath(s), "--volume", strconv.Itoa(s.Volume), "--", s.CommandPath}
	args = append(args, extra...)
	return Descriptor{
		Label:             s.AgentLabel,
		ProgramArguments:  args,
		StartInterval:     StartInterval,
		KeepAlive:         false,
		StandardOutPath:   StdoutPath,
		StandardErrorPath: StderrPath,
	}, nil
}

// Encode renders the descriptor as an XML property list.
func Encode(d Descriptor) ([]byte, error) {
	return plist.MarshalIndent(d, plist.XMLFormat, "\t")
}

// Write generates the plist without registering it.
func (a *Agent) Write(s domain.Settings) (string, error) {
	d, err := a.Build(s)
	if err != nil {
		return "", err
	}
	data, err := Encode(d)
	if err != nil {
		return "", fmt.Errorf("encode plist: %w", err)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", a.dir, err)
	}
	path := a.PlistPath(s.AgentLabel)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write plist: %w", err)
	}
	return path, nil
}

// Enable writes the plist and loads it.
func (a *Agent) Enable(ctx context.Context, s domain.Settings) error {
	path, err := a.Write(s)
	if err != nil {
		return err
	}
	logging.Infof("loading %s", path)
	return a.launchctl(ctx, "load", path)
}

// Disable unloads the job. The plist file is left in place.
func (a *Agent) Disable(ctx context.Context, s domain.Settings) error {
	path := a.PlistPath(s.AgentLabel)
	logging.Infof("unloading %s", path)
	return a.launchctl(ctx, "unload", path)
}

// Enabled reports whether launchctl lists the label.
func (a *Agent) Enabled(ctx context.Context, s domain.Settings) (bool, error) {
	out, err := a.run(ctx, launchctl, "list")
	if err != nil {
		return false, fmt.Errorf("launchctl list: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[len(fields)-1] == s.AgentLabel {
			return true, nil
		}
	}
	return false, nil
}

func (a *Agent) launchctl(ctx context.Context, args ...string) error {
	out, err := a.run(ctx, launchctl, args...)
	if err != nil {
		return fmt.Errorf("launchctl %s: %w (%s)", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
