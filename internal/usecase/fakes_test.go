package usecase

import (
	"context"
	"errors"
	"io"
	"sync"

	"announce-helper/internal/domain"
)

var errOS = errors.New("os call failed")

type fakeVolume struct {
	mu       sync.Mutex
	value    int
	offset   int // added to every set, to simulate a bridge that drifts
	probeErr error
	setErr   error
	gets     int
	sets     []int
}

func (f *fakeVolume) Volume(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.value, nil
}

func (f *fakeVolume) SetVolume(_ context.Context, v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, v)
	if f.setErr != nil {
		return f.setErr
	}
	f.value = v + f.offset
	return nil
}

func (f *fakeVolume) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets + len(f.sets)
}

func (f *fakeVolume) current() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

type fakeEndpoints struct {
	mu       sync.Mutex
	list     []domain.OutputEndpoint
	current  map[domain.EndpointRole]string
	probeErr error
	setErr   error
	ignore   bool // accept Set calls without changing anything
	sets     int
	gets     int
}

func newFakeEndpoints(current string, list ...domain.OutputEndpoint) *fakeEndpoints {
	return &fakeEndpoints{
		list: list,
		current: map[domain.EndpointRole]string{
			domain.RoleOutput:       current,
			domain.RoleSystemOutput: current,
		},
	}
}

func (f *fakeEndpoints) Endpoints(context.Context) ([]domain.OutputEndpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OutputEndpoint(nil), f.list...), nil
}

func (f *fakeEndpoints) Current(_ context.Context, role domain.EndpointRole) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.probeErr != nil {
		return "", f.probeErr
	}
	return f.current[role], nil
}

func (f *fakeEndpoints) Set(_ context.Context, role domain.EndpointRole, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	if !f.ignore {
		f.current[role] = id
	}
	return nil
}

func (f *fakeEndpoints) state() map[domain.EndpointRole]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[domain.EndpointRole]string, len(f.current))
	for k, v := range f.current {
		out[k] = v
	}
	return out
}

func (f *fakeEndpoints) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets + f.sets
}

type fakeSwitcher struct {
	control *fakeEndpoints
	err     error
	used    []string
}

func (s *fakeSwitcher) Name() string { return "fake" }

func (s *fakeSwitcher) TrySwitch(_ context.Context, target domain.OutputEndpoint) error {
	s.used = append(s.used, target.Name)
	if s.err != nil {
		return s.err
	}
	s.control.mu.Lock()
	for _, role := range domain.Roles {
		s.control.current[role] = target.ID
	}
	s.control.mu.Unlock()
	return nil
}

// fakeRunner completes immediately unless gate is set, in which case it
// signals started and waits for gate to be closed.
type fakeRunner struct {
	exitCode int
	output   string
	errOut   string
	spawnErr error
	waitErr  error
	started  chan struct{}
	gate     chan struct{}
	onRun    func()

	mu    sync.Mutex
	lines []string
}

func (r *fakeRunner) Start(cmd domain.CommandSpec, stdout, stderr io.Writer) (<-chan domain.ExecResult, error) {
	r.mu.Lock()
	r.lines = append(r.lines, cmd.Line())
	r.mu.Unlock()
	if r.spawnErr != nil {
		return nil, r.spawnErr
	}
	ch := make(chan domain.ExecResult, 1)
	go func() {
		defer close(ch)
		if r.started != nil {
			close(r.started)
		}
		if r.gate != nil {
			<-r.gate
		}
		if r.onRun != nil {
			r.onRun()
		}
		if stdout != nil {
			_, _ = io.WriteString(stdout, r.output)
		}
		if stderr != nil {
			_, _ = io.WriteString(stderr, r.errOut)
		}
		ch <- domain.ExecResult{ExitCode: r.exitCode, Output: []byte(r.output + r.errOut), Err: r.waitErr}
	}()
	return ch, nil
}

func (r *fakeRunner) runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

type memLog struct {
	mu      sync.Mutex
	entries []domain.LogEntry
}

func (m *memLog) Append(e domain.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLog) ReadAll() ([]domain.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.LogEntry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *memLog) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

func (m *memLog) all() []domain.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LogEntry(nil), m.entries...)
}

type memSettings struct {
	settings domain.Settings
	saves    int
	err      error
}

func (m *memSettings) Load() (domain.Settings, error) { return m.settings, nil }

func (m *memSettings) Save(s domain.Settings) error {
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.settings = s
	return nil
}

type fakeScheduler struct {
	enabled bool
	err     error
	last    domain.Settings
}

func (f *fakeScheduler) Enable(_ context.Context, s domain.Settings) error {
	if f.err != nil {
		return f.err
	}
	f.enabled = true
	f.last = s
	return nil
}

func (f *fakeScheduler) Disable(context.Context, domain.Settings) error {
	if f.err != nil {
		return f.err
	}
	f.enabled = false
	return nil
}

func (f *fakeScheduler) Enabled(context.Context, domain.Settings) (bool, error) {
	return f.enabled, nil
}

func instant() RegulatorConfig {
	return RegulatorConfig{Policy: VerifyAdvisory, Tolerance: 2}
}

func blocking() RegulatorConfig {
	return RegulatorConfig{Policy: VerifyBlocking}
}

func intp(v int) *int { return &v }
