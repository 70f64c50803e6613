package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
)

// PanelUseCase is the primary port for the interactive control panel.
type PanelUseCase interface {
	Snapshot() PanelState
	Subscribe(buffer int) (<-chan Event, func())
	Settings() domain.Settings
	RunTest(ctx context.Context) (<-chan domain.SessionReport, error)
	RefreshDevices(ctx context.Context) error
	RefreshLog() error
	ClearLog() error
	UpdateSettings(update SettingsUpdate) (domain.Settings, error)
	SetCommandFile(path string) error
	ToggleSchedule(ctx context.Context, enabled bool) error
	RefreshSchedule(ctx context.Context) error
	ResetToDefault() error
}

// PanelState is everything a panel front end renders.
type PanelState struct {
	Volume          int                     `json:"volume"`
	OutputDevice    string                  `json:"outputDevice"`
	Endpoints       []domain.OutputEndpoint `json:"endpoints"`
	CommandPath     string                  `json:"commandPath"`
	CommandArgs     string                  `json:"commandArgs"`
	Notify          bool                    `json:"notify"`
	ScheduleEnabled bool                    `json:"scheduleEnabled"`
	Running         bool                    `json:"running"`
	Session         SessionSnapshot         `json:"session"`
	Log             []domain.LogEntry       `json:"log"`
}

// SettingsUpdate carries the fields a panel may change. Nil fields are kept.
type SettingsUpdate struct {
	Volume       *int    `json:"volume,omitempty"`
	OutputDevice *string `json:"outputDevice,omitempty"`
	CommandPath  *string `json:"commandPath,omitempty"`
	CommandArgs  *string `json:"commandArgs,omitempty"`
	Notify       *bool   `json:"notify,omitempty"`
}

// PanelDeps are the collaborators of the panel interactor.
type PanelDeps struct {
	Settings  domain.SettingsRepository
	Logs      domain.LogStore
	Scheduler domain.Scheduler
	Catalog   *Catalog
	Volume    *VolumeRegulator
	Endpoint  *EndpointRegulator
	Runner    domain.CommandRunner
	Hub       *Hub
}

type panelInteractor struct {
	repo      domain.SettingsRepository
	logs      domain.LogStore
	scheduler domain.Scheduler
	catalog   *Catalog
	hub       *Hub
	session   *Orchestrator

	mu        sync.RWMutex
	settings  domain.Settings
	scheduled bool
	entries   []domain.LogEntry
}

// NewPanelUseCase loads the settings and builds the panel's orchestrator.
// Devices, log and schedule status are loaded separately through the Refresh
// operations so that a failing probe never prevents startup.
func NewPanelUseCase(deps PanelDeps) (PanelUseCase, error) {
	settings, err := deps.Settings.Load()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewHub()
	}

	p := &panelInteractor{
		repo:      deps.Settings,
		logs:      deps.Logs,
		scheduler: deps.Scheduler,
		catalog:   deps.Catalog,
		hub:       hub,
		settings:  settings,
	}
	p.session = NewOrchestrator(deps.Volume, deps.Endpoint, deps.Runner, deps.Logs, hub, OrchestratorConfig{
		LogMode:            LogSteps,
		RetryVolumeRestore: true,
		OnEntry:            p.prepend,
	})
	return p, nil
}

// Load performs the initial refreshes and logs, without failing, whatever
// could not be read.
func Load(ctx context.Context, p PanelUseCase) {
	if err := p.RefreshDevices(ctx); err != nil {
		logging.Warnf("device enumeration: %v", err)
	}
	if err := p.RefreshSchedule(ctx); err != nil {
		logging.Warnf("schedule status: %v", err)
	}
	if err := p.RefreshLog(); err != nil {
		logging.Warnf("read log: %v", err)
	}
}

func (p *panelInteractor) Snapshot() PanelState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	session := p.session.Snapshot()
	return PanelState{
		Volume:          p.settings.Volume,
		OutputDevice:    p.settings.OutputDevice,
		Endpoints:       p.catalog.List(),
		CommandPath:     p.settings.CommandPath,
		CommandArgs:     p.settings.CommandArgs,
		Notify:          p.settings.Notify,
		ScheduleEnabled: p.scheduled,
		Running:         session.Running,
		Session:         session,
		Log:             append([]domain.LogEntry(nil), p.entries...),
	}
}

func (p *panelInteractor) Subscribe(buffer int) (<-chan Event, func()) {
	return p.hub.Subscribe(buffer)
}

func (p *panelInteractor) Settings() domain.Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// RunTest starts one session with the current settings.
func (p *panelInteractor) RunTest(ctx context.Context) (<-chan domain.SessionReport, error) {
	s := p.Settings()
	volume := s.Volume
	req := Request{
		Command:  CommandFromSettings(s),
		Volume:   &volume,
		Endpoint: domain.Unchanged,
		Banner:   "テスト実行を開始しました...",
	}
	if s.OutputDevice != "" {
		req.Endpoint = domain.OutputEndpoint{Name: s.OutputDevice}
		if ep, ok := p.catalog.Resolve(req.Endpoint); ok {
			req.Endpoint = ep
		}
	}
	return p.session.Start(context.WithoutCancel(ctx), req)
}

func (p *panelInteractor) RefreshDevices(ctx context.Context) error {
	_, err := p.catalog.Refresh(ctx)
	p.hub.Publish(Event{Kind: EventDevices})
	return err
}

// RefreshLog replaces the in-memory entries with the file contents.
func (p *panelInteractor) RefreshLog() error {
	entries, err := p.logs.ReadAll()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.entries = entries
	p.mu.Unlock()
	p.hub.Publish(Event{Kind: EventLogReset})
	return nil
}

func (p *panelInteractor) ClearLog() error {
	if err := p.logs.Clear(); err != nil {
		return err
	}
	p.mu.Lock()
	p.entries = nil
	p.mu.Unlock()
	p.hub.Publish(Event{Kind: EventLogReset})
	p.addLog("ログをクリアしました", "")
	return nil
}

func (p *panelInteractor) UpdateSettings(update SettingsUpdate) (domain.Settings, error) {
	p.mu.Lock()
	next := p.settings
	if update.Volume != nil {
		next.Volume = *update.Volume
	}
	if update.OutputDevice != nil {
		next.OutputDevice = *update.OutputDevice
	}
	if update.CommandPath != nil {
		next.CommandPath = *update.CommandPath
	}
	if update.CommandArgs != nil {
		next.CommandArgs = *update.CommandArgs
	}
	if update.Notify != nil {
		next.Notify = *update.Notify
	}
	if err := next.Validate(); err != nil {
		p.mu.Unlock()
		return p.Settings(), err
	}
	err := p.save(next)
	p.mu.Unlock()
	if err != nil {
		return next, err
	}
	p.hub.Publish(Event{Kind: EventSettings})
	return next, nil
}

// SetCommandFile replaces the command path with an existing regular file.
func (p *panelInteractor) SetCommandFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() && !isBundle(path) {
		return fmt.Errorf("%s is a directory", path)
	}
	_, err = p.UpdateSettings(SettingsUpdate{CommandPath: &path})
	return err
}

func (p *panelInteractor) ToggleSchedule(ctx context.Context, enabled bool) error {
	s := p.Settings()
	var err error
	if enabled {
		if err = p.scheduler.Enable(ctx, s); err != nil {
			p.addLog("LaunchAgentの有効化に失敗しました", err.Error())
		} else {
			p.addLog("LaunchAgentを有効化しました", "")
		}
	} else {
		if err = p.scheduler.Disable(ctx, s); err != nil {
			p.addLog("LaunchAgentの無効化に失敗しました", err.Error())
		} else {
			p.addLog("LaunchAgentを無効化しました", "")
		}
	}
	if rerr := p.RefreshSchedule(ctx); rerr != nil {
		logging.Warnf("schedule status: %v", rerr)
	}
	return err
}

func (p *panelInteractor) RefreshSchedule(ctx context.Context) error {
	enabled, err := p.scheduler.Enabled(ctx, p.Settings())
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.scheduled = enabled
	p.mu.Unlock()
	p.hub.Publish(Event{Kind: EventSchedule})
	return nil
}

// ResetToDefault restores the panel fields to their defaults. Paths and
// tuning that are not shown on the panel are kept.
func (p *panelInteractor) ResetToDefault() error {
	def := domain.DefaultSettings()
	p.mu.Lock()
	next := p.settings
	next.Volume = def.Volume
	next.OutputDevice = def.OutputDevice
	next.CommandPath = def.CommandPath
	next.CommandArgs = def.CommandArgs
	err := p.save(next)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.hub.Publish(Event{Kind: EventSettings})
	return nil
}

// save persists next and adopts it. Callers hold p.mu.
func (p *panelInteractor) save(next domain.Settings) error {
	if err := p.repo.Save(next); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	p.settings = next
	return nil
}

func (p *panelInteractor) prepend(entry domain.LogEntry) {
	p.mu.Lock()
	p.entries = append([]domain.LogEntry{entry}, p.entries...)
	p.mu.Unlock()
}

// addLog records a panel-level entry outside of any session.
func (p *panelInteractor) addLog(message, detail string) {
	entry := domain.NewLogEntry(time.Now(), message, detail)
	if err := p.logs.Append(entry); err != nil {
		logging.Errorf("append log: %v", err)
	}
	p.prepend(entry)
	p.hub.Publish(Event{Kind: EventLog, Entry: &entry})
}

// CommandFromSettings builds the command of a panel or scheduled session.
// The argument string is handed to the shell as is.
func CommandFromSettings(s domain.Settings) domain.CommandSpec {
	cmd := domain.CommandSpec{Path: s.CommandPath}
	if s.CommandArgs != "" {
		cmd.Args = []string{s.CommandArgs}
	}
	return cmd
}

// isBundle reports whether a directory is an application bundle, which the
// command file picker accepts.
func isBundle(path string) bool {
	_, err := os.Stat(filepath.Join(path, "Contents", "Info.plist"))
	return err == nil
}
