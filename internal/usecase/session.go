package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
)

// LogMode selects how a session is written to the LogStore.
type LogMode int

const (
	// LogSummary writes one summary line when the session is done.
	LogSummary LogMode = iota
	// LogSteps writes every step entry as it happens.
	LogSteps
)

// OrchestratorConfig tunes one orchestrator instance.
type OrchestratorConfig struct {
	LogMode LogMode
	// RetryVolumeRestore re-applies the saved volume once when the restore
	// call fails.
	RetryVolumeRestore bool
	// Passthrough and PassthroughErr receive the child's stdout and stderr
	// as they are produced.
	Passthrough    io.Writer
	PassthroughErr io.Writer
	// OnEntry is called for every entry the session produces.
	OnEntry func(domain.LogEntry)
}

// Request describes one session.
type Request struct {
	Command domain.CommandSpec
	// Volume is nil when the volume is left alone.
	Volume *int
	// Endpoint is domain.Unchanged when the output device is left alone.
	Endpoint domain.OutputEndpoint
	// DeviceIntent is a device name that is recorded but not applied.
	DeviceIntent string
	// Banner, when set, is the first entry of the session.
	Banner string
}

// SessionSnapshot is the externally visible orchestrator state.
type SessionSnapshot struct {
	Phase     string     `json:"phase"`
	Running   bool       `json:"running"`
	SessionID string     `json:"sessionId,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	Command   string     `json:"command,omitempty"`
}

// Orchestrator sequences save → apply → execute → restore → log for one
// session at a time. Every apply attempt on a dimension whose save succeeded
// is paired with exactly one restore attempt, whatever the command does.
type Orchestrator struct {
	volume   *VolumeRegulator
	endpoint *EndpointRegulator
	runner   domain.CommandRunner
	logs     domain.LogStore
	hub      *Hub
	cfg      OrchestratorConfig
	now      func() time.Time

	mu      sync.Mutex
	phase   domain.SessionPhase
	id      uuid.UUID
	started time.Time
	command string
}

// NewOrchestrator wires the collaborators. endpoint, logs and hub may be nil.
func NewOrchestrator(volume *VolumeRegulator, endpoint *EndpointRegulator, runner domain.CommandRunner, logs domain.LogStore, hub *Hub, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		volume:   volume,
		endpoint: endpoint,
		runner:   runner,
		logs:     logs,
		hub:      hub,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run executes a session and blocks until it is done.
func (o *Orchestrator) Run(ctx context.Context, req Request) (domain.SessionReport, error) {
	report, err := o.begin(req)
	if err != nil {
		return domain.SessionReport{}, err
	}
	o.run(ctx, req, &report)
	return report, nil
}

// Start executes a session in the background. The report is delivered on
// the returned channel, which is closed afterwards.
func (o *Orchestrator) Start(ctx context.Context, req Request) (<-chan domain.SessionReport, error) {
	report, err := o.begin(req)
	if err != nil {
		return nil, err
	}
	ch := make(chan domain.SessionReport, 1)
	go func() {
		defer close(ch)
		o.run(ctx, req, &report)
		ch <- report
	}()
	return ch, nil
}

// Snapshot returns the current phase and session identity.
func (o *Orchestrator) Snapshot() SessionSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := SessionSnapshot{
		Phase:   o.phase.String(),
		Running: o.phase != domain.PhaseIdle,
	}
	if snap.Running {
		started := o.started
		snap.SessionID = o.id.String()
		snap.StartedAt = &started
		snap.Command = o.command
	}
	return snap
}

// Running reports whether a session is in flight.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase != domain.PhaseIdle
}

func (o *Orchestrator) begin(req Request) (domain.SessionReport, error) {
	if req.Command.Empty() {
		return domain.SessionReport{}, domain.ErrEmptyCommand
	}

	o.mu.Lock()
	if o.phase != domain.PhaseIdle {
		o.mu.Unlock()
		return domain.SessionReport{}, domain.ErrSessionActive
	}
	o.phase = domain.PhaseSaving
	o.id = uuid.New()
	o.started = o.now()
	o.command = req.Command.Line()
	report := domain.SessionReport{
		ID:        o.id,
		Command:   req.Command,
		Volume:    req.Volume,
		Endpoint:  req.Endpoint,
		StartedAt: o.started,
	}
	o.mu.Unlock()

	logging.L().Debugw("session started", "session", report.ID.String(), "command", report.Command.Line())
	o.hub.Publish(Event{Kind: EventPhase, Phase: domain.PhaseSaving})
	return report, nil
}

func (o *Orchestrator) setPhase(p domain.SessionPhase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
	o.hub.Publish(Event{Kind: EventPhase, Phase: p})
}

func (o *Orchestrator) run(ctx context.Context, req Request, rep *domain.SessionReport) {
	defer o.finish(req, rep)

	if req.Banner != "" {
		o.note(rep, req.Banner, nil)
	}
	o.save(ctx, rep)

	o.setPhase(domain.PhaseApplying)
	volumeApplied, endpointApplied := o.apply(ctx, req, rep)

	o.setPhase(domain.PhaseExecuting)
	o.execute(req, rep)

	o.setPhase(domain.PhaseRestoring)
	o.restore(ctx, rep, volumeApplied, endpointApplied)
}

func (o *Orchestrator) save(ctx context.Context, rep *domain.SessionReport) {
	if err := o.volume.Save(ctx); err != nil {
		rep.VolumeSaveErr = err
		o.note(rep, "⚠️ 音量の取得に失敗しました。アクセシビリティの権限を確認してください", err)
	} else if v, ok := o.volume.Saved(); ok {
		rep.Saved.Volume = &v
		o.note(rep, fmt.Sprintf("現在の音量: %d%%", v), nil)
	}

	if o.endpoint == nil {
		return
	}
	if err := o.endpoint.Save(ctx); err != nil {
		o.note(rep, "現在の出力先の取得に失敗しました", err)
	}
	rep.Saved.Output = o.endpoint.Saved()
	if id, ok := rep.Saved.Output[domain.RoleOutput]; ok {
		o.note(rep, "現在の出力先ID: "+id, nil)
	}
}

func (o *Orchestrator) apply(ctx context.Context, req Request, rep *domain.SessionReport) (volumeApplied, endpointApplied bool) {
	if req.Volume != nil {
		volumeApplied = true
		rep.VolumeApplyAttempts++
		check, err := o.volume.Apply(ctx, *req.Volume)
		rep.VolumeCheck = &check
		switch {
		case err != nil:
			rep.VolumeApplyErr = err
			o.note(rep, "音量の変更に失敗しました", err)
		case check.Mismatch:
			o.note(rep, fmt.Sprintf("音量を %d%% に設定しました (確認: %d%%)", check.Requested, check.Observed), nil)
			o.noteDetail(rep, "警告: 音量が期待値と異なります", fmt.Sprintf("設定値: %d%%, 実際の値: %d%%", check.Requested, check.Observed))
		case !check.Probed:
			o.note(rep, fmt.Sprintf("音量を %d%% に設定しました", check.Requested), nil)
			o.noteDetail(rep, "警告: 音量の確認に失敗しました", "音量確認エラー")
		default:
			o.note(rep, fmt.Sprintf("音量を %d%% に設定しました (確認: %d%%)", check.Requested, check.Observed), nil)
		}
	}

	if o.endpoint != nil {
		endpointApplied = true
		rep.EndpointApplyAttempts++
		if err := o.endpoint.Apply(ctx, req.Endpoint); err != nil {
			rep.EndpointApplyErr = err
			o.note(rep, "出力先の変更に失敗しました", err)
		} else if !req.Endpoint.IsUnchanged() {
			o.note(rep, "出力先を "+req.Endpoint.Label()+" に変更しました", nil)
		}
	}

	if req.DeviceIntent != "" {
		o.note(rep, "警告: 出力先 "+req.DeviceIntent+" は記録のみです（切り替えは行いません）", nil)
	}
	return volumeApplied, endpointApplied
}

func (o *Orchestrator) execute(req Request, rep *domain.SessionReport) {
	line := req.Command.Line()
	done, err := o.runner.Start(req.Command, o.cfg.Passthrough, o.cfg.PassthroughErr)
	if err != nil {
		rep.SpawnErr = fmt.Errorf("%w: %w", domain.ErrSpawn, err)
		rep.ExitCode = -1
		o.note(rep, "コマンドの実行に失敗しました", err)
		return
	}
	o.note(rep, "コマンドを実行中: "+line, nil)

	res := <-done
	rep.ExitCode = res.ExitCode
	rep.Output = res.Output
	if res.Err != nil {
		rep.SpawnErr = fmt.Errorf("%w: %w", domain.ErrSpawn, res.Err)
		o.note(rep, "コマンドの実行に失敗しました", res.Err)
		return
	}
	if out := strings.TrimSpace(string(res.Output)); out != "" && o.cfg.LogMode == LogSteps {
		o.note(rep, "出力: "+out, nil)
	}
	if res.ExitCode == 0 {
		o.note(rep, "コマンドが正常に完了しました", nil)
	} else {
		o.noteDetail(rep, "コマンドがエラーで終了しました", fmt.Sprintf("終了コード: %d", res.ExitCode))
	}
}

func (o *Orchestrator) restore(ctx context.Context, rep *domain.SessionReport, volumeApplied, endpointApplied bool) {
	if endpointApplied && len(rep.Saved.Output) > 0 {
		rep.EndpointRestoreAttempts++
		if err := o.endpoint.Restore(ctx); err != nil {
			rep.EndpointRestoreErr = err
			o.note(rep, "出力先の復元に失敗しました", err)
		} else {
			o.note(rep, "出力先を元に戻しました", nil)
		}
	}

	if volumeApplied && rep.Saved.Volume != nil {
		rep.VolumeRestoreAttempts++
		check, err := o.volume.Restore(ctx)
		if err == nil {
			o.note(rep, fmt.Sprintf("音量を元に戻しました (確認: %d%%)", observed(check)), nil)
			return
		}
		rep.VolumeRestoreErr = err
		o.note(rep, "音量の復元に失敗しました", err)
		if o.cfg.RetryVolumeRestore {
			rep.VolumeRestoreRetried = true
			o.note(rep, fmt.Sprintf("音量復元を再試行します: %d%%", *rep.Saved.Volume), nil)
			if _, err := o.volume.Apply(ctx, *rep.Saved.Volume); err != nil {
				o.note(rep, "音量の再設定に失敗しました", err)
			}
		}
	}
}

func (o *Orchestrator) finish(req Request, rep *domain.SessionReport) {
	o.volume.Discard()
	if o.endpoint != nil {
		o.endpoint.Discard()
	}
	rep.EndedAt = o.now()
	o.setPhase(domain.PhaseDone)

	if o.cfg.LogMode == LogSummary {
		device := req.DeviceIntent
		if device == "" && !req.Endpoint.IsUnchanged() {
			device = req.Endpoint.Label()
		}
		entry := domain.NewLogEntry(rep.StartedAt, domain.SummaryMessage(req.Volume, device, req.Command), rep.ErrorDetail())
		rep.Entries = append(rep.Entries, entry)
		o.persist(entry)
	}

	logging.L().Infow("session finished",
		"session", rep.ID.String(),
		"exitCode", rep.ExitCode,
		"failed", rep.Failed(),
		"duration", rep.EndedAt.Sub(rep.StartedAt).String(),
	)

	o.mu.Lock()
	o.phase = domain.PhaseIdle
	o.command = ""
	o.mu.Unlock()
	o.hub.Publish(Event{Kind: EventPhase, Phase: domain.PhaseIdle})
}

func (o *Orchestrator) note(rep *domain.SessionReport, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	o.noteDetail(rep, message, detail)
}

func (o *Orchestrator) noteDetail(rep *domain.SessionReport, message, detail string) {
	entry := domain.NewLogEntry(o.now(), message, detail)
	rep.Entries = append(rep.Entries, entry)
	if detail != "" {
		logging.Warnf("%s: %s", message, detail)
	} else {
		logging.Debugf("%s", message)
	}
	if o.cfg.LogMode == LogSteps {
		o.persist(entry)
	}
}

func (o *Orchestrator) persist(entry domain.LogEntry) {
	if o.logs != nil {
		if err := o.logs.Append(entry); err != nil {
			logging.Errorf("append log: %v", err)
		}
	}
	if o.cfg.OnEntry != nil {
		o.cfg.OnEntry(entry)
	}
	o.hub.Publish(Event{Kind: EventLog, Entry: &entry})
}

func observed(v domain.Verification) int {
	if v.Probed {
		return v.Observed
	}
	return -1
}
