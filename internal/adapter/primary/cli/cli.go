package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"announce-helper/internal/adapter/secondary/device"
	"announce-helper/internal/adapter/secondary/launchagent"
	"announce-helper/internal/adapter/secondary/logfile"
	"announce-helper/internal/adapter/secondary/notify"
	"announce-helper/internal/adapter/secondary/repository"
	"announce-helper/internal/adapter/secondary/runner"
	"announce-helper/internal/adapter/secondary/volume"
	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
	"announce-helper/internal/usecase"
)

// Deps are the secondary adapters behind the commands.
type Deps struct {
	Volume    domain.VolumeControl
	Endpoints domain.EndpointControl
	// Switcher is resolved lazily because detection touches the filesystem.
	Switcher func() domain.Switcher
	Runner   domain.CommandRunner
	Notifier domain.Notifier
	Agent    *launchagent.Agent
	// Settings opens the settings store at the --config path.
	Settings func(path string) (domain.SettingsRepository, error)
	// Logs opens the log file named in the settings.
	Logs func(path string) domain.LogStore

	Stdout io.Writer
	Stderr io.Writer
}

// DefaultDeps wires the macOS adapters. Elsewhere the audio state lives in
// memory so that the panel and the shell can still be tried out.
func DefaultDeps() Deps {
	deps := Deps{
		Volume:    volume.NewAppleScript(),
		Endpoints: device.NewCoreAudio(),
		Switcher:  func() domain.Switcher { return device.DetectSwitcher() },
		Runner:    runner.NewShell(""),
		Notifier:  notify.NewDesktop(""),
		Agent:     launchagent.New(),
		Settings: func(path string) (domain.SettingsRepository, error) {
			return repository.NewSettingsRepository(path)
		},
		Logs: func(path string) domain.LogStore {
			return logfile.NewStore(path)
		},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if runtime.GOOS != "darwin" {
		deps.Volume = volume.NewMemory(50)
		deps.Endpoints = device.NewMemory(domain.OutputEndpoint{ID: "default", Name: "Default Output"})
	}
	return deps
}

type app struct {
	deps      Deps
	cfgPath   string
	verbosity int
}

// usageError is reported with the usage of the command that rejected its
// input.
type usageError struct {
	cmd *cobra.Command
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(cmd *cobra.Command, format string, args ...any) error {
	return &usageError{cmd: cmd, err: fmt.Errorf(format, args...)}
}

// errSessionFailed is returned once the failure has been reported and
// logged, so that only the exit code remains to be set.
var errSessionFailed = errors.New("session failed")

// Execute runs the command line and returns the process exit code.
func Execute(args []string, deps Deps) int {
	a := &app{deps: deps}
	return a.report(a.execute(args))
}

func (a *app) execute(args []string) error {
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(a.deps.Stdout)
	root.SetErr(a.deps.Stderr)
	return root.ExecuteContext(context.Background())
}

func (a *app) report(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errSessionFailed):
		return 1
	case errors.As(err, &ue):
		fmt.Fprintf(a.deps.Stderr, "エラー: %v\n", ue.err)
		fmt.Fprint(a.deps.Stderr, ue.cmd.UsageString())
		return 1
	default:
		fmt.Fprintf(a.deps.Stderr, "エラー: %v\n", err)
		return 1
	}
}

type helperOptions struct {
	volume       int
	device       string
	switchOutput bool
	notify       bool
}

// newRootCmd creates the root command. Without a subcommand it is the
// headless helper that runs one command under a temporary volume.
func (a *app) newRootCmd() *cobra.Command {
	var opts helperOptions
	cmd := &cobra.Command{
		Use:   "announce-helper [オプション] -- コマンド [コマンド引数...]",
		Short: "一時的な音量・出力先でコマンドを実行し、元の状態に戻すヘルパー",
		Long: `指定した音量(と出力先)に一時的に切り替えてコマンドを実行し、終了後に元の状態へ戻します。
実行結果は1行のログとして記録されます。

-- の後に実行するコマンドとその引数を指定してください。
コマンド名がサブコマンド名と重なる場合も -- で区切ってください。`,
		Example: `  announce-helper --volume 30 -- /usr/bin/open /Applications/Automator/AnnounceTime.app
  announce-helper --volume 40 -- say "テストです"`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHelper(cmd, args, opts)
		},
	}

	defaultCfg := a.cfgPath
	if defaultCfg == "" {
		defaultCfg = repository.DefaultPath()
	}
	cmd.PersistentFlags().StringVar(&a.cfgPath, "config", defaultCfg, "設定ファイルのパス")
	cmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "ロギングを詳細化 (-v, -vv, ... 最大4回)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("verbose") {
			logging.SetVerbosity(a.verbosity)
		}
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{cmd: c, err: err}
	})

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.IntVar(&opts.volume, "volume", 0, "一時的に設定する出力音量 (0-100)")
	flags.StringVar(&opts.device, "output-device", "", "一時的な出力デバイス名 (記録のみ。--switch-output で切り替え)")
	flags.BoolVar(&opts.switchOutput, "switch-output", false, "--output-device のデバイスへ実際に切り替え、確認する")
	flags.BoolVar(&opts.notify, "notify", false, "失敗時にデスクトップ通知を表示")
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "output" {
			name = "output-device"
		}
		return pflag.NormalizedName(name)
	})

	cmd.AddCommand(
		a.newServeCmd(),
		a.newDevicesCmd(),
		a.newLogCmd(),
		a.newScheduleCmd(),
		a.newConfigCmd(),
		a.newShellCmd(),
	)
	return cmd
}

func (a *app) runHelper(cmd *cobra.Command, args []string, opts helperOptions) error {
	var target *int
	if cmd.Flags().Changed("volume") {
		if err := domain.ValidateVolume(opts.volume); err != nil {
			return usageErrorf(cmd, "--volume は 0 から 100 の整数で指定してください: %d", opts.volume)
		}
		v := opts.volume
		target = &v
	}
	if opts.switchOutput && opts.device == "" {
		return usageErrorf(cmd, "--switch-output には --output-device が必要です")
	}
	if len(args) == 0 {
		return usageErrorf(cmd, "実行するコマンドが指定されていません")
	}

	settings := a.loadSettingsOrDefault()
	ctx := cmd.Context()

	req := usecase.Request{
		Command:  domain.CommandSpec{Path: args[0], Args: args[1:]},
		Volume:   target,
		Endpoint: domain.Unchanged,
	}
	var endpoint *usecase.EndpointRegulator
	switch {
	case opts.device == "":
	case opts.switchOutput:
		catalog := usecase.NewCatalog(a.deps.Endpoints)
		if _, err := catalog.Refresh(ctx); err != nil {
			logging.Warnf("device enumeration: %v", err)
		}
		endpoint = usecase.NewEndpointRegulator(a.deps.Endpoints, a.deps.Switcher(), catalog, usecase.EndpointConfig(settings.Tuning))
		req.Endpoint = domain.OutputEndpoint{Name: opts.device}
		if ep, ok := catalog.Resolve(req.Endpoint); ok {
			req.Endpoint = ep
		}
	default:
		req.DeviceIntent = opts.device
	}

	session := usecase.NewOrchestrator(
		usecase.NewVolumeRegulator(a.deps.Volume, usecase.VolumeConfig(settings.Tuning)),
		endpoint,
		a.deps.Runner,
		a.deps.Logs(settings.LogPath),
		nil,
		usecase.OrchestratorConfig{
			LogMode:        usecase.LogSummary,
			Passthrough:    a.deps.Stdout,
			PassthroughErr: a.deps.Stderr,
		},
	)

	stop := holdSignals()
	rep, err := session.Run(ctx, req)
	stop()
	if err != nil {
		return err
	}
	if !rep.Failed() {
		return nil
	}

	fmt.Fprintf(a.deps.Stderr, "エラー: %s\n", rep.ErrorDetail())
	if rep.VolumeRestoreErr != nil {
		fmt.Fprintln(a.deps.Stderr, "警告: 音量の復元に失敗しました")
	}
	if opts.notify || settings.Notify {
		title, message := notify.SessionFailure(rep)
		if err := a.deps.Notifier.Notify(title, message); err != nil {
			logging.Warnf("notification: %v", err)
		}
	}
	return errSessionFailed
}

// holdSignals keeps an interrupt from killing the helper before the audio
// state is restored. The child still receives the signal.
func holdSignals() (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for sig := range sigs {
			logging.Warnf("received %s, restoring after the command exits", sig)
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(sigs)
		<-done
	}
}

func (a *app) openSettings() (domain.SettingsRepository, error) {
	return a.deps.Settings(a.cfgPath)
}

// loadSettingsOrDefault is used by the helper, which must run even when the
// settings file is unreadable.
func (a *app) loadSettingsOrDefault() domain.Settings {
	repo, err := a.openSettings()
	if err != nil {
		logging.Warnf("settings: %v", err)
		return domain.DefaultSettings()
	}
	s, err := repo.Load()
	if err != nil {
		logging.Warnf("settings: %v", err)
		return domain.DefaultSettings()
	}
	return s
}

func (a *app) loadSettings() (domain.SettingsRepository, domain.Settings, error) {
	repo, err := a.openSettings()
	if err != nil {
		return nil, domain.Settings{}, err
	}
	s, err := repo.Load()
	if err != nil {
		return nil, domain.Settings{}, err
	}
	return repo, s, nil
}
