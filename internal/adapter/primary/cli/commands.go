package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"announce-helper/internal/adapter/primary/web"
	"announce-helper/internal/adapter/secondary/launchagent"
	"announce-helper/internal/adapter/secondary/repository"
	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
	"announce-helper/internal/usecase"
)

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Webコントロールパネルを起動",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, settings, err := a.loadSettings()
			if err != nil {
				return err
			}
			logs := a.deps.Logs(settings.LogPath)
			catalog := usecase.NewCatalog(a.deps.Endpoints)
			panel, err := usecase.NewPanelUseCase(usecase.PanelDeps{
				Settings:  repo,
				Logs:      logs,
				Scheduler: a.deps.Agent,
				Catalog:   catalog,
				Volume:    usecase.NewVolumeRegulator(a.deps.Volume, usecase.VolumeConfig(settings.Tuning)),
				Endpoint:  usecase.NewEndpointRegulator(a.deps.Endpoints, a.deps.Switcher(), catalog, usecase.EndpointConfig(settings.Tuning)),
				Runner:    a.deps.Runner,
				Hub:       usecase.NewHub(),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			usecase.Load(ctx, panel)

			srv := web.NewServer(panel, addr)
			fmt.Fprintf(cmd.OutOrStdout(), "Announce Helper panel running at http://%s\n", addr)
			logging.Infof("control panel: http://%s", addr)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			err = g.Wait()
			fmt.Fprintln(cmd.OutOrStdout(), "Panel shutting down...")
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "HTTPサーバーのアドレス:ポート")
	return cmd
}

func (a *app) newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "出力デバイスの一覧を表示 (* は現在の出力先)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list, err := a.deps.Endpoints.Endpoints(ctx)
			if err != nil {
				return err
			}
			current, err := a.deps.Endpoints.Current(ctx, domain.RoleOutput)
			if err != nil {
				logging.Warnf("current output device: %v", err)
			}

			out := cmd.OutOrStdout()
			r := lipgloss.NewRenderer(out)
			active := r.NewStyle().Bold(true)
			id := r.NewStyle().Faint(true)
			for _, ep := range list {
				if ep.ID == current {
					fmt.Fprintf(out, "* %s  %s\n", active.Render(ep.Name), id.Render(ep.ID))
				} else {
					fmt.Fprintf(out, "  %s  %s\n", ep.Name, id.Render(ep.ID))
				}
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "出力デバイスが見つかりません")
			}
			return nil
		},
	}
}

func (a *app) newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "実行ログの表示・クリア",
	}
	cmd.AddCommand(a.newLogShowCmd(), a.newLogClearCmd())
	return cmd
}

func (a *app) newLogShowCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "ログを新しい順に表示 (エラーは強調表示)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := a.loadSettingsOrDefault()
			entries, err := a.deps.Logs(settings.LogPath).ReadAll()
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			out := cmd.OutOrStdout()
			r := lipgloss.NewRenderer(out)
			stamp := r.NewStyle().Faint(true)
			failed := r.NewStyle().Foreground(lipgloss.Color("9"))
			for _, e := range entries {
				line := e.Message
				if e.HasError() {
					line = failed.Render(line + " [エラー: " + e.Error + "]")
				}
				if e.Timestamp != "" {
					line = stamp.Render(e.Timestamp) + " " + line
				}
				fmt.Fprintln(out, line)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "ログはありません")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "lines", "n", 20, "表示する件数 (0 ですべて)")
	return cmd
}

func (a *app) newLogClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "ログファイルを空にする",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := a.loadSettingsOrDefault()
			if err := a.deps.Logs(settings.LogPath).Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ログをクリアしました")
			return nil
		},
	}
}

func (a *app) newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "LaunchAgentによる定期実行の管理",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "plistを書き出してlaunchctlに登録",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, s, err := a.loadSettings()
				if err != nil {
					return err
				}
				if err := a.deps.Agent.Enable(cmd.Context(), s); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "LaunchAgentを有効化しました: %s\n", a.deps.Agent.PlistPath(s.AgentLabel))
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "launchctlから登録を解除",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, s, err := a.loadSettings()
				if err != nil {
					return err
				}
				if err := a.deps.Agent.Disable(cmd.Context(), s); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "LaunchAgentを無効化しました")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "登録状況を表示",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, s, err := a.loadSettings()
				if err != nil {
					return err
				}
				enabled, err := a.deps.Agent.Enabled(cmd.Context(), s)
				if err != nil {
					return err
				}
				state := "無効"
				if enabled {
					state = "有効"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s.AgentLabel, state)
				return nil
			},
		},
		&cobra.Command{
			Use:   "print",
			Short: "生成されるplistを表示 (登録はしない)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, s, err := a.loadSettings()
				if err != nil {
					return err
				}
				d, err := a.deps.Agent.Build(s)
				if err != nil {
					return err
				}
				data, err := launchagent.Encode(d)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			},
		},
	)
	return cmd
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "設定の取得・更新を行うサブコマンド",
	}
	cmd.AddCommand(a.newConfigGetCmd(), a.newConfigSetCmd(), a.newConfigResetCmd())
	return cmd
}

func (a *app) newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "現在の設定を表示 (キー指定でその値のみ)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := a.loadSettings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				v, err := repository.Get(s, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v)
				return nil
			}
			for _, key := range repository.Keys() {
				v, _ := repository.Get(s, key)
				fmt.Fprintf(out, "%s = %s\n", key, v)
			}
			return nil
		},
	}
}

func (a *app) newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "設定を書き換えて保存",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, s, err := a.loadSettings()
			if err != nil {
				return err
			}
			next, err := repository.Set(s, args[0], args[1])
			if err != nil {
				return err
			}
			if err := repo.Save(next); err != nil {
				return err
			}
			v, _ := repository.Get(next, args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "保存しました: %s=%s\n", args[0], v)
			return nil
		},
	}
}

func (a *app) newConfigResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "設定を初期値に戻す",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openSettings()
			if err != nil {
				return err
			}
			if err := repo.Save(domain.DefaultSettings()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "設定を初期値に戻しました")
			return nil
		},
	}
}
