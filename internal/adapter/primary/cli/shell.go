package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"announce-helper/internal/logging"
)

func (a *app) newShellCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "サブコマンドを対話的に叩けるシェルを起動",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractiveShell(prompt)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "announce> ", "シェルのプロンプト文字列")
	return cmd
}

func (a *app) runInteractiveShell(prompt string) error {
	historyFile := filepath.Join(os.TempDir(), "announce-helper-shell.history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          a.deps.Stdout,
		Stderr:          a.deps.Stderr,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	out := a.deps.Stdout
	fmt.Fprintln(out, "対話型シェルを開始します。'help' で使い方、'exit' で終了。")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			fmt.Fprintln(out)
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		if done := a.shellLine(line); done {
			return nil
		}
	}
}

// shellLine handles one input line and reports whether the shell should
// exit.
func (a *app) shellLine(line string) bool {
	out := a.deps.Stdout
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false
	case "exit", "quit":
		fmt.Fprintln(out, "Bye!")
		return true
	case "help":
		printShellHelp(out)
		return false
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		fmt.Fprintf(out, "Parse error: %v\n", err)
		return false
	}
	if len(tokens) == 0 {
		return false
	}
	switch tokens[0] {
	case "log-level":
		if err := a.handleShellLogLevel(tokens[1:]); err != nil {
			fmt.Fprintf(out, "log-level: %v\n", err)
		}
		return false
	case "shell":
		fmt.Fprintln(out, "すでにシェル内です。他のコマンドを入力するか 'exit' で終了してください。")
		return false
	}

	if code := a.report(a.execute(tokens)); code != 0 {
		fmt.Fprintf(out, "exit status %d\n", code)
	}
	return false
}

func (a *app) handleShellLogLevel(args []string) error {
	fs := pflag.NewFlagSet("log-level", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var vcount int
	var level string
	fs.CountVarP(&vcount, "verbose", "v", "Increase verbosity (-v... up to 4)")
	fs.StringVar(&level, "level", "", "指定レベル(error|warn|info|debug|trace)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if level == "" && fs.NArg() == 1 {
		level = fs.Arg(0)
	}

	switch {
	case level != "":
		_, count, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}
		a.verbosity = count
	case vcount > 0:
		a.verbosity = vcount
	default:
		fmt.Fprintf(a.deps.Stdout, "log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
		return nil
	}

	logging.SetVerbosity(a.verbosity)
	fmt.Fprintf(a.deps.Stdout, "log level set to %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
	return nil
}

func printShellHelp(w io.Writer) {
	fmt.Fprintln(w, `利用可能な入力例:
  --volume 40 -- say テストです   # 一時音量でコマンドを実行
  devices                        # 出力デバイス一覧
  log show -n 10                 # 直近のログを表示
  log clear                      # ログをクリア
  schedule status                # LaunchAgentの登録状況
  schedule print                 # 生成されるplistを確認
  config get                     # 設定を確認
  config set volume 45           # 設定を更新
  serve --addr 127.0.0.1:7070    # Webパネルを起動
  log-level -vv                  # ログ出力を詳細化
  log-level debug                # レベルを指定
  log-level                      # 現在のログレベルを確認
  exit / quit                    # シェル終了`)
}
