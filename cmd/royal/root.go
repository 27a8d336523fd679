package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caffeineduck/royal/dispatch"
	"github.com/caffeineduck/royal/executor"
	"github.com/caffeineduck/royal/hostfunc"
	"github.com/caffeineduck/royal/language"
	"github.com/caffeineduck/royal/language/javascript"
	"github.com/caffeineduck/royal/shell"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "royal [file]",
	Short: "Code editor shell that runs JavaScript, HTML and CSS",
	Long: `royal - a small code editor shell.

Edit code in the terminal, track your typing speed, and run it. JavaScript
runs as an isolated function body, HTML is rendered into a detached document
and serialized back, and CSS is acknowledged. Python, Java and R are listed
but not runnable.

Commands: edit (terminal editor), run (one-shot), repl, serve (HTTP).`,
	Args:         cobra.MaximumNArgs(1),
	RunE:         runRun, // Default to run command behavior
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./royal.yaml if present)")
	rootCmd.PersistentFlags().StringP("lang", "l", "", "Language: javascript, html, css, python, java, r (default: from file extension)")
	rootCmd.PersistentFlags().String("engine", "quickjs", "JavaScript engine: quickjs or goja")
	rootCmd.PersistentFlags().Duration("timeout", defaultConfig().Timeout, "Execution timeout")
	rootCmd.PersistentFlags().String("memory", "256mb", "QuickJS memory limit: 16mb, 64mb, 256mb, 1gb")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable compilation cache")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file")

	addRunFlags(rootCmd)
}

// app bundles what every command needs to run code.
type app struct {
	cfg        Config
	logger     *slog.Logger
	exec       *executor.Executor
	dispatcher *dispatch.Dispatcher
	closers    []func() error
}

func newApp(cmd *cobra.Command, interactive bool) (*app, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(path, cmd.Flags(), os.Getenv)
	if err != nil {
		return nil, err
	}
	if err := dispatch.ValidEngine(cfg.Engine); err != nil {
		return nil, err
	}

	w, closeLog, err := logWriter(cfg, interactive)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel, w)
	if err != nil {
		closeLog()
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, closers: []func() error{closeLog}}

	var engine dispatch.Engine
	switch cfg.Engine {
	case dispatch.EngineGoja:
		engine = dispatch.NewGojaEngine(cfg.Timeout)
	default:
		var execOpts []executor.ExecutorOption
		if !cfg.NoCache {
			execOpts = append(execOpts, executor.WithDiskCache())
		}
		if pages := executor.ParseMemoryLimit(cfg.Memory); pages > 0 {
			execOpts = append(execOpts, executor.WithMemoryLimit(pages))
		}
		execOpts = append(execOpts, executor.WithPrecompile(javascript.New()))
		exec, err := executor.New(hostfunc.NewRegistry(), execOpts...)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create executor: %w", err)
		}
		a.exec = exec
		a.closers = append(a.closers, exec.Close)
		engine = dispatch.NewQuickJSEngine(exec, executor.WithTimeout(cfg.Timeout))
	}

	a.dispatcher = dispatch.New(engine,
		dispatch.WithLogger(logger),
		dispatch.WithPreviewMaxBytes(cfg.PreviewMaxBytes))
	logger.Debug("app ready", "engine", engine.Name(), "timeout", cfg.Timeout)
	return a, nil
}

func (a *app) newShell(opts ...shell.Option) *shell.Shell {
	base := []shell.Option{
		shell.WithLogger(a.logger),
		shell.WithDark(a.cfg.Dark),
	}
	if a.cfg.Language != "" {
		base = append(base, shell.WithLanguage(a.cfg.Language))
	}
	return shell.New(a.dispatcher, append(base, opts...)...)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// resolveLanguage picks the language for a run: an explicit id must be
// known, otherwise the file extension decides, otherwise the default.
func resolveLanguage(id, filename string) (language.Descriptor, error) {
	if id != "" {
		d, ok := language.Find(id)
		if !ok {
			return language.Descriptor{}, fmt.Errorf("unknown language %q: use javascript, html, css, python, java or r", id)
		}
		return d, nil
	}
	if filename != "" {
		if d, ok := language.Detect(filename); ok {
			return d, nil
		}
	}
	return language.Default(), nil
}
