package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caffeineduck/royal/hostfunc"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("executor closed")

// Result describes one run. Stdout and Stderr hold what the guest wrote
// outside the host-call channel; script output normally arrives through a
// Console instead.
type Result struct {
	Stdout    string
	Stderr    string
	HostCalls int
	Duration  time.Duration
	Error     error
}

// Executor owns a wazero runtime and the compiled guest modules. Runs share
// compiled code but never instance state.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	registry *hostfunc.Registry

	mu       sync.RWMutex
	compiled map[string]wazero.CompiledModule
	closed   bool
}

// New creates an Executor. Functions in registry are visible to every run;
// per-run functions are added through options such as WithConsole.
func New(registry *hostfunc.Registry, opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	if cfg.diskCache {
		dir := cfg.cacheDir
		if dir == "" {
			dir = defaultCacheDir()
		}
		var err error
		if cache, err = wazero.NewCompilationCacheWithDir(dir); err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	if registry == nil {
		registry = hostfunc.NewRegistry()
	}
	e := &Executor{
		runtime:  wazero.NewRuntimeWithConfig(ctx, rtConfig),
		cache:    cache,
		registry: registry,
		compiled: make(map[string]wazero.CompiledModule),
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
		e.Close()
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}
	for _, lang := range cfg.precompile {
		if _, err := e.compile(ctx, lang); err != nil {
			e.Close()
			return nil, fmt.Errorf("precompile %s: %w", lang.Name(), err)
		}
	}
	return e, nil
}

// Run executes code in a fresh instance of lang's module and waits for it
// to exit.
func (e *Executor) Run(ctx context.Context, lang Language, code string, opts ...Option) Result {
	start := time.Now()

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	fail := func(err error) Result {
		return Result{Error: err, Duration: time.Since(start)}
	}

	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return fail(ErrClosed)
	}

	compiled, err := e.compile(ctx, lang)
	if err != nil {
		return fail(err)
	}

	// Collectors are bound on a clone so concurrent runs never share them.
	registry := e.registry.Clone()
	if cfg.console != nil {
		cfg.console.Register(registry)
	}

	var stdout bytes.Buffer
	stdin, replies := io.Pipe()
	defer stdin.Close()
	// Unblock a guest waiting on a reply once the run is over.
	stop := context.AfterFunc(ctx, func() { stdin.CloseWithError(ctx.Err()) })
	defer stop()
	br := newBridge(ctx, registry, replies)

	modConfig := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(br).
		WithStdin(stdin).
		WithArgs(lang.Args(lang.WrapCode(code))...).
		WithName("")

	mod, err := e.runtime.InstantiateModule(ctx, compiled, modConfig)
	if mod != nil {
		mod.Close(ctx)
	}
	replies.Close()

	res := Result{
		Stdout:    stdout.String(),
		Stderr:    br.Stderr(),
		HostCalls: br.Calls(),
		Duration:  time.Since(start),
	}
	res.Error = exitError(ctx, err, cfg.timeout)
	return res
}

// exitError maps an instantiation error to the error reported for the run.
// A clean exit(0) from the guest is not an error.
func exitError(ctx context.Context, err error, timeout time.Duration) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timeout after %v", timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("execution cancelled: %w", ctx.Err())
	}
	var exit *sys.ExitError
	if errors.As(err, &exit) && exit.ExitCode() == 0 {
		return nil
	}
	return fmt.Errorf("execution failed: %w", err)
}

// compile returns lang's compiled module, compiling it on first use.
func (e *Executor) compile(ctx context.Context, lang Language) (wazero.CompiledModule, error) {
	name := lang.Name()

	e.mu.RLock()
	compiled, ok := e.compiled[name]
	e.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if compiled, ok := e.compiled[name]; ok {
		return compiled, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, lang.Module())
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	e.compiled[name] = compiled
	return compiled, nil
}

// Close releases the runtime and the compilation cache. It is safe to call
// more than once.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()
	err := e.runtime.Close(ctx)
	if e.cache != nil {
		err = errors.Join(err, e.cache.Close(ctx))
	}
	return err
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "royal")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "royal")
	}
	return filepath.Join(os.TempDir(), "royal-cache")
}
