package dispatch

import (
	"context"
	"fmt"
	"slices"

	"github.com/caffeineduck/royal/executor"
	"github.com/caffeineduck/royal/hostfunc"
	"github.com/caffeineduck/royal/language/javascript"
)

// Engine evaluates JavaScript source as a standalone function body.
//
// Everything the script logs goes to console, and an exception thrown by the
// script is recorded with console.Fail. Eval returns an error only when the
// engine itself could not finish the run, such as on a timeout.
type Engine interface {
	Name() string
	Eval(ctx context.Context, source string, console *hostfunc.Console) error
}

// Engine names accepted by ValidEngine.
const (
	EngineQuickJS = "quickjs"
	EngineGoja    = "goja"
)

// QuickJSEngine runs each script in a fresh QuickJS WASI instance.
type QuickJSEngine struct {
	exec *executor.Executor
	lang executor.Language
	opts []executor.Option
}

// NewQuickJSEngine returns an engine backed by exec.
func NewQuickJSEngine(exec *executor.Executor, opts ...executor.Option) *QuickJSEngine {
	return &QuickJSEngine{
		exec: exec,
		lang: javascript.New(),
		opts: opts,
	}
}

func (q *QuickJSEngine) Name() string {
	return EngineQuickJS
}

func (q *QuickJSEngine) Eval(ctx context.Context, source string, console *hostfunc.Console) error {
	opts := append(slices.Clip(q.opts), executor.WithConsole(console))
	return q.exec.Run(ctx, q.lang, source, opts...).Error
}

// ValidEngine reports whether name is a known engine.
func ValidEngine(name string) error {
	switch name {
	case EngineQuickJS, EngineGoja:
		return nil
	}
	return fmt.Errorf("unknown engine %q: use %s or %s", name, EngineQuickJS, EngineGoja)
}
