package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/caffeineduck/royal/hostfunc"
	"github.com/dop251/goja"
)

// GojaEngine runs scripts in an in-process goja runtime, one per run.
type GojaEngine struct {
	timeout time.Duration
}

// NewGojaEngine returns an engine that interrupts scripts after timeout.
// Zero disables the limit.
func NewGojaEngine(timeout time.Duration) *GojaEngine {
	return &GojaEngine{timeout: timeout}
}

func (g *GojaEngine) Name() string {
	return EngineGoja
}

func (g *GojaEngine) Eval(ctx context.Context, source string, console *hostfunc.Console) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vm := goja.New()
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	var done atomic.Bool
	if err := bindConsole(vm, console, &done); err != nil {
		return fmt.Errorf("bind console: %w", err)
	}

	runner, err := vm.RunString(runBody)
	if err != nil {
		return fmt.Errorf("compile runner: %w", err)
	}
	call, ok := goja.AssertFunction(runner)
	if !ok {
		return errors.New("runner is not callable")
	}
	// goja drains the promise job queue before call returns, so the end of
	// the body has to be signalled from inside the runtime.
	finish := func(goja.FunctionCall) goja.Value {
		done.Store(true)
		return goja.Undefined()
	}
	if _, err := call(goja.Undefined(), vm.ToValue(source), vm.ToValue(finish)); err != nil {
		return g.scriptFailure(ctx, err, console)
	}
	return nil
}

// runBody compiles the source as a function body and calls it, then marks
// the body finished whether or not it threw.
const runBody = `(function (source, finish) {
  const body = new Function(source);
  try {
    body();
  } finally {
    finish();
  }
})`

func (g *GojaEngine) scriptFailure(ctx context.Context, err error, console *hostfunc.Console) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timeout after %v", g.timeout)
		}
		return fmt.Errorf("execution interrupted: %w", ctx.Err())
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		console.Fail(exceptionMessage(exception.Value()))
		return nil
	}
	return err
}

// bindConsole installs console.log. Calls made once done is set are
// dropped.
func bindConsole(vm *goja.Runtime, console *hostfunc.Console, done *atomic.Bool) error {
	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return errors.New("JSON.stringify unavailable")
	}
	toString, ok := goja.AssertFunction(vm.Get("String"))
	if !ok {
		return errors.New("String unavailable")
	}

	obj := vm.NewObject()
	err := obj.Set("log", func(call goja.FunctionCall) goja.Value {
		if done.Load() {
			return goja.Undefined()
		}
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = formatValue(vm, stringify, toString, arg)
		}
		console.Log(strings.Join(parts, " "))
		return goja.Undefined()
	})
	if err != nil {
		return err
	}
	return vm.Set("console", obj)
}

// formatValue stringifies one console.log argument: objects (including
// null) as indented JSON, everything else with String(v).
func formatValue(vm *goja.Runtime, stringify, toString goja.Callable, v goja.Value) string {
	if goja.IsNull(v) {
		return "null"
	}
	if obj, isObject := v.(*goja.Object); isObject {
		if _, callable := goja.AssertFunction(obj); !callable {
			out := callOrThrow(vm, stringify, v, goja.Null(), vm.ToValue(2))
			if goja.IsUndefined(out) {
				return ""
			}
			return out.String()
		}
	}
	return callOrThrow(vm, toString, v).String()
}

// callOrThrow calls fn and rethrows a failure into the running script.
func callOrThrow(vm *goja.Runtime, fn goja.Callable, args ...goja.Value) goja.Value {
	out, err := fn(goja.Undefined(), args...)
	if err != nil {
		var exception *goja.Exception
		if errors.As(err, &exception) {
			panic(exception.Value())
		}
		panic(vm.NewGoError(err))
	}
	return out
}

// exceptionMessage reads the message property of a thrown object. Thrown
// values without one (throw "plain") are reported as String(value) rather
// than as an undefined message.
func exceptionMessage(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil {
			return msg.String()
		}
	}
	if v == nil {
		return "undefined"
	}
	return v.String()
}
