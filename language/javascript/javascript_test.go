package javascript

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/caffeineduck/royal/executor"
	"github.com/caffeineduck/royal/hostfunc"
)

func run(t *testing.T, code string, opts ...executor.Option) (*hostfunc.Console, executor.Result) {
	t.Helper()
	exec, err := executor.GetTestExecutor()
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	console := hostfunc.NewConsole()
	opts = append(opts, executor.WithConsole(console))
	return console, exec.Run(context.Background(), New(), code, opts...)
}

func TestWrapCodeQuotesSource(t *testing.T) {
	wrapped := New().WrapCode("console.log(\"a\\nb\")\n")
	if !strings.HasPrefix(wrapped, `const _royal_source = "console.log(\"a\\nb\")\n";`) {
		t.Errorf("unexpected prefix: %q", wrapped[:60])
	}
	if !strings.Contains(wrapped, "new Function(_royal_source)") {
		t.Error("wrapped code should compile the source with new Function")
	}
}

func TestJavaScriptConsoleLog(t *testing.T) {
	console, result := run(t, `console.log(1); console.log("x")`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if got := console.String(); got != "1\nx\n" {
		t.Errorf("expected %q, got %q", "1\nx\n", got)
	}
}

func TestJavaScriptObjectsArePrettyPrinted(t *testing.T) {
	console, result := run(t, `console.log({a: 1}, [2], "s", null)`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	want := "{\n  \"a\": 1\n} [\n  2\n] s null\n"
	if got := console.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestJavaScriptThrow(t *testing.T) {
	console, result := run(t, `console.log("before"); throw new Error("bad thing")`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	reason, failed := console.Failure()
	if !failed || reason != "bad thing" {
		t.Errorf("failure = %q, %v", reason, failed)
	}
}

func TestJavaScriptSyntaxError(t *testing.T) {
	console, _ := run(t, `this is not javascript`)
	if _, failed := console.Failure(); !failed {
		t.Error("expected syntax error to be reported")
	}
}

func TestJavaScriptNoEnclosingScope(t *testing.T) {
	console, _ := run(t, `console.log(typeof body)`)
	if got := console.String(); got != "undefined\n" {
		t.Errorf("function body should not see prelude locals, got %q", got)
	}
}

func TestJavaScriptTimeout(t *testing.T) {
	_, result := run(t, `while(true){}`, executor.WithTimeout(2*time.Second))

	if result.Error == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(result.Error.Error(), "timeout") {
		t.Errorf("expected timeout error, got %v", result.Error)
	}
}

func TestJavaScriptCustomHostFunction(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("greet", func(ctx context.Context, args map[string]any) (any, error) {
		name := args["name"].(string)
		return "Hello, " + name + "!", nil
	})

	exec, err := executor.New(registry)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	defer exec.Close()

	console := hostfunc.NewConsole()
	result := exec.Run(context.Background(), New(), `
console.log(_royal_call("greet", {name: "World"}));
`, executor.WithConsole(console))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if got := console.String(); got != "Hello, World!\n" {
		t.Errorf("expected 'Hello, World!', got %q", got)
	}
}

func TestJavaScriptOnlyConsoleFunctionsAreBound(t *testing.T) {
	exec, err := executor.GetTestExecutor()
	if err != nil {
		t.Fatal(err)
	}

	console := hostfunc.NewConsole()
	result := exec.Run(context.Background(), New(), `_royal_call("time_now", {});`,
		executor.WithConsole(console))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	reason, failed := console.Failure()
	if !failed || reason != "unknown function: time_now" {
		t.Errorf("failure = %q, %v", reason, failed)
	}
}

func TestJavaScriptLogsAfterReturnAreDropped(t *testing.T) {
	exec, err := executor.GetTestExecutor()
	if err != nil {
		t.Fatal(err)
	}

	console := hostfunc.NewConsole()
	result := exec.Run(context.Background(), New(),
		`console.log("now"); Promise.resolve().then(() => console.log("late"));`,
		executor.WithConsole(console))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if got := console.String(); got != "now\n" {
		t.Errorf("expected only the synchronous line, got %q", got)
	}
}
