// Package bench compares the two JavaScript engines behind the run
// dispatcher and measures the HTML preview path.
//
// Run with: go test -v -run=Test ./bench/
// Benchmarks: go test -bench=. -benchtime=3x ./bench/
package bench

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/caffeineduck/royal/dispatch"
	"github.com/caffeineduck/royal/executor"
	"github.com/caffeineduck/royal/hostfunc"
	"github.com/caffeineduck/royal/language"
	"github.com/caffeineduck/royal/language/javascript"
	"github.com/caffeineduck/royal/preview"
)

var (
	jsLang   = language.Lookup(string(language.JavaScript))
	htmlLang = language.Lookup(string(language.HTML))
)

const computation = "let s = 0; for (let i = 0; i < 1000; i++) s += i * i; console.log(s)"

// --- QuickJS: cold start (new executor each time) ---

func BenchmarkQuickJS_ColdStart(b *testing.B) {
	for i := 0; i < b.N; i++ {
		exec, _ := executor.New(hostfunc.NewRegistry())
		d := dispatch.New(dispatch.NewQuickJSEngine(exec))
		d.Run(context.Background(), jsLang, "let x = 1")
		exec.Close()
	}
}

// --- QuickJS: warm start (reuse executor) ---

func newWarmQuickJS(b *testing.B) (*dispatch.Dispatcher, func()) {
	b.Helper()
	exec, err := executor.New(hostfunc.NewRegistry(), executor.WithPrecompile(javascript.New()))
	if err != nil {
		b.Fatal(err)
	}
	d := dispatch.New(dispatch.NewQuickJSEngine(exec))
	d.Run(context.Background(), jsLang, "let x = 1") // warmup
	return d, func() { exec.Close() }
}

func BenchmarkQuickJS_WarmStart(b *testing.B) {
	d, done := newWarmQuickJS(b)
	defer done()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Run(context.Background(), jsLang, "let x = 1")
	}
}

func BenchmarkQuickJS_WarmStart_Log(b *testing.B) {
	d, done := newWarmQuickJS(b)
	defer done()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Run(context.Background(), jsLang, "console.log(1)")
	}
}

func BenchmarkQuickJS_WarmStart_Computation(b *testing.B) {
	d, done := newWarmQuickJS(b)
	defer done()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Run(context.Background(), jsLang, computation)
	}
}

// --- goja: in-process runtime, fresh per run ---

func BenchmarkGoja_Run(b *testing.B) {
	d := dispatch.New(dispatch.NewGojaEngine(5 * time.Second))
	for i := 0; i < b.N; i++ {
		d.Run(context.Background(), jsLang, "let x = 1")
	}
}

func BenchmarkGoja_Log(b *testing.B) {
	d := dispatch.New(dispatch.NewGojaEngine(5 * time.Second))
	for i := 0; i < b.N; i++ {
		d.Run(context.Background(), jsLang, "console.log(1)")
	}
}

func BenchmarkGoja_Computation(b *testing.B) {
	d := dispatch.New(dispatch.NewGojaEngine(5 * time.Second))
	for i := 0; i < b.N; i++ {
		d.Run(context.Background(), jsLang, computation)
	}
}

// --- HTML preview ---

func BenchmarkPreview_Small(b *testing.B) {
	for i := 0; i < b.N; i++ {
		preview.Render("<h1>hello</h1>")
	}
}

func BenchmarkPreview_Large(b *testing.B) {
	src := "<ul>" + strings.Repeat("<li>item</li>", 2000) + "</ul>"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		preview.Render(src)
	}
}

func BenchmarkDispatch_HTML(b *testing.B) {
	d := dispatch.New(dispatch.NewGojaEngine(5 * time.Second))
	for i := 0; i < b.N; i++ {
		d.Run(context.Background(), htmlLang, "<p>hi</p>")
	}
}

// =============================================================================
// ENGINE COMPARISON - Human readable output
// =============================================================================

func TestEngineComparison(t *testing.T) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║              ROYAL BENCHMARK - ENGINE COMPARISON                 ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Platform: %s/%s, CPUs: %d\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	fmt.Println()

	type result struct {
		name     string
		cold     time.Duration
		warm     time.Duration
		isolated bool
	}
	var results []result

	measure := func(runs int, fn func()) time.Duration {
		var total time.Duration
		for i := 0; i < runs; i++ {
			start := time.Now()
			fn()
			total += time.Since(start)
		}
		return total / time.Duration(runs)
	}

	runs := 3
	ctx := context.Background()

	// --- QuickJS ---
	exec, err := executor.New(hostfunc.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	qjs := dispatch.New(dispatch.NewQuickJSEngine(exec))

	// Cold start (first run compiles the module)
	qjsCold := measure(1, func() { qjs.Run(ctx, jsLang, "console.log(1)") })
	qjsWarm := measure(runs, func() { qjs.Run(ctx, jsLang, "console.log(1)") })
	exec.Close()

	results = append(results, result{
		name:     "quickjs (WASM sandbox)",
		cold:     qjsCold,
		warm:     qjsWarm,
		isolated: true,
	})

	// --- goja ---
	gj := dispatch.New(dispatch.NewGojaEngine(5 * time.Second))
	gojaCold := measure(1, func() { gj.Run(ctx, jsLang, "console.log(1)") })
	gojaWarm := measure(runs, func() { gj.Run(ctx, jsLang, "console.log(1)") })
	results = append(results, result{
		name:     "goja (in-process)",
		cold:     gojaCold,
		warm:     gojaWarm,
		isolated: false,
	})

	fmt.Println("┌────────────────────────┬───────────┬───────────┬──────────┐")
	fmt.Println("│ Engine                 │ Cold      │ Warm      │ Isolated │")
	fmt.Println("├────────────────────────┼───────────┼───────────┼──────────┤")
	for _, r := range results {
		isolated := "✗"
		if r.isolated {
			isolated = "✓"
		}
		fmt.Printf("│ %-22s │ %9s │ %9s │    %s     │\n",
			r.name,
			formatDuration(r.cold),
			formatDuration(r.warm),
			isolated)
	}
	fmt.Println("└────────────────────────┴───────────┴───────────┴──────────┘")
	fmt.Println()

	t.Log("Benchmark complete - see stdout for results")
}

func formatDuration(d time.Duration) string {
	if d >= time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d >= time.Millisecond {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%dµs", d.Microseconds())
}

// =============================================================================
// MEMORY BENCHMARK
// =============================================================================

func TestMemoryUsage(t *testing.T) {
	var m runtime.MemStats

	runtime.GC()
	runtime.ReadMemStats(&m)
	before := m.Alloc

	exec, err := executor.New(hostfunc.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	d := dispatch.New(dispatch.NewQuickJSEngine(exec))

	for i := 0; i < 5; i++ {
		d.Run(context.Background(), jsLang, "console.log(1)")
	}

	runtime.ReadMemStats(&m)
	after := m.Alloc

	exec.Close()

	runtime.GC()
	runtime.ReadMemStats(&m)
	afterGC := m.Alloc

	t.Logf("Memory before: %d MB", before/1024/1024)
	t.Logf("Memory after 5 runs: %d MB", after/1024/1024)
	t.Logf("Memory after GC: %d MB", afterGC/1024/1024)
}

// =============================================================================
// DISK CACHE BENCHMARK (simulates CLI usage)
// =============================================================================

func TestDiskCacheBenefit(t *testing.T) {
	cacheDir, err := os.MkdirTemp("", "royal-bench-cache")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(cacheDir)

	var times []time.Duration

	// Each iteration is a separate CLI invocation with a new executor.
	for i := 0; i < 5; i++ {
		start := time.Now()

		exec, err := executor.New(hostfunc.NewRegistry(), executor.WithDiskCache(cacheDir))
		if err != nil {
			t.Fatal(err)
		}
		dispatch.New(dispatch.NewQuickJSEngine(exec)).Run(context.Background(), jsLang, "console.log(1)")
		exec.Close()

		times = append(times, time.Since(start))
	}

	t.Logf("First run (cache miss): %s", formatDuration(times[0]))
	for i, d := range times[1:] {
		t.Logf("Run %d (cache hit): %s", i+2, formatDuration(d))
	}
}
