// Package royal is a code editor shell with an in-process run dispatcher.
//
// # Overview
//
// The shell holds the selected language, the source text and the last
// output. Running dispatches on the language: JavaScript runs as a function
// body with console.log captured, HTML is rendered in a detached frame and
// serialized, CSS is acknowledged, and Python, Java and R return a static
// "not supported" message.
//
// # Basic Usage
//
//	exec, _ := executor.New(hostfunc.NewRegistry())
//	defer exec.Close()
//
//	d := dispatch.New(dispatch.NewQuickJSEngine(exec))
//	sh := shell.New(d)
//	sh.SetSource(`console.log("hello")`)
//	res, _ := sh.Run(ctx)
//	fmt.Print(res.Output) // hello
//
// # Engines
//
// JavaScript runs on QuickJS compiled to WASI (the default, one fresh WASM
// instance per run) or on goja in-process:
//
//	d := dispatch.New(dispatch.NewGojaEngine(5 * time.Second))
//
// # Surfaces
//
// The royal binary exposes the shell as a terminal editor (royal edit), a
// one-shot runner (royal run), a line REPL (royal repl) and an HTTP server
// (royal serve).
//
// See the [shell], [dispatch], [executor], [preview], [typing] and [language]
// packages for detailed API documentation.
package royal
