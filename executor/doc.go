// Package executor runs sandboxed interpreters compiled to WebAssembly.
//
// # Overview
//
// The executor owns one wazero runtime, compiles each [Language] module once
// and instantiates a fresh module per Run. Nothing survives between runs, so
// every run behaves like an ephemeral scope.
//
// # Basic Usage
//
//	exec, err := executor.New(hostfunc.NewRegistry())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	console := hostfunc.NewConsole()
//	result := exec.Run(ctx, javascript.New(), `console.log("hello")`,
//	    executor.WithConsole(console))
//	fmt.Print(console.String())
//
// # Host Calls
//
// Sandboxed code reaches the host by writing a framed JSON request to
// stderr; the executor answers on stdin. The run's registry is a clone of
// the one given to [New] plus anything bound by options, so a [WithConsole]
// collector is only visible to its own run.
package executor
