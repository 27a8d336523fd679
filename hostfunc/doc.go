// Package hostfunc provides the Go side of calls made from sandboxed code.
//
// Host functions are Go functions that sandboxed JavaScript reaches through
// the executor's stderr protocol. The editor shell uses them to collect what
// a script logs without rebinding any process-wide sink.
//
// # Registry
//
// The [Registry] maps names to functions:
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("my_func", func(ctx context.Context, args map[string]any) (any, error) {
//	    return "result", nil
//	})
//
// # Console
//
// A [Console] is a per-run collector. Bind it to a cloned registry so two
// runs never write into the same buffer:
//
//	console := hostfunc.NewConsole()
//	reg := registry.Clone()
//	console.Register(reg)
package hostfunc
