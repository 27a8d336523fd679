package executor

// Language defines the interface for a WASM-based language runtime.
type Language interface {
	// Name returns a unique identifier for this language (e.g. "javascript").
	// Used as the cache key for compiled modules.
	Name() string

	// Module returns the WASM binary for the language interpreter.
	Module() []byte

	// WrapCode prepares user code for execution by prepending the prelude
	// that bridges logging and errors to the host.
	WrapCode(code string) string

	// Args returns the command-line arguments to pass to the WASM module.
	// For QuickJS: []string{"qjs", "--std", "-e", code}
	Args(wrappedCode string) []string
}
