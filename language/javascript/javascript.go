// Package javascript adapts the QuickJS WASI interpreter to the executor.
package javascript

import (
	_ "embed"
	"encoding/json"

	quickjswasi "github.com/paralin/go-quickjs-wasi"
)

//go:embed prelude.js
var prelude string

// JavaScript implements the executor.Language interface for JavaScript execution.
type JavaScript struct{}

// New returns a JavaScript language adapter.
func New() *JavaScript {
	return &JavaScript{}
}

// Name returns "javascript".
func (j *JavaScript) Name() string {
	return "javascript"
}

// Module returns the QuickJS WASM binary.
func (j *JavaScript) Module() []byte {
	return quickjswasi.QuickJSWASM
}

// WrapCode binds the source as a string literal and appends the prelude,
// which compiles it with new Function so it runs as a standalone body.
func (j *JavaScript) WrapCode(code string) string {
	quoted, _ := json.Marshal(code)
	return "const _royal_source = " + string(quoted) + ";\n" + prelude
}

// Args returns the command-line arguments for the QuickJS interpreter.
func (j *JavaScript) Args(wrappedCode string) []string {
	return []string{"qjs", "--std", "-e", wrappedCode}
}
