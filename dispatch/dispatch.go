// Package dispatch turns a run request (source text plus selected language)
// into the text shown in the output panel.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caffeineduck/royal/hostfunc"
	"github.com/caffeineduck/royal/language"
	"github.com/caffeineduck/royal/preview"
)

// Fixed output texts.
const (
	NoOutputMessage   = "Code executed successfully (no output)"
	CSSSuccessMessage = "CSS validation successful"
	errorPrefix       = "Error: "
)

// UnsupportedMessage is the output for languages the shell cannot run.
func UnsupportedMessage(d language.Descriptor) string {
	return fmt.Sprintf("Language '%s' execution is not supported in the browser environment.\n"+
		"Consider using a backend service for executing %s code.", d.Name, d.Name)
}

// ErrorOutput formats a failure the way the output panel shows it.
func ErrorOutput(message string) string {
	return errorPrefix + message
}

// Result is the outcome of one run.
type Result struct {
	Output   string
	Failed   bool
	Duration time.Duration
}

// Dispatcher routes runs to the per-language handlers.
type Dispatcher struct {
	engine          Engine
	logger          *slog.Logger
	previewMaxBytes int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for per-run diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithPreviewMaxBytes caps the size of HTML documents. Zero means no cap.
func WithPreviewMaxBytes(n int) Option {
	return func(d *Dispatcher) {
		d.previewMaxBytes = n
	}
}

// New returns a Dispatcher that runs JavaScript on engine.
func New(engine Engine, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Engine returns the JavaScript engine in use.
func (d *Dispatcher) Engine() Engine {
	return d.engine
}

// Run executes source as lang. It never returns an error: failures are
// reported in the result's output.
func (d *Dispatcher) Run(ctx context.Context, lang language.Descriptor, source string) Result {
	start := time.Now()
	var res Result

	switch lang.ID {
	case language.JavaScript:
		res = d.guard(func() Result { return d.runJavaScript(ctx, source) })
	case language.HTML:
		res = d.guard(func() Result { return d.runHTML(source) })
	case language.CSS:
		res = Result{Output: CSSSuccessMessage}
	case language.Python, language.Java, language.R:
		res = Result{Output: UnsupportedMessage(lang)}
	default:
		res = Result{Output: UnsupportedMessage(lang)}
	}

	res.Duration = time.Since(start)
	d.logger.Debug("run finished",
		"lang", string(lang.ID),
		"failed", res.Failed,
		"duration", res.Duration)
	return res
}

func (d *Dispatcher) runJavaScript(ctx context.Context, source string) Result {
	console := hostfunc.NewConsole()
	if err := d.engine.Eval(ctx, source, console); err != nil {
		return Result{Output: ErrorOutput(err.Error()), Failed: true}
	}
	if msg, failed := console.Failure(); failed {
		return Result{Output: ErrorOutput(msg), Failed: true}
	}
	out := console.String()
	if out == "" {
		out = NoOutputMessage
	}
	return Result{Output: out}
}

func (d *Dispatcher) runHTML(source string) Result {
	markup, err := preview.Render(source, preview.WithMaxBytes(d.previewMaxBytes))
	if err != nil {
		return Result{Output: ErrorOutput(err.Error()), Failed: true}
	}
	return Result{Output: markup}
}

func (d *Dispatcher) guard(fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("run panicked", "panic", r)
			res = Result{Output: ErrorOutput(fmt.Sprint(r)), Failed: true}
		}
	}()
	return fn()
}
