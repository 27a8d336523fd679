// Package shell holds the state of one editor session: the selected language,
// the source text, the last output, the run flag, the theme and the typing
// tracker. Surfaces (terminal UI, REPL, HTTP) drive a Shell and render it.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/caffeineduck/royal/dispatch"
	"github.com/caffeineduck/royal/language"
	"github.com/caffeineduck/royal/typing"
)

// Initial texts shown before the first edit and the first run.
const (
	InitialSource = "// Start coding here"
	InitialOutput = "Run your code to see the output"
	RunningOutput = "Executing..."
	DarkClass     = "dark"
)

// ErrBusy is returned by Run while another run is in flight.
var ErrBusy = errors.New("shell: a run is already in progress")

// State is a point-in-time copy of the shell.
type State struct {
	Language language.Descriptor
	Source   string
	Output   string
	Running  bool
	Dark     bool
	WPM      int
}

// Shell is safe for concurrent use.
type Shell struct {
	dispatcher *dispatch.Dispatcher
	tracker    *typing.Tracker
	logger     *slog.Logger

	mu      sync.Mutex
	lang    language.Descriptor
	source  string
	output  string
	dark    bool
	classes map[string]bool

	running atomic.Bool
}

// Option configures a Shell.
type Option func(*Shell)

// WithTracker replaces the default typing tracker.
func WithTracker(t *typing.Tracker) Option {
	return func(s *Shell) {
		s.tracker = t
	}
}

// WithLogger sets the shell's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) {
		s.logger = l
	}
}

// WithLanguage sets the initially selected language; unknown ids select
// the default.
func WithLanguage(id string) Option {
	return func(s *Shell) {
		s.lang = language.Lookup(id)
	}
}

// WithSource sets the initial source text without counting a keystroke.
func WithSource(src string) Option {
	return func(s *Shell) {
		s.source = src
	}
}

// WithDark starts the shell in dark mode.
func WithDark(dark bool) Option {
	return func(s *Shell) {
		s.setDark(dark)
	}
}

// New returns a shell that runs code through d.
func New(d *dispatch.Dispatcher, opts ...Option) *Shell {
	s := &Shell{
		dispatcher: d,
		logger:     slog.Default(),
		lang:       language.Default(),
		source:     InitialSource,
		output:     InitialOutput,
		classes:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracker == nil {
		s.tracker = typing.NewTracker()
	}
	return s
}

// Languages returns the selectable languages.
func (s *Shell) Languages() []language.Descriptor {
	return language.All()
}

// Language returns the selected language.
func (s *Shell) Language() language.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// SelectLanguage selects id, or the default language if id is unknown.
func (s *Shell) SelectLanguage(id string) language.Descriptor {
	d := language.Lookup(id)
	s.mu.Lock()
	s.lang = d
	s.mu.Unlock()
	return d
}

// CycleLanguage selects the entry after the current one, wrapping around.
func (s *Shell) CycleLanguage() language.Descriptor {
	all := language.All()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := all[0]
	for i, d := range all {
		if d.ID == s.lang.ID {
			next = all[(i+1)%len(all)]
			break
		}
	}
	s.lang = next
	return next
}

// Source returns the current source text.
func (s *Shell) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// SetSource replaces the source text and counts one keystroke.
func (s *Shell) SetSource(src string) {
	s.mu.Lock()
	s.source = src
	s.mu.Unlock()
	s.tracker.Keystroke()
}

// Output returns the output panel text.
func (s *Shell) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// Running reports whether a run is in flight.
func (s *Shell) Running() bool {
	return s.running.Load()
}

// Run executes the current source in the selected language and stores the
// output. Running is true for exactly the duration of the call.
func (s *Shell) Run(ctx context.Context) (dispatch.Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return dispatch.Result{}, ErrBusy
	}
	defer s.running.Store(false)

	s.mu.Lock()
	lang, src := s.lang, s.source
	s.output = RunningOutput
	s.mu.Unlock()

	res := s.dispatch(ctx, lang, src)

	s.mu.Lock()
	s.output = res.Output
	s.mu.Unlock()

	s.logger.Debug("run", "lang", string(lang.ID), "failed", res.Failed, "duration", res.Duration)
	return res, nil
}

func (s *Shell) dispatch(ctx context.Context, lang language.Descriptor, src string) (res dispatch.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = dispatch.Result{Output: dispatch.ErrorOutput(fmt.Sprint(r)), Failed: true}
		}
	}()
	return s.dispatcher.Run(ctx, lang, src)
}

// ToggleTheme flips dark mode and returns the new value.
func (s *Shell) ToggleTheme() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setDark(!s.dark)
	return s.dark
}

func (s *Shell) setDark(dark bool) {
	s.dark = dark
	if dark {
		s.classes[DarkClass] = true
	} else {
		delete(s.classes, DarkClass)
	}
}

// Dark reports whether dark mode is on.
func (s *Shell) Dark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark
}

// RootClasses returns the presentation classes set on the root element.
func (s *Shell) RootClasses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.classes))
	for c := range s.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Tracker returns the typing tracker.
func (s *Shell) Tracker() *typing.Tracker {
	return s.tracker
}

// WPM returns the last sampled words-per-minute value.
func (s *Shell) WPM() int {
	return s.tracker.Current()
}

// State returns a snapshot of the shell.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Language: s.lang,
		Source:   s.source,
		Output:   s.output,
		Running:  s.running.Load(),
		Dark:     s.dark,
		WPM:      s.tracker.Current(),
	}
}
