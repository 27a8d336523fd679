package main

import (
	"strings"
	"testing"

	"github.com/caffeineduck/royal/language"
	"github.com/caffeineduck/royal/shell"
	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m editModel, msg tea.Msg) (editModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	em, ok := next.(editModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return em, cmd
}

func newSizedModel(t *testing.T) editModel {
	t.Helper()
	m, _ := update(t, newEditModel(newTestShell()), tea.WindowSizeMsg{Width: 200, Height: 30})
	return m
}

func TestEditInitialView(t *testing.T) {
	m := newSizedModel(t)

	view := m.View()
	for _, want := range []string{title, "Language: JavaScript", "Run Code", shell.InitialOutput} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestEditRunCycle(t *testing.T) {
	m := newSizedModel(t)
	m.shell.SetSource(`console.log("from editor")`)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if cmd == nil {
		t.Fatal("expected a run command")
	}
	if !m.running {
		t.Error("expected running after ctrl+r")
	}
	if !strings.Contains(m.View(), "Running...") {
		t.Error("running indicator not shown")
	}

	// A second ctrl+r while running is ignored.
	if _, again := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR}); again != nil {
		t.Error("expected no command while running")
	}

	msg := cmd()
	done, ok := msg.(runDoneMsg)
	if !ok {
		t.Fatalf("expected runDoneMsg, got %T", msg)
	}
	if done.res.Output != "from editor\n" {
		t.Errorf("unexpected output %q", done.res.Output)
	}

	m, _ = update(t, m, done)
	if m.running {
		t.Error("expected running to be cleared")
	}
	if !strings.Contains(m.View(), "from editor") {
		t.Error("output not shown")
	}
}

func TestEditCycleLanguage(t *testing.T) {
	m := newSizedModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	if m.shell.Language().ID != language.HTML {
		t.Errorf("expected html, got %s", m.shell.Language().ID)
	}
	if m.status != "language: HTML" {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestEditToggleTheme(t *testing.T) {
	m := newSizedModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if !m.shell.Dark() {
		t.Error("expected dark mode")
	}
	if !strings.Contains(m.View(), "dark") {
		t.Error("header does not show dark mode")
	}
}

func TestEditTypingCountsKeystrokes(t *testing.T) {
	m := newSizedModel(t)
	before := m.shell.Tracker().Count()

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if !strings.HasSuffix(m.shell.Source(), "x") {
		t.Errorf("source not updated: %q", m.shell.Source())
	}
	if got := m.shell.Tracker().Count(); got != before+1 {
		t.Errorf("expected %d keystrokes, got %d", before+1, got)
	}
}

func TestEditWPMMessage(t *testing.T) {
	m := newSizedModel(t)

	m, _ = update(t, m, wpmMsg(42))
	if !strings.Contains(m.View(), "42 WPM") {
		t.Error("wpm not shown in header")
	}
}

func TestEditHighlightedViewIgnoresTyping(t *testing.T) {
	m := newSizedModel(t)
	src := m.shell.Source()

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.shell.Source() != src {
		t.Errorf("source changed in highlighted view: %q", m.shell.Source())
	}
}

func TestEditQuit(t *testing.T) {
	m := newSizedModel(t)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestHighlightFallsBackToPlainText(t *testing.T) {
	if got := highlight("x", language.Descriptor{}, "github"); got == "" {
		t.Error("expected non-empty output")
	}
}

func TestEditRejectedRunClearsRunning(t *testing.T) {
	m := newSizedModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if !m.running {
		t.Fatal("expected running after ctrl+r")
	}

	m, _ = update(t, m, runRejectedMsg{err: shell.ErrBusy})
	if m.running {
		t.Error("expected running to be cleared after a rejected run")
	}
	if strings.Contains(m.View(), "Running...") {
		t.Error("running indicator still shown")
	}
	if !strings.Contains(m.status, shell.ErrBusy.Error()) {
		t.Errorf("unexpected status %q", m.status)
	}
	if !strings.Contains(m.View(), shell.InitialOutput) {
		t.Error("output panel not restored")
	}
}
