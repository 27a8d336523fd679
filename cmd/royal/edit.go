package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/atotto/clipboard"
	"github.com/caffeineduck/royal/dispatch"
	"github.com/caffeineduck/royal/language"
	"github.com/caffeineduck/royal/shell"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Open the terminal editor",
	Long: `Open the editor shell: source on the left, output on the right.

Keys:
  Ctrl+R  run            Ctrl+L  next language
  Ctrl+T  toggle theme   Ctrl+P  toggle highlighted view
  Ctrl+Y  copy output    Esc/Ctrl+C  quit

Files are read once to seed the editor; nothing is written back.`,
	Args:         cobra.MaximumNArgs(1),
	RunE:         runEdit,
	SilenceUsage: true,
}

func init() {
	editCmd.Flags().Bool("dark", false, "Start in dark mode")
	rootCmd.AddCommand(editCmd)
}

const title = "Royal Code Editor"

type runDoneMsg struct{ res dispatch.Result }

// runRejectedMsg reports a run the shell refused to start.
type runRejectedMsg struct{ err error }

type wpmMsg int

type statusMsg string

type palette struct {
	header  lipgloss.Style
	accent  lipgloss.Style
	pane    lipgloss.Style
	output  lipgloss.Style
	status  lipgloss.Style
	failure lipgloss.Style
	syntax  string
}

func paletteFor(dark bool) palette {
	amber := lipgloss.Color("#F59E0B")
	if dark {
		return palette{
			header:  lipgloss.NewStyle().Bold(true).Foreground(amber).Background(lipgloss.Color("#111827")),
			accent:  lipgloss.NewStyle().Foreground(amber),
			pane:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#374151")),
			output:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#374151")).Foreground(lipgloss.Color("#D1D5DB")).Padding(0, 1),
			status:  lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
			failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")),
			syntax:  "monokai",
		}
	}
	return palette{
		header:  lipgloss.NewStyle().Bold(true).Foreground(amber).Background(lipgloss.Color("#F9FAFB")),
		accent:  lipgloss.NewStyle().Foreground(amber),
		pane:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#E5E7EB")),
		output:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#E5E7EB")).Foreground(lipgloss.Color("#4B5563")).Padding(0, 1),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")),
		syntax:  "github",
	}
}

type editModel struct {
	shell  *shell.Shell
	editor textarea.Model
	output viewport.Model

	width, height int
	running       bool
	failed        bool
	highlighted   bool
	wpm           int
	status        string
}

func newEditModel(sh *shell.Shell) editModel {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.SetValue(sh.Source())
	ta.Focus()

	vp := viewport.New(30, 10)
	vp.SetContent(sh.Output())

	return editModel{
		shell:  sh,
		editor: ta,
		output: vp,
		status: "Ctrl+R run • Ctrl+L language • Ctrl+T theme • Ctrl+P highlight • Ctrl+Y copy • Esc quit",
	}
}

func (m editModel) Init() tea.Cmd {
	return textarea.Blink
}

// layout splits the body 70/30 between editor and output.
func (m *editModel) layout() {
	bodyHeight := m.height - 4
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	editorWidth := m.width * 7 / 10
	outputWidth := m.width - editorWidth

	m.editor.SetWidth(max(editorWidth-2, 10))
	m.editor.SetHeight(bodyHeight - 2)
	m.output.Width = max(outputWidth-4, 10)
	m.output.Height = max(bodyHeight-3, 1)
}

func (m editModel) runCmd() tea.Cmd {
	sh := m.shell
	return func() tea.Msg {
		res, err := sh.Run(context.Background())
		if err != nil {
			return runRejectedMsg{err: err}
		}
		return runDoneMsg{res: res}
	}
}

func (m editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case wpmMsg:
		m.wpm = int(msg)
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case runRejectedMsg:
		m.running = false
		m.output.SetContent(m.shell.Output())
		m.status = "run rejected: " + msg.err.Error()
		return m, nil

	case runDoneMsg:
		m.running = false
		m.failed = msg.res.Failed
		m.output.SetContent(msg.res.Output)
		m.output.GotoTop()
		m.status = fmt.Sprintf("%s run finished in %v", m.shell.Language().Name, msg.res.Duration.Round(time.Millisecond))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+r":
			if m.running {
				return m, nil
			}
			m.running = true
			m.failed = false
			m.output.SetContent(shell.RunningOutput)
			return m, m.runCmd()
		case "ctrl+l":
			d := m.shell.CycleLanguage()
			m.status = "language: " + d.Name
			return m, nil
		case "ctrl+t":
			if m.shell.ToggleTheme() {
				m.status = "theme: dark"
			} else {
				m.status = "theme: light"
			}
			return m, nil
		case "ctrl+p":
			m.highlighted = !m.highlighted
			if m.highlighted {
				m.editor.Blur()
			} else {
				return m, m.editor.Focus()
			}
			return m, nil
		case "ctrl+y":
			if err := clipboard.WriteAll(m.shell.Output()); err != nil {
				m.status = "copy failed: " + err.Error()
			} else {
				m.status = "output copied"
			}
			return m, nil
		}
		if m.highlighted {
			return m, nil
		}
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		m.shell.SetSource(after)
	}
	return m, cmd
}

func (m editModel) View() string {
	st := m.shell.State()
	p := paletteFor(st.Dark)

	theme := "☾ light"
	if st.Dark {
		theme = "☀ dark"
	}
	right := fmt.Sprintf("%d WPM  %s", m.wpm, theme)
	left := "♛ " + title
	gap := m.width - runewidth.StringWidth(left) - runewidth.StringWidth(right)
	if gap < 1 {
		gap = 1
	}
	header := p.header.Width(m.width).Render(runewidth.Truncate(left+strings.Repeat(" ", gap)+right, m.width, "…"))

	runLabel := "▶ Run Code"
	if m.running {
		runLabel = "◌ Running..."
	}
	toolbar := fmt.Sprintf("Language: %s   %s", p.accent.Render(st.Language.Name), p.accent.Render(runLabel))

	var editorPane string
	if m.highlighted {
		editorPane = p.pane.Width(m.editor.Width()).Height(m.editor.Height()).Render(highlight(st.Source, st.Language, p.syntax))
	} else {
		editorPane = p.pane.Render(m.editor.View())
	}

	outputBody := m.output.View()
	if m.failed {
		outputBody = p.failure.Render(outputBody)
	}
	outputPane := p.output.Render(lipgloss.JoinVertical(lipgloss.Left, p.accent.Bold(true).Render("Output"), outputBody))

	body := lipgloss.JoinHorizontal(lipgloss.Top, editorPane, outputPane)
	status := p.status.Render(runewidth.Truncate(m.status, m.width, "…"))

	return lipgloss.JoinVertical(lipgloss.Left, header, toolbar, body, status)
}

// highlight renders src with the language's lexer, falling back to plain text.
func highlight(src string, lang language.Descriptor, style string) string {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, src, lang.Syntax(), "terminal256", style); err != nil {
		return src
	}
	return buf.String()
}

func runEdit(cmd *cobra.Command, args []string) error {
	var opts []shell.Option
	filename := ""
	if len(args) > 0 {
		filename = args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		opts = append(opts, shell.WithSource(string(data)))
	}

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	lang, err := resolveLanguage(a.cfg.Language, filename)
	if err != nil {
		return err
	}
	sh := a.newShell(append(opts, shell.WithLanguage(string(lang.ID)))...)
	program := tea.NewProgram(newEditModel(sh), tea.WithAltScreen())

	// The sampler lives exactly as long as the program.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go sh.Tracker().Run(ctx, a.cfg.SampleInterval, func(wpm int) {
		program.Send(wpmMsg(wpm))
	})

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}
