package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/royal/language"
	"github.com/caffeineduck/royal/shell"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Line-oriented shell: every entry is a run",
	Long: `Start an interactive shell. Each entry replaces the source and runs it
in the selected language.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)

Commands:
  :lang <id>    select a language
  :languages    list languages
  :theme        toggle dark mode
  :wpm          show typing speed

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	RunE:         runRepl,
	SilenceUsage: true,
}

func init() {
	replCmd.Flags().String("history", "", "History file path (default: ~/.royal_history)")
	rootCmd.AddCommand(replCmd)
}

func promptFor(d language.Descriptor) string {
	return d.Syntax() + "> "
}

func runRepl(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".royal_history")
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	sh := a.newShell(shell.WithSource(""))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go sh.Tracker().Run(ctx, a.cfg.SampleInterval, nil)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptFor(sh.Language()),
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(cmd.ErrOrStderr(), "royal repl (type 'exit' to quit, Ctrl+D to exit)\n")

	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt(promptFor(sh.Language()))
				}
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		// Handle multi-line input
		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt(promptFor(sh.Language()))
		}

		entry := strings.TrimSpace(line)
		if entry == "" {
			continue
		}
		if entry == "exit" || entry == "quit" {
			return nil
		}

		if strings.HasPrefix(entry, ":") {
			replCommand(out, sh, entry)
			rl.SetPrompt(promptFor(sh.Language()))
			continue
		}

		sh.SetSource(line)
		res, err := sh.Run(ctx)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if res.Failed {
			errorColor.Fprintln(cmd.ErrOrStderr(), res.Output)
			continue
		}
		fmt.Fprint(out, res.Output)
		if !strings.HasSuffix(res.Output, "\n") {
			fmt.Fprintln(out)
		}
	}
}

// replCommand handles a ':'-prefixed entry.
func replCommand(w io.Writer, sh *shell.Shell, entry string) {
	fields := strings.Fields(strings.TrimPrefix(entry, ":"))
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "lang":
		if len(fields) < 2 {
			fmt.Fprintf(w, "current language: %s\n", sh.Language().Name)
			return
		}
		if _, ok := language.Find(fields[1]); !ok {
			fmt.Fprintf(w, "unknown language %q\n", fields[1])
			return
		}
		d := sh.SelectLanguage(fields[1])
		fmt.Fprintf(w, "language: %s\n", d.Name)
	case "languages":
		current := sh.Language().ID
		for _, d := range sh.Languages() {
			marker := " "
			if d.ID == current {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %-10s %s\n", marker, d.ID, d.Name)
		}
	case "theme":
		if sh.ToggleTheme() {
			fmt.Fprintln(w, "theme: dark")
		} else {
			fmt.Fprintln(w, "theme: light")
		}
	case "wpm":
		fmt.Fprintf(w, "%d WPM\n", sh.WPM())
	default:
		fmt.Fprintf(w, "unknown command %q\n", ":"+fields[0])
	}
}
