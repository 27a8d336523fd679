package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caffeineduck/royal/shell"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run code once and print the output panel",
	Long: `Run JavaScript, HTML or CSS once and print what the output panel shows.

Code can be provided via:
  - File argument: royal run script.js
  - Inline flag: royal run -c 'console.log(1+1)'
  - Stdin: echo '<b>hi</b>' | royal run --lang html`,
	Args:         cobra.MaximumNArgs(1),
	RunE:         runRun,
	SilenceUsage: true,
}

// errRunFailed marks a run whose output is an error line. The output has
// already been printed, so cobra must not print it again.
var errRunFailed = errors.New("run failed")

var errorColor = color.New(color.FgRed, color.Bold)

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Code to execute")
}

func readSource(cmd *cobra.Command, args []string) (source, filename string, ok bool, err error) {
	code, _ := cmd.Flags().GetString("code")

	switch {
	case code != "":
		return code, "", true, nil
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", false, err
		}
		return string(data), args[0], true, nil
	}

	in := cmd.InOrStdin()
	if f, isFile := in.(*os.File); isFile {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return "", "", false, nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", "", false, err
	}
	if len(data) == 0 {
		return "", "", false, nil
	}
	return string(data), "", true, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	source, filename, ok, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	if !ok {
		return cmd.Help()
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	lang, err := resolveLanguage(a.cfg.Language, filename)
	if err != nil {
		return err
	}

	sh := a.newShell(shell.WithLanguage(string(lang.ID)), shell.WithSource(source))
	res, err := sh.Run(cmd.Context())
	if err != nil {
		return err
	}

	if res.Failed {
		errorColor.Fprintln(cmd.ErrOrStderr(), res.Output)
		cmd.SilenceErrors = true
		return errRunFailed
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, res.Output)
	if len(res.Output) > 0 && res.Output[len(res.Output)-1] != '\n' {
		fmt.Fprintln(out)
	}
	return nil
}
