package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Banner printed at the top of interactive runs
const Banner = `
  ┌──────────────────────────────────────────────┐
  │  liscraper · multi-account profile collector  │
  └──────────────────────────────────────────────┘
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// Out is where the print helpers write
var Out io.Writer = os.Stdout

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// IsTerminal reports whether stdout is attached to a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// PrintBanner prints the banner when stdout is a terminal
func PrintBanner() {
	if IsTerminal() {
		fmt.Fprint(Out, Cyan(Banner))
	}
}

// PrintError prints an error message in red, followed by its cause if given
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	fmt.Fprintln(Out, Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Out, Green(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	fmt.Fprintln(Out, Yellow(msg))
}

// PrintSummary prints the end-of-run line, green when nothing failed and
// nothing was left unattempted
func PrintSummary(line string, clean bool) {
	if clean {
		fmt.Fprintln(Out, Green(line))
		return
	}
	fmt.Fprintln(Out, Magenta(line))
}
