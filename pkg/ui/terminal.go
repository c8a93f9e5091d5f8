package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════╗
    ║  ___ _        _____     _ _                   ║
    ║ / __| |____  |_   _|_ _| | |_  _              ║
    ║ \__ \ / / || | | |/ _' | | | || |             ║
    ║ |___/_\_\\_, | |_|\__,_|_|_|\_, |             ║
    ║          |__/               |__/              ║
    ║      BLUESKY HASHTAG & ENGAGEMENT TALLIES     ║
    ╚═══════════════════════════════════════════════╝
`

// Status lines go to stderr so stdout stays clean for tables and JSON.
var (
	statusOut io.Writer = os.Stderr
	colors              = detectColor(os.Stderr)
	quiet     bool
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colors {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// detectColor reports whether f is an interactive terminal that accepts color
func detectColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// SetOutput redirects status lines. Color is enabled only for terminals.
func SetOutput(w io.Writer) {
	statusOut = w
	if f, ok := w.(*os.File); ok {
		colors = detectColor(f)
	} else {
		colors = false
	}
}

// SetQuiet suppresses everything except errors
func SetQuiet(q bool) {
	quiet = q
}

// IsQuietMode reports whether status output is suppressed
func IsQuietMode() bool {
	return quiet
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	if quiet {
		return
	}
	fmt.Fprint(statusOut, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(statusOut, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(statusOut, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if quiet {
		return
	}
	fmt.Fprintln(statusOut, Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	if quiet {
		return
	}
	fmt.Fprintf(statusOut, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if quiet {
		return
	}
	if len(args) > 0 {
		fmt.Fprintln(statusOut, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(statusOut, Yellow(msg))
	}
}

// PrintHint prints a dimmed follow-up line, typically recovery guidance
func PrintHint(msg string) {
	if msg == "" {
		return
	}
	fmt.Fprintln(statusOut, Dim("  "+msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if quiet {
		return
	}
	fmt.Fprintln(statusOut, Magenta(msg))
}
