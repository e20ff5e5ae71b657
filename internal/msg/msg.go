package msg

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Out is where all messages go. Tests may swap it.
var Out io.Writer = os.Stdout

// Verbosity enables Verbose messages
var Verbosity bool

func emit(label, format string, a ...any) {
	fmt.Fprint(Out, label)
	fmt.Fprint(Out, ": ")
	fmt.Fprintf(Out, format, a...)
	fmt.Fprint(Out, "\n")
}

func Error(format string, a ...any) { emit(color.HiRedString("error"), format, a...) }

func Warn(format string, a ...any) { emit(color.YellowString("warn"), format, a...) }

func Info(format string, a ...any) { emit(color.HiGreenString("info"), format, a...) }

func Fatal(format string, a ...any) {
	emit(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

// Verbose prints only when Verbosity is set
func Verbose(format string, a ...any) {
	if Verbosity {
		emit(color.HiBlackString("debug"), format, a...)
	}
}

// Step prints a right-aligned action label followed by its subject, e.g. "  Cleaning core"
func Step(action, format string, a ...any) {
	label := color.HiGreenString("%12s", action)
	fmt.Fprintf(Out, "%s %s\n", label, fmt.Sprintf(format, a...))
}

// Command echoes a command line before it is executed
func Command(name string, args []string) {
	fmt.Fprint(Out, color.HiCyanString(name))
	for _, arg := range args {
		fmt.Fprint(Out, " ", arg)
	}
	fmt.Fprint(Out, "\n")
}

type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if !w.didIndent {
			if _, err := w.W.Write([]byte(w.Indent)); err != nil {
				return n, err
			}
			w.didIndent = true
		}
		if _, err := w.W.Write([]byte{c}); err != nil {
			return n, err
		}
		n++
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return n, nil
}
