package toolchain

import (
	"os"
	"os/exec"
)

// Runner starts toolchain processes. Both calls block until the process exits.
// A process that exits with a non-zero status yields an error with an ExitCode() int method.
type Runner interface {
	// Output runs the command and returns its combined stdout and stderr
	Output(name string, args ...string) ([]byte, error)
	// Run runs the command attached to the current terminal
	Run(name string, args ...string) error
}

type ExecRunner struct{}

func (ExecRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

func (ExecRunner) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
