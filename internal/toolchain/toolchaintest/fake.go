// Package toolchaintest provides a stand-in for the Erlang toolchain processes.
package toolchaintest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ExitError mimics a process that exited with the given status
type ExitError int

func (e ExitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e ExitError) ExitCode() int { return int(e) }

type Call struct {
	Name string
	Args []string
	Dir  string
}

// Runner records every invocation. A successful Output call behaves like erlc
// and writes an empty .beam into the -o directory.
type Runner struct {
	Calls []Call
	// Fail makes every call exit with status 1, printing Fail
	Fail string
}

func (r *Runner) record(name string, args []string) {
	wd, _ := os.Getwd()
	r.Calls = append(r.Calls, Call{Name: name, Args: slices.Clone(args), Dir: wd})
}

func (r *Runner) Output(name string, args ...string) ([]byte, error) {
	r.record(name, args)
	if r.Fail != "" {
		return []byte(r.Fail), ExitError(1)
	}
	i := slices.Index(args, "-o")
	if i < 0 || i+1 >= len(args) {
		return nil, fmt.Errorf("no -o in %v", args)
	}
	src := args[len(args)-1]
	beam := strings.TrimSuffix(filepath.Base(src), ".erl") + ".beam"
	if err := os.WriteFile(filepath.Join(args[i+1], beam), nil, 0o644); err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *Runner) Run(name string, args ...string) error {
	r.record(name, args)
	if r.Fail != "" {
		return ExitError(1)
	}
	return nil
}

// Named returns the calls made to the binary name
func (r *Runner) Named(name string) []Call {
	var calls []Call
	for _, c := range r.Calls {
		if c.Name == name {
			calls = append(calls, c)
		}
	}
	return calls
}
