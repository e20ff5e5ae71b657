package toolchain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/erlake-build/erlake/internal/msg"
)

const (
	SourceExt   = ".erl"
	ArtifactExt = ".beam"

	testRunnerModule = "test_runner"
	testRunnerFunc   = "run_all"
)

// NotASourceFileError is returned for a source that does not end in .erl
type NotASourceFileError struct {
	Path string
}

func (e *NotASourceFileError) Error() string {
	return fmt.Sprintf("%s is not a %s file", e.Path, SourceExt)
}

// BuildError is a compiler run that exited with a non-zero status.
// Output holds everything the compiler printed.
type BuildError struct {
	Source string
	Output string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build of %q failed with output:\n%s", e.Source, e.Output)
}

// Options are the per-module settings translated into toolchain flags
type Options struct {
	Dest         string
	SearchPaths  []string
	IncludePaths []string
	Warnings     []string
}

// flags renders the shared flag grammar: -pa <path>..., -I <path>..., -W <flag>...
func (o Options) flags() []string {
	var args []string
	for _, p := range o.SearchPaths {
		args = append(args, "-pa", p)
	}
	for _, inc := range o.IncludePaths {
		args = append(args, "-I", inc)
	}
	if len(o.Warnings) > 0 {
		args = append(args, "-W")
		args = append(args, o.Warnings...)
	}
	return args
}

// CompileArgs returns the compiler arguments for one source file
func CompileArgs(src string, opts Options) []string {
	args := opts.flags()
	dest := opts.Dest
	if dest == "" {
		dest = "."
	}
	return append(args, "-o", dest, src)
}

// RunTestsArgs returns the runtime arguments that run every test in opts.Dest
func RunTestsArgs(opts Options) []string {
	args := append([]string{"-noshell"}, opts.flags()...)
	return append(args, "-o", opts.Dest, "-s", testRunnerModule, testRunnerFunc)
}

// ConsoleArgs returns the runtime arguments of an interactive session.
// The compiler-only -W and -o flags are left out.
func ConsoleArgs(opts Options) []string {
	return Options{SearchPaths: opts.SearchPaths, IncludePaths: opts.IncludePaths}.flags()
}

// ArtifactPath is where the compiled form of src ends up inside dest
func ArtifactPath(src, dest string) (string, error) {
	base := filepath.Base(src)
	if filepath.Ext(base) != SourceExt || base == SourceExt {
		return "", &NotASourceFileError{Path: src}
	}
	return filepath.Join(dest, strings.TrimSuffix(base, SourceExt)+ArtifactExt), nil
}

type Toolchain struct {
	Compiler string // erlc
	Runtime  string // erl
	Runner   Runner
}

// New returns a toolchain using the binaries found on this machine
func New() *Toolchain {
	return &Toolchain{
		Compiler: FindCompiler(),
		Runtime:  FindRuntime(),
		Runner:   ExecRunner{},
	}
}

// Compile builds src into opts.Dest unless its artifact is already there.
// Only the presence of the artifact is checked, so an edited source with an
// existing artifact is not rebuilt.
func (tc *Toolchain) Compile(src string, opts Options) error {
	artifact, err := ArtifactPath(src, opts.Dest)
	if err != nil {
		return err
	}
	if _, err := os.Stat(artifact); err == nil {
		msg.Verbose("%s is up to date", artifact)
		return nil
	}

	if err := os.MkdirAll(opts.Dest, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	args := CompileArgs(src, opts)
	msg.Command(tc.Compiler, args)

	output, err := tc.Runner.Output(tc.Compiler, args...)
	if err != nil {
		if isExit(err) {
			return &BuildError{Source: src, Output: string(output)}
		}
		return fmt.Errorf("failed to run %s: %w", tc.Compiler, err)
	}

	msg.Step("Built", "%s", artifact)
	return nil
}

// RunTests starts a non-interactive runtime that runs test_runner:run_all/0
func (tc *Toolchain) RunTests(opts Options) error {
	args := RunTestsArgs(opts)
	msg.Command(tc.Runtime, args)
	if err := tc.Runner.Run(tc.Runtime, args...); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}
	return nil
}

// Console starts an interactive runtime with the given code and include paths
func (tc *Toolchain) Console(opts Options) error {
	args := ConsoleArgs(opts)
	msg.Command(tc.Runtime, args)
	return tc.Runner.Run(tc.Runtime, args...)
}

func isExit(err error) bool {
	var exit interface{ ExitCode() int }
	return errors.As(err, &exit) && exit.ExitCode() != 0
}
