package toolchain_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/erlake-build/erlake/internal/toolchain"
	"github.com/erlake-build/erlake/internal/toolchain/toolchaintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newToolchain(r *toolchaintest.Runner) *toolchain.Toolchain {
	return &toolchain.Toolchain{Compiler: "erlc", Runtime: "erl", Runner: r}
}

func TestArtifactPath(t *testing.T) {
	p, err := toolchain.ArtifactPath("/w/core/src/foo.erl", "/w/core/ebin")
	require.NoError(t, err)
	assert.Equal(t, "/w/core/ebin/foo.beam", p)

	for _, bad := range []string{"/w/core/src/foo.txt", "src/foo", "src/.erl", "src/foo.erl.bak"} {
		_, err := toolchain.ArtifactPath(bad, "/out")
		var nse *toolchain.NotASourceFileError
		assert.True(t, errors.As(err, &nse), bad)
	}
}

func TestCompileArgs(t *testing.T) {
	args := toolchain.CompileArgs("/w/src/foo.erl", toolchain.Options{
		Dest:         "/w/ebin",
		SearchPaths:  []string{"/w/ebin", "/u/ebin"},
		IncludePaths: []string{"/w/include"},
		Warnings:     []string{"all", "error"},
	})
	assert.Equal(t, []string{
		"-pa", "/w/ebin", "-pa", "/u/ebin",
		"-I", "/w/include",
		"-W", "all", "error",
		"-o", "/w/ebin", "/w/src/foo.erl",
	}, args)

	assert.Equal(t, []string{"-o", ".", "foo.erl"}, toolchain.CompileArgs("foo.erl", toolchain.Options{}))
}

func TestRunTestsAndConsoleArgs(t *testing.T) {
	opts := toolchain.Options{
		Dest:        "/w/tests/ebin",
		SearchPaths: []string{"/w/ebin"},
		Warnings:    []string{"all"},
	}
	assert.Equal(t, []string{
		"-noshell", "-pa", "/w/ebin", "-W", "all",
		"-o", "/w/tests/ebin", "-s", "test_runner", "run_all",
	}, toolchain.RunTestsArgs(opts))
	assert.Equal(t, []string{"-pa", "/w/ebin"}, toolchain.ConsoleArgs(opts))
}

func TestCompileSkipsExistingArtifact(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "foo.erl")
	dest := filepath.Join(dir, "ebin")
	r := &toolchaintest.Runner{}
	tc := newToolchain(r)

	require.NoError(t, tc.Compile(src, toolchain.Options{Dest: dest}))
	require.FileExists(t, filepath.Join(dest, "foo.beam"))
	require.NoError(t, tc.Compile(src, toolchain.Options{Dest: dest}))

	assert.Len(t, r.Calls, 1)
}

func TestCompileNotASourceNeverInvokes(t *testing.T) {
	r := &toolchaintest.Runner{}
	err := newToolchain(r).Compile("/w/src/README.md", toolchain.Options{Dest: t.TempDir()})

	var nse *toolchain.NotASourceFileError
	require.True(t, errors.As(err, &nse))
	assert.Equal(t, "/w/src/README.md", nse.Path)
	assert.Empty(t, r.Calls)
}

func TestCompileFailureCarriesOutput(t *testing.T) {
	dest := t.TempDir()
	r := &toolchaintest.Runner{Fail: "foo.erl:3: syntax error before: '.'\n"}

	err := newToolchain(r).Compile("/w/src/foo.erl", toolchain.Options{Dest: dest})

	var be *toolchain.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "/w/src/foo.erl", be.Source)
	assert.Equal(t, "foo.erl:3: syntax error before: '.'\n", be.Output)
	assert.NoFileExists(t, filepath.Join(dest, "foo.beam"))

	// nothing was produced, so the next run tries again
	r.Fail = ""
	require.NoError(t, newToolchain(r).Compile("/w/src/foo.erl", toolchain.Options{Dest: dest}))
	assert.Len(t, r.Calls, 2)
}

func TestCompileCreatesDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "deep", "ebin")
	require.NoError(t, newToolchain(&toolchaintest.Runner{}).Compile("foo.erl", toolchain.Options{Dest: dest}))
	_, err := os.Stat(filepath.Join(dest, "foo.beam"))
	assert.NoError(t, err)
}

func TestRunTestsFailure(t *testing.T) {
	r := &toolchaintest.Runner{Fail: "boom"}
	err := newToolchain(r).RunTests(toolchain.Options{Dest: "/w/tests/ebin"})
	require.Error(t, err)
	require.Len(t, r.Calls, 1)
	assert.Equal(t, "erl", r.Calls[0].Name)
}

func TestFindCompilerPrefersEnvironment(t *testing.T) {
	t.Setenv("ERLC", "/opt/otp/bin/erlc")
	t.Setenv("ERL", "/opt/otp/bin/erl")
	assert.Equal(t, "/opt/otp/bin/erlc", toolchain.FindCompiler())
	assert.Equal(t, "/opt/otp/bin/erl", toolchain.FindRuntime())
}
