package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, elem ...string) string {
	t.Helper()
	path := filepath.Join(elem...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func TestNewRequiresNameAndDirectory(t *testing.T) {
	_, err := New("", "/tmp/x", nil)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "name", cfgErr.Field)

	_, err = New("core", "", nil)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "project directory", cfgErr.Field)

	_, err = New("core:x", "/tmp/x", nil)
	require.True(t, errors.As(err, &cfgErr))
}

func TestNewRunsConfigure(t *testing.T) {
	called := false
	m, err := New("core", "/work/core", func(m *Module) {
		called = true
		m.SetVersion("1.2.0")
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "1.2.0", m.Version())
	assert.Equal(t, "core", m.Name())
}

func TestRelativePathsResolveAgainstProjectDirectory(t *testing.T) {
	m, err := New("core", "/work/core", func(m *Module) {
		m.SetSources([]string{"lib/a.erl", "/abs/b.erl"})
		m.SetOutputPath("out")
		m.SetIncludePaths([]string{"include"})
		m.SetTestOutputPath("t/out")
		m.CopyExtras([]string{"README.md"}, "")
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/work/core/lib/a.erl", "/abs/b.erl"}, m.Sources())
	assert.Equal(t, "/work/core/out", m.OutputPath())
	assert.Equal(t, []string{"/work/core/include"}, m.IncludePaths())
	assert.Equal(t, "/work/core/t/out", m.TestOutputPath())
	assert.Equal(t, []ExtraSpec{{Files: []string{"/work/core/README.md"}, To: "/work/core/doc"}}, m.Extras())
}

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	foo := touch(t, dir, "src", "foo.erl")
	app := touch(t, dir, "src", "core.app")
	appup := touch(t, dir, "src", "core.appup")
	touch(t, dir, "src", "nested", "skip.erl")
	testSrc := touch(t, dir, "tests", "foo_tests.erl")

	m, err := New("core", dir, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{foo}, m.Sources())
	assert.Equal(t, []string{app, appup}, m.AppSources())
	assert.Equal(t, []string{testSrc}, m.TestSources())
	assert.Equal(t, filepath.Join(dir, "ebin"), m.OutputPath())
	assert.Equal(t, filepath.Join(dir, "tests", "ebin"), m.TestOutputPath())
	assert.Empty(t, m.IncludePaths())
	assert.Empty(t, m.Warnings())
	assert.Empty(t, m.Dependencies())
}

func TestExplicitEmptySourcesOverrideDefaults(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "src", "foo.erl")

	m, err := New("core", dir, func(m *Module) { m.SetSources(nil) })
	require.NoError(t, err)
	assert.Empty(t, m.Sources())
}

func TestSearchPathsDirectDependenciesOnly(t *testing.T) {
	c, _ := New("c", "/w/c", nil)
	a, _ := New("a", "/w/a", func(m *Module) { m.SetDependencies([]*Module{c}) })
	b, _ := New("b", "/w/b", nil)
	core, err := New("core", "/w/core", func(m *Module) {
		m.SetDependencies([]*Module{a, b, a})
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/w/core/ebin", "/w/a/ebin", "/w/b/ebin"}, core.SearchPaths().Paths())
	assert.False(t, core.SearchPaths().Contains("/w/c/ebin"))
	assert.Equal(t, []string{"/w/a/ebin", "/w/c/ebin"}, a.SearchPaths().Paths())

	core.SearchPaths().Add("/w/a/ebin", "/w/b/ebin", "/w/core/ebin")
	assert.Equal(t, 3, core.SearchPaths().Len())
}

func TestSearchPathsFixedAfterFirstRead(t *testing.T) {
	m, _ := New("core", "/w/core", nil)
	assert.Equal(t, []string{"/w/core/ebin"}, m.SearchPaths().Paths())

	m.SetOutputPath("out")
	assert.Equal(t, []string{"/w/core/ebin"}, m.SearchPaths().Paths())
}

func TestExplicitSearchPathsBypassDerivation(t *testing.T) {
	util, _ := New("util", "/w/util", nil)
	m, _ := New("core", "/w/core", func(m *Module) {
		m.SetSearchPaths([]string{"x", "x", "/y"})
	})
	assert.Equal(t, []string{"/w/core/x", "/y"}, m.SearchPaths().Paths())

	m.SetDependencies([]*Module{util})
	assert.Equal(t, []string{"/w/core/x", "/y", "/w/util/ebin"}, m.SearchPaths().Paths())
}

func TestTestSearchPathsAliasMainUntilSet(t *testing.T) {
	m, _ := New("core", "/w/core", nil)

	m.TestSearchPaths().Add("/extra")
	assert.True(t, m.SearchPaths().Contains("/extra"))

	m.SearchPaths().Add("/more")
	assert.True(t, m.TestSearchPaths().Contains("/more"))

	m.SetTestSearchPaths([]string{"/only"})
	m.SearchPaths().Add("/after")
	assert.Equal(t, []string{"/only"}, m.TestSearchPaths().Paths())
}

func TestTestWarningsFallBackToWarnings(t *testing.T) {
	m, _ := New("core", "/w/core", func(m *Module) {
		m.SetWarnings([]string{"all"})
	})
	assert.Equal(t, []string{"all"}, m.TestWarnings())

	m.SetTestWarnings(nil)
	assert.Empty(t, m.TestWarnings())
}

func TestCopyTestExtrasDefaultsToTestOutput(t *testing.T) {
	m, _ := New("core", "/w/core", func(m *Module) {
		m.SetTestOutputPath("tout")
		m.CopyTestExtras([]string{"data/*.txt"}, "")
		m.CopyTestExtras([]string{"fixture"}, "fx")
	})
	assert.Equal(t, []ExtraSpec{
		{Files: []string{"/w/core/data/*.txt"}, To: "/w/core/tout"},
		{Files: []string{"/w/core/fixture"}, To: "/w/core/fx"},
	}, m.TestExtras())
}

func TestWalkVisitsEachModuleOnce(t *testing.T) {
	c, _ := New("c", "/w/c", nil)
	a, _ := New("a", "/w/a", func(m *Module) { m.SetDependencies([]*Module{c}) })
	b, _ := New("b", "/w/b", func(m *Module) { m.SetDependencies([]*Module{c}) })
	core, _ := New("core", "/w/core", func(m *Module) { m.SetDependencies([]*Module{a, b}) })
	// a cycle must not hang the walk
	c.SetDependencies([]*Module{core})

	var names []string
	require.NoError(t, core.Walk(func(m *Module) error {
		names = append(names, m.Name())
		return nil
	}))
	assert.Equal(t, []string{"core", "a", "c", "b"}, names)
}
