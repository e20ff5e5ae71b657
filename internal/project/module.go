// Package project holds the in-memory description of one buildable Erlang module:
// where its sources live, where artifacts go, which compiler search paths apply
// and which other modules it depends on.
//
// A Module is configured once, normally inside the callback passed to New, and is
// then handed to the task graph builder. Every relative path given to a setter is
// resolved against the module's project directory immediately.
package project

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Conventional layout relative to a module's project directory
const (
	DefaultOutputPath     = "ebin"
	DefaultTestOutputPath = "tests/ebin"
	DefaultExtrasPath     = "doc"
)

var (
	defaultSourcePatterns     = []string{"src/*.erl"}
	defaultAppSourcePatterns  = []string{"src/*.app", "src/*.appup"}
	defaultTestSourcePatterns = []string{"tests/*.erl"}
)

// ExtraSpec is a set of files (glob patterns) copied verbatim into To
type ExtraSpec struct {
	Files []string
	To    string
}

type Module struct {
	name    string
	version string
	dir     string

	sources      []string
	sourcesSet   bool
	appSources   []string
	appSet       bool
	outputPath   string
	searchPaths  *PathSet
	includePaths []string
	warnings     []string
	dependencies []*Module
	extras       []ExtraSpec

	testSources      []string
	testSourcesSet   bool
	testOutputPath   string
	testSearchPaths  *PathSet
	testIncludePaths []string
	testWarnings     []string
	testWarningsSet  bool
	testExtras       []ExtraSpec
}

// New creates a module rooted at dir and runs configure on it, if given.
// The name becomes the module's task namespace, so it must not contain ':'.
func New(name, dir string, configure func(m *Module)) (*Module, error) {
	if name == "" {
		return nil, &ConfigurationError{Field: "name"}
	}
	if strings.ContainsAny(name, ": \t\n") {
		return nil, &ConfigurationError{Field: "name", Reason: "must not contain ':' or whitespace, got " + name}
	}
	if dir == "" {
		return nil, &ConfigurationError{Field: "project directory"}
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, &ConfigurationError{Field: "project directory", Reason: err.Error()}
	}

	m := &Module{name: name, dir: absDir}
	if configure != nil {
		configure(m)
	}
	return m, nil
}

// resolve makes p absolute against the project directory
func (m *Module) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.dir, p)
}

func (m *Module) resolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = m.resolve(p)
	}
	return out
}

// glob expands conventional patterns inside the project directory
func (m *Module) glob(patterns []string) []string {
	var files []string
	fsys := os.DirFS(m.dir)
	for _, pat := range patterns {
		matches, err := doublestar.Glob(fsys, pat, doublestar.WithFilesOnly())
		if err != nil {
			continue
		}
		for _, match := range matches {
			files = append(files, filepath.Join(m.dir, filepath.FromSlash(match)))
		}
	}
	slices.Sort(files)
	return files
}

func (m *Module) Name() string    { return m.name }
func (m *Module) Dir() string     { return m.dir }
func (m *Module) Version() string { return m.version }

func (m *Module) SetVersion(v string) { m.version = v }

// Sources are the .erl files compiled into OutputPath. Defaults to src/*.erl.
func (m *Module) Sources() []string {
	if !m.sourcesSet {
		return m.glob(defaultSourcePatterns)
	}
	return slices.Clone(m.sources)
}

func (m *Module) SetSources(files []string) {
	m.sources = m.resolveAll(files)
	m.sourcesSet = true
}

// AppSources are application resource files copied into OutputPath.
// Defaults to src/*.app and src/*.appup.
func (m *Module) AppSources() []string {
	if !m.appSet {
		return m.glob(defaultAppSourcePatterns)
	}
	return slices.Clone(m.appSources)
}

func (m *Module) SetAppSources(files []string) {
	m.appSources = m.resolveAll(files)
	m.appSet = true
}

func (m *Module) OutputPath() string {
	if m.outputPath == "" {
		return m.resolve(DefaultOutputPath)
	}
	return m.outputPath
}

func (m *Module) SetOutputPath(dir string) { m.outputPath = m.resolve(dir) }

// SearchPaths returns the compiler code paths of the module. Unless set
// explicitly, it is derived on first use from the output path and the output
// paths of the direct dependencies, and then kept.
//
// The returned set is live: adding to it changes the module.
func (m *Module) SearchPaths() *PathSet {
	if m.searchPaths == nil {
		m.searchPaths = NewPathSet(m.OutputPath())
		for _, dep := range m.dependencies {
			m.searchPaths.Add(dep.OutputPath())
		}
	}
	return m.searchPaths
}

// SetSearchPaths replaces the derived search paths. Duplicates are dropped.
func (m *Module) SetSearchPaths(paths []string) {
	m.searchPaths = NewPathSet(m.resolveAll(paths)...)
}

func (m *Module) IncludePaths() []string { return slices.Clone(m.includePaths) }

func (m *Module) SetIncludePaths(paths []string) { m.includePaths = m.resolveAll(paths) }

func (m *Module) Warnings() []string { return slices.Clone(m.warnings) }

func (m *Module) SetWarnings(flags []string) { m.warnings = slices.Clone(flags) }

func (m *Module) Dependencies() []*Module { return slices.Clone(m.dependencies) }

// SetDependencies records the modules this one is built after and adds their
// output paths to SearchPaths. Only the given modules are added: the
// dependencies of a dependency are not.
func (m *Module) SetDependencies(deps []*Module) {
	paths := m.SearchPaths()
	for _, dep := range deps {
		paths.Add(dep.OutputPath())
	}
	m.dependencies = slices.Clone(deps)
}

func (m *Module) Extras() []ExtraSpec { return slices.Clone(m.extras) }

// CopyExtras schedules files to be copied into to (default "doc") by copy_extras
func (m *Module) CopyExtras(files []string, to string) {
	if to == "" {
		to = DefaultExtrasPath
	}
	m.extras = append(m.extras, ExtraSpec{Files: m.resolveAll(files), To: m.resolve(to)})
}

func (m *Module) TestSources() []string {
	if !m.testSourcesSet {
		return m.glob(defaultTestSourcePatterns)
	}
	return slices.Clone(m.testSources)
}

func (m *Module) SetTestSources(files []string) {
	m.testSources = m.resolveAll(files)
	m.testSourcesSet = true
}

func (m *Module) TestOutputPath() string {
	if m.testOutputPath == "" {
		return m.resolve(DefaultTestOutputPath)
	}
	return m.testOutputPath
}

func (m *Module) SetTestOutputPath(dir string) { m.testOutputPath = m.resolve(dir) }

// TestSearchPaths is, until set explicitly, the very same set as SearchPaths:
// adding a path to one adds it to the other.
func (m *Module) TestSearchPaths() *PathSet {
	if m.testSearchPaths == nil {
		m.testSearchPaths = m.SearchPaths()
	}
	return m.testSearchPaths
}

func (m *Module) SetTestSearchPaths(paths []string) {
	m.testSearchPaths = NewPathSet(m.resolveAll(paths)...)
}

func (m *Module) TestIncludePaths() []string { return slices.Clone(m.testIncludePaths) }

func (m *Module) SetTestIncludePaths(paths []string) { m.testIncludePaths = m.resolveAll(paths) }

// TestWarnings falls back to Warnings until set
func (m *Module) TestWarnings() []string {
	if !m.testWarningsSet {
		return m.Warnings()
	}
	return slices.Clone(m.testWarnings)
}

func (m *Module) SetTestWarnings(flags []string) {
	m.testWarnings = slices.Clone(flags)
	m.testWarningsSet = true
}

func (m *Module) TestExtras() []ExtraSpec { return slices.Clone(m.testExtras) }

// CopyTestExtras schedules files to be copied by copy_test_extras. An empty to
// means the test output path as it is at the time of the call.
func (m *Module) CopyTestExtras(files []string, to string) {
	dest := m.TestOutputPath()
	if to != "" {
		dest = m.resolve(to)
	}
	m.testExtras = append(m.testExtras, ExtraSpec{Files: m.resolveAll(files), To: dest})
}

// Walk visits m and then every module reachable through dependencies, each
// once, depth first in declaration order. A dependency cycle is not an error.
func (m *Module) Walk(fn func(*Module) error) error {
	seen := make(map[*Module]bool)
	var visit func(*Module) error
	visit = func(cur *Module) error {
		if seen[cur] {
			return nil
		}
		seen[cur] = true
		if err := fn(cur); err != nil {
			return err
		}
		for _, dep := range cur.dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(m)
}
