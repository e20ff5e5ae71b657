package builder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/erlake-build/erlake/internal/msg"
	"github.com/erlake-build/erlake/internal/project"
	"github.com/erlake-build/erlake/internal/task"
	"github.com/erlake-build/erlake/internal/toolchain"
)

// Names of the tasks defined in every module namespace
const (
	TaskBuildSources      = "build_sources"
	TaskBuildAppSources   = "build_app_sources"
	TaskBuildDependencies = "build_dependencies"
	TaskCopyExtras        = "copy_extras"
	TaskBuild             = "build"
	TaskCleanExtras       = "clean_extras"
	TaskCleanSources      = "clean_sources"
	TaskCleanTestExtras   = "clean_test_extras"
	TaskCleanTestSources  = "clean_test_sources"
	TaskCleanTests        = "clean_tests"
	TaskClean             = "clean"
	TaskBuildTestSources  = "build_test_sources"
	TaskCopyTestExtras    = "copy_test_extras"
	TaskTest              = "test"
	TaskRetest            = "retest"
	TaskConsole           = "console"
)

// Builder turns modules into tasks of a registry. The actions it registers
// read the module when they run, not when they are defined.
type Builder struct {
	registry  *task.Registry
	toolchain *toolchain.Toolchain
	defined   map[string]*project.Module
}

func New(registry *task.Registry, tc *toolchain.Toolchain) *Builder {
	return &Builder{
		registry:  registry,
		toolchain: tc,
		defined:   make(map[string]*project.Module),
	}
}

func (b *Builder) Registry() *task.Registry { return b.registry }

// DefineAll defines the namespaced tasks of m and of every module it depends
// on, directly or not. Modules already defined are skipped.
func (b *Builder) DefineAll(m *project.Module) error {
	return m.Walk(func(cur *project.Module) error {
		if prev, ok := b.defined[cur.Name()]; ok {
			if prev != cur {
				return fmt.Errorf("two different modules are named %q", cur.Name())
			}
			return nil
		}
		b.Define(cur)
		return nil
	})
}

// Define registers the tasks of m under the namespace m.Name()
func (b *Builder) Define(m *project.Module) {
	b.defined[m.Name()] = m
	name := m.Name()
	ns := func(t string) string { return task.Join(name, t) }
	def := func(t, desc string, prereqs []string, action task.Action) {
		b.registry.Define(ns(t), desc, prereqs, action)
	}

	def(TaskBuildSources, "Build the sources for "+name+".", nil, func() error {
		return b.compileAll(m.Sources(), b.mainOptions(m))
	})

	def(TaskBuildAppSources, "Build the app sources for "+name+".", nil, func() error {
		for _, fn := range m.AppSources() {
			if err := copyFile(fn, filepath.Join(m.OutputPath(), filepath.Base(fn))); err != nil {
				return err
			}
		}
		return nil
	})

	def(TaskBuildDependencies, "Build the dependencies of "+name+".", dependencyTasks(m, TaskBuild), nil)

	def(TaskCopyExtras, "Copy the extra files over.", nil, func() error {
		return copyExtras(m.Extras())
	})

	def(TaskBuild, "Build "+name+".", []string{
		ns(TaskCopyExtras), ns(TaskBuildDependencies), ns(TaskBuildSources), ns(TaskBuildAppSources),
	}, nil)

	def(TaskCleanExtras, "Remove the extra files for "+name+".", nil, func() error {
		return removeExtras(m.Extras())
	})

	def(TaskCleanSources, "Remove all the files generated from the source files of "+name+".", nil, func() error {
		generated, err := GeneratedFiles(m)
		if err != nil {
			return err
		}
		if anyExists(generated) {
			msg.Step("Cleaning", "%s", name)
		}
		return removeAll(generated)
	})

	def(TaskCleanTestExtras, "Clean test extras for "+name+".", nil, func() error {
		return removeExtras(m.TestExtras())
	})

	def(TaskCleanTestSources, "Clean the test sources for "+name+".", nil, func() error {
		generated, err := GeneratedTestFiles(m)
		if err != nil {
			return err
		}
		return removeAll(generated)
	})

	def(TaskCleanTests, "Clean up the tests for "+name+".", []string{
		ns(TaskCleanTestExtras), ns(TaskCleanTestSources),
	}, nil)

	def(TaskClean, "Remove all the generated files for "+name+".", []string{
		ns(TaskCleanTests), ns(TaskCleanExtras), ns(TaskCleanSources),
	}, nil)

	def(TaskBuildTestSources, "Build the test sources for "+name+".", nil, func() error {
		return b.compileAll(m.TestSources(), toolchain.Options{
			Dest:         m.TestOutputPath(),
			SearchPaths:  m.TestSearchPaths().Paths(),
			IncludePaths: m.TestIncludePaths(),
		})
	})

	def(TaskCopyTestExtras, "Copy the extra files over for the tests.", nil, func() error {
		return copyExtras(m.TestExtras())
	})

	def(TaskTest, "Test "+name+".", []string{ns(TaskCopyTestExtras), ns(TaskBuildTestSources)}, func() error {
		opts := toolchain.Options{
			Dest:         m.TestOutputPath(),
			SearchPaths:  m.TestSearchPaths().Paths(),
			IncludePaths: m.TestIncludePaths(),
			Warnings:     m.TestWarnings(),
		}
		return inDir(opts.Dest, func() error {
			return b.toolchain.RunTests(opts)
		})
	})

	def(TaskRetest, "Retest "+name+".", []string{ns(TaskCleanTestSources), ns(TaskTest)}, nil)

	def(TaskConsole, "Open an erl console with "+name+" and its dependencies available to be imported.",
		[]string{ns(TaskBuild)}, func() error {
			return b.toolchain.Console(b.mainOptions(m))
		})
}

// UseGlobally also exposes build, clean, test, retest and console of m at the
// top level. The top-level clean cleans m and everything it depends on,
// transitively; promoting several modules accumulates their clean tasks.
func (b *Builder) UseGlobally(m *project.Module) {
	name := m.Name()

	b.registry.Define(TaskBuild, "Build "+name+".", []string{task.Join(name, TaskBuild)}, nil)

	var cleans []string
	_ = m.Walk(func(cur *project.Module) error {
		cleans = append(cleans, task.Join(cur.Name(), TaskClean))
		return nil
	})
	b.registry.Define(TaskClean, "Clean "+name+" and its dependencies.", cleans, nil)

	b.registry.Define(TaskTest, "Test "+name+".", []string{task.Join(name, TaskTest)}, nil)
	b.registry.Define(TaskRetest, "Retest "+name+".", []string{task.Join(name, TaskRetest)}, nil)
	b.registry.Define(TaskConsole, "Open an erl console with "+name+" and its dependencies available to be imported.",
		[]string{task.Join(name, TaskConsole)}, nil)
}

func (b *Builder) mainOptions(m *project.Module) toolchain.Options {
	return toolchain.Options{
		Dest:         m.OutputPath(),
		SearchPaths:  m.SearchPaths().Paths(),
		IncludePaths: m.IncludePaths(),
		Warnings:     m.Warnings(),
	}
}

func (b *Builder) compileAll(sources []string, opts toolchain.Options) error {
	for _, src := range sources {
		if err := b.toolchain.Compile(src, opts); err != nil {
			return err
		}
	}
	return nil
}

func dependencyTasks(m *project.Module, name string) []string {
	var tasks []string
	for _, dep := range m.Dependencies() {
		tasks = append(tasks, task.Join(dep.Name(), name))
	}
	return tasks
}

// inDir runs fn with dir as the working directory and always restores the previous one
func inDir(dir string, fn func() error) (err error) {
	prev, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.Chdir(dir); err != nil {
		return err
	}
	defer func() {
		if cerr := os.Chdir(prev); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn()
}
