package builder

import (
	"path/filepath"

	"github.com/erlake-build/erlake/internal/project"
	"github.com/erlake-build/erlake/internal/toolchain"
)

// Artifacts lists every file a module's tasks may create
type Artifacts struct {
	Sources     []string // compiled sources and copied app sources
	TestSources []string
	Extras      []string
	TestExtras  []string
}

// All returns every artifact path
func (a Artifacts) All() []string {
	all := make([]string, 0, len(a.Sources)+len(a.TestSources)+len(a.Extras)+len(a.TestExtras))
	all = append(all, a.Sources...)
	all = append(all, a.TestSources...)
	all = append(all, a.Extras...)
	return append(all, a.TestExtras...)
}

func ModuleArtifacts(m *project.Module) (Artifacts, error) {
	var a Artifacts
	var err error
	if a.Sources, err = GeneratedFiles(m); err != nil {
		return a, err
	}
	if a.TestSources, err = GeneratedTestFiles(m); err != nil {
		return a, err
	}
	if a.Extras, err = extraTargets(m.Extras()); err != nil {
		return a, err
	}
	if a.TestExtras, err = extraTargets(m.TestExtras()); err != nil {
		return a, err
	}
	return a, nil
}

// GeneratedFiles are the compiled sources and copied app sources of m
func GeneratedFiles(m *project.Module) ([]string, error) {
	files, err := artifactsOf(m.Sources(), m.OutputPath())
	if err != nil {
		return nil, err
	}
	for _, fn := range m.AppSources() {
		files = append(files, filepath.Join(m.OutputPath(), filepath.Base(fn)))
	}
	return files, nil
}

// GeneratedTestFiles are the compiled test sources of m
func GeneratedTestFiles(m *project.Module) ([]string, error) {
	return artifactsOf(m.TestSources(), m.TestOutputPath())
}

func artifactsOf(sources []string, dest string) ([]string, error) {
	files := make([]string, 0, len(sources))
	for _, src := range sources {
		artifact, err := toolchain.ArtifactPath(src, dest)
		if err != nil {
			return nil, err
		}
		files = append(files, artifact)
	}
	return files, nil
}

// extraTargets are the destination copies of extra files, by base name
func extraTargets(extras []project.ExtraSpec) ([]string, error) {
	var targets []string
	for _, extra := range extras {
		files, err := expandFiles(extra.Files)
		if err != nil {
			return nil, err
		}
		for _, fn := range files {
			targets = append(targets, filepath.Join(extra.To, filepath.Base(fn)))
		}
	}
	return targets, nil
}

func removeExtras(extras []project.ExtraSpec) error {
	targets, err := extraTargets(extras)
	if err != nil {
		return err
	}
	return removeAll(targets)
}
