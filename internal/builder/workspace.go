package builder

import (
	"fmt"
	"path/filepath"

	"github.com/erlake-build/erlake/internal/index"
	"github.com/erlake-build/erlake/internal/msg"
	"github.com/erlake-build/erlake/internal/project"
	"golang.org/x/sync/errgroup"
)

// DepsDirname is where remote dependencies are checked out, inside the root module
const DepsDirname = "_deps"

// fetchJobs bounds the number of concurrent clones
const fetchJobs = 4

// Workspace is a root module loaded from its manifest together with every
// module it depends on, directly or not
type Workspace struct {
	Root    *project.Module
	modules map[string]*loadedModule // dependency name -> module, aliases included
	order   []string
	byDir   map[string]string // module dir -> name it was loaded under
}

type loadedModule struct {
	cfg    *Config
	module *project.Module
}

// depRequest is a dependency as declared by the module in dir
type depRequest struct {
	from   string
	name   string
	source string
}

// located is a dependency whose directory is known
type located struct {
	name string
	dir  string
	git  string // non-empty when dir has to be cloned first
}

// alias is a dependency name that resolved to a directory loaded under another name
type alias struct {
	name   string
	target string
}

// LoadWorkspace loads the module in dir and resolves its dependency graph
// breadth first. Each dependency name and each directory is loaded once; the
// first declaration seen wins and names the module. Relative sources found in
// the index are relative to dir, where the index lives.
func LoadWorkspace(dir string) (*Workspace, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	idx, err := index.Load(dir)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{
		modules: make(map[string]*loadedModule),
		byDir:   make(map[string]string),
	}

	root, err := ws.load(located{dir: dir}, "")
	if err != nil {
		return nil, err
	}
	ws.Root = root.module

	level := requestsOf(dir, root.cfg)
	for len(level) > 0 {
		deps, aliases, err := ws.locate(level, idx, dir)
		if err != nil {
			return nil, err
		}
		if err := fetchAll(deps); err != nil {
			return nil, err
		}

		var next []depRequest
		for _, dep := range deps {
			lm, err := ws.load(dep, dep.name)
			if err != nil {
				return nil, fmt.Errorf("dependency %q: %w", dep.name, err)
			}
			next = append(next, requestsOf(dep.dir, lm.cfg)...)
		}
		for _, a := range aliases {
			ws.modules[a.name] = ws.modules[a.target]
		}
		level = next
	}

	for _, name := range ws.order {
		lm := ws.modules[name]
		var deps []*project.Module
		for _, depName := range lm.cfg.DependencyNames() {
			deps = append(deps, ws.modules[depName].module)
		}
		lm.module.SetDependencies(deps)
	}

	return ws, nil
}

func requestsOf(dir string, cfg *Config) []depRequest {
	var reqs []depRequest
	for _, name := range cfg.DependencyNames() {
		reqs = append(reqs, depRequest{from: dir, name: name, source: cfg.Dependencies[name]})
	}
	return reqs
}

// locate turns the not yet loaded requests of one level into directories.
// A request for a directory that is already loaded, or requested earlier in
// the level under another name, becomes an alias.
func (ws *Workspace) locate(level []depRequest, idx *index.Index, root string) ([]located, []alias, error) {
	var (
		deps    []located
		aliases []alias
	)
	seen := make(map[string]bool)
	pending := make(map[string]string) // dir -> name, for this level
	for _, req := range level {
		if _, ok := ws.modules[req.name]; ok || seen[req.name] {
			continue
		}
		seen[req.name] = true

		source, base := req.source, req.from
		if source == IndexSource {
			var ok bool
			if source, ok = idx.Lookup(req.name); !ok {
				return nil, nil, fmt.Errorf("dependency %q is not in %s", req.name, index.IndexFilename)
			}
			base = root
		}

		gitSource, err := remoteURL(source)
		if err != nil {
			return nil, nil, fmt.Errorf("dependency %q: %w", req.name, err)
		}

		var dep located
		if gitSource != "" {
			dep = located{name: req.name, dir: filepath.Join(root, DepsDirname, req.name), git: gitSource}
		} else {
			depDir := source
			if !filepath.IsAbs(depDir) {
				depDir = filepath.Join(base, depDir)
			}
			dep = located{name: req.name, dir: filepath.Clean(depDir)}
		}

		if target, ok := ws.byDir[dep.dir]; ok {
			ws.modules[req.name] = ws.modules[target]
			continue
		}
		if target, ok := pending[dep.dir]; ok {
			aliases = append(aliases, alias{name: req.name, target: target})
			continue
		}
		pending[dep.dir] = req.name
		deps = append(deps, dep)
	}
	return deps, aliases, nil
}

// fetchAll clones the remote dependencies of one level concurrently
func fetchAll(deps []located) error {
	var g errgroup.Group
	g.SetLimit(fetchJobs)
	for _, dep := range deps {
		if dep.git == "" {
			continue
		}
		g.Go(func() error {
			return fetchDependency(dep.name, dep.git, dep.dir)
		})
	}
	return g.Wait()
}

// load parses the manifest in dep.dir and registers the module. name is the
// dependency name it was requested under, empty for the root.
func (ws *Workspace) load(dep located, name string) (*loadedModule, error) {
	env := NewConfigEnv(dep.dir)
	cfg, err := ParseConfigFromFile(filepath.Join(dep.dir, ManifestFilename), env)
	if err != nil {
		return nil, err
	}

	if name != "" {
		if cfg.Package.Name == "" {
			cfg.Package.Name = name
		} else if cfg.Package.Name != name {
			msg.Warn("dependency %q has a mismatched module name %q, using %q", name, cfg.Package.Name, name)
			cfg.Package.Name = name
		}
	} else {
		name = cfg.Package.Name
	}

	if err := cfg.RunBuildScript(env); err != nil {
		return nil, err
	}

	m, err := cfg.NewModule(dep.dir)
	if err != nil {
		return nil, err
	}

	lm := &loadedModule{cfg: cfg, module: m}
	ws.modules[name] = lm
	ws.order = append(ws.order, name)
	ws.byDir[dep.dir] = name
	msg.Verbose("loaded module %s from %s", m.Name(), dep.dir)
	return lm, nil
}

// Modules returns every module of the workspace, root first, in load order
func (ws *Workspace) Modules() []*project.Module {
	modules := make([]*project.Module, 0, len(ws.order))
	for _, name := range ws.order {
		modules = append(modules, ws.modules[name].module)
	}
	return modules
}

// Module returns the module loaded under the dependency name
func (ws *Workspace) Module(name string) (*project.Module, bool) {
	lm, ok := ws.modules[name]
	if !ok {
		return nil, false
	}
	return lm.module, true
}

// Define registers the tasks of every module of the workspace with b and,
// when global is set, promotes the root module's tasks to the top level.
func (ws *Workspace) Define(b *Builder, global bool) error {
	if err := b.DefineAll(ws.Root); err != nil {
		return err
	}
	if global {
		b.UseGlobally(ws.Root)
	}
	return nil
}
