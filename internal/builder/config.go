package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/erlake-build/erlake/internal/project"
	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ManifestFilename is the module description read from a module's root directory
const ManifestFilename = "Erlake.toml"

type Config struct {
	Package      PackageSection    `toml:"package"`
	Target       TargetSection     `toml:"target"`
	Test         TestSection       `toml:"test"`
	Dependencies map[string]string `toml:"dependencies"`
}

// PackageSection defines the [package] section
type PackageSection struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Build   string `toml:"build"`
}

// ExtraSection is one entry of target.extras or test.extras
type ExtraSection struct {
	Files []string `toml:"files"`
	To    string   `toml:"to"`
}

// TargetSection defines the [target(.*)] section. Unset lists keep the module defaults.
type TargetSection struct {
	Sources     []string       `toml:"sources"`
	AppSources  []string       `toml:"app-sources"`
	Output      string         `toml:"output"`
	Include     []string       `toml:"include"`
	Warnings    []string       `toml:"warnings"`
	SearchPaths []string       `toml:"search-paths"`
	Extras      []ExtraSection `toml:"extras"`
}

// TestSection defines the [test(.*)] section
type TestSection struct {
	Sources     []string       `toml:"sources"`
	Output      string         `toml:"output"`
	Include     []string       `toml:"include"`
	Warnings    []string       `toml:"warnings"`
	SearchPaths []string       `toml:"search-paths"`
	Extras      []ExtraSection `toml:"extras"`
}

// DependencyNames returns the dependency names in a stable order
func (c *Config) DependencyNames() []string {
	names := make([]string, 0, len(c.Dependencies))
	for name := range c.Dependencies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// mergeInto overlays src onto dst: lists are appended, booleans or-ed, maps
// merged and other non-zero values replace the destination.
func mergeInto(dst, src any) error {
	d := reflect.ValueOf(dst)
	if d.Kind() != reflect.Pointer {
		return errors.New("merge destination must be a pointer")
	}
	d = d.Elem()

	s := reflect.Indirect(reflect.ValueOf(src))
	if s.Type() != d.Type() {
		return fmt.Errorf("cannot merge %s into %s", s.Type(), d.Type())
	}

	switch d.Kind() {
	case reflect.Map:
		mergeValue(d, s)
		return nil
	case reflect.Struct:
	default:
		return fmt.Errorf("cannot merge into %s", d.Type())
	}

	for i := range s.NumField() {
		if to := d.Field(i); to.CanSet() {
			mergeValue(to, s.Field(i))
		}
	}
	return nil
}

func mergeValue(to, from reflect.Value) {
	switch to.Kind() {
	case reflect.Slice:
		if !from.IsNil() {
			to.Set(reflect.AppendSlice(to, from))
		}
	case reflect.Map:
		if from.IsNil() {
			return
		}
		if to.IsNil() {
			to.Set(reflect.MakeMap(to.Type()))
		}
		iter := from.MapRange()
		for iter.Next() {
			to.SetMapIndex(iter.Key(), iter.Value())
		}
	case reflect.Bool:
		to.SetBool(to.Bool() || from.Bool())
	default:
		if !from.IsZero() {
			to.Set(from)
		}
	}
}

// reencode converts a generic TOML value into dst by round-tripping it
func reencode(data any, dst any) error {
	b, err := toml.Marshal(data)
	if err != nil {
		return err
	}
	return toml.Unmarshal(b, dst)
}

// decodeSection decodes a section that has no conditional sub-tables
func decodeSection(raw map[string]any, name string, dst any) error {
	data, ok := raw[name]
	if !ok {
		return nil
	}
	if err := reencode(data, dst); err != nil {
		return fmt.Errorf("failed to parse [%s] section: %w", name, err)
	}
	return nil
}

// decodeConditionalSection decodes section name into dst. Sub-tables whose key
// compiles as an expression are conditions: when the expression evaluates to
// true the sub-table is merged over the base section.
//
//	[target]
//	warnings = ["all"]
//	[target.'target_os == "linux"']
//	include = ["include/linux"]
func decodeConditionalSection[T any](raw map[string]any, name string, dst *T, env ConfigEnv) error {
	data, ok := raw[name]
	if !ok {
		return nil
	}
	table, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section: expected a table", name)
	}

	base := make(map[string]any)
	conditions := make(map[string]map[string]any)
	for key, val := range table {
		sub, isTable := val.(map[string]any)
		if isTable {
			if _, err := expr.Compile(key, expr.Env(env), expr.AsBool()); err == nil {
				conditions[key] = sub
				continue
			}
		}
		base[key] = val
	}

	if len(base) > 0 {
		if err := reencode(base, dst); err != nil {
			return fmt.Errorf("failed to parse [%s] section: %w", name, err)
		}
	}

	// evaluate in a fixed order so list merges are deterministic
	keys := make([]string, 0, len(conditions))
	for key := range conditions {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		matched, err := evalBool(key, env)
		if err != nil {
			return fmt.Errorf("condition [%s.%q]: %w", name, key, err)
		}
		if !matched {
			continue
		}

		var section T
		if err := reencode(conditions[key], &section); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, key, err)
		}
		if err := mergeInto(dst, section); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, key, err)
		}
	}
	return nil
}

func evalBool(expression string, env ConfigEnv) (bool, error) {
	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, err
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

var templateRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// expandTemplates replaces every {{ expr }} in s with the value of expr
func expandTemplates(s string, env ConfigEnv) (string, error) {
	var firstErr error
	out := templateRegex.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		expression := strings.TrimSpace(match[2 : len(match)-2])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			firstErr = fmt.Errorf("failed to compile expression %q: %w", expression, err)
			return match
		}
		result, err := expr.Run(program, env)
		if err != nil {
			firstErr = fmt.Errorf("failed to run expression %q: %w", expression, err)
			return match
		}
		return fmt.Sprint(result)
	})
	return out, firstErr
}

// expandAll walks decoded TOML data and expands templates in every string.
// Table keys are left alone because they may be conditions.
func expandAll(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			expanded, err := expandAll(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = expanded
		}
		return v, nil
	case []any:
		for i, item := range v {
			expanded, err := expandAll(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = expanded
		}
		return v, nil
	case string:
		return expandTemplates(v, env)
	default:
		return data, nil
	}
}

func ParseConfig(rdr io.Reader, env ConfigEnv) (*Config, error) {
	var raw map[string]any
	if err := toml.NewDecoder(rdr).Decode(&raw); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	expanded, err := expandAll(raw, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	raw = expanded.(map[string]any)

	cfg := new(Config)
	if err := decodeSection(raw, "package", &cfg.Package); err != nil {
		return nil, err
	}
	if err := decodeConditionalSection(raw, "target", &cfg.Target, env); err != nil {
		return nil, err
	}
	if err := decodeConditionalSection(raw, "test", &cfg.Test, env); err != nil {
		return nil, err
	}
	if err := decodeConditionalSection(raw, "dependencies", &cfg.Dependencies, env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfigFromFile parses the manifest at path
func ParseConfigFromFile(path string, env ConfigEnv) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := ParseConfig(bufio.NewReader(f), env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// RunBuildScript evaluates [package].build, which must return true
func (cfg *Config) RunBuildScript(env ConfigEnv) error {
	if cfg.Package.Build == "" {
		return nil
	}
	ok, err := evalBool(cfg.Package.Build, env)
	if err != nil {
		return fmt.Errorf("build script of module %q: %w", cfg.Package.Name, err)
	}
	if !ok {
		return fmt.Errorf("build script of module %q returned false\n%s", cfg.Package.Name, cfg.Package.Build)
	}
	return nil
}

// NewModule creates the module described by cfg, rooted at dir. Source
// entries are glob patterns relative to dir. Dependencies are not wired here
// because they need the other modules of the workspace.
func (cfg *Config) NewModule(dir string) (*project.Module, error) {
	var globErr error
	glob := func(patterns []string) []string {
		files, err := globIn(dir, patterns)
		if err != nil && globErr == nil {
			globErr = err
		}
		return files
	}

	m, err := project.New(cfg.Package.Name, dir, func(m *project.Module) {
		t := cfg.Target
		m.SetVersion(cfg.Package.Version)
		if t.Output != "" {
			m.SetOutputPath(t.Output)
		}
		if t.Sources != nil {
			m.SetSources(glob(t.Sources))
		}
		if t.AppSources != nil {
			m.SetAppSources(glob(t.AppSources))
		}
		if t.SearchPaths != nil {
			m.SetSearchPaths(t.SearchPaths)
		}
		m.SetIncludePaths(t.Include)
		m.SetWarnings(t.Warnings)
		for _, extra := range t.Extras {
			m.CopyExtras(extra.Files, extra.To)
		}

		ts := cfg.Test
		if ts.Output != "" {
			m.SetTestOutputPath(ts.Output)
		}
		if ts.Sources != nil {
			m.SetTestSources(glob(ts.Sources))
		}
		if ts.SearchPaths != nil {
			m.SetTestSearchPaths(ts.SearchPaths)
		}
		m.SetTestIncludePaths(ts.Include)
		if ts.Warnings != nil {
			m.SetTestWarnings(ts.Warnings)
		}
		for _, extra := range ts.Extras {
			m.CopyTestExtras(extra.Files, extra.To)
		}
	})
	if err != nil {
		return nil, err
	}
	if globErr != nil {
		return nil, fmt.Errorf("module %q: %w", cfg.Package.Name, globErr)
	}
	return m, nil
}

// globIn expands patterns relative to dir into absolute, sorted file paths.
// Absolute entries are kept as they are.
func globIn(dir string, patterns []string) ([]string, error) {
	files := []string{}
	fsys := os.DirFS(dir)
	for _, pat := range patterns {
		if filepath.IsAbs(pat) {
			files = append(files, filepath.Clean(pat))
			continue
		}
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pat), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pat, err)
		}
		for _, match := range matches {
			files = append(files, filepath.Join(dir, filepath.FromSlash(match)))
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

//
// expr-lang environment
//

type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
	basedir    string
}

func NewConfigEnv(basedir string) ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			environ[k] = v
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
		basedir:    basedir,
	}
}

// inside resolves path against the module directory and refuses to leave it
func (env ConfigEnv) inside(path string) string {
	full := filepath.Join(env.basedir, path)
	rel, err := filepath.Rel(env.basedir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		panic(fmt.Sprintf("path %q is outside of module directory %q", path, env.basedir))
	}
	return full
}

// Patch applies a diff-match-patch text patch to a file of the module. It
// reports whether any hunk applied. Meant for build scripts.
func (env ConfigEnv) Patch(path, patchText string) bool {
	full := env.inside(path)
	data, err := os.ReadFile(full)
	if err != nil {
		panic(err)
	}

	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		panic(err)
	}
	patched, results := dmp.PatchApply(patches, string(data))
	if !slices.Contains(results, true) {
		return false
	}

	if err := os.WriteFile(full, []byte(patched), 0o644); err != nil {
		panic(err)
	}
	return true
}

// ReadFile returns the contents of a file of the module
func (env ConfigEnv) ReadFile(path string) string {
	data, err := os.ReadFile(env.inside(path))
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Exists reports whether a file of the module exists
func (env ConfigEnv) Exists(path string) bool {
	_, err := os.Stat(env.inside(path))
	return err == nil
}
