// Package index maps dependency names to dependency sources. A manifest may
// declare a dependency with the source "*" and let the index of the workspace
// say where it comes from.
package index

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

const IndexFilename = "erlake_index.json"

type Index struct {
	// dependency name -> source (path, git:..., gh:...)
	Deps map[string]string
}

func ParseIndex(rdr io.Reader) (*Index, error) {
	var deps map[string]string
	if err := json.NewDecoder(bufio.NewReader(rdr)).Decode(&deps); err != nil {
		return nil, err
	}
	return &Index{Deps: deps}, nil
}

// Load reads the index in dir. A missing file is an empty index.
func Load(dir string) (*Index, error) {
	f, err := os.Open(filepath.Join(dir, IndexFilename))
	if errors.Is(err, fs.ErrNotExist) {
		return &Index{Deps: map[string]string{}}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := ParseIndex(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", IndexFilename, err)
	}
	return idx, nil
}

func (idx *Index) Save(dir string) error {
	f, err := os.Create(filepath.Join(dir, IndexFilename))
	if err != nil {
		return err
	}

	bufw := bufio.NewWriter(f)
	enc := json.NewEncoder(bufw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(idx.Deps); err != nil {
		f.Close()
		return err
	}
	if err := bufw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Lookup returns the source registered for name
func (idx *Index) Lookup(name string) (string, bool) {
	source, ok := idx.Deps[name]
	return source, ok
}

func (idx *Index) SetDep(name, source string) {
	if idx.Deps == nil {
		idx.Deps = make(map[string]string)
	}
	idx.Deps[name] = source
}

func (idx *Index) HasDep(name string) bool {
	_, exists := idx.Deps[name]
	return exists
}

func (idx *Index) RemoveDep(name string) bool {
	if _, ok := idx.Deps[name]; !ok {
		return false
	}
	delete(idx.Deps, name)
	return true
}

// Names returns the registered dependency names, sorted
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.Deps))
	for name := range idx.Deps {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
