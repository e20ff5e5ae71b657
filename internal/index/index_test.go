package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingIndex(t *testing.T) {
	idx, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, idx.Names())
	_, ok := idx.Lookup("util")
	assert.False(t, ok)
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	idx := &Index{}
	idx.SetDep("util", "../util")
	idx.SetDep("json", "gh:someone/json")
	require.NoError(t, idx.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"json", "util"}, loaded.Names())
	source, ok := loaded.Lookup("json")
	assert.True(t, ok)
	assert.Equal(t, "gh:someone/json", source)

	assert.True(t, loaded.RemoveDep("json"))
	assert.False(t, loaded.RemoveDep("json"))
	assert.False(t, loaded.HasDep("json"))
	assert.True(t, loaded.HasDep("util"))
}

func TestParseIndexErrors(t *testing.T) {
	_, err := ParseIndex(strings.NewReader(`["util"]`))
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFilename), []byte("{"), 0o644))
	_, err = Load(dir)
	assert.ErrorContains(t, err, IndexFilename)
}

func TestSaveReportsErrors(t *testing.T) {
	idx := &Index{}
	idx.SetDep("util", "../util")
	assert.Error(t, idx.Save(filepath.Join(t.TempDir(), "missing")))

	dir := t.TempDir()
	require.NoError(t, idx.Save(dir))
	data, err := os.ReadFile(filepath.Join(dir, IndexFilename))
	require.NoError(t, err)
	assert.JSONEq(t, `{"util": "../util"}`, string(data))
}
