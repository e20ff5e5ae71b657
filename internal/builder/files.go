package builder

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/erlake-build/erlake/internal/msg"
	"github.com/erlake-build/erlake/internal/project"
)

// expandFiles expands glob patterns. A pattern without glob characters is
// kept as is, even if the file is missing.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pat := range patterns {
		if !strings.ContainsAny(pat, "*?[{") {
			files = append(files, pat)
			continue
		}
		matches, err := doublestar.FilepathGlob(pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", pat, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func copyExtras(extras []project.ExtraSpec) error {
	for _, extra := range extras {
		files, err := expandFiles(extra.Files)
		if err != nil {
			return err
		}
		for _, fn := range files {
			msg.Step("Copying", "extra file %s to %s", fn, extra.To)
			if err := copyFile(fn, filepath.Join(extra.To, filepath.Base(fn))); err != nil {
				return err
			}
		}
	}
	return nil
}

// copyFile copies src to dst, creating dst's directory and keeping the file
// mode. Copying a file onto itself does nothing.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return err
	}
	if dstStat, err := os.Stat(dst); err == nil && os.SameFile(stat, dstStat) {
		msg.Verbose("%s is already in place", dst)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, stat.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

func anyExists(paths []string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// removeAll deletes the given files; missing ones are fine
func removeAll(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
