package builder

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/erlake-build/erlake/internal/msg"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

var depShortcuts = map[string]string{
	"gh:": "https://github.com/",
	"gl:": "https://gitlab.com/",
	"bb:": "https://bitbucket.org/",
	"sr:": "https://sr.ht/",
	"cb:": "https://codeberg.org/",
}

const (
	gitPrefix = "git:"
	// IndexSource marks a dependency whose source is looked up in the index
	IndexSource = "*"
)

var (
	errIllegalDep      = errors.New("empty or illegal dependency string")
	errArchiveNotValid = errors.New("archive dependencies are not supported, use a git: source")
)

// remoteURL returns the git URL of a remote dependency source, or "" for a local path
func remoteURL(source string) (string, error) {
	if source == "" {
		return "", errIllegalDep
	}

	// git:https://github.com/someone/something.git
	if rest, ok := strings.CutPrefix(source, gitPrefix); ok {
		return rest, nil
	}

	// gh:someone/something
	for shortcut, base := range depShortcuts {
		if rest, ok := strings.CutPrefix(source, shortcut); ok {
			return base + rest, nil
		}
	}

	if isURL(source) {
		return "", errArchiveNotValid
	}
	return "", nil
}

func isURL(maybeURL string) bool {
	u, err := url.Parse(maybeURL)
	return err == nil && u.Scheme != "" && u.Host != ""
}

type gitURL struct {
	cleanURL    string
	branch      string
	commitOrTag string
}

// someone/something@master#v0.1.0
// someone/something@feature-branch#12345abc
// someone/something#12345abc
func parseGitURL(rawURL string) (res gitURL) {
	base, rev, found := strings.Cut(rawURL, "#")
	if found {
		res.commitOrTag = rev
	}

	res.cleanURL, res.branch, _ = strings.Cut(base, "@")
	if !strings.HasSuffix(res.cleanURL, ".git") {
		res.cleanURL += ".git"
	}
	return
}

// cloneGitRepo clones a git remote into toWhere and checks out the pinned revision, if any
func cloneGitRepo(rawURL, toWhere string) error {
	parsed := parseGitURL(rawURL)

	opts := &git.CloneOptions{
		URL:               parsed.cleanURL,
		Progress:          &msg.IndentWriter{Indent: "    ", W: msg.Out},
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	}
	if parsed.commitOrTag == "" {
		opts.Depth = 1
	}
	if parsed.branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(parsed.branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainClone(toWhere, opts)
	if err != nil {
		return err
	}
	if parsed.commitOrTag == "" {
		return nil
	}

	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("could not get worktree: %w", err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(parsed.commitOrTag))
	if err != nil {
		return fmt.Errorf("could not resolve revision `%s`: %w", parsed.commitOrTag, err)
	}
	if err := w.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fmt.Errorf("failed to checkout `%s`: %w", parsed.commitOrTag, err)
	}
	return nil
}

// fetchDependency makes a remote dependency available in dest. An existing
// checkout is reused as is.
func fetchDependency(name, gitSource, dest string) error {
	if stat, err := os.Stat(filepath.Join(dest, ManifestFilename)); err == nil && !stat.IsDir() {
		return nil
	}
	msg.Step("Fetching", "%s from %s", name, gitSource)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := cloneGitRepo(gitSource, dest); err != nil {
		_ = os.RemoveAll(dest)
		return fmt.Errorf("failed to fetch dependency %q: %w", name, err)
	}
	return nil
}
