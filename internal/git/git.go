package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client resolves the project context of a working directory.
// All methods take a path parameter so one client serves any repo.
type Client interface {
	RepoRoot(path string) (string, error)
	CurrentBranch(path string) (string, error)
	GitDir(path string) (string, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) RepoRoot(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--show-toplevel")
}

// CurrentBranch returns the checked-out branch, or the short commit hash
// when HEAD is detached.
func (c *RealClient) CurrentBranch(path string) (string, error) {
	branch, err := gitCmd(path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		// A repo with no commits yet has no HEAD to resolve.
		if b, symErr := gitCmd(path, "symbolic-ref", "--short", "HEAD"); symErr == nil {
			return b, nil
		}
		return "", err
	}
	if branch == "HEAD" {
		return gitCmd(path, "rev-parse", "--short", "HEAD")
	}
	return branch, nil
}

// GitDir returns the absolute path of the repository's git directory. For
// linked worktrees this is the per-worktree directory holding HEAD.
func (c *RealClient) GitDir(path string) (string, error) {
	dir, err := gitCmd(path, "rev-parse", "--git-dir")
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(path, dir)
	}
	return filepath.Clean(dir), nil
}

// Workspace is the project context of a directory inside a git repo.
type Workspace struct {
	Root    string
	Project string
	Branch  string
	GitDir  string
}

// Resolve returns the workspace containing path. The project name is the
// base name of the repository root.
func Resolve(c Client, path string) (*Workspace, error) {
	root, err := c.RepoRoot(path)
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s: %w", path, err)
	}
	branch, err := c.CurrentBranch(root)
	if err != nil {
		return nil, fmt.Errorf("current branch: %w", err)
	}
	gitDir, err := c.GitDir(root)
	if err != nil {
		return nil, fmt.Errorf("git dir: %w", err)
	}
	return &Workspace{
		Root:    root,
		Project: filepath.Base(root),
		Branch:  branch,
		GitDir:  gitDir,
	}, nil
}

// ReadHEAD parses the HEAD file in gitDir without invoking git. It returns
// the branch name, or a 7-character hash when HEAD is detached.
func ReadHEAD(gitDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return "", err
	}
	return ParseHEAD(string(data))
}

// ParseHEAD parses the contents of a .git/HEAD file.
func ParseHEAD(content string) (string, error) {
	content = strings.TrimSpace(content)
	if ref, ok := strings.CutPrefix(content, "ref: "); ok {
		return strings.TrimPrefix(ref, "refs/heads/"), nil
	}
	if len(content) >= 7 {
		return content[:7], nil
	}
	return "", fmt.Errorf("cannot parse HEAD: %q", content)
}
