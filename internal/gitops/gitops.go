// Package gitops extracts review input from a repository: unified
// diffs of pending changes, changed-file listings, and a plain-text
// snapshot fallback for trees without usable history.
//
// Porcelain diff output comes from the git binary; repository
// detection and untracked-file enumeration go through go-git so a
// corrupt or absent .git directory is caught before any subprocess
// runs.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

var ignoredDirs = map[string]bool{
	".git":            true,
	".venv":           true,
	"venv":            true,
	"__pycache__":     true,
	"deepreview_runs": true,
}

// DefaultExtensions limits snapshots to Python sources.
var DefaultExtensions = []string{".py"}

// Client wraps one opened repository.
type Client struct {
	logger  *zap.Logger
	repoDir string
	repo    *git.Repository
}

// Open validates that path belongs to a git repository and returns a
// client rooted at its working tree.
func Open(logger *zap.Logger, path string) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("resolving worktree: %w", err)
	}
	return &Client{logger: logger, repoDir: worktree.Filesystem.Root(), repo: repo}, nil
}

// RootDir returns the working tree root.
func (c *Client) RootDir() string { return c.repoDir }

// Diff assembles the full pending-change view: an optional
// target...HEAD comparison, staged changes, unstaged changes, and the
// content of untracked files. Sections that fail are skipped with a
// log line rather than failing the audit.
func (c *Client) Diff(ctx context.Context, includePaths []string, diffTarget string) string {
	include := normalizePaths(includePaths)
	pathArgs := []string{}
	if len(include) > 0 {
		pathArgs = append([]string{"--"}, include...)
	}

	var sections []string
	appendSection := func(header, body string) {
		if strings.TrimSpace(body) != "" {
			sections = append(sections, header+"\n"+body)
		}
	}

	if target := strings.TrimSpace(diffTarget); target != "" {
		comparison, err := c.runGit(ctx, append([]string{"diff", target + "...HEAD"}, pathArgs...)...)
		if err != nil {
			c.logger.Warn("Diff against target failed.", zap.String("target", target), zap.Error(err))
		} else {
			appendSection(fmt.Sprintf("--- Comparison: %s...HEAD ---", target), comparison)
		}
	}

	if staged, err := c.runGit(ctx, append([]string{"diff", "--staged"}, pathArgs...)...); err == nil {
		appendSection("--- Staged Changes ---", staged)
	} else {
		c.logger.Debug("Staged diff failed.", zap.Error(err))
	}

	if unstaged, err := c.runGit(ctx, append([]string{"diff"}, pathArgs...)...); err == nil {
		appendSection("--- Unstaged Changes ---", unstaged)
	} else {
		c.logger.Debug("Unstaged diff failed.", zap.Error(err))
	}

	for _, file := range c.untrackedFiles() {
		if len(include) > 0 && !matchesInclude(file, include) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(c.repoDir, filepath.FromSlash(file)))
		if err != nil {
			continue
		}
		appendSection(fmt.Sprintf("--- Untracked File: %s ---", file), string(content))
	}

	return strings.TrimSpace(strings.Join(sections, "\n\n"))
}

// ChangedFiles lists slash-normalized paths touched relative to
// diffTarget, falling back to the previous commit when the target is
// unusable.
func (c *Client) ChangedFiles(ctx context.Context, diffTarget string) []string {
	args := []string{"diff", "--name-only"}
	if target := strings.TrimSpace(diffTarget); target != "" {
		args = append(args, target)
	}
	out, err := c.runGit(ctx, args...)
	if err != nil {
		out, err = c.runGit(ctx, "diff", "--name-only", "HEAD~1")
		if err != nil {
			return nil
		}
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, filepath.ToSlash(line))
		}
	}
	return names
}

func (c *Client) untrackedFiles() []string {
	worktree, err := c.repo.Worktree()
	if err != nil {
		return nil
	}
	status, err := worktree.Status()
	if err != nil {
		c.logger.Debug("Worktree status failed.", zap.Error(err))
		return nil
	}
	var files []string
	for path, entry := range status {
		if entry.Worktree == git.Untracked {
			files = append(files, filepath.ToSlash(path))
		}
	}
	return files
}

func (c *Client) runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.repoDir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

// Snapshot builds a plain-text view of matching files under rootDir
// for repositories where no diff is available.
func Snapshot(logger *zap.Logger, rootDir string, extensions, includePaths []string) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	include := normalizePaths(includePaths)

	var sections []string
	filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != rootDir && ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasExtension(d.Name(), extensions) {
			return nil
		}
		rel, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if len(include) > 0 && !matchesInclude(rel, include) {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		sections = append(sections, fmt.Sprintf("--- File: %s ---\n%s", rel, content))
		return nil
	})

	snapshot := strings.TrimSpace(strings.Join(sections, "\n\n"))
	if snapshot == "" {
		logger.Warn("No text files found for snapshot.", zap.String("root", rootDir))
	} else {
		logger.Info("Built project snapshot.", zap.Int("files", len(sections)))
	}
	return snapshot
}

func hasExtension(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func normalizePaths(paths []string) []string {
	var normalized []string
	for _, p := range paths {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return normalized
}

// matchesInclude reports whether path equals an include entry or
// lives under an include directory.
func matchesInclude(path string, include []string) bool {
	for _, inc := range include {
		if path == inc || strings.HasPrefix(path, strings.TrimRight(inc, "/")+"/") {
			return true
		}
	}
	return false
}
