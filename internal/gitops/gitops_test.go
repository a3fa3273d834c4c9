package gitops

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cmds := [][]string{
		{"git", "init"},
		{"git", "config", "user.email", "test@test.com"},
		{"git", "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "cmd %v failed: %s", args, string(out))
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('hello')\n"), 0o644))
	runGitCmd(t, dir, "add", "app.py")
	runGitCmd(t, dir, "commit", "-m", "initial commit")
	return dir
}

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(out))
}

func TestOpenRejectsNonRepository(t *testing.T) {
	_, err := Open(zaptest.NewLogger(t), t.TempDir())
	require.Error(t, err)
}

func TestDiffCollectsUnstagedChanges(t *testing.T) {
	dir := setupRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('changed')\n"), 0o644))

	client, err := Open(zaptest.NewLogger(t), dir)
	require.NoError(t, err)

	diff := client.Diff(context.Background(), nil, "")
	assert.Contains(t, diff, "--- Unstaged Changes ---")
	assert.Contains(t, diff, "print('changed')")
}

func TestDiffCollectsStagedAndUntracked(t *testing.T) {
	dir := setupRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('staged')\n"), 0o644))
	runGitCmd(t, dir, "add", "app.py")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.py"), []byte("print('new')\n"), 0o644))

	client, err := Open(zaptest.NewLogger(t), dir)
	require.NoError(t, err)

	diff := client.Diff(context.Background(), nil, "")
	assert.Contains(t, diff, "--- Staged Changes ---")
	assert.Contains(t, diff, "--- Untracked File: new.py ---")
	assert.Contains(t, diff, "print('new')")
}

func TestDiffHonorsIncludePaths(t *testing.T) {
	dir := setupRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.py"), []byte("print('skip')\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "mod.py"), []byte("print('keep')\n"), 0o644))

	client, err := Open(zaptest.NewLogger(t), dir)
	require.NoError(t, err)

	diff := client.Diff(context.Background(), []string{"pkg"}, "")
	assert.Contains(t, diff, "pkg/mod.py")
	assert.NotContains(t, diff, "ignored.py")
}

func TestChangedFiles(t *testing.T) {
	dir := setupRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('v2')\n"), 0o644))

	client, err := Open(zaptest.NewLogger(t), dir)
	require.NoError(t, err)

	files := client.ChangedFiles(context.Background(), "")
	assert.Equal(t, []string{"app.py"}, files)
}

func TestSnapshotSkipsIgnoredDirsAndExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "__pycache__"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "__pycache__", "cached.py"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print('ok')\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("prose"), 0o644))

	snapshot := Snapshot(zaptest.NewLogger(t), dir, nil, nil)
	assert.Contains(t, snapshot, "--- File: main.py ---")
	assert.NotContains(t, snapshot, "cached.py")
	assert.NotContains(t, snapshot, "prose")
}

func TestSnapshotIncludeFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "a.py"), []byte("a = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("b = 2\n"), 0o644))

	snapshot := Snapshot(zaptest.NewLogger(t), dir, nil, []string{"pkg"})
	assert.Contains(t, snapshot, "pkg/a.py")
	assert.NotContains(t, snapshot, "b.py")
}

func TestMatchesInclude(t *testing.T) {
	include := []string{"src", "tools/cli.py"}
	assert.True(t, matchesInclude("src/app.py", include))
	assert.True(t, matchesInclude("tools/cli.py", include))
	assert.False(t, matchesInclude("srcx/app.py", include))
	assert.False(t, matchesInclude("tools/other.py", include))
}
