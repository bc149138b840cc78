package tools

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// initTestRepo creates a git repository with one commit and returns its Git
// runner. Tests are skipped when git is not installed.
func initTestRepo(t *testing.T) (*Git, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	git := NewGit(GitOptions{WorkDir: dir})
	ctx := context.Background()

	runOrFail := func(args ...string) {
		t.Helper()
		out, code, err := git.run(ctx, args...)
		if err != nil || code != 0 {
			t.Fatalf("git %v failed (code %d, err %v): %s", args, code, err, out)
		}
	}

	runOrFail("init", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	runOrFail("add", ".")
	runOrFail("commit", "-m", "initial")
	return git, dir
}

func TestBackupRestoreDiscardsChanges(t *testing.T) {
	git, dir := initTestRepo(t)
	ctx := context.Background()
	m := NewBackupManager(git)

	if _, err := m.Backup(ctx); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	// Mutate the tree after the snapshot: modify a tracked file and create an
	// untracked one.
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("broken\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "junk.txt"), []byte("junk\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := m.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "<h1>hi</h1>\n" {
		t.Errorf("tracked file not restored: %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "junk.txt")); !os.IsNotExist(err) {
		t.Error("untracked file should be removed by restore")
	}
	if m.State() != BackupClean {
		t.Error("restore should consume the snapshot")
	}
}

func TestBackupPreservesDirtyTree(t *testing.T) {
	git, dir := initTestRepo(t)
	ctx := context.Background()
	m := NewBackupManager(git)

	// Dirty the tree before the snapshot.
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("work in progress\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := m.Backup(ctx); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	// The working tree must still hold the uncommitted change after backup.
	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "work in progress\n" {
		t.Errorf("backup must not disturb the working tree: %q", data)
	}

	// Break the tree, then restore: the pre-backup dirty state comes back.
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("broken\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := m.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	data, err = os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "work in progress\n" {
		t.Errorf("restore should bring back the backed-up dirty state: %q", data)
	}
}

func TestBackupRejectsSecondOutstanding(t *testing.T) {
	git, _ := initTestRepo(t)
	ctx := context.Background()
	m := NewBackupManager(git)

	if _, err := m.Backup(ctx); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if _, err := m.Backup(ctx); err == nil {
		t.Error("second backup while one is outstanding must fail")
	}
}

func TestRestoreWithoutBackupFails(t *testing.T) {
	git, _ := initTestRepo(t)
	m := NewBackupManager(git)
	if _, err := m.Restore(context.Background()); err == nil {
		t.Error("restore without a snapshot must fail")
	}
}

func TestClearKeepsTreeAndConsumesSnapshot(t *testing.T) {
	git, dir := initTestRepo(t)
	ctx := context.Background()
	m := NewBackupManager(git)

	if _, err := m.Backup(ctx); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("kept\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if m.State() != BackupClean {
		t.Error("clear should consume the snapshot")
	}
	if _, err := os.Stat(filepath.Join(dir, "new.txt")); err != nil {
		t.Error("clear must not touch the working tree")
	}
	if _, err := m.Restore(ctx); err == nil {
		t.Error("restore after clear must fail")
	}
}

func TestCommitNothingToCommitIsSuccess(t *testing.T) {
	git, _ := initTestRepo(t)
	tool := NewGitCommitTool(git)

	res := tool.Execute(context.Background(), map[string]any{"message": "empty"})
	if !res.Success {
		t.Fatalf("clean-tree commit should succeed: %s", res.Error)
	}
	if hash, ok := res.Data["commit"]; !ok || hash != nil {
		t.Errorf("clean-tree commit should carry a null hash, got %v", res.Data)
	}
}

func TestCommitReturnsHash(t *testing.T) {
	git, dir := initTestRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("changed\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tool := NewGitCommitTool(git)
	res := tool.Execute(context.Background(), map[string]any{"message": "update index"})
	if !res.Success {
		t.Fatalf("commit failed: %s", res.Error)
	}
	hash, ok := res.Data["commit"].(string)
	if !ok || len(hash) < 7 {
		t.Errorf("expected a commit hash, got %v", res.Data["commit"])
	}
}
