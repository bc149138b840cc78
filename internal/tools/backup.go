package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/format"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/logging"
)

// BackupState tracks the lifecycle of a working-tree snapshot.
type BackupState int

const (
	// BackupClean means no snapshot is outstanding.
	BackupClean BackupState = iota
	// BackupOutstanding means a snapshot exists and has not been consumed.
	BackupOutstanding
)

const backupLabel = "autoland-backup"

// BackupManager implements the snapshot protocol over git stash. One snapshot
// may be outstanding at a time; it is consumed by either a restore or a clear.
// Clearing keeps the stash entry around for later inspection.
type BackupManager struct {
	git *Git

	mu      sync.Mutex
	state   BackupState
	baseRev string
	stashed bool
}

// NewBackupManager creates a BackupManager.
func NewBackupManager(git *Git) *BackupManager {
	return &BackupManager{git: git}
}

// State reports whether a snapshot is outstanding.
func (m *BackupManager) State() BackupState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Backup records the current HEAD and stashes uncommitted changes (including
// untracked files) when the tree is dirty. Calling it while a snapshot is
// outstanding is a caller error.
func (m *BackupManager) Backup(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == BackupOutstanding {
		return "", fmt.Errorf("a backup is already outstanding; restore or clear it first")
	}

	rev := m.git.head(ctx)
	if rev == "" {
		return "", fmt.Errorf("cannot back up: repository has no commits")
	}

	status, code, err := m.git.run(ctx, "status", "--porcelain")
	if err != nil {
		return "", fmt.Errorf("git status failed: %w", err)
	}
	if code != 0 {
		return "", fmt.Errorf("git status failed: %s", status)
	}

	stashed := false
	if strings.TrimSpace(status) != "" {
		out, code, err := m.git.run(ctx, "stash", "push", "-u", "-m", backupLabel)
		if err != nil {
			return "", fmt.Errorf("git stash failed: %w", err)
		}
		if code != 0 {
			return "", fmt.Errorf("git stash failed: %s", out)
		}
		stashed = true
		// Re-apply immediately so the agent keeps working against the same
		// tree; the stash entry stays as the recoverable snapshot.
		if out, code, err := m.git.run(ctx, "stash", "apply", "stash@{0}"); err != nil || code != 0 {
			return "", fmt.Errorf("failed to re-apply stash after snapshot: %s", out)
		}
	}

	m.state = BackupOutstanding
	m.baseRev = rev
	m.stashed = stashed

	logging.Info("backup created", "rev", shortHash(rev), "stashed", stashed)
	if stashed {
		return fmt.Sprintf("Backed up at %s with uncommitted changes stashed", shortHash(rev)), nil
	}
	return fmt.Sprintf("Backed up at %s (clean tree)", shortHash(rev)), nil
}

// Restore discards everything done since the snapshot: hard-resets to the
// recorded revision, removes untracked files, and re-applies the stashed
// changes so the tree matches the backed-up state exactly.
func (m *BackupManager) Restore(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != BackupOutstanding {
		return "", fmt.Errorf("no backup to restore")
	}

	if out, code, err := m.git.run(ctx, "reset", "--hard", m.baseRev); err != nil || code != 0 {
		return "", fmt.Errorf("git reset failed: %s", out)
	}
	if out, code, err := m.git.run(ctx, "clean", "-fd"); err != nil || code != 0 {
		return "", fmt.Errorf("git clean failed: %s", out)
	}
	if m.stashed {
		if out, code, err := m.git.run(ctx, "stash", "pop"); err != nil || code != 0 {
			return "", fmt.Errorf("git stash pop failed: %s", out)
		}
	}

	rev := m.baseRev
	m.state = BackupClean
	m.baseRev = ""
	m.stashed = false

	logging.Info("backup restored", "rev", shortHash(rev))
	return fmt.Sprintf("Restored working tree to %s", shortHash(rev)), nil
}

// Clear consumes the snapshot without restoring. The stash entry is kept for
// inspection rather than dropped.
func (m *BackupManager) Clear(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != BackupOutstanding {
		return "", fmt.Errorf("no backup to clear")
	}

	rev := m.baseRev
	m.state = BackupClean
	m.baseRev = ""
	m.stashed = false

	logging.Info("backup cleared", "rev", shortHash(rev))
	return fmt.Sprintf("Cleared backup of %s; stash entry kept for inspection", shortHash(rev)), nil
}

// GitBackupTool exposes BackupManager.Backup.
type GitBackupTool struct {
	manager *BackupManager
}

// NewGitBackupTool creates a GitBackupTool.
func NewGitBackupTool(manager *BackupManager) *GitBackupTool {
	return &GitBackupTool{manager: manager}
}

func (t *GitBackupTool) Name() string { return "git_stash_backup" }

func (t *GitBackupTool) Description() string {
	return "Snapshots the working tree (HEAD revision plus uncommitted changes) so it can be restored later. Only one snapshot may be outstanding."
}

func (t *GitBackupTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
	}
}

func (t *GitBackupTool) Validate(args map[string]any) error { return nil }

func (t *GitBackupTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	msg, err := t.manager.Backup(ctx)
	if err != nil {
		return NewErrorResult(format.Truncate(err.Error(), format.MaxErrorChars))
	}
	return NewSuccessResult(msg)
}

// GitRestoreTool exposes BackupManager.Restore.
type GitRestoreTool struct {
	manager *BackupManager
}

// NewGitRestoreTool creates a GitRestoreTool.
func NewGitRestoreTool(manager *BackupManager) *GitRestoreTool {
	return &GitRestoreTool{manager: manager}
}

func (t *GitRestoreTool) Name() string { return "git_restore_backup" }

func (t *GitRestoreTool) Description() string {
	return "Restores the working tree to the outstanding snapshot, discarding every change made since."
}

func (t *GitRestoreTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
	}
}

func (t *GitRestoreTool) Validate(args map[string]any) error { return nil }

func (t *GitRestoreTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	msg, err := t.manager.Restore(ctx)
	if err != nil {
		return NewErrorResult(format.Truncate(err.Error(), format.MaxErrorChars))
	}
	return NewSuccessResult(msg)
}

// GitClearBackupTool exposes BackupManager.Clear.
type GitClearBackupTool struct {
	manager *BackupManager
}

// NewGitClearBackupTool creates a GitClearBackupTool.
func NewGitClearBackupTool(manager *BackupManager) *GitClearBackupTool {
	return &GitClearBackupTool{manager: manager}
}

func (t *GitClearBackupTool) Name() string { return "git_clear_backup" }

func (t *GitClearBackupTool) Description() string {
	return "Marks the outstanding snapshot as no longer needed after changes land. The stash entry is kept for inspection."
}

func (t *GitClearBackupTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
	}
}

func (t *GitClearBackupTool) Validate(args map[string]any) error { return nil }

func (t *GitClearBackupTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	msg, err := t.manager.Clear(ctx)
	if err != nil {
		return NewErrorResult(format.Truncate(err.Error(), format.MaxErrorChars))
	}
	return NewSuccessResult(msg)
}
