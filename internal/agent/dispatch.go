package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/audit"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/format"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/logging"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/security"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/state"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/tools"
)

// mutatingTools are the tools that change the working tree. The dispatcher
// snapshots the tree before the first one runs in a session.
var mutatingTools = map[string]bool{
	"write_file": true,
	"git_add":    true,
	"git_commit": true,
}

// dispatcher routes one decoded tool action through validation, execution,
// auditing and state bookkeeping. Every failure becomes a failed ToolResult;
// nothing escapes as an error.
type dispatcher struct {
	registry  *tools.Registry
	backup    *tools.BackupManager
	redactor  *security.SecretRedactor
	auditLog  *audit.Log
	sessionID string

	backedUp bool
}

// Dispatch runs the named tool. The returned result is already redacted and
// safe to place in model-facing context.
func (d *dispatcher) Dispatch(ctx context.Context, runState *state.RunState, name string, args map[string]any) tools.ToolResult {
	tool, ok := d.registry.Get(name)
	if !ok {
		return tools.NewErrorResult("unknown tool: " + name)
	}

	if err := tool.Validate(args); err != nil {
		return tools.NewErrorResult("invalid arguments: " + err.Error())
	}

	// Snapshot before the first mutation so a failed build can always roll
	// back. An explicit git_stash_backup from the model supersedes this.
	if mutatingTools[name] && !d.backedUp && d.backup != nil {
		if d.backup.State() == tools.BackupClean {
			if msg, err := d.backup.Backup(ctx); err != nil {
				logging.Warn("automatic backup failed", "error", err)
			} else {
				logging.Info("automatic backup", "detail", msg)
			}
		}
		d.backedUp = true
	}
	if name == "git_stash_backup" {
		d.backedUp = true
	}

	// Each tool bounds its own subprocess or network call, so the dispatcher
	// passes the context through unchanged.
	start := time.Now()
	result := tool.Execute(ctx, args)
	elapsed := time.Since(start)

	d.record(name, args, result, elapsed)
	d.updateState(runState, name, args, result)

	result.Content = d.redactor.Redact(result.Content)
	result.Error = d.redactor.Redact(result.Error)
	return result
}

// Failed classifies a result: explicit failure or a non-zero captured exit
// code. The exit code is authoritative even when success was reported.
func Failed(result tools.ToolResult) bool {
	if !result.Success {
		return true
	}
	if code, ok := result.ExitCode(); ok && code != 0 {
		return true
	}
	return false
}

func (d *dispatcher) record(name string, args map[string]any, result tools.ToolResult, elapsed time.Duration) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		argsJSON = []byte("{}")
	}
	d.auditLog.Record(audit.Entry{
		SessionID: d.sessionID,
		Tool:      name,
		Args:      d.redactor.Redact(format.Truncate(string(argsJSON), format.MaxErrorChars)),
		Success:   !Failed(result),
		Error:     d.redactor.Redact(result.Error),
		Duration:  elapsed,
	})
}

// updateState folds tool outcomes into the execution state through its named
// setters.
func (d *dispatcher) updateState(runState *state.RunState, name string, args map[string]any, result tools.ToolResult) {
	failed := Failed(result)

	switch name {
	// run_lint stays out of the build record: build tracks the last build
	// attempt only.
	case "run_build":
		var buildErrors []string
		if failed && result.Error != "" {
			buildErrors = []string{result.Error}
		}
		runState.SetBuildStatus(!failed, buildErrors, result.Content)
	case "verify_url":
		target, _ := tools.GetString(args, "url")
		runState.SetVerification(!failed, []state.VerificationCheck{{Target: target, Success: !failed}})
	case "git_commit":
		if !failed {
			hash, _ := result.Data["commit"].(string)
			runState.MarkCommitted(hash)
		}
	case "git_push":
		if !failed {
			branch, _ := result.Data["branch"].(string)
			runState.MarkPushed(branch)
		}
	case "git_create_pr":
		if !failed {
			url, _ := result.Data["url"].(string)
			runState.MarkPRCreated(url)
		}
	}
}
