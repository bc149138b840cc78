// Package agent runs the orchestration loop: request one action from the
// model, dispatch it through the tool set, fold the result into execution
// state, repeat until done, fatal error or budget exhaustion.
package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/audit"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/config"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/llm"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/logging"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/progress"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/security"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/state"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/tools"
)

// defaultGoal is used when the caller supplies no goal text. A missing goal
// is a fallback, not an error.
const defaultGoal = "Inspect the project, fix any build errors, and commit the result."

// ActionSource produces the next model action for a transcript. Satisfied by
// llm.Client and by scripted fakes in tests.
type ActionSource interface {
	Next(ctx context.Context, messages []llm.Message) (llm.Action, error)
	Model() string
}

// Agent owns one run: the tool registry, the transcript, the execution state
// and the dispatcher.
type Agent struct {
	cfg        *config.Config
	client     ActionSource
	registry   *tools.Registry
	dispatcher *dispatcher
	backup     *tools.BackupManager
	emitter    *progress.Emitter
	auditLog   *audit.Log
	state      *state.RunState
	sessionID  string
	workDir    string
	messages   []llm.Message
}

// New assembles an Agent for the project directory. The registry is populated
// with the full tool catalog, all confined to workDir.
func New(cfg *config.Config, client ActionSource, workDir string, progressOut io.Writer) (*Agent, error) {
	validator := security.NewPathValidator(workDir)

	git := tools.NewGit(tools.GitOptions{
		WorkDir:       workDir,
		Token:         cfg.Git.Token,
		PrimaryBranch: cfg.Git.PrimaryBranch,
		AuthorName:    cfg.Git.AuthorName,
		AuthorEmail:   cfg.Git.AuthorEmail,
		APIBaseURL:    cfg.Git.APIBaseURL,
		Timeout:       cfg.Tools.GitTimeout,
	})
	backup := tools.NewBackupManager(git)

	runState := state.New(cfg.Loop.MaxIterations)
	registry := tools.NewRegistry()

	catalog := []tools.Tool{
		tools.NewWriteFileTool(validator, runState.AddChangedFile),
		tools.NewReadFileTool(validator),
		tools.NewListFilesTool(validator, cfg.Tools.MaxSearchHits),
		tools.NewSearchFilesTool(validator, cfg.Tools.MaxSearchHits),
		tools.NewGitCloneTool(git, validator),
		tools.NewGitAddTool(git),
		tools.NewGitCommitTool(git),
		tools.NewGitLogTool(git),
		tools.NewGitDiffTool(git),
		tools.NewGitPushTool(git),
		tools.NewGitCreatePRTool(git),
		tools.NewGitBackupTool(backup),
		tools.NewGitRestoreTool(backup),
		tools.NewGitClearBackupTool(backup),
		tools.NewNpmInstallTool(workDir, cfg.Tools.InstallTimeout),
		tools.NewRunBuildTool(workDir, cfg.Tools.BuildTimeout),
		tools.NewRunLintTool(workDir, cfg.Tools.BuildTimeout),
		tools.NewCheckBuildOutputTool(workDir),
		tools.NewRunCommandTool(workDir, cfg.Tools.CommandTimeout),
		tools.NewVerifyURLTool(),
	}
	for _, tool := range catalog {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", tool.Name(), err)
		}
	}

	var auditLog *audit.Log
	if cfg.Audit.Enabled {
		path := cfg.Audit.Path
		if path == "" {
			path = filepath.Join(workDir, ".autoland", "audit.db")
		}
		var err error
		auditLog, err = audit.Open(path)
		if err != nil {
			// Auditing is accountability, not control flow.
			logging.Warn("audit log unavailable", "error", err)
			auditLog = nil
		}
	}

	sessionID := uuid.NewString()
	return &Agent{
		cfg:      cfg,
		client:   client,
		registry: registry,
		dispatcher: &dispatcher{
			registry:  registry,
			backup:    backup,
			redactor:  security.NewSecretRedactor(),
			auditLog:  auditLog,
			sessionID: sessionID,
		},
		backup:    backup,
		emitter:   progress.New(progressOut),
		auditLog:  auditLog,
		state:     runState,
		sessionID: sessionID,
		workDir:   workDir,
	}, nil
}

// State exposes the execution state for the host's final reporting.
func (a *Agent) State() *state.RunState { return a.state }

// Run executes the loop to completion and returns the final report text. The
// report is produced on every exit path, normal or abnormal.
func (a *Agent) Run(ctx context.Context, goal string) string {
	a.init(ctx, goal)

	a.emitter.Phase("run")
	for {
		if a.state.Done() {
			break
		}
		if !a.state.NextIteration() {
			a.state.RecordError(fmt.Sprintf("iteration budget of %d exhausted", a.state.MaxIterations()))
			logging.Warn("iteration budget exhausted", "max", a.state.MaxIterations())
			break
		}
		a.emitter.Iteration(a.state.Iteration(), a.state.MaxIterations())

		action, err := a.client.Next(ctx, a.messages)
		if err != nil {
			// Protocol and exhausted-transport errors are fatal: the loop
			// terminates rather than guessing an action.
			a.state.RecordError(fmt.Sprintf("model call failed: %v", err))
			logging.Error("model call failed", "error", err)
			break
		}

		switch {
		case action.Done:
			a.state.MarkDone(action.Result)
		case len(action.Plan) > 0:
			a.handlePlan(action)
		default:
			a.handleTool(ctx, action)
		}

		if every := a.cfg.Loop.SummaryEvery; every > 0 && a.state.Iteration()%every == 0 {
			summary := a.state.Summary()
			a.messages = append(a.messages, llm.Message{Role: llm.RoleUser, Content: summary})
			a.emitter.Summary(summary)
		}
	}

	a.teardown()
	report := a.state.FinalReport()
	a.emitter.Done(a.state.Done(), a.state.Result())
	return report
}

// init seeds the transcript and prepares the project directory.
func (a *Agent) init(ctx context.Context, goal string) {
	a.emitter.Phase("init")

	goal = strings.TrimSpace(goal)
	if goal == "" {
		goal = defaultGoal
		logging.Info("no goal supplied, using default")
	}
	a.state.SetGoal(goal)

	a.messages = []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(a.registry)},
		{Role: llm.RoleUser, Content: "Goal: " + goal},
	}

	// An existing node project gets its dependencies installed up front.
	// Failure is logged and ignored: a later build will surface the same
	// problem authoritatively.
	if a.looksLikeNodeProject() {
		a.emitter.ToolStart("npm_install")
		result := a.dispatcher.Dispatch(ctx, a.state, "npm_install", map[string]any{})
		a.emitter.ToolEnd("npm_install", result.Success, resultDetail(result))
		if !result.Success {
			logging.Warn("proactive install failed", "error", result.Error)
		}
	}

	logging.Info("run initialized",
		"session", a.sessionID,
		"model", a.client.Model(),
		"goal", goal,
		"maxIterations", a.state.MaxIterations())
}

func (a *Agent) looksLikeNodeProject() bool {
	_, err := os.Stat(filepath.Join(a.workDir, "package.json"))
	return err == nil
}

// handlePlan records the plan and instructs the model to start executing it.
// No tool is dispatched this iteration.
func (a *Agent) handlePlan(action llm.Action) {
	a.state.SetPlan(action.Plan)
	a.emitter.Plan(action.Plan)

	planJSON := "Plan recorded:\n"
	for i, step := range action.Plan {
		planJSON += fmt.Sprintf("%d. %s\n", i+1, step)
	}
	a.messages = append(a.messages,
		llm.Message{Role: llm.RoleAssistant, Content: planJSON},
		llm.Message{Role: llm.RoleUser, Content: "Plan accepted. Execute it step by step, one tool call per response."},
	)
}

// handleTool dispatches one tool action and feeds the result back. A failed
// result increments the repair counter and never ends the loop.
func (a *Agent) handleTool(ctx context.Context, action llm.Action) {
	a.emitter.ToolStart(action.Tool)
	result := a.dispatcher.Dispatch(ctx, a.state, action.Tool, action.Args)

	failed := Failed(result)
	a.emitter.ToolEnd(action.Tool, !failed, resultDetail(result))
	if failed {
		a.state.IncrRepairs()
		a.state.RecordError(fmt.Sprintf("%s: %s", action.Tool, result.Error))
		a.emitter.Repair(a.state.Repairs())
	} else {
		a.state.AdvancePlanStep()
	}

	a.messages = append(a.messages,
		llm.Message{Role: llm.RoleAssistant, Content: formatToolCall(action)},
		llm.Message{Role: llm.RoleUser, Content: formatToolResult(action.Tool, result)},
	)
}

// teardown releases ancillary resources started during the run.
func (a *Agent) teardown() {
	if err := a.auditLog.Close(); err != nil {
		logging.Warn("audit close failed", "error", err)
	}
}

func resultDetail(result tools.ToolResult) string {
	if result.Error != "" {
		return result.Error
	}
	return result.Content
}
