package agent

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/config"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/llm"
)

// scriptedClient returns a fixed sequence of actions, then keeps answering
// done so a runaway loop still terminates.
type scriptedClient struct {
	actions []llm.Action
	errs    []error
	calls   int
}

func (s *scriptedClient) Next(ctx context.Context, messages []llm.Message) (llm.Action, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return llm.Action{}, s.errs[i]
	}
	if i < len(s.actions) {
		return s.actions[i], nil
	}
	return llm.Action{Done: true, Result: "fallback done"}, nil
}

func (s *scriptedClient) Model() string { return "scripted" }

func newTestAgent(t *testing.T, client ActionSource) (*Agent, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Loop.MaxIterations = 10
	cfg.Audit.Enabled = false

	a, err := New(cfg, client, dir, io.Discard)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, dir
}

func TestListFilesScenario(t *testing.T) {
	client := &scriptedClient{actions: []llm.Action{
		{Tool: "list_files", Args: map[string]any{}},
		{Done: true, Result: "Listed the project files."},
	}}
	a, dir := newTestAgent(t, client)
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	report := a.Run(context.Background(), "list files")

	if !a.State().Done() {
		t.Error("run should complete normally")
	}
	if a.State().Result() == "" {
		t.Error("result string should be nonempty")
	}
	if a.State().Iteration() != 2 {
		t.Errorf("iterations = %d, want 2", a.State().Iteration())
	}
	if !strings.Contains(report, "Completed: true") {
		t.Errorf("report should state completion:\n%s", report)
	}
}

func TestFailedToolIncrementsRepairsAndContinues(t *testing.T) {
	client := &scriptedClient{actions: []llm.Action{
		{Tool: "read_file", Args: map[string]any{"path": "missing.txt"}},
		{Done: true, Result: "gave up politely"},
	}}
	a, _ := newTestAgent(t, client)

	a.Run(context.Background(), "read something")

	if a.State().Repairs() != 1 {
		t.Errorf("repairs = %d, want 1", a.State().Repairs())
	}
	if !a.State().Done() {
		t.Error("a tool failure must not end the loop")
	}
	if client.calls != 2 {
		t.Errorf("model calls = %d, want 2", client.calls)
	}
}

func TestPlanRecordedWithoutDispatch(t *testing.T) {
	client := &scriptedClient{actions: []llm.Action{
		{Plan: []string{"look around", "finish"}},
		{Done: true, Result: "ok"},
	}}
	a, _ := newTestAgent(t, client)

	a.Run(context.Background(), "plan first")

	if len(a.State().PlanSteps().Steps) != 2 {
		t.Errorf("plan steps = %v", a.State().PlanSteps().Steps)
	}
	if a.State().Repairs() != 0 {
		t.Error("recording a plan must not touch the repair counter")
	}
}

func TestFatalModelErrorTerminatesLoop(t *testing.T) {
	client := &scriptedClient{
		errs: []error{&llm.ProtocolError{Reason: "not json"}},
	}
	a, _ := newTestAgent(t, client)

	report := a.Run(context.Background(), "anything")

	if a.State().Done() {
		t.Error("a fatal model error must not count as completion")
	}
	if client.calls != 1 {
		t.Errorf("model calls = %d, want 1 (no retry after fatal)", client.calls)
	}
	if !strings.Contains(report, "model call failed") {
		t.Errorf("report should carry the fatal error:\n%s", report)
	}
}

func TestIterationBudgetTerminates(t *testing.T) {
	// Every action is a tool call; the loop must stop at the budget anyway.
	var actions []llm.Action
	for i := 0; i < 50; i++ {
		actions = append(actions, llm.Action{Tool: "list_files", Args: map[string]any{}})
	}
	client := &scriptedClient{actions: actions}
	a, _ := newTestAgent(t, client)

	a.Run(context.Background(), "never finish")

	if a.State().Done() {
		t.Error("budget exhaustion is not completion")
	}
	if a.State().Iteration() != a.State().MaxIterations() {
		t.Errorf("iterations = %d, want %d", a.State().Iteration(), a.State().MaxIterations())
	}
	if client.calls > a.State().MaxIterations() {
		t.Errorf("model called %d times, beyond the budget", client.calls)
	}
}

func TestUnknownToolIsRepairNotFatal(t *testing.T) {
	client := &scriptedClient{actions: []llm.Action{
		{Tool: "rm_rf", Args: map[string]any{}},
		{Done: true, Result: "ok"},
	}}
	a, _ := newTestAgent(t, client)

	a.Run(context.Background(), "try something wild")

	if a.State().Repairs() != 1 {
		t.Errorf("repairs = %d, want 1", a.State().Repairs())
	}
	if !a.State().Done() {
		t.Error("unknown tool must be fed back, not end the run")
	}
}

func TestDefaultGoalFallback(t *testing.T) {
	client := &scriptedClient{actions: []llm.Action{
		{Done: true, Result: "nothing to do"},
	}}
	a, _ := newTestAgent(t, client)

	a.Run(context.Background(), "   ")

	if a.State().Goal() == "" || a.State().Goal() == "   " {
		t.Errorf("goal = %q, want the default fallback", a.State().Goal())
	}
}

func TestSystemPromptDeterministicSortedArgs(t *testing.T) {
	client := &scriptedClient{}
	a, _ := newTestAgent(t, client)

	first := systemPrompt(a.registry)
	for i := 0; i < 5; i++ {
		if got := systemPrompt(a.registry); got != first {
			t.Fatal("system prompt must be byte-identical across renders")
		}
	}
	if !strings.Contains(first, "args: content (string), path (string)") {
		t.Error("write_file args should be listed in sorted order")
	}
}

func TestToolEchoCarriesArgs(t *testing.T) {
	client := &scriptedClient{actions: []llm.Action{
		{Tool: "read_file", Args: map[string]any{"path": "src/index.ts"}},
		{Done: true, Result: "ok"},
	}}
	a, _ := newTestAgent(t, client)

	a.Run(context.Background(), "read the entrypoint")

	var echoed bool
	for _, msg := range a.messages {
		if msg.Role == llm.RoleAssistant &&
			strings.Contains(msg.Content, `"tool":"read_file"`) &&
			strings.Contains(msg.Content, `"path":"src/index.ts"`) {
			echoed = true
		}
	}
	if !echoed {
		t.Error("transcript echo should carry the tool name and its args")
	}
}

func TestLintDoesNotOverwriteBuildRecord(t *testing.T) {
	client := &scriptedClient{actions: []llm.Action{
		{Tool: "run_lint", Args: map[string]any{}},
		{Done: true, Result: "ok"},
	}}
	a, _ := newTestAgent(t, client)

	// Empty directory: the lint invocation fails, but the build record must
	// stay untouched.
	a.Run(context.Background(), "lint only")

	if a.State().Build().Ran {
		t.Error("run_lint must not be recorded as a build attempt")
	}
	if a.State().Repairs() != 1 {
		t.Errorf("repairs = %d, want 1", a.State().Repairs())
	}
}

func TestWriteBuildFailureScenario(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	client := &scriptedClient{actions: []llm.Action{
		{Tool: "write_file", Args: map[string]any{"path": "src/app.ts", "content": "broken {"}},
		{Tool: "run_build", Args: map[string]any{}},
		{Done: true, Result: "done"},
	}}
	a, dir := newTestAgent(t, client)

	// A bare directory: no package.json, so run_build fails with a non-zero
	// exit and the repair counter moves by exactly one for that failure.
	a.Run(context.Background(), "edit and build")

	if got := a.State().ChangedFiles(); len(got) != 1 || got[0] != "src/app.ts" {
		t.Errorf("changed files = %v", got)
	}
	if a.State().Repairs() != 1 {
		t.Errorf("repairs = %d, want 1", a.State().Repairs())
	}
	if a.State().Build().Success {
		t.Error("build status should be failed")
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "app.ts")); err != nil {
		t.Errorf("written file missing: %v", err)
	}
}
