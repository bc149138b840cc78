package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/format"
)

// buildEnv disables telemetry and interactive prompts for common frontend
// toolchains so build output stays deterministic.
var buildEnv = []string{
	"CI=true",
	"NEXT_TELEMETRY_DISABLED=1",
	"ASTRO_TELEMETRY_DISABLED=1",
	"GATSBY_TELEMETRY_DISABLED=1",
	"NO_COLOR=1",
}

// errorLinePattern picks diagnostic lines out of build output so the model
// sees the failures without the surrounding noise.
var errorLinePattern = regexp.MustCompile(`(?i)(^|\s)(error|failed|cannot|×|✖)(\s|:|$)`)

const maxErrorLines = 40

// extractErrorLines returns up to maxErrorLines diagnostic-looking lines.
func extractErrorLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if errorLinePattern.MatchString(line) {
			lines = append(lines, strings.TrimSpace(line))
			if len(lines) >= maxErrorLines {
				break
			}
		}
	}
	return lines
}

// npmScript runs `npm run <script>` and folds the outcome into a ToolResult.
func npmScript(ctx context.Context, workDir, script string, timeout time.Duration) ToolResult {
	outcome, err := runCommand(ctx, workDir, "npm", []string{"run", script}, timeout, buildEnv)
	if err != nil {
		return NewErrorResult(err.Error())
	}

	output := format.Truncate(outcome.Output, format.MaxToolOutputChars)
	if outcome.TimedOut {
		return NewErrorResultWithData(
			fmt.Sprintf("npm run %s timed out after %s", script, timeout),
			map[string]any{"exitCode": outcome.ExitCode},
		)
	}
	if outcome.ExitCode != 0 {
		msg := fmt.Sprintf("npm run %s failed with code %d", script, outcome.ExitCode)
		if errLines := extractErrorLines(outcome.Output); len(errLines) > 0 {
			msg += ":\n" + format.Truncate(strings.Join(errLines, "\n"), format.MaxErrorChars)
		} else {
			msg += ":\n" + format.Truncate(output, format.MaxErrorChars)
		}
		return NewErrorResultWithData(msg, map[string]any{"exitCode": outcome.ExitCode})
	}
	return NewSuccessResultWithData(
		fmt.Sprintf("npm run %s succeeded:\n%s", script, output),
		map[string]any{"exitCode": 0},
	)
}

// RunBuildTool runs the project's build script. Exit code is authoritative.
type RunBuildTool struct {
	workDir string
	timeout time.Duration
}

// NewRunBuildTool creates a RunBuildTool.
func NewRunBuildTool(workDir string, timeout time.Duration) *RunBuildTool {
	return &RunBuildTool{workDir: workDir, timeout: timeout}
}

func (t *RunBuildTool) Name() string { return "run_build" }

func (t *RunBuildTool) Description() string {
	return "Runs 'npm run build'. A zero exit code means the build passed; on failure the error lines are extracted."
}

func (t *RunBuildTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
	}
}

func (t *RunBuildTool) Validate(args map[string]any) error { return nil }

func (t *RunBuildTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	return npmScript(ctx, t.workDir, "build", t.timeout)
}

// RunLintTool runs the project's lint script.
type RunLintTool struct {
	workDir string
	timeout time.Duration
}

// NewRunLintTool creates a RunLintTool.
func NewRunLintTool(workDir string, timeout time.Duration) *RunLintTool {
	return &RunLintTool{workDir: workDir, timeout: timeout}
}

func (t *RunLintTool) Name() string { return "run_lint" }

func (t *RunLintTool) Description() string {
	return "Runs 'npm run lint'. A zero exit code means the lint passed."
}

func (t *RunLintTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
	}
}

func (t *RunLintTool) Validate(args map[string]any) error { return nil }

func (t *RunLintTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	return npmScript(ctx, t.workDir, "lint", t.timeout)
}

// buildOutputDirs are checked in order by check_build_output.
var buildOutputDirs = []string{"dist", "build", ".next", "out"}

// CheckBuildOutputTool verifies that a build artifact directory exists and is
// non-empty.
type CheckBuildOutputTool struct {
	workDir string
}

// NewCheckBuildOutputTool creates a CheckBuildOutputTool.
func NewCheckBuildOutputTool(workDir string) *CheckBuildOutputTool {
	return &CheckBuildOutputTool{workDir: workDir}
}

func (t *CheckBuildOutputTool) Name() string { return "check_build_output" }

func (t *CheckBuildOutputTool) Description() string {
	return "Checks that a build output directory (dist, build, .next or out) exists and contains files."
}

func (t *CheckBuildOutputTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
	}
}

func (t *CheckBuildOutputTool) Validate(args map[string]any) error { return nil }

func (t *CheckBuildOutputTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	for _, dir := range buildOutputDirs {
		path := filepath.Join(t.workDir, dir)
		entries, err := os.ReadDir(path)
		if err != nil || len(entries) == 0 {
			continue
		}
		return NewSuccessResultWithData(
			fmt.Sprintf("Build output present: %s/ contains %d entries", dir, len(entries)),
			map[string]any{"dir": dir, "entries": len(entries)},
		)
	}
	return NewErrorResult(fmt.Sprintf("no non-empty build output directory found (looked for %s)",
		strings.Join(buildOutputDirs, ", ")))
}
