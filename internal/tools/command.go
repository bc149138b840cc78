package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/format"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/logging"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/security"
)

// commandOutcome is the raw result of one subprocess invocation.
type commandOutcome struct {
	Output   string
	ExitCode int
	TimedOut bool
}

// runCommand executes a binary with verbatim arguments in workDir. Arguments
// are never passed through a shell. Extra environment entries are appended to
// the inherited environment.
func runCommand(ctx context.Context, workDir, name string, args []string, timeout time.Duration, extraEnv []string) (commandOutcome, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir
	cmd.Env = append(cmd.Environ(), extraEnv...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	outcome := commandOutcome{
		Output:   strings.TrimRight(buf.String(), "\n"),
		TimedOut: ctx.Err() == context.DeadlineExceeded,
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			outcome.ExitCode = exitErr.ExitCode()
		} else if outcome.TimedOut {
			outcome.ExitCode = -1
		} else {
			return outcome, fmt.Errorf("failed to start %s: %w", name, err)
		}
	}

	logging.Debug("command finished",
		"name", name,
		"exitCode", outcome.ExitCode,
		"duration", format.Duration(elapsed))
	return outcome, nil
}

// RunCommandTool executes an allow-listed binary with verbatim arguments.
// The exit code decides success; output is informational.
type RunCommandTool struct {
	workDir string
	timeout time.Duration
}

// NewRunCommandTool creates a RunCommandTool.
func NewRunCommandTool(workDir string, timeout time.Duration) *RunCommandTool {
	return &RunCommandTool{workDir: workDir, timeout: timeout}
}

func (t *RunCommandTool) Name() string { return "run_command" }

func (t *RunCommandTool) Description() string {
	return fmt.Sprintf("Runs an allow-listed command with the given arguments. Allowed: %s.",
		strings.Join(security.AllowedCommands(), ", "))
}

func (t *RunCommandTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"command": {Type: genai.TypeString, Description: "Command name (no shell syntax)"},
				"args": {
					Type:        genai.TypeArray,
					Description: "Arguments passed verbatim to the command",
					Items:       &genai.Schema{Type: genai.TypeString},
				},
			},
			Required: []string{"command"},
		},
	}
}

func (t *RunCommandTool) Validate(args map[string]any) error {
	command, ok := GetString(args, "command")
	if !ok || strings.TrimSpace(command) == "" {
		return NewValidationError("command", "is required")
	}
	if err := security.CheckCommand(command); err != nil {
		return NewValidationError("command", err.Error())
	}
	return nil
}

func (t *RunCommandTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	command, _ := GetString(args, "command")
	cmdArgs, _ := GetStringSlice(args, "args")

	// Validate runs before Execute in the dispatch path, but the gate is
	// authoritative here too.
	if err := security.CheckCommand(command); err != nil {
		return NewErrorResult(err.Error())
	}

	outcome, err := runCommand(ctx, t.workDir, command, cmdArgs, t.timeout, nil)
	if err != nil {
		return NewErrorResult(err.Error())
	}

	output := format.Truncate(outcome.Output, format.MaxToolOutputChars)
	if outcome.TimedOut {
		return NewErrorResultWithData(
			fmt.Sprintf("command %s timed out after %s", command, t.timeout),
			map[string]any{"exitCode": outcome.ExitCode, "output": output},
		)
	}
	if outcome.ExitCode != 0 {
		return NewErrorResultWithData(
			fmt.Sprintf("command %s exited with code %d:\n%s", command, outcome.ExitCode, output),
			map[string]any{"exitCode": outcome.ExitCode},
		)
	}
	if output == "" {
		output = "(no output)"
	}
	return NewSuccessResultWithData(output, map[string]any{"exitCode": 0})
}
