package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/genai"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/format"
)

// NpmInstallTool installs project dependencies. It prefers a reproducible
// clean install when a lockfile is present.
type NpmInstallTool struct {
	workDir string
	timeout time.Duration
}

// NewNpmInstallTool creates an NpmInstallTool.
func NewNpmInstallTool(workDir string, timeout time.Duration) *NpmInstallTool {
	return &NpmInstallTool{workDir: workDir, timeout: timeout}
}

func (t *NpmInstallTool) Name() string { return "npm_install" }

func (t *NpmInstallTool) Description() string {
	return "Installs node dependencies. Uses 'npm ci' when a package-lock.json exists, 'npm install' otherwise."
}

func (t *NpmInstallTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
	}
}

func (t *NpmInstallTool) Validate(args map[string]any) error { return nil }

func (t *NpmInstallTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	if _, err := os.Stat(filepath.Join(t.workDir, "package.json")); err != nil {
		return NewErrorResult("no package.json in the project root; nothing to install")
	}

	npmArgs := []string{"install", "--prefer-offline", "--no-audit", "--no-fund"}
	mode := "npm install"
	if _, err := os.Stat(filepath.Join(t.workDir, "package-lock.json")); err == nil {
		npmArgs[0] = "ci"
		mode = "npm ci"
	}

	outcome, err := runCommand(ctx, t.workDir, "npm", npmArgs, t.timeout, nil)
	if err != nil {
		return NewErrorResult(err.Error())
	}
	output := format.Truncate(outcome.Output, format.MaxToolOutputChars)
	if outcome.TimedOut {
		return NewErrorResultWithData(
			fmt.Sprintf("%s timed out after %s", mode, t.timeout),
			map[string]any{"exitCode": outcome.ExitCode},
		)
	}
	if outcome.ExitCode != 0 {
		return NewErrorResultWithData(
			fmt.Sprintf("%s failed with code %d:\n%s", mode, outcome.ExitCode, output),
			map[string]any{"exitCode": outcome.ExitCode},
		)
	}
	return NewSuccessResultWithData(
		fmt.Sprintf("Dependencies installed via %s", mode),
		map[string]any{"exitCode": 0},
	)
}
