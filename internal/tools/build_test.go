package tools

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExtractErrorLines(t *testing.T) {
	output := strings.Join([]string{
		"> site@1.0.0 build",
		"> next build",
		"info  - Creating an optimized production build",
		"Error: Cannot find module './missing'",
		"    at Object.<anonymous> (/app/src/index.js:3:1)",
		"Build failed because of webpack errors",
		"done in 2.1s",
	}, "\n")

	lines := extractErrorLines(output)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "Cannot find module") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "webpack errors") {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestExtractErrorLinesCapped(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("error: something broke\n")
	}
	if got := len(extractErrorLines(b.String())); got != maxErrorLines {
		t.Errorf("got %d lines, want %d", got, maxErrorLines)
	}
}

func TestExtractErrorLinesNone(t *testing.T) {
	if lines := extractErrorLines("all good\ncompiled successfully\n"); len(lines) != 0 {
		t.Errorf("expected no lines, got %v", lines)
	}
}

func TestCheckBuildOutput(t *testing.T) {
	dir := t.TempDir()
	tool := NewCheckBuildOutputTool(dir)
	ctx := context.Background()

	res := tool.Execute(ctx, nil)
	if res.Success {
		t.Fatal("expected failure with no output directory")
	}

	if err := os.MkdirAll(filepath.Join(dir, "dist"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	res = tool.Execute(ctx, nil)
	if res.Success {
		t.Fatal("empty dist/ should not count as build output")
	}

	if err := os.WriteFile(filepath.Join(dir, "dist", "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	res = tool.Execute(ctx, nil)
	if !res.Success {
		t.Fatalf("expected success with populated dist/: %s", res.Error)
	}
	if res.Data["dir"] != "dist" {
		t.Errorf("dir = %v, want dist", res.Data["dir"])
	}
}

func TestRunCommandGateAndExecution(t *testing.T) {
	tool := NewRunCommandTool(t.TempDir(), 30*time.Second)

	if err := tool.Validate(map[string]any{"command": "python3"}); err == nil {
		t.Error("python3 is not allow-listed and must be rejected")
	}
	if err := tool.Validate(map[string]any{"command": "rm", "args": []any{"-rf", "/"}}); err == nil {
		t.Error("rm must be rejected with a deny reason")
	}

	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not installed")
	}
	res := tool.Execute(context.Background(), map[string]any{
		"command": "echo",
		"args":    []any{"hello"},
	})
	if !res.Success {
		t.Fatalf("echo failed: %s", res.Error)
	}
	if !strings.Contains(res.Content, "hello") {
		t.Errorf("output = %q", res.Content)
	}
	if code, ok := res.ExitCode(); !ok || code != 0 {
		t.Errorf("exitCode = %d, %v", code, ok)
	}
}

func TestRunCommandReportsNonZeroExit(t *testing.T) {
	if _, err := exec.LookPath("ls"); err != nil {
		t.Skip("ls not installed")
	}
	tool := NewRunCommandTool(t.TempDir(), 30*time.Second)
	res := tool.Execute(context.Background(), map[string]any{
		"command": "ls",
		"args":    []any{"definitely-not-here"},
	})
	if res.Success {
		t.Fatal("ls of a missing path should fail")
	}
	if code, ok := res.ExitCode(); !ok || code == 0 {
		t.Errorf("expected non-zero exit code, got %d, %v", code, ok)
	}
}
