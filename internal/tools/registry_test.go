package tools

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

type stubTool struct {
	name   string
	result ToolResult
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{Name: s.name, Description: "stub"}
}
func (s *stubTool) Validate(args map[string]any) error { return nil }
func (s *stubTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	return s.result
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubTool{name: "beta"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, ok := r.Get("alpha"); !ok {
		t.Error("expected to find alpha")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("did not expect to find missing")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubTool{name: "alpha"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(&stubTool{name: name}); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}
	names := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestToolResultExitCode(t *testing.T) {
	tests := []struct {
		name   string
		result ToolResult
		want   int
		wantOK bool
	}{
		{"int code", NewSuccessResultWithData("ok", map[string]any{"exitCode": 0}), 0, true},
		{"float code from json", NewErrorResultWithData("fail", map[string]any{"exitCode": float64(2)}), 2, true},
		{"no data", NewSuccessResult("ok"), -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.result.ExitCode()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExitCode() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
