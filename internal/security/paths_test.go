package security

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestPathValidatorAccepts(t *testing.T) {
	v := NewPathValidator("/proj")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"relative file", "src/a.ts", "/proj/src/a.ts"},
		{"root itself", ".", "/proj"},
		{"absolute inside root", "/proj/pkg/util.go", "/proj/pkg/util.go"},
		{"redundant segments", "src/./sub/../a.ts", "/proj/src/a.ts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.input)
			if err != nil {
				t.Fatalf("Validate(%q) error: %v", tt.input, err)
			}
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("Validate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPathValidatorRejects(t *testing.T) {
	v := NewPathValidator("/proj")

	tests := []struct {
		name   string
		input  string
		reason RejectReason
	}{
		{"parent traversal", "../../etc/passwd", RejectTraversal},
		{"absolute outside", "/etc/passwd", RejectTraversal},
		{"null byte", "src/a\x00.ts", RejectNullByte},
		{"home syntax", "~/secrets", RejectPattern},
		{"bare tilde", "~", RejectPattern},
		{"empty", "", RejectPattern},
		{"escapes via clean", "src/../../other", RejectTraversal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.input)
			if err == nil {
				t.Fatalf("Validate(%q) accepted, want rejection", tt.input)
			}
			var perr *PathError
			if !errors.As(err, &perr) {
				t.Fatalf("Validate(%q) returned %T, want *PathError", tt.input, err)
			}
			if perr.Reason != tt.reason {
				t.Errorf("Validate(%q) reason = %s, want %s", tt.input, perr.Reason, tt.reason)
			}
		})
	}
}

func TestPathValidatorSiblingPrefix(t *testing.T) {
	v := NewPathValidator("/proj")
	if _, err := v.Validate("/proj-other/x"); err == nil {
		t.Fatal("sibling directory sharing the root as a string prefix must be rejected")
	}
	if v.Contains("/proj-other/x") {
		t.Error("Contains must respect the separator boundary")
	}
	if !v.Contains("/proj/x") {
		t.Error("Contains should accept nested paths")
	}
}
