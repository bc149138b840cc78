// Package security implements the policy layer every tool goes through:
// path confinement to the project root, the command allow-list, and secret
// redaction of model-facing output.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RejectReason classifies why a path was refused, for audit logging.
type RejectReason string

const (
	RejectNullByte  RejectReason = "null_byte"
	RejectTraversal RejectReason = "traversal"
	RejectPattern   RejectReason = "pattern"
)

// PathError is the typed rejection returned by PathValidator. It is data, not
// panic material: filesystem tools receive it as a result and convert it to a
// failed ToolResult.
type PathError struct {
	Path   string
	Reason RejectReason
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q rejected: %s", e.Path, e.Reason)
}

// PathValidator confines filesystem operations to a single root directory.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at root. The root is resolved to
// an absolute cleaned path once; validation never consults the filesystem, so
// non-existent targets are still checked.
func NewPathValidator(root string) *PathValidator {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	return &PathValidator{root: filepath.Clean(abs)}
}

// Root returns the confinement root.
func (v *PathValidator) Root() string {
	return v.root
}

// Validate resolves input relative to the root and returns the absolute path
// if it is the root itself or strictly nested under it. The nesting check ends
// at a separator boundary so a sibling like "/proj-other" never matches
// "/proj". Rejections carry a typed reason and are never panics.
func (v *PathValidator) Validate(input string) (string, error) {
	if strings.ContainsRune(input, 0) {
		return "", &PathError{Path: input, Reason: RejectNullByte}
	}
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", &PathError{Path: input, Reason: RejectPattern}
	}
	// Home-directory syntax is never valid inside the project root.
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") || strings.HasPrefix(trimmed, "~\\") {
		return "", &PathError{Path: input, Reason: RejectPattern}
	}

	resolved := trimmed
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(v.root, resolved)
	}
	resolved = filepath.Clean(resolved)

	if resolved == v.root {
		return resolved, nil
	}
	if strings.HasPrefix(resolved, v.root+string(filepath.Separator)) {
		return resolved, nil
	}
	return "", &PathError{Path: input, Reason: RejectTraversal}
}

// Contains reports whether abs (already absolute and cleaned) is inside the
// root. Used by callers that obtained the path elsewhere, e.g. git output.
func (v *PathValidator) Contains(abs string) bool {
	abs = filepath.Clean(abs)
	return abs == v.root || strings.HasPrefix(abs, v.root+string(filepath.Separator))
}
