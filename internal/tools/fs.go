package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"google.golang.org/genai"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/format"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/security"
)

// skipDirs are never traversed by list/search: version-control metadata and
// dependency trees dwarf the interesting content and must not enter history.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"__pycache__":  true,
}

// WriteFileTool writes content to a file inside the project root, creating
// parent directories as needed.
type WriteFileTool struct {
	validator *security.PathValidator
	// onWrite is invoked with the root-relative path after a successful
	// write, so the loop can track changed files.
	onWrite func(relPath string)
}

// NewWriteFileTool creates a WriteFileTool confined to the validator's root.
func NewWriteFileTool(validator *security.PathValidator, onWrite func(string)) *WriteFileTool {
	return &WriteFileTool{validator: validator, onWrite: onWrite}
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Writes content to a file relative to the project root. Creates the file and any missing parent directories; overwrites existing content."
}

func (t *WriteFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "File path relative to the project root",
				},
				"content": {
					Type:        genai.TypeString,
					Description: "The full content to write",
				},
			},
			Required: []string{"path", "content"},
		},
	}
}

func (t *WriteFileTool) Validate(args map[string]any) error {
	if path, ok := GetString(args, "path"); !ok || path == "" {
		return NewValidationError("path", "is required")
	}
	if _, ok := GetString(args, "content"); !ok {
		return NewValidationError("content", "is required")
	}
	return nil
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	path, _ := GetString(args, "path")
	content, _ := GetString(args, "content")

	validPath, err := t.validator.Validate(path)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("path validation failed: %s", err))
	}

	if err := os.MkdirAll(filepath.Dir(validPath), 0o755); err != nil {
		return NewErrorResult(fmt.Sprintf("error creating directories: %s", err))
	}
	if err := os.WriteFile(validPath, []byte(content), 0o644); err != nil {
		return NewErrorResult(fmt.Sprintf("error writing file: %s", err))
	}

	rel := relToRoot(t.validator, validPath)
	if t.onWrite != nil {
		t.onWrite(rel)
	}

	return NewSuccessResultWithData(
		fmt.Sprintf("Wrote %d bytes to %s", len(content), rel),
		map[string]any{"path": rel, "bytes": len(content)},
	)
}

// ReadFileTool reads a file inside the project root. Large content is
// truncated before it reaches model-facing context.
type ReadFileTool struct {
	validator *security.PathValidator
}

// NewReadFileTool creates a ReadFileTool confined to the validator's root.
func NewReadFileTool(validator *security.PathValidator) *ReadFileTool {
	return &ReadFileTool{validator: validator}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Reads a file relative to the project root and returns its content (truncated when very large) and size."
}

func (t *ReadFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "File path relative to the project root",
				},
			},
			Required: []string{"path"},
		},
	}
}

func (t *ReadFileTool) Validate(args map[string]any) error {
	if path, ok := GetString(args, "path"); !ok || path == "" {
		return NewValidationError("path", "is required")
	}
	return nil
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	path, _ := GetString(args, "path")

	validPath, err := t.validator.Validate(path)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("path validation failed: %s", err))
	}

	data, err := os.ReadFile(validPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewErrorResult(fmt.Sprintf("file not found: %s", path))
		}
		return NewErrorResult(fmt.Sprintf("error reading file: %s", err))
	}

	content := string(data)
	truncated := format.Truncated(content, format.MaxFileContentChars)
	content = format.Truncate(content, format.MaxFileContentChars)

	return NewSuccessResultWithData(content, map[string]any{
		"path":      relToRoot(t.validator, validPath),
		"size":      len(data),
		"truncated": truncated,
	})
}

// ListFilesTool lists directory entries under the project root, optionally
// filtered by a glob pattern.
type ListFilesTool struct {
	validator *security.PathValidator
	maxHits   int
}

// NewListFilesTool creates a ListFilesTool confined to the validator's root.
func NewListFilesTool(validator *security.PathValidator, maxHits int) *ListFilesTool {
	if maxHits <= 0 {
		maxHits = 200
	}
	return &ListFilesTool{validator: validator, maxHits: maxHits}
}

func (t *ListFilesTool) Name() string { return "list_files" }

func (t *ListFilesTool) Description() string {
	return "Lists files under a directory relative to the project root. Supports an optional glob pattern like '**/*.ts'. Skips version-control and dependency directories."
}

func (t *ListFilesTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"dir": {
					Type:        genai.TypeString,
					Description: "Directory relative to the project root (default '.')",
				},
				"pattern": {
					Type:        genai.TypeString,
					Description: "Optional glob pattern matched against relative paths, e.g. '**/*.ts'",
				},
			},
		},
	}
}

func (t *ListFilesTool) Validate(args map[string]any) error {
	if pattern, ok := GetString(args, "pattern"); ok && pattern != "" {
		if !doublestar.ValidatePattern(pattern) {
			return NewValidationError("pattern", "is not a valid glob pattern")
		}
	}
	return nil
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	dir, _ := GetString(args, "dir")
	if dir == "" {
		dir = "."
	}
	pattern, _ := GetString(args, "pattern")

	validDir, err := t.validator.Validate(dir)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("path validation failed: %s", err))
	}
	if info, statErr := os.Stat(validDir); statErr != nil || !info.IsDir() {
		return NewErrorResult(fmt.Sprintf("not a directory: %s", dir))
	}

	var entries []string
	capped := false
	walkErr := filepath.WalkDir(validDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != validDir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(validDir, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, rel); !ok {
				return nil
			}
		}
		if len(entries) >= t.maxHits {
			capped = true
			return fs.SkipAll
		}
		entries = append(entries, rel)
		return nil
	})
	if walkErr != nil {
		return NewErrorResult(fmt.Sprintf("error listing files: %s", walkErr))
	}

	sort.Strings(entries)
	content := strings.Join(entries, "\n")
	if content == "" {
		content = "(no files)"
	}
	if capped {
		content += fmt.Sprintf("\n... [list capped at %d entries]", t.maxHits)
	}
	return NewSuccessResultWithData(content, map[string]any{"count": len(entries)})
}

// SearchFilesTool searches file contents for a literal query string.
type SearchFilesTool struct {
	validator *security.PathValidator
	maxHits   int
}

// NewSearchFilesTool creates a SearchFilesTool confined to the validator's
// root. maxHits caps the number of matching lines returned.
func NewSearchFilesTool(validator *security.PathValidator, maxHits int) *SearchFilesTool {
	if maxHits <= 0 {
		maxHits = 50
	}
	return &SearchFilesTool{validator: validator, maxHits: maxHits}
}

func (t *SearchFilesTool) Name() string { return "search_files" }

func (t *SearchFilesTool) Description() string {
	return "Searches file contents under a directory for a literal query string. Returns matching lines with file and line number; skips version-control and dependency directories."
}

func (t *SearchFilesTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: "Literal text to search for",
				},
				"dir": {
					Type:        genai.TypeString,
					Description: "Directory relative to the project root (default '.')",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *SearchFilesTool) Validate(args map[string]any) error {
	if q, ok := GetString(args, "query"); !ok || q == "" {
		return NewValidationError("query", "is required")
	}
	return nil
}

func (t *SearchFilesTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	query, _ := GetString(args, "query")
	dir, _ := GetString(args, "dir")
	if dir == "" {
		dir = "."
	}

	validDir, err := t.validator.Validate(dir)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("path validation failed: %s", err))
	}

	var hits []string
	capped := false
	walkErr := filepath.WalkDir(validDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != validDir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if capped {
			return fs.SkipAll
		}

		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()

		rel, _ := filepath.Rel(validDir, path)
		rel = filepath.ToSlash(rel)

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if !strings.Contains(line, query) {
				continue
			}
			if len(hits) >= t.maxHits {
				capped = true
				return nil
			}
			hits = append(hits, fmt.Sprintf("%s:%d: %s", rel, lineNo, strings.TrimSpace(line)))
		}
		return nil
	})
	if walkErr != nil {
		return NewErrorResult(fmt.Sprintf("error searching files: %s", walkErr))
	}

	if len(hits) == 0 {
		return NewSuccessResult("No matches found.")
	}
	content := strings.Join(hits, "\n")
	if capped {
		content += fmt.Sprintf("\n... [results capped at %d matches]", t.maxHits)
	}
	return NewSuccessResultWithData(content, map[string]any{"count": len(hits)})
}

// relToRoot renders an absolute validated path relative to the validator's
// root for state tracking and display.
func relToRoot(v *security.PathValidator, abs string) string {
	rel, err := filepath.Rel(v.Root(), abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}
