// Package tools implements the fixed catalog of named operations the agent
// may dispatch: file I/O, git operations, build/lint invocations, and URL
// checks. Every tool validates its arguments against a typed schema before
// the body runs, confines paths through the security package, and converts
// every failure into a ToolResult. Nothing here raises past the tool
// boundary.
package tools

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Tool is a named, argument-validated operation with a uniform result
// contract. Declaration describes the parameter schema rendered into the
// model's tool catalog.
type Tool interface {
	Name() string
	Description() string
	Declaration() *genai.FunctionDeclaration
	Validate(args map[string]any) error
	Execute(ctx context.Context, args map[string]any) ToolResult
}

// ToolResult is the uniform result of every tool invocation. Data may carry a
// structured "exitCode" for process-invoking tools, which is authoritative for
// success classification even when Success is optimistic.
type ToolResult struct {
	Success bool
	Content string
	Error   string
	Data    map[string]any
}

// ExitCode returns the structured exit code carried in Data, or -1 when none
// is present.
func (r ToolResult) ExitCode() (int, bool) {
	if r.Data == nil {
		return -1, false
	}
	switch v := r.Data["exitCode"].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return -1, false
}

// ToMap renders the result for history serialization.
func (r ToolResult) ToMap() map[string]any {
	m := map[string]any{
		"success": r.Success,
	}
	if r.Content != "" {
		m["content"] = r.Content
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	for k, v := range r.Data {
		m[k] = v
	}
	return m
}

// NewSuccessResult creates a successful result with content.
func NewSuccessResult(content string) ToolResult {
	return ToolResult{Success: true, Content: content}
}

// NewSuccessResultWithData creates a successful result with structured data.
func NewSuccessResultWithData(content string, data map[string]any) ToolResult {
	return ToolResult{Success: true, Content: content, Data: data}
}

// NewErrorResult creates a failed result. Error text is data for the model,
// not an exception.
func NewErrorResult(errMsg string) ToolResult {
	return ToolResult{Success: false, Error: errMsg}
}

// NewErrorResultWithData creates a failed result carrying structured data,
// typically an exit code.
func NewErrorResultWithData(errMsg string, data map[string]any) ToolResult {
	return ToolResult{Success: false, Error: errMsg, Data: data}
}

// ValidationError describes a malformed argument, caught before the tool body
// runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("argument %q %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// GetString extracts a string argument.
func GetString(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

// GetInt extracts an integer argument, accepting JSON numbers.
func GetInt(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// GetIntDefault extracts an integer argument with a default.
func GetIntDefault(args map[string]any, key string, def int) int {
	if v, ok := GetInt(args, key); ok {
		return v
	}
	return def
}

// GetBoolDefault extracts a boolean argument with a default.
func GetBoolDefault(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// GetStringSlice extracts a string-list argument, accepting JSON arrays.
func GetStringSlice(args map[string]any, key string) ([]string, bool) {
	switch v := args[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
