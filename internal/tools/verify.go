package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/format"
)

const (
	verifyDefaultTimeout = 10 * time.Second
	verifyMaxTimeout     = 60 * time.Second
	verifyMaxBody        = 1 << 20
)

// VerifyURLTool fetches a URL and optionally checks the body for an expected
// substring. Intended for checking a locally served build.
type VerifyURLTool struct {
	client *http.Client
}

// NewVerifyURLTool creates a VerifyURLTool.
func NewVerifyURLTool() *VerifyURLTool {
	return &VerifyURLTool{client: &http.Client{}}
}

func (t *VerifyURLTool) Name() string { return "verify_url" }

func (t *VerifyURLTool) Description() string {
	return "Fetches a URL with GET and reports the status code. Optionally verifies that the response body contains an expected string."
}

func (t *VerifyURLTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"url":              {Type: genai.TypeString, Description: "URL to fetch (http or https)"},
				"expected_content": {Type: genai.TypeString, Description: "Optional substring the body must contain"},
				"timeout":          {Type: genai.TypeInteger, Description: "Request timeout in seconds (default 10, max 60)"},
			},
			Required: []string{"url"},
		},
	}
}

func (t *VerifyURLTool) Validate(args map[string]any) error {
	url, ok := GetString(args, "url")
	if !ok || url == "" {
		return NewValidationError("url", "is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return NewValidationError("url", "must start with http:// or https://")
	}
	if timeout, ok := GetInt(args, "timeout"); ok && timeout <= 0 {
		return NewValidationError("timeout", "must be positive")
	}
	return nil
}

func (t *VerifyURLTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	url, _ := GetString(args, "url")
	expected, _ := GetString(args, "expected_content")

	timeout := verifyDefaultTimeout
	if secs, ok := GetInt(args, "timeout"); ok {
		timeout = time.Duration(secs) * time.Second
		if timeout > verifyMaxTimeout {
			timeout = verifyMaxTimeout
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("invalid URL: %s", err))
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("request failed: %s", err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, verifyMaxBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewErrorResultWithData(
			fmt.Sprintf("GET %s returned HTTP %d", url, resp.StatusCode),
			map[string]any{"status": resp.StatusCode},
		)
	}
	if expected != "" && !strings.Contains(string(body), expected) {
		return NewErrorResultWithData(
			fmt.Sprintf("GET %s returned HTTP %d but the body does not contain %q. Body starts with:\n%s",
				url, resp.StatusCode, expected, format.Truncate(string(body), format.MaxErrorChars)),
			map[string]any{"status": resp.StatusCode},
		)
	}

	msg := fmt.Sprintf("GET %s returned HTTP %d (%d bytes)", url, resp.StatusCode, len(body))
	if expected != "" {
		msg += fmt.Sprintf("; body contains %q", expected)
	}
	return NewSuccessResultWithData(msg, map[string]any{"status": resp.StatusCode})
}
