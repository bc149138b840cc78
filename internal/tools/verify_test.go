package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerifyURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<html><body>Welcome home</body></html>"))
	}))
	defer server.Close()

	tool := NewVerifyURLTool()
	ctx := context.Background()

	res := tool.Execute(ctx, map[string]any{"url": server.URL})
	if !res.Success {
		t.Fatalf("plain GET failed: %s", res.Error)
	}

	res = tool.Execute(ctx, map[string]any{"url": server.URL, "expected_content": "Welcome home"})
	if !res.Success {
		t.Fatalf("substring check failed: %s", res.Error)
	}

	res = tool.Execute(ctx, map[string]any{"url": server.URL, "expected_content": "not there"})
	if res.Success {
		t.Fatal("missing substring should fail")
	}

	res = tool.Execute(ctx, map[string]any{"url": server.URL + "/missing"})
	if res.Success {
		t.Fatal("404 should fail")
	}
	if status, ok := res.Data["status"].(int); !ok || status != http.StatusNotFound {
		t.Errorf("status = %v", res.Data["status"])
	}
}

func TestVerifyURLValidation(t *testing.T) {
	tool := NewVerifyURLTool()
	if err := tool.Validate(map[string]any{"url": "ftp://host/file"}); err == nil {
		t.Error("non-http scheme must be rejected")
	}
	if err := tool.Validate(map[string]any{}); err == nil {
		t.Error("missing url must be rejected")
	}
}
