package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/format"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/llm"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/tools"
)

// systemPrompt builds the system instruction: who the agent is, the action
// protocol, and the tool catalog rendered from the registry declarations.
func systemPrompt(registry *tools.Registry) string {
	var b strings.Builder

	b.WriteString(`You are an autonomous coding agent working inside an isolated project directory.
You accomplish the user's goal by modifying files, running builds, and committing the result.

Respond with a single JSON object in exactly one of these three shapes:
  {"plan": ["step 1", "step 2", ...]}                  declare your intended steps
  {"tool": "<name>", "args": {...}}                    invoke one tool
  {"done": true, "result": "<summary of what you did>"} finish the run

Rules:
- Emit exactly one shape per response. Never combine them. Never add prose outside the JSON object.
- Back up the working tree (git_stash_backup) before your first file modification.
- After modifying files, run the build. If it fails, fix the errors or restore the backup.
- Commit only after the build passes. Push to a feature branch, never the primary branch.
- Paths are relative to the project root. You cannot read or write outside it.
- Tool failures come back as data; diagnose and continue, do not give up.

Available tools:
`)

	for _, name := range registry.Names() {
		tool, _ := registry.Get(name)
		fmt.Fprintf(&b, "- %s: %s\n", name, tool.Description())
		decl := tool.Declaration()
		if decl.Parameters != nil && len(decl.Parameters.Properties) > 0 {
			// Deterministic order: the prompt must be byte-identical across
			// runs for temperature-0 decoding.
			names := make([]string, 0, len(decl.Parameters.Properties))
			for pname := range decl.Parameters.Properties {
				names = append(names, pname)
			}
			sort.Strings(names)
			params := make([]string, 0, len(names))
			for _, pname := range names {
				schema := decl.Parameters.Properties[pname]
				params = append(params, fmt.Sprintf("%s (%s)", pname, strings.ToLower(string(schema.Type))))
			}
			fmt.Fprintf(&b, "  args: %s\n", strings.Join(params, ", "))
		}
	}

	return b.String()
}

// formatToolCall echoes the action the model emitted back into the
// transcript, args included, so history reflects what was actually requested.
func formatToolCall(action llm.Action) string {
	payload, err := json.Marshal(map[string]any{
		"tool": action.Tool,
		"args": action.Args,
	})
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"tool": %q}`, action.Tool))
	}
	return format.Truncate(string(payload), format.MaxErrorChars)
}

// formatToolResult renders a tool result for the transcript. The JSON mirrors
// what the tool returned, truncated upstream, so context growth stays bounded.
func formatToolResult(name string, result tools.ToolResult) string {
	payload, err := json.Marshal(result.ToMap())
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"success": %t}`, result.Success))
	}
	return fmt.Sprintf("Result of %s: %s", name, payload)
}
