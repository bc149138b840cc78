// Package llm talks to an OpenAI-compatible chat completions endpoint and
// decodes the strict single-action protocol the agent loop runs on.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is one decoded model response. Exactly one of Plan, Tool or Done is
// set; Decode enforces exclusivity.
type Action struct {
	// Plan is a numbered list of intended steps.
	Plan []string
	// Tool names a tool to invoke with Args.
	Tool string
	Args map[string]any
	// Done signals completion; Result is the model's final summary.
	Done   bool
	Result string
}

// Kind renders the action discriminator for logging.
func (a Action) Kind() string {
	switch {
	case a.Done:
		return "done"
	case a.Tool != "":
		return "tool"
	case len(a.Plan) > 0:
		return "plan"
	}
	return "invalid"
}

// ProtocolError means the model's output violated the action protocol. It is
// retryable up to the attempt budget; persistent protocol errors are fatal to
// the run.
type ProtocolError struct {
	Reason string
	Raw    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation: %s", e.Reason)
}

// rawAction mirrors the JSON shape the model is instructed to produce.
type rawAction struct {
	Plan   []string       `json:"plan,omitempty"`
	Tool   string         `json:"tool,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
	Done   *bool          `json:"done,omitempty"`
	Result string         `json:"result,omitempty"`
}

// Decode parses a model response into an Action. The response must be a JSON
// object carrying exactly one of plan, tool or done; anything else is a
// ProtocolError.
func Decode(content string) (Action, error) {
	trimmed := strings.TrimSpace(content)
	// Models wrap JSON in code fences often enough that stripping them is
	// cheaper than re-prompting.
	trimmed = stripFence(trimmed)

	if trimmed == "" {
		return Action{}, &ProtocolError{Reason: "empty response", Raw: content}
	}

	var raw rawAction
	dec := json.NewDecoder(strings.NewReader(trimmed))
	if err := dec.Decode(&raw); err != nil {
		return Action{}, &ProtocolError{Reason: fmt.Sprintf("response is not a JSON object: %v", err), Raw: content}
	}

	var set []string
	if len(raw.Plan) > 0 {
		set = append(set, "plan")
	}
	if raw.Tool != "" {
		set = append(set, "tool")
	}
	if raw.Done != nil && *raw.Done {
		set = append(set, "done")
	}

	switch len(set) {
	case 0:
		return Action{}, &ProtocolError{Reason: "none of plan, tool or done is set", Raw: content}
	case 1:
	default:
		return Action{}, &ProtocolError{
			Reason: fmt.Sprintf("multiple actions set: %s", strings.Join(set, ", ")),
			Raw:    content,
		}
	}

	action := Action{
		Plan:   raw.Plan,
		Tool:   raw.Tool,
		Args:   raw.Args,
		Result: raw.Result,
	}
	if raw.Done != nil {
		action.Done = *raw.Done
	}
	if action.Tool != "" && action.Args == nil {
		action.Args = map[string]any{}
	}
	return action, nil
}

// stripFence removes a surrounding markdown code fence if present.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
