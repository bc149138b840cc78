package tools

import (
	"fmt"
	"sort"

	"google.golang.org/genai"
)

// Registry is the closed set of tool identifiers. Dispatch through Get
// rejects unknown names at the boundary; there is no dynamic lookup beyond
// this map.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are a programming error surfaced at
// startup.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Declarations returns the parameter schemas for all tools in name order,
// used to render the tool catalog into the system instruction.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	names := r.Names()
	out := make([]*genai.FunctionDeclaration, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name].Declaration())
	}
	return out
}
