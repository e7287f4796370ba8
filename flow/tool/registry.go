package tool

import (
	"context"
	"fmt"

	"github.com/gaiaflow/gaiaflow/flow/model"
)

// Registry holds the tools available to an agent.
//
// Registration order is preserved: Specs returns tool specifications in the
// order tools were registered, so prompts and provider payloads stay stable
// across runs. Registry is not safe for concurrent mutation; register all
// tools before use.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Rejects nil tools, empty names, and duplicates.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("duplicate tool name: %s", name)
	}

	r.order = append(r.order, name)
	r.tools[name] = t
	return nil
}

// Get returns the tool with the given name, or false when unknown.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// Specs returns the tool specifications in registration order, ready to
// pass to a ChatModel.
func (r *Registry) Specs() []model.ToolSpec {
	specs := make([]model.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, model.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	return specs
}

// Dispatch executes the tool named in the call with the call's input.
// Unknown tool names return an error naming the tool.
func (r *Registry) Dispatch(ctx context.Context, call model.ToolCall) (string, error) {
	t, ok := r.tools[call.Name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", call.Name)
	}
	return t.Run(ctx, call.Input)
}
