// Package tools implements the workspace tool registry and the four
// built-in tools of 4.B: file_read, file_write, file_edit, bash.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsonschemav5 "github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolResult is one tool invocation's outcome. Content is always a string
// per §4.B ("All tool outputs are strings").
type ToolResult struct {
	Content string
	IsError bool
}

// Tool is the common contract every workspace tool implements (4.B).
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, args map[string]any) (*ToolResult, error)
}

// Registry maps tool name to tool object, grounded on
// internal/agent/tool_registry.go's RWMutex-guarded map. Unlike the
// teacher's registry, there is no policy/approval layer: the spec names no
// such concept, and the bash tool's install blocklist is the only
// dispatch-time refusal this system performs.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	validator map[string]*jsonschemav5.Schema
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool), validator: make(map[string]*jsonschemav5.Schema)}
}

// Register adds a tool, compiling its schema once up front via
// santhosh-tekuri/jsonschema so later Execute calls can validate arguments
// before they reach the tool body.
func (r *Registry) Register(t Tool) error {
	compiler := jsonschemav5.NewCompiler()
	schemaBytes := t.Schema()
	if err := compiler.AddResource(t.Name()+".json", bytes.NewReader(schemaBytes)); err != nil {
		return fmt.Errorf("compile schema for %s: %w", t.Name(), err)
	}
	sch, err := compiler.Compile(t.Name() + ".json")
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", t.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
	r.validator[t.Name()] = sch
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Execute validates args against the tool's compiled schema, then executes
// it. Schema violations are reported as a ToolResult error, not a Go error,
// matching §7(b): tool errors are captured as stringified results, never
// as exceptions that terminate the loop.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result *ToolResult, err error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	sch := r.validator[name]
	r.mu.RUnlock()
	if !ok {
		return &ToolResult{Content: fmt.Sprintf("Error: tool %q not found", name), IsError: true}, nil
	}

	if sch != nil {
		if verr := sch.Validate(toInterfaceMap(args)); verr != nil {
			return &ToolResult{Content: fmt.Sprintf("Error: invalid arguments for %s: %v", name, verr), IsError: true}, nil
		}
	}

	// A panicking tool must not crash the scheduler; report it as a failed
	// ToolResult instead, matching the teacher's executor.go last line of
	// defense.
	defer func() {
		if rec := recover(); rec != nil {
			result = &ToolResult{Content: fmt.Sprintf("Error: tool %s panicked: %v", name, rec), IsError: true}
			err = nil
		}
	}()

	return t.Execute(ctx, args)
}

// AsSchemas returns every registered tool's {name, description, schema}
// triple, the shape both model transports consume to advertise tools.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

func (r *Registry) AsSchemas() []ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, ToolSchema{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()})
	}
	return out
}

// GenerateSchema builds a JSON schema from a Go argument struct using
// invopop/jsonschema, rather than hand-built map[string]interface{}
// literals — an enrichment over the teacher's tools (which hand-build
// schemas), wired because the expanded domain stack names invopop as the
// schema-generation library for this component (SPEC_FULL.md §11).
func GenerateSchema(v any) json.RawMessage {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	s := reflector.Reflect(v)
	b, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return b
}

func toInterfaceMap(args map[string]any) any {
	return map[string]any(args)
}
