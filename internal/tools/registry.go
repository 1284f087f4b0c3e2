// Package tools exposes the policy toolbox to the model: employee lookup,
// policy manual search, and approval threshold checks. The set is closed.
// Tool failures that the model can act on (unknown tool, bad arguments,
// missing employee) come back as structured error payloads, not Go errors.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Tool names as the model sees them.
const (
	NameEmployeeLookup = "policy_get_employee_info"
	NamePolicySearch   = "policy_search_manual"
	NameApprovalCheck  = "policy_check_approval_threshold"
)

// Tool represents an executable tool
// Eino tools implement ToolInfo + InvokableRun
type Tool interface {
	Info(ctx context.Context) (*schema.ToolInfo, error)
	InvokableRun(ctx context.Context, args string, opts ...any) (string, error)
}

// Registry manages tools by name
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to registry
func (r *Registry) Register(tool Tool) error {
	info, err := tool.Info(context.Background())
	if err != nil {
		return err
	}
	if info == nil || info.Name == "" {
		return fmt.Errorf("tool info missing name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[info.Name]; exists {
		return fmt.Errorf("tool already registered: %s", info.Name)
	}
	r.tools[info.Name] = tool
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetToolInfos collects the schema for every registered tool, for binding.
func (r *Registry) GetToolInfos(ctx context.Context) ([]*schema.ToolInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]*schema.ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(a, b int) bool { return infos[a].Name < infos[b].Name })
	return infos, nil
}

// Execute dispatches a tool call by name. An unknown tool name produces an
// error payload the model can read, never a Go error.
func (r *Registry) Execute(ctx context.Context, name, args string) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return errorPayload(fmt.Sprintf("unknown tool: %s", name), map[string]any{
			"available_tools": r.Names(),
		}), nil
	}
	return t.InvokableRun(ctx, args)
}

// errorPayload builds the JSON error object returned to the model.
func errorPayload(msg string, extra map[string]any) string {
	payload := map[string]any{"error": msg}
	for k, v := range extra {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, msg)
	}
	return string(raw)
}
