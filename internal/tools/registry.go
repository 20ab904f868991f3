package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/rustyclaw/rustyclaw/internal/providers"
)

// HookDecision is returned by a BeforeToolCallHook. A zero value lets the
// call proceed unchanged.
type HookDecision struct {
	Cancelled bool
	Reason    string
	Arguments map[string]interface{} // non-nil replaces the call's arguments
}

// BeforeToolCallHook observes or mutates a tool call before it executes.
// Hooks run in registration order; the first to cancel wins and later
// hooks don't run.
type BeforeToolCallHook func(ctx context.Context, toolName string, args map[string]interface{}) HookDecision

// AfterToolCallHook observes a completed tool call. It cannot affect the
// result already delivered to the model.
type AfterToolCallHook func(ctx context.Context, toolName string, args map[string]interface{}, result *Result)

// Tool is the executable surface every builtin tool, MCP bridge tool, and
// custom tool implements. Execute never returns a Go error directly —
// failures are reported through Result so a policy-rejected or
// misbehaving tool call can be surfaced to the LLM as tool-result text
// rather than aborting the run.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Registry is the name → Tool map the policy pipeline filters and the
// agent loop dispatches against. Registration happens at startup and
// whenever an MCP server connects/disconnects or a custom tool is
// added; callers that need a stable view for one turn should snapshot
// via List before iterating.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	beforeHooks []BeforeToolCallHook
	afterHooks  []AfterToolCallHook
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// RegisterBeforeHook adds a before_tool_call hook, run on every call
// through ExecuteWithContext in registration order.
func (r *Registry) RegisterBeforeHook(h BeforeToolCallHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeHooks = append(r.beforeHooks, h)
}

// RegisterAfterHook adds an after_tool_call hook, run on every completed
// call through ExecuteWithContext in registration order.
func (r *Registry) RegisterAfterHook(h AfterToolCallHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterHooks = append(r.afterHooks, h)
}

// ExecuteWithContext runs the invocation-time half of the policy pipeline
// around a single tool call: it injects the per-call context values every
// tool reads via context_keys.go, runs before_tool_call hooks (any of
// which can cancel or rewrite args), calls the tool body, then runs
// after_tool_call hooks. Sandbox enforcement and the allow/deny/profile
// gates are applied earlier — at tool-definition filter time by
// PolicyEngine.FilterTools,
// and per-call inside each filesystem/exec tool body — so a tool name the
// model was never offered, or a path outside the workspace, is rejected
// regardless of whether this pipeline runs.
func (r *Registry) ExecuteWithContext(
	ctx context.Context,
	name string,
	args map[string]interface{},
	channel, chatID, peerKind, sessionKey string,
	asyncCB AsyncCallback,
) *Result {
	tool, ok := r.Get(name)
	if !ok {
		return ErrorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	ctx = WithToolChannel(ctx, channel)
	ctx = WithToolChatID(ctx, chatID)
	ctx = WithToolPeerKind(ctx, peerKind)
	ctx = WithToolSandboxKey(ctx, sessionKey)
	if asyncCB != nil {
		ctx = WithToolAsyncCB(ctx, asyncCB)
	}

	r.mu.RLock()
	before := append([]BeforeToolCallHook(nil), r.beforeHooks...)
	after := append([]AfterToolCallHook(nil), r.afterHooks...)
	r.mu.RUnlock()

	for _, hook := range before {
		decision := hook(ctx, name, args)
		if decision.Cancelled {
			return ErrorResult(fmt.Sprintf("tool call blocked: %s", decision.Reason))
		}
		if decision.Arguments != nil {
			args = decision.Arguments
		}
	}

	result := tool.Execute(ctx, args)

	for _, hook := range after {
		hook(ctx, name, args, result)
	}

	return result
}

// Register adds or replaces a tool under its own Name().
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Unregister removes a tool. Safe to call on a name that isn't present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the names of every registered tool.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// ToProviderDef converts a Tool into the wire shape a provider's
// tool-use API expects.
func ToProviderDef(t Tool) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}
