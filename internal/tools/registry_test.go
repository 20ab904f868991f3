package tools

import (
	"context"
	"testing"
)

type stubTool struct {
	name       string
	lastArgs   map[string]interface{}
	lastResult *Result
}

func (s *stubTool) Name() string                          { return s.name }
func (s *stubTool) Description() string                   { return "stub" }
func (s *stubTool) Parameters() map[string]interface{}    { return map[string]interface{}{} }
func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	s.lastArgs = args
	return NewResult("ok")
}

func TestRegistry_ExecuteWithContext_Basic(t *testing.T) {
	r := NewRegistry()
	st := &stubTool{name: "echo"}
	r.Register(st)

	result := r.ExecuteWithContext(context.Background(), "echo", map[string]interface{}{"x": 1}, "telegram", "chat1", "direct", "sess1", nil)
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if result.ForLLM != "ok" {
		t.Errorf("ForLLM = %q, want %q", result.ForLLM, "ok")
	}
}

func TestRegistry_ExecuteWithContext_UnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.ExecuteWithContext(context.Background(), "missing", nil, "", "", "", "", nil)
	if !result.IsError {
		t.Error("expected error for unknown tool")
	}
}

func TestRegistry_ExecuteWithContext_InjectsContextValues(t *testing.T) {
	r := NewRegistry()
	var gotChannel, gotChatID, gotPeerKind, gotSandboxKey string
	r.Register(&funcTool{name: "probe", fn: func(ctx context.Context, args map[string]interface{}) *Result {
		gotChannel = ToolChannelFromCtx(ctx)
		gotChatID = ToolChatIDFromCtx(ctx)
		gotPeerKind = ToolPeerKindFromCtx(ctx)
		gotSandboxKey = ToolSandboxKeyFromCtx(ctx)
		return NewResult("ok")
	}})

	r.ExecuteWithContext(context.Background(), "probe", nil, "discord", "c1", "group", "sess-key", nil)

	if gotChannel != "discord" || gotChatID != "c1" || gotPeerKind != "group" || gotSandboxKey != "sess-key" {
		t.Errorf("context values not injected correctly: channel=%q chatID=%q peerKind=%q sandboxKey=%q",
			gotChannel, gotChatID, gotPeerKind, gotSandboxKey)
	}
}

func TestRegistry_BeforeHook_CanCancel(t *testing.T) {
	r := NewRegistry()
	st := &stubTool{name: "echo"}
	r.Register(st)
	r.RegisterBeforeHook(func(ctx context.Context, toolName string, args map[string]interface{}) HookDecision {
		return HookDecision{Cancelled: true, Reason: "policy test"}
	})

	result := r.ExecuteWithContext(context.Background(), "echo", nil, "", "", "", "", nil)
	if !result.IsError {
		t.Fatal("expected cancelled call to report an error")
	}
	if st.lastArgs != nil {
		t.Error("tool body should not run after a cancelling hook")
	}
}

func TestRegistry_BeforeHook_CanRewriteArgs(t *testing.T) {
	r := NewRegistry()
	st := &stubTool{name: "echo"}
	r.Register(st)
	r.RegisterBeforeHook(func(ctx context.Context, toolName string, args map[string]interface{}) HookDecision {
		return HookDecision{Arguments: map[string]interface{}{"rewritten": true}}
	})

	r.ExecuteWithContext(context.Background(), "echo", map[string]interface{}{"original": true}, "", "", "", "", nil)

	if st.lastArgs["rewritten"] != true {
		t.Errorf("expected rewritten args to reach the tool, got %v", st.lastArgs)
	}
}

func TestRegistry_AfterHook_Observes(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "echo"})

	var observed *Result
	r.RegisterAfterHook(func(ctx context.Context, toolName string, args map[string]interface{}, result *Result) {
		observed = result
	})

	r.ExecuteWithContext(context.Background(), "echo", nil, "", "", "", "", nil)

	if observed == nil || observed.ForLLM != "ok" {
		t.Errorf("after hook did not observe the result: %+v", observed)
	}
}

type funcTool struct {
	name string
	fn   func(ctx context.Context, args map[string]interface{}) *Result
}

func (f *funcTool) Name() string                       { return f.name }
func (f *funcTool) Description() string                { return "func tool" }
func (f *funcTool) Parameters() map[string]interface{} { return map[string]interface{}{} }
func (f *funcTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	return f.fn(ctx, args)
}
