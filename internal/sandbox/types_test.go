package sandbox

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != ModeOff {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeOff)
	}
	if cfg.WorkspaceAccess != AccessRW {
		t.Errorf("WorkspaceAccess = %q, want %q", cfg.WorkspaceAccess, AccessRW)
	}
	if cfg.Scope != ScopeSession {
		t.Errorf("Scope = %q, want %q", cfg.Scope, ScopeSession)
	}
	if cfg.Image == "" {
		t.Error("Image should have a default value")
	}
	if !cfg.ReadOnlyRoot {
		t.Error("ReadOnlyRoot should default to true")
	}
}

func TestErrSandboxDisabled(t *testing.T) {
	if ErrSandboxDisabled.Error() == "" {
		t.Error("ErrSandboxDisabled should have a non-empty message")
	}
}
