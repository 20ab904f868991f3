package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileTool_Execute(t *testing.T) {
	ws := t.TempDir()
	tool := NewWriteFileTool(ws, true)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"path":    "notes.txt",
		"content": "hello world",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}

	data, err := os.ReadFile(filepath.Join(ws, "notes.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("file content = %q, want %q", data, "hello world")
	}
}

func TestWriteFileTool_CreatesParentDirs(t *testing.T) {
	ws := t.TempDir()
	tool := NewWriteFileTool(ws, true)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"path":    "a/b/c.txt",
		"content": "nested",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if _, err := os.Stat(filepath.Join(ws, "a", "b", "c.txt")); err != nil {
		t.Errorf("expected nested file to exist: %v", err)
	}
}

func TestWriteFileTool_RejectsEscape(t *testing.T) {
	ws := t.TempDir()
	tool := NewWriteFileTool(ws, true)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"path":    "../outside.txt",
		"content": "nope",
	})
	if !result.IsError {
		t.Error("expected write outside workspace to be rejected")
	}
}

func TestListFilesTool_Execute(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, "a.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(ws, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	tool := NewListFilesTool(ws, true)
	result := tool.Execute(context.Background(), map[string]interface{}{"path": "."})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "a.txt") || !strings.Contains(result.ForLLM, "sub/") {
		t.Errorf("listing = %q, want entries for a.txt and sub/", result.ForLLM)
	}
}

func TestEditTool_Execute(t *testing.T) {
	ws := t.TempDir()
	path := filepath.Join(ws, "file.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewEditTool(ws, true)
	result := tool.Execute(context.Background(), map[string]interface{}{
		"path":        "file.txt",
		"old_content": "world",
		"new_content": "there",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "hello there" {
		t.Errorf("content = %q, want %q", data, "hello there")
	}
}

func TestEditTool_RejectsAmbiguousMatch(t *testing.T) {
	ws := t.TempDir()
	path := filepath.Join(ws, "file.txt")
	if err := os.WriteFile(path, []byte("foo foo"), 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewEditTool(ws, true)
	result := tool.Execute(context.Background(), map[string]interface{}{
		"path":        "file.txt",
		"old_content": "foo",
		"new_content": "bar",
	})
	if !result.IsError {
		t.Error("expected ambiguous match to be rejected")
	}
}

func TestEditTool_RejectsMissingMatch(t *testing.T) {
	ws := t.TempDir()
	path := filepath.Join(ws, "file.txt")
	if err := os.WriteFile(path, []byte("foo"), 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewEditTool(ws, true)
	result := tool.Execute(context.Background(), map[string]interface{}{
		"path":        "file.txt",
		"old_content": "bar",
		"new_content": "baz",
	})
	if !result.IsError {
		t.Error("expected missing match to be rejected")
	}
}
