package sessions

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rustyclaw/rustyclaw/internal/providers"
)

// EntryKind discriminates the tagged-union transcript entry shapes.
type EntryKind string

const (
	EntryUserMessage      EntryKind = "user_message"
	EntryAssistantMessage EntryKind = "assistant_message"
	EntryToolCall         EntryKind = "tool_call"
	EntryToolResult       EntryKind = "tool_result"
	EntrySystemEvent      EntryKind = "system_event"
)

// TranscriptEntry is one append-only transcript line. Message carries the
// provider-facing content for user/assistant entries; the tool_call and
// tool_result kinds carry their own fields plus a shared CallID so the
// "every result has exactly one matching call" invariant is checkable by
// scanning the file once.
type TranscriptEntry struct {
	Kind      EntryKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	Message   *providers.Message     `json:"message,omitempty"`
	CallID    string                 `json:"call_id,omitempty"`
	Tool      string                 `json:"tool,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Output    string                 `json:"output,omitempty"`
	IsError   bool                   `json:"is_error,omitempty"`
	EventKind string                 `json:"event_kind,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// toMessage flattens a transcript entry back into the provider-facing
// Message shape the agent loop and history-based callers consume.
func (e TranscriptEntry) toMessage() (providers.Message, bool) {
	switch e.Kind {
	case EntryUserMessage, EntryAssistantMessage:
		if e.Message != nil {
			return *e.Message, true
		}
		return providers.Message{}, false
	case EntryToolResult:
		return providers.Message{Role: "tool", Content: e.Output, ToolCallID: e.CallID}, true
	default:
		return providers.Message{}, false
	}
}

func entriesFromMessage(msg providers.Message) []TranscriptEntry {
	now := time.Now()
	if msg.Role == "tool" {
		return []TranscriptEntry{{
			Kind:      EntryToolResult,
			Timestamp: now,
			CallID:    msg.ToolCallID,
			Output:    msg.Content,
		}}
	}
	kind := EntryUserMessage
	if msg.Role == "assistant" {
		kind = EntryAssistantMessage
	}
	m := msg
	return []TranscriptEntry{{Kind: kind, Timestamp: now, Message: &m}}
}

// transcriptPath returns the jsonl file for a session hash under root.
func transcriptPath(root, hash string) string {
	return filepath.Join(root, "transcripts", hash+".jsonl")
}

// appendTranscript appends entries to the session's jsonl file, fsyncing
// once after the whole batch (§4.2 append semantics).
func appendTranscript(root, hash string, entries []TranscriptEntry) error {
	if len(entries) == 0 {
		return nil
	}
	dir := filepath.Join(root, "transcripts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(transcriptPath(root, hash), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// replayTranscript reads a session's jsonl file, returning all valid
// entries. A truncated final line (crash mid-write) is discarded and the
// file repaired in place by rewriting only the whole entries read.
func replayTranscript(root, hash string) ([]TranscriptEntry, error) {
	path := transcriptPath(root, hash)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []TranscriptEntry
	validLen := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	offset := 0
	truncated := false
	for scanner.Scan() {
		line := scanner.Bytes()
		lineLen := len(line) + 1 // + newline
		if len(line) == 0 {
			offset += lineLen
			continue
		}
		var e TranscriptEntry
		if err := json.Unmarshal(line, &e); err != nil {
			// Truncated or corrupt tail: stop here; the file is cut back to
			// the last whole entry below.
			truncated = true
			break
		}
		entries = append(entries, e)
		offset += lineLen
		validLen = offset
	}

	if truncated && validLen < len(data) {
		if err := os.WriteFile(path, data[:validLen], 0644); err != nil {
			return entries, fmt.Errorf("repair truncated transcript: %w", err)
		}
	}

	return entries, nil
}
