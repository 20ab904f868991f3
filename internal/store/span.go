package store

import (
	"time"

	"github.com/google/uuid"
)

// SpanType distinguishes the three kinds of work a trace collects:
// one LLM call, one tool execution, or the agent run that parents
// both.
type SpanType string

const (
	SpanTypeLLMCall  SpanType = "llm_call"
	SpanTypeToolCall SpanType = "tool_call"
	SpanTypeAgent    SpanType = "agent"
)

type SpanStatus string

const (
	SpanStatusCompleted SpanStatus = "completed"
	SpanStatusError      SpanStatus = "error"
)

// SpanLevel mirrors OTel's span severity levels; only DEFAULT is
// emitted today but the field exists so a future debug/verbose level
// doesn't need a schema change.
type SpanLevel string

const SpanLevelDefault SpanLevel = "DEFAULT"

// SpanData is one row of a run's trace: either the root agent span or
// one of its LLM-call/tool-call children.
type SpanData struct {
	ID           uuid.UUID
	TraceID      uuid.UUID
	ParentSpanID *uuid.UUID
	AgentID      *uuid.UUID
	SpanType     SpanType
	Name         string
	StartTime    time.Time
	EndTime      *time.Time
	DurationMS   int
	Model        string
	Provider     string
	ToolName     string
	ToolCallID   string
	InputPreview  string
	OutputPreview string
	FinishReason  string
	InputTokens   int
	OutputTokens  int
	Status        SpanStatus
	Error         string
	Level         SpanLevel
	Metadata      []byte
	CreatedAt     time.Time
}

// GenNewID mints a new random identifier for store rows that don't
// come from a DB-assigned sequence (spans, ad-hoc records created
// client-side before the insert).
func GenNewID() uuid.UUID {
	return uuid.New()
}
