// Package tracing carries a run's trace id and current parent span id
// through context.Context, and collects the resulting spans into a
// pluggable sink. It exists purely to let internal/agent emit spans
// without importing a concrete storage backend.
package tracing

import (
	"context"

	"github.com/google/uuid"

	"github.com/rustyclaw/rustyclaw/internal/store"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	collectorKey
	parentSpanIDKey
	announceParentSpanIDKey
	delegateParentTraceIDKey
)

// Persister is the minimal storage surface a Collector needs. Managed
// mode backs it with a Postgres-resident span table; standalone mode
// can pass nil to NewCollector and spans are dropped.
type Persister interface {
	SaveSpan(ctx context.Context, span store.SpanData) error
}

// Collector receives spans emitted during a run and forwards them to
// its Persister. A nil Collector (or one reached via a context that
// never set one) means tracing is off for that run; callers check
// CollectorFromContext for nil before doing any work to build a span.
type Collector struct {
	persister Persister
	verbose   bool
}

// NewCollector wraps persister. verbose controls whether full
// message/tool payloads are retained on spans (set via GOCLAW_TRACE_VERBOSE)
// or only short previews.
func NewCollector(persister Persister, verbose bool) *Collector {
	return &Collector{persister: persister, verbose: verbose}
}

func (c *Collector) Verbose() bool { return c.verbose }

// EmitSpan persists span, best-effort. A failed write never aborts
// the run it's describing.
func (c *Collector) EmitSpan(span store.SpanData) {
	if c == nil || c.persister == nil {
		return
	}
	_ = c.persister.SaveSpan(context.Background(), span)
}

func WithTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func TraceIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(traceIDKey).(uuid.UUID)
	return id
}

func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, collectorKey, c)
}

func CollectorFromContext(ctx context.Context) *Collector {
	c, _ := ctx.Value(collectorKey).(*Collector)
	return c
}

func WithParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, parentSpanIDKey, id)
}

func ParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(parentSpanIDKey).(uuid.UUID)
	return id
}

// WithAnnounceParentSpanID marks ctx as belonging to an "announce" run
// (a sub-agent's unprompted message back to its parent) nested under
// id rather than starting its own root span.
func WithAnnounceParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, announceParentSpanIDKey, id)
}

func AnnounceParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(announceParentSpanIDKey).(uuid.UUID)
	return id
}

// WithDelegateParentTraceID records the trace id of the run that
// spawned a delegated sub-agent task, so the sub-agent's own trace can
// be linked back to it without nesting spans directly (the sub-agent
// runs in its own goroutine, possibly completing after the parent).
func WithDelegateParentTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, delegateParentTraceIDKey, id)
}

func DelegateParentTraceIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(delegateParentTraceIDKey).(uuid.UUID)
	return id
}
