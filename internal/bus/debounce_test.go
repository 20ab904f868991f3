package bus

import (
	"sync"
	"testing"
	"time"
)

func TestInboundDebouncer_MergesRapidMessages(t *testing.T) {
	var mu sync.Mutex
	var flushed []InboundMessage

	d := NewInboundDebouncer(20*time.Millisecond, func(msg InboundMessage) {
		mu.Lock()
		flushed = append(flushed, msg)
		mu.Unlock()
	})

	base := InboundMessage{Channel: "telegram", ChatID: "c1", SenderID: "u1", PeerKind: "direct"}
	d.Push(InboundMessage{Channel: base.Channel, ChatID: base.ChatID, SenderID: base.SenderID, PeerKind: base.PeerKind, Content: "hello"})
	d.Push(InboundMessage{Channel: base.Channel, ChatID: base.ChatID, SenderID: base.SenderID, PeerKind: base.PeerKind, Content: "world"})

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(flushed) != 1 {
		t.Fatalf("expected 1 merged flush, got %d", len(flushed))
	}
	if flushed[0].Content != "hello\nworld" {
		t.Errorf("Content = %q, want %q", flushed[0].Content, "hello\nworld")
	}
}

func TestInboundDebouncer_DifferentSendersDoNotMerge(t *testing.T) {
	var mu sync.Mutex
	var flushed []InboundMessage

	d := NewInboundDebouncer(20*time.Millisecond, func(msg InboundMessage) {
		mu.Lock()
		flushed = append(flushed, msg)
		mu.Unlock()
	})

	d.Push(InboundMessage{Channel: "telegram", ChatID: "c1", SenderID: "u1", Content: "a"})
	d.Push(InboundMessage{Channel: "telegram", ChatID: "c1", SenderID: "u2", Content: "b"})

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(flushed) != 2 {
		t.Fatalf("expected 2 separate flushes, got %d", len(flushed))
	}
}

func TestInboundDebouncer_StopDropsPending(t *testing.T) {
	flushed := false
	d := NewInboundDebouncer(20*time.Millisecond, func(msg InboundMessage) {
		flushed = true
	})

	d.Push(InboundMessage{Channel: "telegram", ChatID: "c1", SenderID: "u1", Content: "hi"})
	d.Stop()

	time.Sleep(40 * time.Millisecond)

	if flushed {
		t.Error("Stop should drop pending groups without flushing")
	}

	// Push after Stop should also be a no-op.
	d.Push(InboundMessage{Channel: "telegram", ChatID: "c1", SenderID: "u1", Content: "late"})
	time.Sleep(40 * time.Millisecond)
	if flushed {
		t.Error("Push after Stop should not flush")
	}
}
