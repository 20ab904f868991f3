package bus

import (
	"context"
	"testing"
	"time"
)

func TestMessageBus_InboundRoundTrip(t *testing.T) {
	b := New()
	msg := InboundMessage{Channel: "telegram", ChatID: "123", SenderID: "u1", Content: "hi"}
	b.PublishInbound(msg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := b.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("expected a message, got none")
	}
	if got.Content != "hi" {
		t.Errorf("Content = %q, want %q", got.Content, "hi")
	}
}

func TestMessageBus_ConsumeInbound_ContextCancelled(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := b.ConsumeInbound(ctx)
	if ok {
		t.Error("expected ok=false on cancelled context")
	}
}

func TestMessageBus_OutboundRoundTrip(t *testing.T) {
	b := New()
	b.PublishOutbound(OutboundMessage{Channel: "discord", ChatID: "c1", Content: "reply"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := b.SubscribeOutbound(ctx)
	if !ok {
		t.Fatal("expected a message, got none")
	}
	if got.Content != "reply" {
		t.Errorf("Content = %q, want %q", got.Content, "reply")
	}
}

func TestMessageBus_Broadcast(t *testing.T) {
	b := New()
	var got1, got2 Event
	b.Subscribe("a", func(e Event) { got1 = e })
	b.Subscribe("b", func(e Event) { got2 = e })

	b.Broadcast(Event{Name: "run.started", Payload: "r1"})

	if got1.Payload != "r1" || got2.Payload != "r1" {
		t.Errorf("not all subscribers received the event: got1=%+v got2=%+v", got1, got2)
	}
}

func TestMessageBus_Unsubscribe(t *testing.T) {
	b := New()
	called := false
	b.Subscribe("a", func(e Event) { called = true })
	b.Unsubscribe("a")

	b.Broadcast(Event{Name: "run.started"})

	if called {
		t.Error("unsubscribed handler should not be called")
	}
}
