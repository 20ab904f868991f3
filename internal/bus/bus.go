package bus

import (
	"context"
	"sync"
)

const defaultQueueSize = 256

// MessageBus is the process-wide hub connecting channels, the agent
// runtime, and HTTP/WS handlers: channel adapters publish
// InboundMessage onto it for the agent runtime to consume, the runtime
// publishes OutboundMessage for channel adapters to deliver, and
// anything that wants live status (WS clients, cache-invalidation
// listeners) subscribes to broadcast Events by id. It implements both
// EventPublisher and MessageRouter.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage

	mu   sync.RWMutex
	subs map[string]EventHandler
}

// New creates a MessageBus with default-sized inbound/outbound queues.
func New() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, defaultQueueSize),
		outbound: make(chan OutboundMessage, defaultQueueSize),
		subs:     make(map[string]EventHandler),
	}
}

// PublishInbound enqueues msg for the agent runtime. Blocks if the
// queue is full — a channel adapter's own receive loop should feel that
// backpressure rather than have messages silently dropped.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	b.inbound <- msg
}

// ConsumeInbound blocks until a message is available or ctx is done.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// PublishOutbound enqueues msg for delivery back out through a channel adapter.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.outbound <- msg
}

// SubscribeOutbound blocks until an outbound message is available or
// ctx is done. Only one consumer per channel adapter should loop on
// this — multiple callers would split the same queue between them.
func (b *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg := <-b.outbound:
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

// Subscribe registers handler under id, replacing any existing
// subscription with the same id.
func (b *MessageBus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[id] = handler
}

// Unsubscribe removes the subscription registered under id.
func (b *MessageBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Broadcast delivers event to every current subscriber, synchronously
// and in no particular order. A handler that must not block the
// broadcaster should hand off to its own goroutine internally.
func (b *MessageBus) Broadcast(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
