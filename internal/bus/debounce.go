package bus

import (
	"sync"
	"time"
)

// InboundDebouncer merges rapid-fire messages from the same sender into
// one before handing it to flush, so a user firing off several short
// messages in a row triggers one agent run instead of one per message.
// Messages are merged by joining Content with newlines; the most recent
// message's metadata (reply-to id, thread id) wins.
type InboundDebouncer struct {
	window time.Duration
	flush  func(InboundMessage)

	mu      sync.Mutex
	pending map[string]*pendingGroup
	stopped bool
}

type pendingGroup struct {
	msg   InboundMessage
	timer *time.Timer
}

func NewInboundDebouncer(window time.Duration, flush func(InboundMessage)) *InboundDebouncer {
	return &InboundDebouncer{
		window:  window,
		flush:   flush,
		pending: make(map[string]*pendingGroup),
	}
}

func debounceKey(msg InboundMessage) string {
	return msg.Channel + "|" + msg.ChatID + "|" + msg.SenderID + "|" + msg.PeerKind
}

// Push enqueues msg, merging it into any in-flight group for the same
// sender/chat and resetting that group's flush timer.
func (d *InboundDebouncer) Push(msg InboundMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	key := debounceKey(msg)
	if group, ok := d.pending[key]; ok {
		group.timer.Stop()
		merged := group.msg
		switch {
		case merged.Content == "":
			merged.Content = msg.Content
		case msg.Content != "":
			merged.Content = merged.Content + "\n" + msg.Content
		}
		merged.Media = append(merged.Media, msg.Media...)
		merged.Metadata = msg.Metadata
		merged.HistoryLimit = msg.HistoryLimit
		group.msg = merged
		group.timer = time.AfterFunc(d.window, func() { d.flushKey(key) })
		return
	}

	group := &pendingGroup{msg: msg}
	group.timer = time.AfterFunc(d.window, func() { d.flushKey(key) })
	d.pending[key] = group
}

func (d *InboundDebouncer) flushKey(key string) {
	d.mu.Lock()
	group, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok {
		d.flush(group.msg)
	}
}

// Stop cancels every pending timer without flushing. In-flight groups
// are dropped rather than flushed, matching process-shutdown semantics:
// no partial replies sent after the consumer loop has already exited.
func (d *InboundDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for _, group := range d.pending {
		group.timer.Stop()
	}
	d.pending = make(map[string]*pendingGroup)
}
