package protocol

// WebSocket event names pushed from server to client (never the reverse).
const (
	EventConnectChallenge = "connect.challenge"
	EventHelloOk          = "hello.ok"
	EventAgent            = "agent.event"
	EventSessionUpdated   = "session.updated"
	EventChannelsStatus   = "channels.status"
	EventConfigChanged    = "config.changed"
	EventConfigReloadReq  = "config.reload_required"
	EventPresence         = "presence"
	EventHealth           = "health"
	EventTick             = "tick"
	EventError            = "error"

	// EventCacheInvalidate is internal-only (never forwarded to WS clients).
	EventCacheInvalidate = "cache.invalidate"
)

// stateVersionFamilies are the event families that carry a monotonic
// seq per spec: subscribers never observe an older seq for the same
// family than one already seen. Used by the connection actor to decide
// which families participate in since_seq replay filtering.
var stateVersionFamilies = map[string]bool{
	EventPresence:       true,
	EventHealth:         true,
	EventSessionUpdated: true,
}

// IsStateVersionFamily reports whether an event family is seq-stamped.
func IsStateVersionFamily(name string) bool {
	return stateVersionFamilies[name]
}

// AgentEvent payload type discriminants — the "type" field inside an
// EventAgent payload, matching the AgentEvent tagged union of the
// agent runtime (see internal/agent).
const (
	AgentEventPartialReply = "partial_reply"
	AgentEventBlockReply   = "block_reply"
	AgentEventReasoning    = "reasoning"
	AgentEventToolCall     = "tool_call"
	AgentEventToolResult   = "tool_result"
	AgentEventUsage        = "usage"
	AgentEventAudioDelta   = "audio_delta"
	AgentEventError        = "error"
)

// Error codes are defined in frame.go (Err* constants) alongside the
// Error/ResponseFrame types they populate.
