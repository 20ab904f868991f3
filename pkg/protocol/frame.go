package protocol

import "encoding/json"

// ProtocolVersion is the current wire protocol version advertised in
// the hello.ok response and the /health endpoint.
const ProtocolVersion = 1

// FrameType discriminates the three frame shapes that share the
// WebSocket connection: request, response, event.
type FrameType string

const (
	FrameTypeRequest  FrameType = "req"
	FrameTypeResponse FrameType = "res"
	FrameTypeEvent    FrameType = "event"
)

// RequestFrame is a client→server request. Exactly one res is
// eventually emitted carrying the same ID.
type RequestFrame struct {
	Type   FrameType       `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseFrame is a server→client response.
type ResponseFrame struct {
	Type    FrameType   `json:"type"`
	ID      string      `json:"id"`
	OK      bool        `json:"ok"`
	Payload interface{} `json:"payload,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// EventFrame is a server→client push, not tied to any request id. Seq
// is a monotonic counter per event family (see IsStateVersionFamily);
// zero when the family is not seq-stamped.
type EventFrame struct {
	Type    FrameType   `json:"type"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
	Seq     uint64      `json:"seq,omitempty"`
}

// Error is the uniform error shape for response.error and error events.
type Error struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Error-code constants. These populate Error.Code; codes are stable
// wire identifiers and are never localized.
const (
	ErrAuth             = "auth"
	ErrNotConnected     = "not_connected"
	ErrTimeout          = "timeout"
	ErrRateLimited      = "rate_limited"
	ErrMethodNotFound   = "method_not_found"
	ErrBadFrame         = "bad_frame"
	ErrInternal         = "internal"
	ErrBusy             = "busy"
	ErrContextOverflow  = "context_overflow"
	ErrNoModelAvailable = "no_model_available"
	ErrCancelled        = "cancelled"
	ErrPersist          = "persist"
	ErrInvalidRequest   = "invalid_request"
	ErrNotFound         = "not_found"
)

// NewOKResponse builds a successful response frame.
func NewOKResponse(id string, payload interface{}) ResponseFrame {
	return ResponseFrame{Type: FrameTypeResponse, ID: id, OK: true, Payload: payload}
}

// NewErrorResponse builds a failed response frame with the given code.
func NewErrorResponse(id, code, message string) ResponseFrame {
	return ResponseFrame{Type: FrameTypeResponse, ID: id, OK: false, Error: &Error{Code: code, Message: message}}
}

// NewRetryableErrorResponse builds a failed response frame marked retryable.
func NewRetryableErrorResponse(id, code, message string) ResponseFrame {
	return ResponseFrame{Type: FrameTypeResponse, ID: id, OK: false, Error: &Error{Code: code, Message: message, Retryable: true}}
}

// NewEvent builds an event frame with no seq stamp (non-state-version families).
func NewEvent(name string, payload interface{}) *EventFrame {
	return &EventFrame{Type: FrameTypeEvent, Event: name, Payload: payload}
}

// NewSeqEvent builds an event frame stamped with a family sequence number.
func NewSeqEvent(name string, payload interface{}, seq uint64) *EventFrame {
	return &EventFrame{Type: FrameTypeEvent, Event: name, Payload: payload, Seq: seq}
}

// ParseFrameType extracts the Type discriminant from a raw JSON frame
// without fully unmarshaling it, so a reader can dispatch to the right
// concrete frame struct.
func ParseFrameType(raw []byte) (FrameType, error) {
	var probe struct {
		Type FrameType `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", err
	}
	return probe.Type, nil
}

// HelloOkPayload describes server capabilities on successful handshake.
type HelloOkPayload struct {
	ProtocolVersion int                    `json:"protocol_version"`
	Features        []string               `json:"features,omitempty"`
	PresenceSeq     uint64                 `json:"presence_seq"`
	HealthSeq       uint64                 `json:"health_seq"`
	ServerTime      string                 `json:"server_time"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
}

// HelloParams is the client's handshake request payload.
type HelloParams struct {
	ProtocolVersion int               `json:"protocol_version"`
	ClientID        string            `json:"client_id"`
	Token           string            `json:"token,omitempty"`
	PasswordHash    string            `json:"password_hash,omitempty"`
	PairingSig      string            `json:"pairing_sig,omitempty"` // signature over the challenge nonce
	SinceSeq        map[string]uint64 `json:"since_seq,omitempty"`   // per-family replay resume point
}

// ConnectChallengePayload is sent immediately on connection.
type ConnectChallengePayload struct {
	Nonce string `json:"nonce"`
}
