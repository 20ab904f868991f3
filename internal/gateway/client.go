package gateway

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rustyclaw/rustyclaw/internal/permissions"
	"github.com/rustyclaw/rustyclaw/pkg/protocol"
)

const (
	helloWindow       = 10 * time.Second
	maxFrameBytes     = 1 << 20 // 1MiB
	outboundQueueSize = 256
)

// outboundEnvelope wraps a frame with the priority family it belongs
// to, so the back-pressure policy (§4.1) can tell a presence/health
// snapshot apart from a res frame that must never be dropped.
type outboundEnvelope struct {
	frame    interface{}
	family   string
	critical bool // res frames and hello.ok/connect.challenge are never dropped
}

// lowPriorityFamilies are dropped first when the outbound queue is full.
var lowPriorityFamilies = map[string]bool{
	protocol.EventPresence: true,
	protocol.EventHealth:   true,
}

// Client is the connection actor for one accepted WebSocket connection:
// an inbound reader, a bounded outbound queue drained by a writer
// goroutine, and the set of event-family subscriptions this connection
// currently holds.
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server

	role permissions.Role

	mu            sync.Mutex
	authenticated bool
	closed        bool
	nonce         string

	outbound chan outboundEnvelope

	cancelMu  sync.Mutex
	cancelers map[string]context.CancelFunc // req id -> cancel for streaming-owning handlers

	seenSeq map[string]uint64

	ip string // extracted once at accept time, used for rate-limit bucketing
}

// NewClient wraps an upgraded WebSocket connection as a connection actor.
// ip is the rate-limit key extracted from the originating HTTP request
// (honoring trusted-proxy headers per the server's RateLimiter config).
func NewClient(conn *websocket.Conn, s *Server, ip string) *Client {
	var nonceBuf [16]byte
	_, _ = rand.Read(nonceBuf[:])
	c := &Client{
		id:        hex.EncodeToString(nonceBuf[:8]),
		conn:      conn,
		server:    s,
		nonce:     hex.EncodeToString(nonceBuf[:]),
		outbound:  make(chan outboundEnvelope, outboundQueueSize),
		cancelers: make(map[string]context.CancelFunc),
		seenSeq:   make(map[string]uint64),
		role:      permissions.RoleGuest,
		ip:        ip,
	}
	conn.SetReadLimit(maxFrameBytes)
	return c
}

// Run drives the connection actor until the socket closes or ctx is
// cancelled: it emits connect.challenge, starts the writer loop, then
// reads frames until EOF, dispatching requests and enforcing the
// hello handshake window.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writeLoop(ctx)

	c.sendChallenge()

	helloTimer := time.AfterFunc(helloWindow, func() {
		c.mu.Lock()
		ok := c.authenticated
		c.mu.Unlock()
		if !ok {
			c.closeWithError(protocol.ErrAuth, "hello not received within window")
		}
	})
	defer helloTimer.Stop()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.teardown()
			return
		}
		if len(raw) > maxFrameBytes {
			c.closeWithCode(websocket.CloseMessageTooBig, "frame exceeds max size")
			return
		}
		c.handleFrame(ctx, raw)
	}
}

func (c *Client) handleFrame(ctx context.Context, raw []byte) {
	ft, err := protocol.ParseFrameType(raw)
	if err != nil {
		c.SendResponse(protocol.NewErrorResponse("", protocol.ErrBadFrame, "malformed frame"))
		return
	}
	if ft != protocol.FrameTypeRequest {
		// Clients only ever send request frames on this protocol.
		c.SendResponse(protocol.NewErrorResponse("", protocol.ErrBadFrame, "unexpected frame type"))
		return
	}

	var req protocol.RequestFrame
	if err := json.Unmarshal(raw, &req); err != nil {
		c.SendResponse(protocol.NewErrorResponse("", protocol.ErrBadFrame, "malformed request frame"))
		return
	}

	if !c.isAuthenticated() && req.Method != protocol.MethodHello && req.Method != protocol.MethodConnect {
		c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrAuth, "hello required"))
		return
	}

	if !c.server.rateLimiter.Allow(c.remoteAddr()) {
		c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrRateLimited, "rate limit exceeded"))
		return
	}

	if req.Method == protocol.MethodHello || req.Method == protocol.MethodConnect {
		c.handleHello(req)
		return
	}

	if c.server.policyEngine != nil && !c.server.policyEngine.Allow(c.role, req.Method) {
		c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrAuth, "method not permitted for role"))
		return
	}

	handler, kind, ok := c.server.router.lookup(req.Method)
	if !ok {
		c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrMethodNotFound, "unknown method: "+req.Method))
		return
	}

	streaming := kind == protocol.HandlerStreaming

	runHandler := func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("method handler panic", "method", req.Method, "request_id", req.ID, "panic", r)
				c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, "internal error"))
			}
		}()
		reqCtx := ctx
		if streaming {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithCancel(ctx)
			c.registerCanceler(req.ID, cancel)
			defer c.unregisterCanceler(req.ID)
		}
		handler(reqCtx, c, &req)
	}

	if streaming || kind == protocol.HandlerAsync {
		go runHandler()
	} else {
		runHandler()
	}
}

func (c *Client) handleHello(req protocol.RequestFrame) {
	var params protocol.HelloParams
	_ = json.Unmarshal(req.Params, &params)

	if !c.verifyAuth(params) {
		c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrAuth, "authentication failed"))
		c.closeWithError(protocol.ErrAuth, "authentication failed")
		return
	}

	c.mu.Lock()
	c.authenticated = true
	c.mu.Unlock()
	c.role = permissions.RoleOwner

	payload := protocol.HelloOkPayload{
		ProtocolVersion: protocol.ProtocolVersion,
		ServerTime:      time.Now().UTC().Format(time.RFC3339),
	}
	c.SendResponse(protocol.NewOKResponse(req.ID, payload))
	c.SendEvent(*protocol.NewEvent(protocol.EventHelloOk, payload))
}

// verifyAuth checks the hello params against the configured token in
// constant time. Password hash / pairing signature auth are modeled as
// additional proof kinds a deployment can wire in; the constant-time
// token comparison is the baseline always available.
func (c *Client) verifyAuth(params protocol.HelloParams) bool {
	expected := c.server.cfg.Gateway.Token
	if expected == "" {
		return true // no token configured: open instance (dev / trusted network)
	}
	return subtle.ConstantTimeCompare([]byte(params.Token), []byte(expected)) == 1
}

func (c *Client) isAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *Client) remoteAddr() string {
	return c.ip
}

func (c *Client) sendChallenge() {
	c.SendEvent(*protocol.NewEvent(protocol.EventConnectChallenge, protocol.ConnectChallengePayload{Nonce: c.nonce}))
}

// SendResponse enqueues a response frame. Responses are "critical" —
// never dropped under back-pressure; instead the queue applies
// back-pressure upstream by blocking briefly, then the connection is
// torn down if the peer is unresponsive.
func (c *Client) SendResponse(res protocol.ResponseFrame) {
	c.enqueue(outboundEnvelope{frame: res, family: "res", critical: true})
}

// SendEvent enqueues an event frame, applying family-based back-pressure
// dropping when the outbound queue is full (§4.1).
func (c *Client) SendEvent(ev protocol.EventFrame) {
	c.enqueue(outboundEnvelope{frame: ev, family: ev.Event, critical: !lowPriorityFamilies[ev.Event]})
}

func (c *Client) enqueue(env outboundEnvelope) {
	select {
	case c.outbound <- env:
		return
	default:
	}

	if env.critical {
		// Apply back-pressure: block briefly for room rather than drop.
		select {
		case c.outbound <- env:
		case <-time.After(2 * time.Second):
			slog.Warn("gateway: outbound queue stalled on critical frame, closing", "client", c.id)
			c.teardown()
		}
		return
	}

	// Drop-oldest-lowest-priority policy: scan for a low-priority frame
	// already queued and replace it; otherwise drop this new one.
	select {
	case old := <-c.outbound:
		if !old.critical {
			c.outbound <- env
			return
		}
		// Accidentally drained a critical frame — put it back first.
		c.outbound <- old
	default:
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(env.frame); err != nil {
				c.teardown()
				return
			}
		}
	}
}

func (c *Client) registerCanceler(id string, cancel context.CancelFunc) {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	c.cancelers[id] = cancel
}

func (c *Client) unregisterCanceler(id string) {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	delete(c.cancelers, id)
}

// CancelRequest signals the cancel handle bound to a streaming-owning
// request, used by agent.abort and by connection teardown.
func (c *Client) CancelRequest(id string) {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if cancel, ok := c.cancelers[id]; ok {
		cancel()
	}
}

func (c *Client) closeWithError(code, message string) {
	c.SendResponse(protocol.NewErrorResponse("", code, message))
	c.closeWithCode(websocket.ClosePolicyViolation, message)
}

func (c *Client) closeWithCode(code int, message string) {
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, message), deadline)
	c.teardown()
}

// teardown cancels every in-flight streaming request owned by this
// connection, matching the "socket disconnect" failure mode of §4.1.
func (c *Client) teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancelMu.Lock()
	for id, cancel := range c.cancelers {
		cancel()
		delete(c.cancelers, id)
	}
	c.cancelMu.Unlock()
}

// Close releases the underlying socket. Safe to call after teardown.
func (c *Client) Close() error {
	c.teardown()
	return c.conn.Close()
}
