package gateway

import (
	"context"
	"sync"

	"github.com/rustyclaw/rustyclaw/pkg/protocol"
)

// MethodHandler handles one req frame for one connection.
type MethodHandler func(ctx context.Context, client *Client, req *protocol.RequestFrame)

type routeEntry struct {
	handler MethodHandler
	kind    protocol.HandlerKind
}

// MethodRouter is the method-name → handler dispatch table described in
// §4.1: handlers are registered at startup and looked up by method name
// on every inbound req frame. Rebuilding is not supported mid-run —
// registration happens during server construction, before Start.
type MethodRouter struct {
	mu     sync.RWMutex
	routes map[string]routeEntry
}

// NewMethodRouter creates an empty router bound to a server (the server
// reference is not currently used by the router itself, kept for
// constructor symmetry with the rest of the gateway package).
func NewMethodRouter(_ *Server) *MethodRouter {
	return &MethodRouter{routes: make(map[string]routeEntry)}
}

// Register binds a method name to a handler, using the handler kind
// classification from protocol.HandlerKindFor. Re-registering a method
// replaces its handler.
func (r *MethodRouter) Register(method string, handler MethodHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[method] = routeEntry{handler: handler, kind: protocol.HandlerKindFor(method)}
}

// RegisterWithKind binds a method with an explicit handler kind,
// overriding the protocol package's default classification.
func (r *MethodRouter) RegisterWithKind(method string, kind protocol.HandlerKind, handler MethodHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[method] = routeEntry{handler: handler, kind: kind}
}

func (r *MethodRouter) lookup(method string) (MethodHandler, protocol.HandlerKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.routes[method]
	if !ok {
		return nil, 0, false
	}
	return e.handler, e.kind, true
}
