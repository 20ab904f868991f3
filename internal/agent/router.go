package agent

import (
	"context"
	"fmt"
	"sync"
)

// Agent is anything the gateway can route a turn to. *Loop is the only
// implementation today; the interface exists so the gateway and cmd
// wiring don't depend on the loop's internals directly.
type Agent interface {
	ID() string
	Model() string
	IsRunning() bool
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// ResolverFunc resolves an agent key (plain agent id, or a scoped key
// built by internal/sessions) to a live Agent. In standalone mode the
// router holds statically-registered agents and never calls a
// resolver; in managed mode NewManagedResolver builds one backed by
// the agent store.
type ResolverFunc func(agentKey string) (Agent, error)

type agentEntry struct {
	agent Agent
}

// Router is the process-wide agent directory. Agents can be
// registered statically (standalone mode, one per config.json entry)
// or resolved lazily and cached (managed mode, one per DB row). The
// two modes are not mixed: a router either has a resolver or it
// doesn't.
type Router struct {
	mu       sync.RWMutex
	agents   map[string]*agentEntry
	resolver ResolverFunc
}

// NewRouter creates an empty router. Call Register for each static
// agent, or SetResolver to switch to lazy managed-mode resolution.
func NewRouter() *Router {
	return &Router{agents: make(map[string]*agentEntry)}
}

// Register adds a statically-configured agent under id, replacing any
// existing entry. Used by standalone mode at startup.
func (r *Router) Register(id string, a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[id] = &agentEntry{agent: a}
}

// SetResolver switches the router into managed mode: Get falls back to
// calling resolver for any key not already cached, and caches the
// result for subsequent lookups.
func (r *Router) SetResolver(resolver ResolverFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolver = resolver
}

// Get returns the agent for key, resolving and caching it via the
// configured resolver if it isn't already known.
func (r *Router) Get(key string) (Agent, error) {
	r.mu.RLock()
	entry, ok := r.agents[key]
	resolver := r.resolver
	r.mu.RUnlock()
	if ok {
		return entry.agent, nil
	}

	if resolver == nil {
		return nil, fmt.Errorf("agent %q not found", key)
	}

	a, err := resolver(key)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.agents[key] = &agentEntry{agent: a}
	r.mu.Unlock()
	return a, nil
}

// List returns the ids of every currently cached or registered agent.
// In managed mode this only reflects agents resolved so far, not every
// row in the store.
func (r *Router) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	return ids
}

// InvalidateAgent drops the cached entry for key, forcing the next Get
// to re-resolve it. In standalone mode this removes a statically
// registered agent, and since there is no resolver, Get then reports it
// as not found.
func (r *Router) InvalidateAgent(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, key)
}

// InvalidateAll drops every cached entry, forcing full re-resolution
// on next access. Used after a bulk config change (e.g. provider
// credentials rotated) in managed mode.
func (r *Router) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*agentEntry)
}
