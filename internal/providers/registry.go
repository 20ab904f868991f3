package providers

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// FailureClass buckets a provider call failure for the resolver's
// rotation/cooldown policy.
type FailureClass string

const (
	FailureRateLimit      FailureClass = "rate_limit"
	FailureAuth           FailureClass = "auth"
	FailureBilling        FailureClass = "billing"
	FailureContextOverflow FailureClass = "context_overflow"
	FailureTransient      FailureClass = "transient"
	FailureFatal          FailureClass = "fatal"
)

// Default cooldown durations per failure class. Not pinned by any
// source material (see DESIGN.md Open Questions) — chosen to reflect
// the relative severity ordering the classes imply: a rate limit
// clears quickly, an auth failure probably needs a human to rotate a
// key, billing needs a human to pay a bill.
const (
	rateLimitCooldown = 60 * time.Second
	authCooldown      = 15 * time.Minute
)

// Credentials is the resolved auth material a Provider call site needs.
// Kept separate from Provider itself since a provider may have more
// than one profile (e.g. two API keys rotated on rate limit).
type Credentials struct {
	APIKey  string
	APIBase string
}

// authProfile is one set of credentials for a provider, with its own
// cooldown clock so a rate limit on one key doesn't take the others
// down with it.
type authProfile struct {
	name  string
	creds Credentials

	cooldownUntil atomic.Int64 // unix nanos; 0 means not in cooldown
	disabled      atomic.Bool  // billing failures: disabled until manual reset
}

func (p *authProfile) available() bool {
	if p.disabled.Load() {
		return false
	}
	return time.Now().UnixNano() >= p.cooldownUntil.Load()
}

func (p *authProfile) cooldown(d time.Duration) {
	p.cooldownUntil.Store(time.Now().Add(d).UnixNano())
}

type providerEntry struct {
	provider Provider
	profiles []*authProfile
}

// Registry maps provider names to a Provider implementation plus its
// auth profiles, and resolves a requested model against an ordered
// fallback chain of model identifiers.
type Registry struct {
	mu            sync.RWMutex
	providers     map[string]*providerEntry
	fallbackChain []string
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*providerEntry)}
}

// Register adds p under its own Name(), with a single implicit
// "default" auth profile built from creds. This matches the
// configuration shape actually in use (one API key per named
// provider); RegisterWithProfiles is available for providers with
// more than one credential to rotate between.
func (r *Registry) Register(p Provider, creds Credentials) {
	r.RegisterWithProfiles(p, []Credentials{creds})
}

// RegisterWithProfiles adds p with one auth profile per entry in
// creds, tried in order.
func (r *Registry) RegisterWithProfiles(p Provider, creds []Credentials) {
	profiles := make([]*authProfile, len(creds))
	for i, c := range creds {
		profiles[i] = &authProfile{name: fmt.Sprintf("%s#%d", p.Name(), i), creds: c}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = &providerEntry{provider: p, profiles: profiles}
}

// SetFallbackChain installs the ordered list of model identifiers
// Resolve walks when the requested model's provider is unavailable.
func (r *Registry) SetFallbackChain(models []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbackChain = models
}

// Get returns the provider registered under name. Most callers that
// already know which provider they want (read_image, a session's
// pinned provider) use this directly instead of going through Resolve.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not registered", name)
	}
	return entry.provider, nil
}

// List returns the names of every registered provider.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// ErrNoModelAvailable is returned when every provider/profile for the
// requested model and its whole fallback chain is in cooldown or
// disabled.
var ErrNoModelAvailable = errors.New("no_model_available")

// modelProvider extracts the provider name from a "provider/model" or
// bare "model" identifier. Bare identifiers are looked up against
// every registered provider's DefaultModel.
func (r *Registry) modelProvider(model string) (providerName, effectiveModel string) {
	for i := 0; i < len(model); i++ {
		if model[i] == '/' {
			return model[:i], model[i+1:]
		}
	}
	for name, entry := range r.providers {
		if entry.provider.DefaultModel() == model {
			return name, model
		}
	}
	return "", model
}

// Resolve walks the fallback chain starting at model, returning the
// first provider/profile pair not currently in cooldown. model itself
// is tried first even if it isn't in the configured chain.
func (r *Registry) Resolve(model string) (Provider, Credentials, string, error) {
	r.mu.RLock()
	chain := append([]string{model}, r.fallbackChain...)
	providers := r.providers
	r.mu.RUnlock()

	for _, candidate := range chain {
		providerName, effectiveModel := r.modelProvider(candidate)
		entry, ok := providers[providerName]
		if !ok {
			continue
		}
		for _, profile := range entry.profiles {
			if profile.available() {
				return entry.provider, profile.creds, effectiveModel, nil
			}
		}
	}

	return nil, Credentials{}, "", ErrNoModelAvailable
}

// ClassifyError maps a provider call error to a FailureClass:
// HTTPError status codes map to the obvious buckets,
// anything else is transient. It never returns FailureContextOverflow
// (callers that already know they hit context_overflow should pass
// FailureContextOverflow directly rather than relying on this
// classifier, since providers signal it in-band, not via status code).
func ClassifyError(err error) FailureClass {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Status == 429:
			return FailureRateLimit
		case httpErr.Status == 401 || httpErr.Status == 403:
			return FailureAuth
		case httpErr.Status == 402:
			return FailureBilling
		case httpErr.Status >= 500:
			return FailureTransient
		default:
			return FailureFatal
		}
	}
	return FailureTransient
}

// RecordFailure applies the cooldown/disable policy for class to the
// profile that served model, so the next Resolve call skips it
// appropriately. context_overflow and transient/fatal failures never
// rotate a profile out — context_overflow is the runtime's signal to
// compact (§4.5), not the resolver's to rotate, and a one-off
// transient error doesn't warrant benching a whole credential.
func (r *Registry) RecordFailure(providerName string, class FailureClass) {
	r.mu.RLock()
	entry, ok := r.providers[providerName]
	r.mu.RUnlock()
	if !ok || len(entry.profiles) == 0 {
		return
	}
	profile := entry.profiles[0]
	for _, p := range entry.profiles {
		if p.available() {
			profile = p
			break
		}
	}

	switch class {
	case FailureRateLimit:
		profile.cooldown(rateLimitCooldown)
	case FailureAuth:
		profile.cooldown(authCooldown)
	case FailureBilling:
		profile.disabled.Store(true)
	}
}
