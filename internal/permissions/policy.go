// Package permissions gates gateway RPC methods by connection role,
// distinct from the tool-call policy pipeline in internal/tools (which
// gates what an agent's LLM may invoke mid-run, not what a connected
// client may ask the gateway to do).
package permissions

import "strings"

// Role identifies the privilege level of an authenticated connection.
type Role string

const (
	RoleOwner Role = "owner" // full access, including config.set and channel login
	RoleGuest Role = "guest" // no owner-only methods; limited to the guest allow-list when one is set
)

// ownerOnlyMethods lists method name prefixes restricted to RoleOwner.
var ownerOnlyMethods = []string{
	"config.set",
	"channels.login",
	"channels.logout",
	"node.pair.approve",
}

// PolicyEngine decides whether a connection with a given role may call
// a given method.
type PolicyEngine struct {
	guestAllow map[string]bool
}

// NewPolicyEngine builds a policy engine. guestAllow, if non-empty,
// restricts guest connections to exactly that set of methods (owner-only
// methods stay denied even if listed); empty means "deny all
// owner-only methods, allow everything else".
func NewPolicyEngine(guestAllow []string) *PolicyEngine {
	pe := &PolicyEngine{guestAllow: make(map[string]bool, len(guestAllow))}
	for _, m := range guestAllow {
		pe.guestAllow[m] = true
	}
	return pe
}

// Allow reports whether role may invoke method.
func (pe *PolicyEngine) Allow(role Role, method string) bool {
	if role == RoleOwner {
		return true
	}
	for _, prefix := range ownerOnlyMethods {
		if method == prefix || strings.HasPrefix(method, prefix+".") {
			return false
		}
	}
	if len(pe.guestAllow) == 0 {
		return true
	}
	return pe.guestAllow[method]
}
