package gateway

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedIPs caps the number of tracked rate-limit keys to prevent
// memory exhaustion from attackers rotating source IPs, mirroring the
// bound the channel webhook limiter applies to its own key space.
const maxTrackedIPs = 4096

// ipBuckets holds the two token buckets tracked per remote IP: one
// gating req frames, one gating new connections (§4.1).
type ipBuckets struct {
	reqs  *rate.Limiter
	conns *rate.Limiter
	last  time.Time
}

// RateLimiter implements the gateway's per-remote-IP token-bucket
// scheme. Bucket size and refill rate are configured once at
// construction; IP extraction honors a trusted-proxy header when
// configured, falling back to the raw remote address.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBuckets

	reqRPS     float64
	reqBurst   int
	connRPS    float64
	connBurst  int
	enabled    bool
	trustProxy bool
	proxyHdr   string
	ttl        time.Duration
}

// NewRateLimiter builds a rate limiter. rpm <= 0 disables rate
// limiting entirely (Allow/AllowConn always return true).
func NewRateLimiter(rpm int, connBurst int) *RateLimiter {
	rl := &RateLimiter{
		buckets:   make(map[string]*ipBuckets),
		connBurst: connBurst,
		connRPS:   1, // one new connection per second sustained, bursting to connBurst
		ttl:       10 * time.Minute,
		proxyHdr:  "X-Forwarded-For",
	}
	if rpm > 0 {
		rl.enabled = true
		rl.reqRPS = float64(rpm) / 60.0
		rl.reqBurst = rpm
		if rl.reqBurst < 1 {
			rl.reqBurst = 1
		}
	}
	return rl
}

// SetTrustProxy enables honoring X-Forwarded-For for IP extraction,
// for deployments sitting behind a trusted reverse proxy.
func (rl *RateLimiter) SetTrustProxy(trust bool) { rl.trustProxy = trust }

// Enabled reports whether rate limiting is active.
func (rl *RateLimiter) Enabled() bool { return rl.enabled }

// Allow checks (and consumes from) the req-frame bucket for the given
// remote address. Always true when rate limiting is disabled.
func (rl *RateLimiter) Allow(remoteAddr string) bool {
	if !rl.enabled {
		return true
	}
	return rl.bucketFor(remoteAddr).reqs.Allow()
}

// AllowConn checks (and consumes from) the new-connection bucket.
func (rl *RateLimiter) AllowConn(remoteAddr string) bool {
	if !rl.enabled {
		return true
	}
	return rl.bucketFor(remoteAddr).conns.Allow()
}

func (rl *RateLimiter) bucketFor(key string) *ipBuckets {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.evictStaleLocked(now)

	b, ok := rl.buckets[key]
	if !ok {
		b = &ipBuckets{
			reqs:  rate.NewLimiter(rate.Limit(rl.reqRPS), rl.reqBurst),
			conns: rate.NewLimiter(rate.Limit(rl.connRPS), rl.connBurst),
		}
		rl.buckets[key] = b
	}
	b.last = now
	return b
}

// evictStaleLocked removes buckets idle past the TTL, or — if still
// over the cap after that sweep — evicts arbitrary entries until the
// cap is satisfied. Caller holds rl.mu.
func (rl *RateLimiter) evictStaleLocked(now time.Time) {
	if len(rl.buckets) < maxTrackedIPs {
		return
	}
	for k, b := range rl.buckets {
		if now.Sub(b.last) > rl.ttl {
			delete(rl.buckets, k)
		}
	}
	for len(rl.buckets) >= maxTrackedIPs {
		for k := range rl.buckets {
			delete(rl.buckets, k)
			break
		}
	}
}

// ClientIP extracts the rate-limit key for an incoming request,
// honoring the trusted-proxy header only when configured to do so.
func (rl *RateLimiter) ClientIP(r *http.Request) string {
	if rl.trustProxy {
		if fwd := r.Header.Get(rl.proxyHdr); fwd != "" {
			parts := strings.Split(fwd, ",")
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
