package auth

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate limit tiers.
const (
	DefaultTier      = "default"
	FileMetadataTier = "file_metadata"
)

// RateLimiter checks whether a request should be allowed. It returns the
// tier the request was charged to, and ErrTooManyRequests when that
// tier's budget for the caller is spent.
type RateLimiter interface {
	Allow(r *http.Request, identity *Identity) (string, error)
}

// TierConfig holds rate limit settings for a tier.
type TierConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// TierFunc selects the tier for a request.
type TierFunc func(r *http.Request, identity *Identity) string

// bucketIdle is how long an unused bucket is kept.
const bucketIdle = 10 * time.Minute

// TokenBucketLimiter keeps one token bucket per caller and tier. Callers
// are keyed by identity subject, or by client address when anonymous.
type TokenBucketLimiter struct {
	tiers  map[string]TierConfig
	tierOf TierFunc

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketLimiter creates a limiter. Requests whose tier has no
// configuration fall back to DefaultTier; a tier with a non-positive rate
// is unlimited. A nil tierOf uses the identity's service tier.
func NewTokenBucketLimiter(tiers map[string]TierConfig, tierOf TierFunc) *TokenBucketLimiter {
	if tierOf == nil {
		tierOf = ServiceTier
	}
	return &TokenBucketLimiter{
		tiers:     tiers,
		tierOf:    tierOf,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// Allow charges one request. It never blocks.
func (l *TokenBucketLimiter) Allow(r *http.Request, identity *Identity) (string, error) {
	tier := l.tierOf(r, identity)
	cfg, ok := l.tiers[tier]
	if !ok {
		tier = DefaultTier
		cfg = l.tiers[DefaultTier]
	}
	if cfg.RequestsPerSecond <= 0 {
		return tier, nil
	}

	key := tier + ":" + callerKey(r, identity)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RequestsPerSecond))
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	if !b.limiter.AllowN(now, 1) {
		return tier, ErrTooManyRequests
	}
	return tier, nil
}

// sweep drops idle buckets at most once per idle period.
func (l *TokenBucketLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < bucketIdle {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= bucketIdle {
			delete(l.buckets, key)
		}
	}
}

// ServiceTier selects the identity's service tier.
func ServiceTier(_ *http.Request, identity *Identity) string {
	if identity == nil || identity.ServiceTier == "" {
		return DefaultTier
	}
	return identity.ServiceTier
}

// RouteTier charges GET /files/{id}/metadata to FileMetadataTier and
// everything else to the identity's service tier.
func RouteTier(r *http.Request, identity *Identity) string {
	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/files/") && strings.HasSuffix(r.URL.Path, "/metadata") {
		return FileMetadataTier
	}
	return ServiceTier(r, identity)
}

// callerKey identifies the caller for rate limiting.
func callerKey(r *http.Request, identity *Identity) string {
	if !identity.Anonymous() {
		return identity.Subject
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
