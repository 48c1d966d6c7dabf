package auth

import (
	"net/http"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/debug"
	"github.com/Kenerlee/skillbridge/pkg/observability"
	"github.com/Kenerlee/skillbridge/pkg/storage"
	"github.com/Kenerlee/skillbridge/pkg/transport"
)

// Middleware creates HTTP middleware from an AuthChain and optional RateLimiter.
// It checks the bypass list, runs authentication, injects identity and
// tenant context, and optionally enforces rate limits.
func Middleware(chain *AuthChain, limiter RateLimiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)

			if result.Decision != Yes || result.Identity == nil {
				debug.Log("auth", "authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				transport.WriteAPIError(w, api.NewUnauthorizedError(ErrUnauthenticated.Error()))
				return
			}

			if result.Identity.Subject == "" {
				transport.WriteAPIError(w, api.NewServerError(api.InternalErrorPrefix+"authenticator returned identity with empty subject"))
				return
			}

			debug.Log("auth", "authentication succeeded",
				"subject", result.Identity.Subject,
				"path", r.URL.Path,
			)

			if limiter != nil {
				if tier, err := limiter.Allow(r, result.Identity); err != nil {
					debug.Log("auth", "rate limit exceeded", "subject", result.Identity.Subject, "tier", tier)
					observability.RateLimitRejectedTotal.WithLabelValues(tier).Inc()
					transport.WriteAPIError(w, api.NewTooManyRequestsError(ErrTooManyRequests.Error()))
					return
				}
			}

			ctx := SetIdentity(r.Context(), result.Identity)
			if tenantID := result.Identity.TenantID(); tenantID != "" {
				ctx = storage.SetTenant(ctx, tenantID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DefaultBypassEndpoints lists endpoints that skip authentication and
// rate limiting.
var DefaultBypassEndpoints = []string{"/health", "/healthz", "/metrics"}
