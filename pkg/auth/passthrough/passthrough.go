// Package passthrough admits callers that bring their own Anthropic API
// key. The key is forwarded upstream in place of the gateway's key; the
// identity subject is derived from a hash of it so that rate limits and
// the session ledger can scope by caller without storing the key.
package passthrough

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/Kenerlee/skillbridge/pkg/auth"
)

// KeyPrefix is the prefix Anthropic API keys carry.
const KeyPrefix = "sk-ant-"

// Authenticator forwards caller keys upstream.
type Authenticator struct {
	// ServiceTier is assigned to every admitted caller.
	ServiceTier string

	// RequirePrefix rejects keys that do not start with KeyPrefix.
	RequirePrefix bool
}

// Authenticate returns Yes with the key attached as the identity's
// upstream key, No for an empty or malformed key, and Abstain when the
// request carries no key. Each key is its own tenant.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	key, ok := auth.Credential(r)
	if !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	if key == "" || (a.RequirePrefix && !strings.HasPrefix(key, KeyPrefix)) {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	tier := a.ServiceTier
	if tier == "" {
		tier = auth.DefaultTier
	}
	subject := Subject(key)
	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{
			Subject:     subject,
			ServiceTier: tier,
			Metadata:    map[string]string{"tenant_id": subject},
			UpstreamKey: key,
		},
	}
}

// Subject returns the stable, non-reversible subject for a key.
func Subject(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key_" + hex.EncodeToString(sum[:8])
}
