package auth

import "context"

type identityKey struct{}

// SetIdentity stores the authenticated identity in the context.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}

// UpstreamKey returns the caller's own upstream API key when the
// passthrough authenticator accepted the request, or "".
func UpstreamKey(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UpstreamKey
	}
	return ""
}
