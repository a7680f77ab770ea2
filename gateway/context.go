package gateway

import (
	"context"

	"github.com/jrsteele09/go-tenant-portal/identity"
)

type sessionKey struct{}

// ContextWithSession returns a copy of ctx carrying the resolved session.
func ContextWithSession(ctx context.Context, s *identity.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session resolved earlier in the request, or nil.
func SessionFromContext(ctx context.Context) *identity.Session {
	s, _ := ctx.Value(sessionKey{}).(*identity.Session)
	return s
}
