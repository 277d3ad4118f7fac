package server

import (
	"context"

	"beehive/internal/models"
)

type authContextKey struct{}

// authPrincipal is the resolved identity of an authenticated request.
type authPrincipal struct {
	Key *models.APIKey
}

func (p authPrincipal) Project() string {
	if p.Key == nil {
		return ""
	}
	return p.Key.Project
}

func (p authPrincipal) IsAdmin() bool {
	return p.Key != nil && p.Key.Role == models.RoleAdmin
}

func contextWithAuthPrincipal(ctx context.Context, principal authPrincipal) context.Context {
	return context.WithValue(ctx, authContextKey{}, principal)
}

func authPrincipalFromContext(ctx context.Context) (authPrincipal, bool) {
	if ctx == nil {
		return authPrincipal{}, false
	}
	principal, ok := ctx.Value(authContextKey{}).(authPrincipal)
	return principal, ok
}
