package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"beehive/internal/auth"
	"beehive/internal/store"
)

const (
	authFailureMax    = 10
	authFailureWindow = time.Minute
	authBlockedFor    = 5 * time.Minute
)

// routeRule declares one authenticated route. Admin keys pass every rule;
// bee keys pass only rules with beeAllowed set. The whole access surface
// is this one table in routes.go, checked at dispatch.
type routeRule struct {
	pattern    string
	handler    http.HandlerFunc
	beeAllowed bool
}

// requireKey wraps a handler with the bearer-key gate for one route rule.
func (s *Server) requireKey(rule routeRule) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remote := remoteHost(r)
		now := time.Now().UTC()
		if !s.authLimiter.Allow(remote, now) {
			err := apiError{
				status:  http.StatusTooManyRequests,
				code:    "resource_exhausted",
				errCode: ErrCodeRateLimited,
				err:     fmt.Errorf("too many failed authentication attempts"),
			}
			s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
			return
		}

		secret, ok := bearerToken(r)
		if !ok {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("missing api key")))
			return
		}

		key, err := s.store.GetAPIKey(r.Context(), auth.HashKey(secret))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.authLimiter.RegisterFailure(remote, now)
				s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid api key")))
				return
			}
			s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
			return
		}
		s.authLimiter.Reset(remote)

		principal := authPrincipal{Key: key}
		if !principal.IsAdmin() && !rule.beeAllowed {
			s.writeErrorReq(w, r, http.StatusForbidden, forbidden(fmt.Errorf("admin key required")))
			return
		}

		rule.handler(w, r.WithContext(contextWithAuthPrincipal(r.Context(), principal)))
	}
}

// principal returns the request's authenticated identity. Routes behind
// requireKey always carry one; the zero value means a wiring bug.
func (s *Server) principal(r *http.Request) authPrincipal {
	principal, _ := authPrincipalFromContext(r.Context())
	return principal
}

// requestProject resolves the project a request operates on. Bee keys are
// bound to the project they were minted for; admin keys work across every
// project and may name another one with the project query parameter.
func (s *Server) requestProject(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal := s.principal(r)
	requested := strings.TrimSpace(r.URL.Query().Get("project"))
	if requested == "" || requested == principal.Project() {
		return principal.Project(), true
	}
	if !principal.IsAdmin() {
		s.writeErrorReq(w, r, http.StatusForbidden,
			forbidden(fmt.Errorf("key is not valid for project %s", requested)))
		return "", false
	}
	return requested, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
