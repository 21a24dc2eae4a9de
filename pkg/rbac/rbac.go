// Package rbac guards routes by the caller's stored role.
package rbac

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/plantnet/plantnet-server/pkg/logger"
	"github.com/plantnet/plantnet-server/pkg/middleware"
	"github.com/plantnet/plantnet-server/pkg/response"
)

const Admin = "admin"

// RoleLookup resolves the role recorded for an email.
type RoleLookup interface {
	Role(ctx context.Context, email string) (string, error)
}

// HasRole allows only callers whose stored role is one of roles.
// middleware.Auth must run first.
func HasRole(lookup RoleLookup, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, ok := middleware.EmailFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			role, err := lookup.Role(r.Context(), email)
			if err != nil {
				logger.WithCtx(r.Context()).Debug("rbac: role lookup failed", "email", email, "error", err)
			}
			if !allowed[role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SelfOrAdmin allows the caller when the {param} path segment is their own
// email, or when they are an admin.
func SelfOrAdmin(lookup RoleLookup, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, ok := middleware.EmailFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			if strings.EqualFold(chi.URLParam(r, param), email) {
				next.ServeHTTP(w, r)
				return
			}
			if role, _ := lookup.Role(r.Context(), email); role == Admin {
				next.ServeHTTP(w, r)
				return
			}
			response.Forbidden(w)
		})
	}
}
