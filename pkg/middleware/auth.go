package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/plantnet/plantnet-server/pkg/auth"
	"github.com/plantnet/plantnet-server/pkg/logger"
	"github.com/plantnet/plantnet-server/pkg/response"
)

type identityKey struct{}

// Auth verifies the bearer token (or ?token= for websocket upgrades) and
// stores the caller's identity in the request context.
func Auth(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" || v == nil {
				response.Unauthorized(w)
				return
			}

			id, err := v.Verify(r.Context(), token)
			if err != nil {
				logger.WithCtx(r.Context()).Debug("auth: token rejected", "error", err)
				response.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	// Browsers cannot set headers on a websocket handshake.
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("token")
	}
	return ""
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromCtx returns the verified caller, if any.
func IdentityFromCtx(r *http.Request) (*auth.Identity, bool) {
	id, ok := r.Context().Value(identityKey{}).(*auth.Identity)
	return id, ok && id != nil
}

// EmailFromCtx returns the verified caller's email.
func EmailFromCtx(r *http.Request) (string, bool) {
	id, ok := IdentityFromCtx(r)
	if !ok || id.Email == "" {
		return "", false
	}
	return id.Email, true
}
