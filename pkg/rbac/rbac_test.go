package rbac_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/plantnet/plantnet-server/pkg/auth"
	"github.com/plantnet/plantnet-server/pkg/middleware"
	"github.com/plantnet/plantnet-server/pkg/rbac"
)

type roles map[string]string

func (r roles) Role(_ context.Context, email string) (string, error) { return r[email], nil }

var lookup = roles{"admin@plants.example": "admin", "buyer@plants.example": "customer"}

func as(email string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if email != "" {
			r = r.WithContext(middleware.WithIdentity(r.Context(), &auth.Identity{Email: email}))
		}
		h.ServeHTTP(w, r)
	})
}

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func TestHasRole(t *testing.T) {
	guarded := rbac.HasRole(lookup, rbac.Admin)(http.HandlerFunc(ok))

	for email, want := range map[string]int{
		"admin@plants.example": http.StatusNoContent,
		"buyer@plants.example": http.StatusForbidden,
		"ghost@plants.example": http.StatusForbidden,
		"":                     http.StatusUnauthorized,
	} {
		rec := httptest.NewRecorder()
		as(email, guarded).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin-stat", nil))
		assert.Equal(t, want, rec.Code, email)
	}
}

func TestSelfOrAdmin(t *testing.T) {
	cases := []struct {
		caller, path string
		want         int
	}{
		{"buyer@plants.example", "/my-orders/buyer@plants.example", http.StatusNoContent},
		{"buyer@plants.example", "/my-orders/other@plants.example", http.StatusForbidden},
		{"admin@plants.example", "/my-orders/other@plants.example", http.StatusNoContent},
	}

	for _, tc := range cases {
		r := chi.NewRouter()
		r.With(func(next http.Handler) http.Handler { return as(tc.caller, next) },
			rbac.SelfOrAdmin(lookup, "email")).
			Get("/my-orders/{email}", ok)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.want, rec.Code, "%s -> %s", tc.caller, tc.path)
	}
}
