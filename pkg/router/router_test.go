package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantnet/plantnet-server/pkg/router"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func TestVerbsAreRouted(t *testing.T) {
	r := router.New()
	r.Get("/plants", "plants.index", ok)
	r.Post("/plants", "plants.store", ok)
	r.Patch("/plants/{id}", "plants.update", ok)
	r.Delete("/plants/{id}", "plants.destroy", ok)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/plants"},
		{http.MethodPost, "/plants"},
		{http.MethodPatch, "/plants/1"},
		{http.MethodDelete, "/plants/1"},
	} {
		rec := httptest.NewRecorder()
		r.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, "%s %s", tc.method, tc.path)
	}

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/plants/1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGroupMiddlewareOrder(t *testing.T) {
	var trail []string
	mark := func(tag string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trail = append(trail, tag)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := router.New()
	admin := r.Group("/", mark("auth")).Group("", mark("admin"))
	admin.Get("/admin-stat", "admin.stat", ok, mark("route"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin-stat", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"auth", "admin", "route"}, trail)
}

func TestNamedURL(t *testing.T) {
	r := router.New()
	r.Get("/my-orders/{email}", "orders.mine", ok)

	url, err := r.URL("orders.mine", map[string]string{"email": "a@b.co"})
	require.NoError(t, err)
	assert.Equal(t, "/my-orders/a@b.co", url)

	_, err = r.URL("orders.mine", nil)
	assert.Error(t, err)

	_, err = r.URL("missing", nil)
	assert.Error(t, err)
}

func TestRoutesSorted(t *testing.T) {
	r := router.New()
	r.Post("/users/{email}", "users.upsert", ok)
	r.Get("/users", "users.index", ok)
	r.Get("/users/{email}", "users.show", ok)

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, "/users", routes[0].Path)
	assert.Equal(t, http.MethodGet, routes[1].Method)
	assert.Equal(t, "users.upsert", routes[2].Name)
}
