package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plantnet/plantnet-server/pkg/auth"
	"github.com/plantnet/plantnet-server/pkg/middleware"
)

type fakeVerifier map[string]*auth.Identity

func (f fakeVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return nil, auth.ErrInvalidToken
}

func echoEmail(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.EmailFromCtx(r)
	w.Write([]byte(email)) //nolint:errcheck
}

func TestAuth(t *testing.T) {
	v := fakeVerifier{"good": {UID: "u1", Email: "buyer@plants.example"}}
	h := middleware.Auth(v)(http.HandlerFunc(echoEmail))

	cases := []struct {
		name    string
		header  string
		query   string
		upgrade bool
		code    int
		body    string
	}{
		{"bearer", "Bearer good", "", false, http.StatusOK, "buyer@plants.example"},
		{"lowercase scheme", "bearer good", "", false, http.StatusOK, "buyer@plants.example"},
		{"query token on websocket upgrade", "", "?token=good", true, http.StatusOK, "buyer@plants.example"},
		{"query token on plain request", "", "?token=good", false, http.StatusUnauthorized, ""},
		{"missing", "", "", false, http.StatusUnauthorized, ""},
		{"invalid", "Bearer bad", "", false, http.StatusUnauthorized, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/my-orders/x"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, tc.body, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), "Unauthorized Access!")
			}
		})
	}
}

func TestCORSEchoesOriginWithCredentials(t *testing.T) {
	h := middleware.CORS(middleware.DefaultCORSOptions("https://plantnet.example"))(http.HandlerFunc(echoEmail))

	req := httptest.NewRequest(http.MethodOptions, "/plants", nil)
	req.Header.Set("Origin", "https://plantnet.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://plantnet.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/plants", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	l := middleware.NewLimiter(2, time.Minute)
	h := middleware.RateLimit(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/plants", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	req := httptest.NewRequest(http.MethodGet, "/plants", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "budgets are per client")
}

func TestRecovery(t *testing.T) {
	h := middleware.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
