package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/internal/server"
	"github.com/plantnet/plantnet-server/pkg/auth"
	"github.com/plantnet/plantnet-server/pkg/checkout"
	"github.com/plantnet/plantnet-server/pkg/testkit"
)

const monsteraID = "65f0c2a1b2c3d4e5f6a7b8c9"

// tokens maps fixed bearer tokens to identities.
type tokens map[string]string

func (t tokens) Verify(_ context.Context, raw string) (*auth.Identity, error) {
	email, ok := t[raw]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &auth.Identity{UID: raw, Email: email, EmailVerified: true}, nil
}

func newApp(t *testing.T) (*server.App, *checkout.Sandbox) {
	t.Helper()
	ctx := context.Background()

	store, _ := repositories.NewMemoryStore()
	oid, err := primitive.ObjectIDFromHex(monsteraID)
	require.NoError(t, err)
	require.NoError(t, store.Plants.Create(ctx, &models.Plant{
		ID:       oid,
		Name:     "Monstera",
		Category: "Indoor",
		Price:    decimal.RequireFromString("12.5"),
		Quantity: 5,
		Seller:   models.Seller{Name: "Sam", Email: "seller@example.com"},
	}))
	_, err = store.Users.Upsert(ctx, "admin@example.com", models.UserProfile{Name: "Admin"})
	require.NoError(t, err)
	_, err = store.Users.UpdateRole(ctx, "admin@example.com", models.RoleAdmin)
	require.NoError(t, err)
	_, err = store.Users.Upsert(ctx, "buyer@example.com", models.UserProfile{Name: "Buyer"})
	require.NoError(t, err)

	sandbox := checkout.NewSandbox()
	a, err := server.New(server.Deps{
		Store:   store,
		Gateway: sandbox,
		Verifier: tokens{
			"admin-token": "admin@example.com",
			"buyer-token": "buyer@example.com",
		},
		DomainURL: "http://localhost:5173",
		Currency:  "usd",
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, sandbox
}

func TestRouteScenarios(t *testing.T) {
	testkit.RunDirFresh(t, "testdata", func(t *testing.T) http.Handler {
		a, _ := newApp(t)
		return a.Kernel.Handler()
	})
}

func TestCheckoutOverHTTP(t *testing.T) {
	a, sandbox := newApp(t)
	h := a.Kernel.Handler()

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	cart := `{"items":[{"plantId":"` + monsteraID + `","quantity":2}],"customer":{"email":"buyer@example.com","name":"Buyer"}}`
	rec := do(http.MethodPost, "/create-checkout-session", cart, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	orders, err := a.Store.Orders.ListByCustomer(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	session := orders[0].TransactionID

	rec = do(http.MethodPost, "/payment-success", `{"sessionId":"`+session+`"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":400,"message":"Payment not completed"}`, rec.Body.String())

	require.NoError(t, sandbox.MarkPaid(session, "pi_http"))
	for i := 0; i < 2; i++ {
		rec = do(http.MethodPost, "/payment-success", `{"sessionId":"`+session+`"}`, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	p, err := a.Store.Plants.Find(context.Background(), monsteraID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Quantity, "a retried confirmation decrements stock once")

	rec = do(http.MethodGet, "/my-payments/buyer@example.com", "", "buyer-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pi_http"`)

	rec = do(http.MethodGet, "/admin-stat", "", "admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"data":{"totalUsers":2,"totalPlants":1,"totalOrders":1,"revenue":"0"}}`, rec.Body.String())
}

func TestRouteTable(t *testing.T) {
	a, _ := newApp(t)

	var got []string
	for _, r := range a.Kernel.Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	sort.Strings(got)

	for _, want := range []string{
		"POST /create-checkout-session",
		"POST /payment-success",
		"DELETE /orders/{id}",
		"PATCH /orders/status/{id}",
		"GET /manage-orders/{email}",
		"GET /manage-order/{email}",
		"GET /admin-stat",
		"POST /graphql",
		"GET /ws/orders",
	} {
		assert.Contains(t, got, want)
	}
}
