package repositories_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
)

func seedPlant(t *testing.T, store *repositories.Store, qty int) *models.Plant {
	t.Helper()
	p := &models.Plant{
		Name:     "Monstera",
		Category: "Indoor",
		Price:    decimal.RequireFromString("10.00"),
		Quantity: qty,
		Seller:   models.Seller{Email: "seller@example.com"},
	}
	require.NoError(t, store.Plants.Create(context.Background(), p))
	return p
}

func TestMemoryAdjustFloorsAtZero(t *testing.T) {
	store, _ := repositories.NewMemoryStore()
	ctx := context.Background()
	p := seedPlant(t, store, 3)

	before, err := store.Plants.Adjust(ctx, p.ID.Hex(), -5)
	require.NoError(t, err)
	assert.Equal(t, 3, before)

	got, err := store.Plants.Find(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	before, err = store.Plants.Adjust(ctx, p.ID.Hex(), 2)
	require.NoError(t, err)
	assert.Equal(t, 0, before)
}

func TestMemoryAdjustUnknownPlant(t *testing.T) {
	store, _ := repositories.NewMemoryStore()

	_, err := store.Plants.Adjust(context.Background(), "65f0c2a1b2c3d4e5f6a7b8c9", -1)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = store.Plants.Adjust(context.Background(), "nope", -1)
	assert.ErrorIs(t, err, repositories.ErrInvalidID)
}

func TestMemoryClaimTransactionOnlyOnce(t *testing.T) {
	store, _ := repositories.NewMemoryStore()
	ctx := context.Background()
	o := &models.Order{TransactionID: "cs_1", Status: models.StatusPending, Quantity: 1}
	require.NoError(t, store.Orders.InsertMany(ctx, []*models.Order{o}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Orders.ClaimTransaction(ctx, o.ID, "cs_1", "pi_1", time.Now())
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	got, err := store.Orders.Find(ctx, o.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "pi_1", got.TransactionID)
	assert.True(t, got.Confirmed())
}

func TestMemoryReleaseTransaction(t *testing.T) {
	store, _ := repositories.NewMemoryStore()
	ctx := context.Background()
	o := &models.Order{TransactionID: "cs_1", Status: models.StatusPending, Quantity: 2}
	require.NoError(t, store.Orders.InsertMany(ctx, []*models.Order{o}))

	ok, err := store.Orders.ClaimTransaction(ctx, o.ID, "cs_1", "pi_1", time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Orders.ReleaseTransaction(ctx, o.ID, "cs_1", "pi_1")
	require.NoError(t, err)
	assert.False(t, ok, "release only applies to the current holder")

	ok, err = store.Orders.ReleaseTransaction(ctx, o.ID, "pi_1", "cs_1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Orders.Find(ctx, o.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "cs_1", got.TransactionID)
	assert.False(t, got.Confirmed())

	require.NoError(t, store.Orders.SetStockTaken(ctx, o.ID, 1))
	got, err = store.Orders.Find(ctx, o.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockTaken)

	assert.ErrorIs(t, store.Orders.SetStockTaken(ctx, primitive.NewObjectID(), 1), repositories.ErrNotFound)
}

func TestMemoryDeleteUnlessStatus(t *testing.T) {
	store, _ := repositories.NewMemoryStore()
	ctx := context.Background()
	delivered := &models.Order{Status: models.StatusDelivered}
	pending := &models.Order{Status: models.StatusPending}
	require.NoError(t, store.Orders.InsertMany(ctx, []*models.Order{delivered, pending}))

	n, err := store.Orders.DeleteUnlessStatus(ctx, delivered.ID.Hex(), models.StatusDelivered)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.Orders.DeleteUnlessStatus(ctx, pending.ID.Hex(), models.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryRecordPaymentIsIdempotent(t *testing.T) {
	store, _ := repositories.NewMemoryStore()
	ctx := context.Background()

	created, err := store.Payments.Record(ctx, &models.Payment{PaymentIntentID: "pi_1", Amount: decimal.NewFromInt(20)})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Payments.Record(ctx, &models.Payment{PaymentIntentID: "pi_1", Amount: decimal.NewFromInt(99)})
	require.NoError(t, err)
	assert.False(t, created)

	p, err := store.Payments.FindByIntent(ctx, "pi_1")
	require.NoError(t, err)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(20)))

	all, err := store.Payments.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemorySummaryAndStale(t *testing.T) {
	store, _ := repositories.NewMemoryStore()
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	confirmed := time.Now()

	require.NoError(t, store.Orders.InsertMany(ctx, []*models.Order{
		{Status: models.StatusDelivered, Price: decimal.RequireFromString("10.50"), Quantity: 2, CreatedAt: old, ConfirmedAt: &confirmed},
		{Status: models.StatusDelivered, Price: decimal.RequireFromString("4"), Quantity: 1, CreatedAt: old, ConfirmedAt: &confirmed},
		{Status: models.StatusPending, Price: decimal.RequireFromString("100"), Quantity: 1, CreatedAt: old},
		{Status: models.StatusPending, Price: decimal.RequireFromString("100"), Quantity: 1, CreatedAt: time.Now()},
	}))

	n, revenue, err := store.Orders.Summary(ctx, models.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, "25", revenue.String())

	stale, err := store.Orders.CountStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stale)
}

func TestMemoryUserUpsertKeepsRole(t *testing.T) {
	store, _ := repositories.NewMemoryStore()
	ctx := context.Background()

	u, err := store.Users.Upsert(ctx, "Buyer@Example.com", models.UserProfile{Name: "Buyer"})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", u.Email)
	assert.Equal(t, models.RoleCustomer, u.Role)

	_, err = store.Users.Upsert(ctx, "buyer@example.com", models.UserProfile{Status: "Requested"})
	require.NoError(t, err)
	_, err = store.Users.UpdateRole(ctx, "buyer@example.com", models.RoleSeller)
	require.NoError(t, err)

	u, err = store.Users.Upsert(ctx, "buyer@example.com", models.UserProfile{Address: "Dhaka"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSeller, u.Role)
	assert.Empty(t, u.Status)
	assert.Equal(t, "Buyer", u.Name)

	role, err := store.Users.Role(ctx, "BUYER@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSeller, role)

	role, err = store.Users.Role(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, role)

	_, err = store.Users.UpdateRole(ctx, "ghost@example.com", models.RoleAdmin)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestMemoryPlantUpdateUpsert(t *testing.T) {
	store, _ := repositories.NewMemoryStore()
	ctx := context.Background()
	name := "Fern"
	id := "65f0c2a1b2c3d4e5f6a7b8c9"

	_, err := store.Plants.Update(ctx, id, models.PlantUpdate{Name: &name}, false)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	p, err := store.Plants.Update(ctx, id, models.PlantUpdate{Name: &name}, true)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID.Hex())
	assert.Equal(t, "Fern", p.Name)

	list, err := store.Plants.List(ctx, repositories.PlantFilter{Category: "Indoor"})
	require.NoError(t, err)
	assert.Empty(t, list)
}
