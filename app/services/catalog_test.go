package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/app/services"
	"github.com/plantnet/plantnet-server/pkg/storage"
)

func TestPlantServiceCRUD(t *testing.T) {
	ctx := context.Background()
	store, _ := repositories.NewMemoryStore()
	svc := services.NewPlantService(store.Plants, nil)

	p := &models.Plant{
		Name:     "Snake Plant",
		Category: "Indoor",
		Price:    decimal.RequireFromString("12.50"),
		Quantity: 4,
		Seller:   models.Seller{Email: "Seller@Example.com"},
	}
	require.NoError(t, svc.Create(ctx, p))
	assert.Equal(t, "seller@example.com", p.Seller.Email)

	got, err := svc.Find(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Snake Plant", got.Name)

	indoor, err := svc.List(ctx, "Indoor")
	require.NoError(t, err)
	assert.Len(t, indoor, 1)

	mine, err := svc.BySeller(ctx, "seller@example.com")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	qty := 9
	updated, err := svc.Update(ctx, p.ID.Hex(), models.PlantUpdate{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Quantity)
	assert.Equal(t, "Snake Plant", updated.Name)

	_, err = svc.Update(ctx, p.ID.Hex(), models.PlantUpdate{})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	neg := -1
	_, err = svc.Update(ctx, p.ID.Hex(), models.PlantUpdate{Quantity: &neg})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	n, err := svc.Delete(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.Find(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestPlantUpdateUpsertsUnknownID(t *testing.T) {
	store, _ := repositories.NewMemoryStore()
	svc := services.NewPlantService(store.Plants, nil)

	name := "Pothos"
	p, err := svc.Update(context.Background(), "65f0c2a1b2c3d4e5f6a7b8c9", models.PlantUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Pothos", p.Name)

	n, err := store.Plants.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	store, _ := repositories.NewMemoryStore()
	svc := services.NewUserService(store.Users)

	u, err := svc.Save(ctx, " Ada@Example.com ", models.UserProfile{Name: "Ada", Status: "Requested"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, models.RoleCustomer, u.Role)

	u, err = svc.ChangeRole(ctx, "ada@example.com", models.RoleSeller)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSeller, u.Role)
	assert.Empty(t, u.Status)

	u, err = svc.Save(ctx, "ada@example.com", models.UserProfile{Address: "1 Leaf Rd"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSeller, u.Role, "profile updates never touch the role")

	role, err := svc.Role(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSeller, role)

	_, err = svc.ChangeRole(ctx, "ada@example.com", "root")
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = svc.ChangeRole(ctx, "ghost@example.com", models.RoleAdmin)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = svc.Save(ctx, "  ", models.UserProfile{})
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestPaymentServiceFindsByIDOrIntent(t *testing.T) {
	ctx := context.Background()
	store, _ := repositories.NewMemoryStore()
	svc := services.NewPaymentService(store.Payments)

	p := &models.Payment{SessionID: "sess_1", PaymentIntentID: "pi_1", Customer: "buyer@example.com"}
	_, err := store.Payments.Record(ctx, p)
	require.NoError(t, err)

	byID, err := svc.Find(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "pi_1", byID.PaymentIntentID)

	byIntent, err := svc.Find(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byIntent.ID)

	_, err = svc.Find(ctx, "pi_missing")
	assert.ErrorIs(t, err, services.ErrNotFound)

	mine, err := svc.ForCustomer(ctx, "Buyer@example.com")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestImageUpload(t *testing.T) {
	disk, err := storage.NewLocalDisk(t.TempDir(), "http://localhost:3000/storage")
	require.NoError(t, err)
	svc := services.NewImageService(disk)

	url, err := svc.Upload(context.Background(), "image/png; charset=binary", strings.NewReader("\x89PNG"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:3000/storage/plants/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	_, err = svc.Upload(context.Background(), "text/html", strings.NewReader("<p>"))
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}
