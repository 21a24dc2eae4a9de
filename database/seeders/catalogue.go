package seeders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
)

const (
	demoAdmin  = "admin@plantnet.dev"
	demoSeller = "seller@plantnet.dev"
)

func init() {
	Register("users", seedUsers)
	Register("plants", seedPlants)
}

func seedUsers(ctx context.Context, store *repositories.Store) error {
	for email, u := range map[string]struct {
		name, role string
	}{
		demoAdmin:  {"PlantNet Admin", models.RoleAdmin},
		demoSeller: {"Greenhouse Co.", models.RoleSeller},
	} {
		if _, err := store.Users.Upsert(ctx, email, models.UserProfile{Name: u.name}); err != nil {
			return err
		}
		if _, err := store.Users.UpdateRole(ctx, email, u.role); err != nil {
			return err
		}
	}
	return nil
}

// seedPlants is a no-op once the demo seller has listings.
func seedPlants(ctx context.Context, store *repositories.Store) error {
	existing, err := store.Plants.List(ctx, repositories.PlantFilter{SellerEmail: demoSeller})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	seller := models.Seller{Name: "Greenhouse Co.", Email: demoSeller}
	for _, p := range []models.Plant{
		{Name: "Monstera Deliciosa", Category: "Indoor", Price: decimal.RequireFromString("24.99"), Quantity: 12,
			Description: "Split-leaf philodendron, bright indirect light."},
		{Name: "Snake Plant", Category: "Indoor", Price: decimal.RequireFromString("15.50"), Quantity: 20,
			Description: "Tolerates low light and irregular watering."},
		{Name: "Lavender", Category: "Outdoor", Price: decimal.RequireFromString("8.75"), Quantity: 30,
			Description: "Full sun, well-drained soil."},
		{Name: "Echeveria", Category: "Succulent", Price: decimal.RequireFromString("6.00"), Quantity: 40},
		{Name: "Boston Fern", Category: "Indoor", Price: decimal.RequireFromString("18.25"), Quantity: 8},
	} {
		p := p
		p.Seller = seller
		if err := store.Plants.Create(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
