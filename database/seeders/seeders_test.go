package seeders_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/database/seeders"
)

func TestRunAllIsRepeatable(t *testing.T) {
	ctx := context.Background()
	store, _ := repositories.NewMemoryStore()

	assert.Equal(t, []string{"users", "plants"}, seeders.Names())

	require.NoError(t, seeders.RunAll(ctx, store))
	require.NoError(t, seeders.RunAll(ctx, store))

	plants, err := store.Plants.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), plants)

	role, err := store.Users.Role(ctx, "admin@plantnet.dev")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	indoor, err := store.Plants.List(ctx, repositories.PlantFilter{Category: "Indoor"})
	require.NoError(t, err)
	assert.Len(t, indoor, 3)
}
