package services

import (
	"context"
	"fmt"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
)

type StatsService struct {
	store *repositories.Store
}

func NewStatsService(store *repositories.Store) *StatsService {
	return &StatsService{store: store}
}

// AdminStat counts users, plants and orders, and sums price × quantity
// over delivered orders as revenue.
func (s *StatsService) AdminStat(ctx context.Context) (*models.AdminStat, error) {
	users, err := s.store.Users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: count users: %w", err)
	}
	plants, err := s.store.Plants.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: count plants: %w", err)
	}
	orders, revenue, err := s.store.Orders.Summary(ctx, models.StatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("stats: summarize orders: %w", err)
	}
	return &models.AdminStat{
		TotalUsers:  users,
		TotalPlants: plants,
		TotalOrders: orders,
		Revenue:     revenue,
	}, nil
}
