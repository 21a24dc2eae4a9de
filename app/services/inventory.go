package services

import (
	"context"
	"fmt"

	"github.com/plantnet/plantnet-server/app/events"
	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/pkg/logger"
	"github.com/plantnet/plantnet-server/pkg/metrics"
)

// Adjustment is the outcome of one stock movement.
type Adjustment struct {
	PlantID string `json:"plantId"`
	Delta   int    `json:"delta"`
	Before  int    `json:"before"`
	After   int    `json:"after"`
	// Clamped is set when the decrement would have gone below zero and
	// the quantity was floored instead.
	Clamped bool `json:"clamped"`
}

type InventoryService struct {
	plants  repositories.PlantRepository
	events  events.Publisher
	catalog *CatalogCache
}

func NewInventoryService(plants repositories.PlantRepository, pub events.Publisher, c *CatalogCache) *InventoryService {
	return &InventoryService{plants: plants, events: pub, catalog: c}
}

// Adjust adds delta to the plant's quantity in one atomic store write,
// never going below zero.
func (s *InventoryService) Adjust(ctx context.Context, plantID string, delta int) (Adjustment, error) {
	before, err := s.plants.Adjust(ctx, plantID, delta)
	if err != nil {
		return Adjustment{}, fmt.Errorf("inventory: adjust %s by %d: %w", plantID, delta, err)
	}

	adj := Adjustment{PlantID: plantID, Delta: delta, Before: before, After: max(0, before+delta)}
	if before+delta < 0 {
		adj.Clamped = true
		metrics.InventoryOversold.Inc()
		logger.WithCtx(ctx).Warn("inventory: oversold, quantity floored at zero",
			"plant", plantID, "before", before, "delta", delta)
	}

	s.catalog.invalidate(ctx, plantID)
	s.events.FireAsync(ctx, events.StockUpdated, events.StockUpdatedPayload{
		PlantID: plantID,
		Delta:   delta,
		Before:  adj.Before,
		After:   adj.After,
		Clamped: adj.Clamped,
	})
	return adj, nil
}
