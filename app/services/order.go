package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/plantnet/plantnet-server/app/events"
	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/pkg/logger"
)

// CancelResult mirrors the store's delete result plus whether stock was
// given back.
type CancelResult struct {
	DeletedCount int64 `json:"deletedCount"`
	Restocked    bool  `json:"restocked"`
}

type OrderService struct {
	orders    repositories.OrderRepository
	inventory *InventoryService
	events    events.Publisher
}

func NewOrderService(orders repositories.OrderRepository, inv *InventoryService, pub events.Publisher) *OrderService {
	return &OrderService{orders: orders, inventory: inv, events: pub}
}

// Cancel deletes an order that has not been delivered. Only the stock the
// confirmation actually took is returned, so unconfirmed orders and
// orders confirmed against an empty shelf give nothing back.
func (s *OrderService) Cancel(ctx context.Context, id string) (*CancelResult, error) {
	o, err := s.orders.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("orders: cancel %s: %w", id, err)
	}
	if o.Status == models.StatusDelivered {
		return nil, ErrCancellationForbidden
	}

	// The status filter on the delete closes the window between the read
	// above and a concurrent delivery.
	deleted, err := s.orders.DeleteUnlessStatus(ctx, id, models.StatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("orders: cancel %s: %w", id, err)
	}
	if deleted == 0 {
		if cur, ferr := s.orders.Find(ctx, id); ferr == nil && cur.Status == models.StatusDelivered {
			return nil, ErrCancellationForbidden
		}
		return &CancelResult{}, nil
	}

	res := &CancelResult{DeletedCount: deleted}
	if o.Confirmed() && o.StockTaken > 0 {
		if _, err := s.inventory.Adjust(context.WithoutCancel(ctx), o.PlantID, o.StockTaken); err != nil {
			logger.WithCtx(ctx).Error("orders: restock after cancel failed",
				"order", id, "plant", o.PlantID, "quantity", o.StockTaken, "error", err)
		} else {
			res.Restocked = true
		}
	}

	logger.WithCtx(ctx).Info("orders: cancelled", "order", id, "restocked", res.Restocked)
	s.events.FireAsync(ctx, events.OrderCancelled, events.OrderCancelledPayload{
		OrderID:   id,
		PlantID:   o.PlantID,
		Customer:  o.Customer,
		Quantity:  o.Quantity,
		Restocked: res.Restocked,
	})
	return res, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	if !slices.Contains(models.OrderStatuses, status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	o, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("orders: update status %s: %w", id, err)
	}
	s.events.FireAsync(ctx, events.OrderStatusUpdated, events.OrderStatusPayload{
		OrderID:  id,
		Customer: o.Customer,
		Status:   status,
	})
	return o, nil
}

func (s *OrderService) Find(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.Find(ctx, id)
}

func (s *OrderService) ForCustomer(ctx context.Context, email string) ([]models.Order, error) {
	return s.orders.ListByCustomer(ctx, normalizeEmail(email))
}

func (s *OrderService) ForSeller(ctx context.Context, email string) ([]models.Order, error) {
	return s.orders.ListBySeller(ctx, normalizeEmail(email))
}

func (s *OrderService) All(ctx context.Context) ([]models.Order, error) {
	return s.orders.All(ctx)
}

// CountStale counts orders that were never confirmed and are older than
// maxAge. They are abandoned checkouts and are only reported.
func (s *OrderService) CountStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.orders.CountStale(ctx, time.Now().UTC().Add(-maxAge))
}
