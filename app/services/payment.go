package services

import (
	"context"
	"errors"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
)

type PaymentService struct {
	payments repositories.PaymentRepository
}

func NewPaymentService(payments repositories.PaymentRepository) *PaymentService {
	return &PaymentService{payments: payments}
}

// Find accepts either a payment document id or a payment intent id.
func (s *PaymentService) Find(ctx context.Context, id string) (*models.Payment, error) {
	p, err := s.payments.Find(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repositories.ErrInvalidID) && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	return s.payments.FindByIntent(ctx, id)
}

func (s *PaymentService) ForCustomer(ctx context.Context, email string) ([]models.Payment, error) {
	return s.payments.ListByCustomer(ctx, normalizeEmail(email))
}

func (s *PaymentService) All(ctx context.Context) ([]models.Payment, error) {
	return s.payments.All(ctx)
}
