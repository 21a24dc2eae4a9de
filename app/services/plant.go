package services

import (
	"context"
	"fmt"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
)

// PlantService is the catalogue. Reads go through the cache; every write
// invalidates it.
type PlantService struct {
	plants  repositories.PlantRepository
	catalog *CatalogCache
}

func NewPlantService(plants repositories.PlantRepository, c *CatalogCache) *PlantService {
	return &PlantService{plants: plants, catalog: c}
}

func (s *PlantService) Create(ctx context.Context, p *models.Plant) error {
	p.Seller.Email = normalizeEmail(p.Seller.Email)
	if err := s.plants.Create(ctx, p); err != nil {
		return fmt.Errorf("plants: create: %w", err)
	}
	s.catalog.invalidate(ctx, p.ID.Hex())
	return nil
}

func (s *PlantService) Find(ctx context.Context, id string) (*models.Plant, error) {
	var cached models.Plant
	if s.catalog.get(ctx, plantKey(id), &cached) {
		return &cached, nil
	}
	p, err := s.plants.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.catalog.set(ctx, plantKey(id), p)
	return p, nil
}

func (s *PlantService) List(ctx context.Context, category string) ([]models.Plant, error) {
	return s.list(ctx, repositories.PlantFilter{Category: category})
}

// BySeller lists a seller's own listings.
func (s *PlantService) BySeller(ctx context.Context, email string) ([]models.Plant, error) {
	return s.list(ctx, repositories.PlantFilter{SellerEmail: normalizeEmail(email)})
}

func (s *PlantService) list(ctx context.Context, f repositories.PlantFilter) ([]models.Plant, error) {
	key := listKey(f.Category, f.SellerEmail)
	var cached []models.Plant
	if s.catalog.get(ctx, key, &cached) {
		return cached, nil
	}
	plants, err := s.plants.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("plants: list: %w", err)
	}
	s.catalog.set(ctx, key, plants)
	return plants, nil
}

// Update edits a listing, creating it when the id is unknown.
func (s *PlantService) Update(ctx context.Context, id string, u models.PlantUpdate) (*models.Plant, error) {
	if u.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if u.Price != nil && !u.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if u.Quantity != nil && *u.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
	}
	if u.Seller != nil {
		u.Seller.Email = normalizeEmail(u.Seller.Email)
	}

	p, err := s.plants.Update(ctx, id, u, true)
	if err != nil {
		return nil, fmt.Errorf("plants: update %s: %w", id, err)
	}
	s.catalog.invalidate(ctx, id)
	return p, nil
}

func (s *PlantService) Delete(ctx context.Context, id string) (int64, error) {
	n, err := s.plants.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("plants: delete %s: %w", id, err)
	}
	s.catalog.invalidate(ctx, id)
	return n, nil
}
