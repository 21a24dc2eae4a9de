package services

import (
	"context"
	"fmt"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
)

type UserService struct {
	users repositories.UserRepository
}

func NewUserService(users repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

// Save creates the user as a customer or updates an existing profile.
func (s *UserService) Save(ctx context.Context, email string, p models.UserProfile) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.users.Upsert(ctx, email, p)
}

// ChangeRole sets the role and clears any pending request.
func (s *UserService) ChangeRole(ctx context.Context, email, role string) (*models.User, error) {
	switch role {
	case models.RoleCustomer, models.RoleSeller, models.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return s.users.UpdateRole(ctx, normalizeEmail(email), role)
}

func (s *UserService) Find(ctx context.Context, email string) (*models.User, error) {
	return s.users.FindByEmail(ctx, normalizeEmail(email))
}

func (s *UserService) All(ctx context.Context) ([]models.User, error) {
	return s.users.All(ctx)
}

// Role implements rbac.RoleLookup.
func (s *UserService) Role(ctx context.Context, email string) (string, error) {
	return s.users.Role(ctx, normalizeEmail(email))
}
