// Package repositories is the store access layer. Each collection has an
// interface, a MongoDB implementation and an in-memory implementation
// (see memory.go) used by tests and the "memory" store driver.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/pkg/database"
)

var (
	ErrNotFound  = errors.New("repositories: document not found")
	ErrInvalidID = errors.New("repositories: invalid id")
)

// PlantFilter narrows List. Zero values match everything.
type PlantFilter struct {
	Category    string
	SellerEmail string
}

type PlantRepository interface {
	Create(ctx context.Context, p *models.Plant) error
	Find(ctx context.Context, id string) (*models.Plant, error)
	List(ctx context.Context, f PlantFilter) ([]models.Plant, error)
	// Update applies u. With upsert a missing id is created from u.
	Update(ctx context.Context, id string, u models.PlantUpdate, upsert bool) (*models.Plant, error)
	Delete(ctx context.Context, id string) (int64, error)
	// Adjust adds delta to the stored quantity in one atomic write,
	// flooring the result at zero. It returns the quantity before the write.
	Adjust(ctx context.Context, id string, delta int) (before int, err error)
	Count(ctx context.Context) (int64, error)
}

type OrderRepository interface {
	InsertMany(ctx context.Context, orders []*models.Order) error
	Find(ctx context.Context, id string) (*models.Order, error)
	FindByTransaction(ctx context.Context, transactionID string) ([]models.Order, error)
	// ClaimTransaction rewrites the order's transaction id from -> to only
	// if it still holds from. The bool reports whether this call won.
	ClaimTransaction(ctx context.Context, id primitive.ObjectID, from, to string, at time.Time) (bool, error)
	// ReleaseTransaction undoes a claim: from -> to and confirmedAt cleared,
	// again only if the order still holds from.
	ReleaseTransaction(ctx context.Context, id primitive.ObjectID, from, to string) (bool, error)
	SetStockTaken(ctx context.Context, id primitive.ObjectID, n int) error
	UpdateStatus(ctx context.Context, id, status string) (*models.Order, error)
	// DeleteUnlessStatus removes the order unless its status is status.
	DeleteUnlessStatus(ctx context.Context, id, status string) (int64, error)
	ListByCustomer(ctx context.Context, email string) ([]models.Order, error)
	ListBySeller(ctx context.Context, email string) ([]models.Order, error)
	All(ctx context.Context) ([]models.Order, error)
	// Summary counts all orders and sums price × quantity over those in
	// revenueStatus.
	Summary(ctx context.Context, revenueStatus string) (int64, decimal.Decimal, error)
	// CountStale counts unconfirmed orders created before cutoff.
	CountStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type PaymentRepository interface {
	// Record inserts p unless a payment with the same intent id exists.
	// created is false when it already did.
	Record(ctx context.Context, p *models.Payment) (created bool, err error)
	FindByIntent(ctx context.Context, paymentIntentID string) (*models.Payment, error)
	Find(ctx context.Context, id string) (*models.Payment, error)
	ListByCustomer(ctx context.Context, email string) ([]models.Payment, error)
	All(ctx context.Context) ([]models.Payment, error)
}

type UserRepository interface {
	// Upsert creates the user with role customer or updates the profile of
	// an existing one. The role is never touched.
	Upsert(ctx context.Context, email string, p models.UserProfile) (*models.User, error)
	// UpdateRole sets the role and clears any pending status request.
	UpdateRole(ctx context.Context, email, role string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	All(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	// Role returns the user's role, or "" when the user is unknown.
	Role(ctx context.Context, email string) (string, error)
}

// Store bundles one implementation of every repository.
type Store struct {
	Plants   PlantRepository
	Orders   OrderRepository
	Payments PaymentRepository
	Users    UserRepository
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// Indexes are created by `plantnet migrate` and at server start.
func Indexes() []database.Index {
	return []database.Index{
		{Collection: models.PaymentsCollection, Keys: bson.D{{Key: "paymentIntentId", Value: 1}}, Unique: true, Name: "payments_intent_unique"},
		{Collection: models.PaymentsCollection, Keys: bson.D{{Key: "customer", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Collection: models.OrdersCollection, Keys: bson.D{{Key: "transactionId", Value: 1}}},
		{Collection: models.OrdersCollection, Keys: bson.D{{Key: "customer", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Collection: models.OrdersCollection, Keys: bson.D{{Key: "seller", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Collection: models.UsersCollection, Keys: bson.D{{Key: "email", Value: 1}}, Unique: true, Name: "users_email_unique"},
		{Collection: models.PlantsCollection, Keys: bson.D{{Key: "category", Value: 1}}},
		{Collection: models.PlantsCollection, Keys: bson.D{{Key: "seller.email", Value: 1}}},
	}
}

// NewMongoStore builds the MongoDB-backed Store.
func NewMongoStore(db *database.Mongo) *Store {
	return &Store{
		Plants:   NewPlantRepository(db.Collection(models.PlantsCollection)),
		Orders:   NewOrderRepository(db.Collection(models.OrdersCollection)),
		Payments: NewPaymentRepository(db.Collection(models.PaymentsCollection)),
		Users:    NewUserRepository(db.Collection(models.UsersCollection)),
	}
}
