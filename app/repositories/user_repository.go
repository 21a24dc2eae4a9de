package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/pkg/metrics"
)

// MongoUserRepository stores profiles keyed by lower-cased email.
type MongoUserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MongoUserRepository) Upsert(ctx context.Context, email string, p models.UserProfile) (*models.User, error) {
	defer metrics.ObserveStoreOp(models.UsersCollection, "upsert", time.Now())

	email = normalizeEmail(email)
	set := bson.M{"timestamp": time.Now().UTC()}
	if p.Name != "" {
		set["name"] = p.Name
	}
	if p.Image != "" {
		set["image"] = p.Image
	}
	if p.Address != "" {
		set["address"] = p.Address
	}
	if p.Status != "" {
		set["status"] = p.Status
	}

	var u models.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"email": email},
		bson.M{"$set": set, "$setOnInsert": bson.M{"email": email, "role": models.RoleCustomer}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, fmt.Errorf("users: upsert %s: %w", email, err)
	}
	return &u, nil
}

func (r *MongoUserRepository) UpdateRole(ctx context.Context, email, role string) (*models.User, error) {
	defer metrics.ObserveStoreOp(models.UsersCollection, "update_role", time.Now())

	var u models.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"email": normalizeEmail(email)},
		bson.M{"$set": bson.M{"role": role, "timestamp": time.Now().UTC()}, "$unset": bson.M{"status": ""}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, notFound(err, "users: update role")
	}
	return &u, nil
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer metrics.ObserveStoreOp(models.UsersCollection, "find", time.Now())

	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&u); err != nil {
		return nil, notFound(err, "users: find")
	}
	return &u, nil
}

func (r *MongoUserRepository) All(ctx context.Context) ([]models.User, error) {
	defer metrics.ObserveStoreOp(models.UsersCollection, "list", time.Now())

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("users: decode: %w", err)
	}
	return users, nil
}

func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	defer metrics.ObserveStoreOp(models.UsersCollection, "count", time.Now())

	n, err := r.col.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("users: count: %w", err)
	}
	return n, nil
}

func (r *MongoUserRepository) Role(ctx context.Context, email string) (string, error) {
	defer metrics.ObserveStoreOp(models.UsersCollection, "role", time.Now())

	var u struct {
		Role string `bson:"role"`
	}
	err := r.col.FindOne(ctx,
		bson.M{"email": normalizeEmail(email)},
		options.FindOne().SetProjection(bson.M{"role": 1}),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("users: role: %w", err)
	}
	return u.Role, nil
}
