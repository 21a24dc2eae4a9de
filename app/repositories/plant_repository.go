package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/pkg/metrics"
)

// MongoPlantRepository stores listings in the plants collection.
type MongoPlantRepository struct {
	col *mongo.Collection
}

func NewPlantRepository(col *mongo.Collection) *MongoPlantRepository {
	return &MongoPlantRepository{col: col}
}

func (r *MongoPlantRepository) Create(ctx context.Context, p *models.Plant) error {
	defer metrics.ObserveStoreOp(models.PlantsCollection, "insert", time.Now())

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("plants: insert: %w", err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *MongoPlantRepository) Find(ctx context.Context, id string) (*models.Plant, error) {
	defer metrics.ObserveStoreOp(models.PlantsCollection, "find", time.Now())

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var p models.Plant
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		return nil, notFound(err, "plants: find")
	}
	return &p, nil
}

func (r *MongoPlantRepository) List(ctx context.Context, f PlantFilter) ([]models.Plant, error) {
	defer metrics.ObserveStoreOp(models.PlantsCollection, "list", time.Now())

	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.SellerEmail != "" {
		filter["seller.email"] = f.SellerEmail
	}

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("plants: list: %w", err)
	}
	plants := []models.Plant{}
	if err := cur.All(ctx, &plants); err != nil {
		return nil, fmt.Errorf("plants: decode: %w", err)
	}
	return plants, nil
}

func (r *MongoPlantRepository) Update(ctx context.Context, id string, u models.PlantUpdate, upsert bool) (*models.Plant, error) {
	defer metrics.ObserveStoreOp(models.PlantsCollection, "update", time.Now())

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": plantSet(u)}
	if upsert {
		update["$setOnInsert"] = bson.M{"createdAt": time.Now().UTC()}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(upsert)

	var p models.Plant
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&p); err != nil {
		return nil, notFound(err, "plants: update")
	}
	return &p, nil
}

func plantSet(u models.PlantUpdate) bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Quantity != nil {
		set["quantity"] = *u.Quantity
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Seller != nil {
		set["seller"] = *u.Seller
	}
	return set
}

func (r *MongoPlantRepository) Delete(ctx context.Context, id string) (int64, error) {
	defer metrics.ObserveStoreOp(models.PlantsCollection, "delete", time.Now())

	oid, err := objectID(id)
	if err != nil {
		return 0, err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, fmt.Errorf("plants: delete: %w", err)
	}
	return res.DeletedCount, nil
}

// Adjust runs quantity = max(0, quantity + delta) as a pipeline update so
// the read and the write are one server-side operation.
func (r *MongoPlantRepository) Adjust(ctx context.Context, id string, delta int) (int, error) {
	defer metrics.ObserveStoreOp(models.PlantsCollection, "adjust", time.Now())

	oid, err := objectID(id)
	if err != nil {
		return 0, err
	}

	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{{
		Key: "quantity",
		Value: bson.D{{Key: "$max", Value: bson.A{
			0,
			bson.D{{Key: "$add", Value: bson.A{"$quantity", delta}}},
		}}},
	}}}}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"quantity": 1})

	var before struct {
		Quantity int `bson:"quantity"`
	}
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&before); err != nil {
		return 0, notFound(err, "plants: adjust")
	}
	return before.Quantity, nil
}

func (r *MongoPlantRepository) Count(ctx context.Context) (int64, error) {
	defer metrics.ObserveStoreOp(models.PlantsCollection, "count", time.Now())

	n, err := r.col.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("plants: count: %w", err)
	}
	return n, nil
}

// notFound maps mongo.ErrNoDocuments to ErrNotFound and wraps the rest.
func notFound(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
