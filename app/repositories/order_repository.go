package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/pkg/metrics"
)

// MongoOrderRepository stores cart lines in the orders collection.
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(col *mongo.Collection) *MongoOrderRepository {
	return &MongoOrderRepository{col: col}
}

func (r *MongoOrderRepository) InsertMany(ctx context.Context, orders []*models.Order) error {
	defer metrics.ObserveStoreOp(models.OrdersCollection, "insert", time.Now())

	docs := make([]interface{}, len(orders))
	for i, o := range orders {
		if o.ID.IsZero() {
			o.ID = primitive.NewObjectID()
		}
		docs[i] = o
	}
	if _, err := r.col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("orders: insert: %w", err)
	}
	return nil
}

func (r *MongoOrderRepository) Find(ctx context.Context, id string) (*models.Order, error) {
	defer metrics.ObserveStoreOp(models.OrdersCollection, "find", time.Now())

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var o models.Order
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&o); err != nil {
		return nil, notFound(err, "orders: find")
	}
	return &o, nil
}

func (r *MongoOrderRepository) FindByTransaction(ctx context.Context, transactionID string) ([]models.Order, error) {
	return r.list(ctx, "find_by_transaction", bson.M{"transactionId": transactionID})
}

// ClaimTransaction is a compare-and-set on transactionId. Of two
// concurrent confirmations only one sees MatchedCount == 1.
func (r *MongoOrderRepository) ClaimTransaction(ctx context.Context, id primitive.ObjectID, from, to string, at time.Time) (bool, error) {
	defer metrics.ObserveStoreOp(models.OrdersCollection, "claim", time.Now())

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "transactionId": from},
		bson.M{"$set": bson.M{"transactionId": to, "confirmedAt": at}},
	)
	if err != nil {
		return false, fmt.Errorf("orders: claim %s: %w", id.Hex(), err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoOrderRepository) ReleaseTransaction(ctx context.Context, id primitive.ObjectID, from, to string) (bool, error) {
	defer metrics.ObserveStoreOp(models.OrdersCollection, "release", time.Now())

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "transactionId": from},
		bson.M{"$set": bson.M{"transactionId": to}, "$unset": bson.M{"confirmedAt": ""}},
	)
	if err != nil {
		return false, fmt.Errorf("orders: release %s: %w", id.Hex(), err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoOrderRepository) SetStockTaken(ctx context.Context, id primitive.ObjectID, n int) error {
	defer metrics.ObserveStoreOp(models.OrdersCollection, "stock_taken", time.Now())

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"stockTaken": n}})
	if err != nil {
		return fmt.Errorf("orders: stock taken %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrderRepository) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	defer metrics.ObserveStoreOp(models.OrdersCollection, "update_status", time.Now())

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var o models.Order
	err = r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if err != nil {
		return nil, notFound(err, "orders: update status")
	}
	return &o, nil
}

func (r *MongoOrderRepository) DeleteUnlessStatus(ctx context.Context, id, status string) (int64, error) {
	defer metrics.ObserveStoreOp(models.OrdersCollection, "delete", time.Now())

	oid, err := objectID(id)
	if err != nil {
		return 0, err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid, "status": bson.M{"$ne": status}})
	if err != nil {
		return 0, fmt.Errorf("orders: delete: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoOrderRepository) ListByCustomer(ctx context.Context, email string) ([]models.Order, error) {
	return r.list(ctx, "list_customer", bson.M{"customer": email})
}

func (r *MongoOrderRepository) ListBySeller(ctx context.Context, email string) ([]models.Order, error) {
	return r.list(ctx, "list_seller", bson.M{"seller": email})
}

func (r *MongoOrderRepository) All(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, "list", bson.M{})
}

func (r *MongoOrderRepository) list(ctx context.Context, op string, filter bson.M) ([]models.Order, error) {
	defer metrics.ObserveStoreOp(models.OrdersCollection, op, time.Now())

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("orders: %s: %w", op, err)
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("orders: decode: %w", err)
	}
	return orders, nil
}

func (r *MongoOrderRepository) Summary(ctx context.Context, revenueStatus string) (int64, decimal.Decimal, error) {
	defer metrics.ObserveStoreOp(models.OrdersCollection, "summary", time.Now())

	lineTotal := bson.D{{Key: "$multiply", Value: bson.A{"$price", "$quantity"}}}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalOrders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$status", revenueStatus}}},
				lineTotal,
				0,
			}}}}}},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("orders: summary: %w", err)
	}
	var rows []struct {
		TotalOrders int64           `bson:"totalOrders"`
		Revenue     decimal.Decimal `bson:"revenue"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, decimal.Zero, fmt.Errorf("orders: decode summary: %w", err)
	}
	if len(rows) == 0 {
		return 0, decimal.Zero, nil
	}
	return rows[0].TotalOrders, rows[0].Revenue, nil
}

func (r *MongoOrderRepository) CountStale(ctx context.Context, cutoff time.Time) (int64, error) {
	defer metrics.ObserveStoreOp(models.OrdersCollection, "count_stale", time.Now())

	n, err := r.col.CountDocuments(ctx, bson.M{
		"status":      models.StatusPending,
		"confirmedAt": bson.M{"$exists": false},
		"createdAt":   bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("orders: count stale: %w", err)
	}
	return n, nil
}
