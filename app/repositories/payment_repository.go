package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/pkg/metrics"
)

// MongoPaymentRepository is the payment ledger. The unique index on
// paymentIntentId backs Record.
type MongoPaymentRepository struct {
	col *mongo.Collection
}

func NewPaymentRepository(col *mongo.Collection) *MongoPaymentRepository {
	return &MongoPaymentRepository{col: col}
}

// Record upserts on paymentIntentId with $setOnInsert, so a second call
// changes nothing. Two racing upserts can both miss and insert; the loser
// gets a duplicate key error, which also means the payment exists.
func (r *MongoPaymentRepository) Record(ctx context.Context, p *models.Payment) (bool, error) {
	defer metrics.ObserveStoreOp(models.PaymentsCollection, "record", time.Now())

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	res, err := r.col.UpdateOne(ctx,
		bson.M{"paymentIntentId": p.PaymentIntentID},
		bson.M{"$setOnInsert": bson.M{
			"sessionId":     p.SessionID,
			"customer":      p.Customer,
			"amount":        p.Amount,
			"currency":      p.Currency,
			"paymentStatus": p.PaymentStatus,
			"items":         p.Items,
			"createdAt":     p.CreatedAt,
			"updatedAt":     p.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("payments: record %s: %w", p.PaymentIntentID, err)
	}
	return res.UpsertedCount == 1, nil
}

func (r *MongoPaymentRepository) FindByIntent(ctx context.Context, paymentIntentID string) (*models.Payment, error) {
	defer metrics.ObserveStoreOp(models.PaymentsCollection, "find_by_intent", time.Now())

	var p models.Payment
	if err := r.col.FindOne(ctx, bson.M{"paymentIntentId": paymentIntentID}).Decode(&p); err != nil {
		return nil, notFound(err, "payments: find")
	}
	return &p, nil
}

func (r *MongoPaymentRepository) Find(ctx context.Context, id string) (*models.Payment, error) {
	defer metrics.ObserveStoreOp(models.PaymentsCollection, "find", time.Now())

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var p models.Payment
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		return nil, notFound(err, "payments: find")
	}
	return &p, nil
}

func (r *MongoPaymentRepository) ListByCustomer(ctx context.Context, email string) ([]models.Payment, error) {
	return r.list(ctx, "list_customer", bson.M{"customer": email})
}

func (r *MongoPaymentRepository) All(ctx context.Context) ([]models.Payment, error) {
	return r.list(ctx, "list", bson.M{})
}

func (r *MongoPaymentRepository) list(ctx context.Context, op string, filter bson.M) ([]models.Payment, error) {
	defer metrics.ObserveStoreOp(models.PaymentsCollection, op, time.Now())

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("payments: %s: %w", op, err)
	}
	payments := []models.Payment{}
	if err := cur.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("payments: decode: %w", err)
	}
	return payments, nil
}
