package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. An order stays Pending after its payment is confirmed;
// ConfirmedAt and a payment-intent TransactionID tell the two apart.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusDelivered  = "Delivered"
)

// OrderStatuses lists the values a seller or admin may set.
var OrderStatuses = []string{StatusPending, StatusInProgress, StatusDelivered}

// Order is one cart line. TransactionID holds the checkout session id
// until the payment is confirmed, then the payment intent id.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PlantID       string             `bson:"plantId" json:"plantId"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	Customer      string             `bson:"customer" json:"customer"`
	Seller        string             `bson:"seller" json:"seller"`
	Name          string             `bson:"name" json:"name"`
	Category      string             `bson:"category" json:"category"`
	Image         string             `bson:"image" json:"image"`
	Quantity      int                `bson:"quantity" json:"quantity"`
	Price         decimal.Decimal    `bson:"price" json:"price"`
	Status        string             `bson:"status" json:"status"`
	Address       string             `bson:"address" json:"address"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	ConfirmedAt   *time.Time         `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	// StockTaken is how much the confirmation actually removed from the
	// plant, which is less than Quantity when the decrement was floored.
	StockTaken int `bson:"stockTaken" json:"stockTaken"`
}

// Confirmed reports whether the order's payment has been reconciled.
func (o Order) Confirmed() bool { return o.ConfirmedAt != nil }

// LineTotal is price × quantity.
func (o Order) LineTotal() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(int64(o.Quantity)))
}
