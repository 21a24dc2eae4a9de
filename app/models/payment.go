package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentItem is a snapshot of one purchased line.
type PaymentItem struct {
	OrderID  string          `bson:"orderId" json:"orderId"`
	PlantID  string          `bson:"plantId" json:"plantId"`
	Name     string          `bson:"name" json:"name"`
	Quantity int             `bson:"quantity" json:"quantity"`
	Price    decimal.Decimal `bson:"price" json:"price"`
}

// Payment is the ledger entry of a confirmed checkout session. There is
// at most one per PaymentIntentID.
type Payment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SessionID       string             `bson:"sessionId" json:"sessionId"`
	PaymentIntentID string             `bson:"paymentIntentId" json:"paymentIntentId"`
	Customer        string             `bson:"customer" json:"customer"`
	Amount          decimal.Decimal    `bson:"amount" json:"amount"`
	Currency        string             `bson:"currency" json:"currency"`
	PaymentStatus   string             `bson:"paymentStatus" json:"paymentStatus"`
	Items           []PaymentItem      `bson:"items" json:"items"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
