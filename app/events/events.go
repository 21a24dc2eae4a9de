// Package events names the domain events fired on the event bus and the
// payload each one carries.
package events

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	OrderPlaced        = "order.placed"
	PaymentConfirmed   = "payment.confirmed"
	OrderCancelled     = "order.cancelled"
	OrderStatusUpdated = "order.status_updated"
	StockUpdated       = "stock.updated"
)

// Names lists every domain event.
var Names = []string{OrderPlaced, PaymentConfirmed, OrderCancelled, OrderStatusUpdated, StockUpdated}

// Publisher is the part of event.Bus the services need.
type Publisher interface {
	FireAsync(ctx context.Context, name string, payload interface{})
}

// Discard drops every event.
type Discard struct{}

func (Discard) FireAsync(context.Context, string, interface{}) {}

type OrderPlacedPayload struct {
	SessionID string          `json:"sessionId"`
	Customer  string          `json:"customer"`
	OrderIDs  []string        `json:"orderIds"`
	Total     decimal.Decimal `json:"total"`
}

type PaymentConfirmedPayload struct {
	SessionID       string          `json:"sessionId"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Customer        string          `json:"customer"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	OrderIDs        []string        `json:"orderIds"`
}

type OrderCancelledPayload struct {
	OrderID   string `json:"orderId"`
	PlantID   string `json:"plantId"`
	Customer  string `json:"customer"`
	Quantity  int    `json:"quantity"`
	Restocked bool   `json:"restocked"`
}

type OrderStatusPayload struct {
	OrderID  string `json:"orderId"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
}

type StockUpdatedPayload struct {
	PlantID string `json:"plantId"`
	Delta   int    `json:"delta"`
	Before  int    `json:"before"`
	After   int    `json:"after"`
	Clamped bool   `json:"clamped"`
}

// Key returns the partition key for payload: the entity the event is
// about, so events of one order or plant stay ordered on the broker.
func Key(payload interface{}) string {
	switch p := payload.(type) {
	case OrderPlacedPayload:
		return p.SessionID
	case PaymentConfirmedPayload:
		return p.SessionID
	case OrderCancelledPayload:
		return p.OrderID
	case OrderStatusPayload:
		return p.OrderID
	case StockUpdatedPayload:
		return p.PlantID
	}
	return ""
}
