// Package models holds the documents stored in the plants, orders,
// payments and users collections.
package models

import "github.com/shopspring/decimal"

func init() {
	// Prices travel as JSON numbers, the way the storefront sends them.
	decimal.MarshalJSONWithoutQuotes = true
}

// Collection names.
const (
	PlantsCollection   = "plants"
	OrdersCollection   = "orders"
	PaymentsCollection = "payments"
	UsersCollection    = "users"
)
