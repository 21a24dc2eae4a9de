package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Seller identifies who listed a plant.
type Seller struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email" validate:"required,email"`
	Image string `bson:"image,omitempty" json:"image,omitempty"`
}

// Plant is a catalogue listing. Quantity is the stock on hand and never
// goes below zero.
type Plant struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name" validate:"required,max=120"`
	Category    string             `bson:"category" json:"category" validate:"required"`
	Price       decimal.Decimal    `bson:"price" json:"price" validate:"required,gt=0"`
	Quantity    int                `bson:"quantity" json:"quantity" validate:"gte=0"`
	Image       string             `bson:"image" json:"image"`
	Description string             `bson:"description" json:"description"`
	Seller      Seller             `bson:"seller" json:"seller" validate:"dive"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// PlantUpdate is a partial edit of a listing. Nil fields are left alone.
type PlantUpdate struct {
	Name        *string          `json:"name,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
	Image       *string          `json:"image,omitempty"`
	Description *string          `json:"description,omitempty"`
	Seller      *Seller          `json:"seller,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u PlantUpdate) Empty() bool {
	return u.Name == nil && u.Category == nil && u.Price == nil && u.Quantity == nil &&
		u.Image == nil && u.Description == nil && u.Seller == nil
}
