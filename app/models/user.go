package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles.
const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)

// User is a profile keyed by email. Credentials live with the identity
// provider.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email     string             `bson:"email" json:"email"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
	Role      string             `bson:"role" json:"role"`
	Address   string             `bson:"address,omitempty" json:"address,omitempty"`
	Status    string             `bson:"status,omitempty" json:"status,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// UserProfile is the client-editable part of a user. Status carries a
// pending request such as "Requested" for a seller upgrade.
type UserProfile struct {
	Name    string `json:"name" validate:"max=120"`
	Image   string `json:"image"`
	Address string `json:"address"`
	Status  string `json:"status"`
}

// RoleChange is an admin edit of a user's role.
type RoleChange struct {
	Role string `json:"role" validate:"required,in=customer,seller,admin"`
}
