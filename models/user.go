package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role of a platform user.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleAgent       Role = "agent"
	RoleFarmer      Role = "farmer"
	RoleShopManager Role = "shop_manager"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleFarmer, RoleShopManager:
		return true
	}
	return false
}

// UserStatus — active users can log in and be assigned work.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User is a platform account: farmer, field agent, shop manager or admin.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role         Role               `bson:"role" json:"role"`
	Status       UserStatus         `bson:"status" json:"status"`
	Province     string             `bson:"province,omitempty" json:"province,omitempty"`
	District     string             `bson:"district,omitempty" json:"district,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
