package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the simple order lifecycle. Orders do not go through the
// service-request state machine.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderItem is one product line in an order, with the unit price captured
// at order time.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Qty       int                `bson:"qty" json:"qty"`
	UnitPrice float64            `bson:"unit_price" json:"unit_price"`
}

// Order is a farmer's purchase from a shop.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber   string             `bson:"order_number" json:"order_number"`
	FarmerID      primitive.ObjectID `bson:"farmer_id" json:"farmer_id"`
	ShopManagerID primitive.ObjectID `bson:"shop_manager_id" json:"shop_manager_id"`
	Items         []OrderItem        `bson:"items" json:"items"`
	TotalRWF      float64            `bson:"total_rwf" json:"total_rwf"`
	Status        OrderStatus        `bson:"status" json:"status"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}
