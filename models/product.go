package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is one inventory item offered by a shop manager.
type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ShopManagerID primitive.ObjectID `bson:"shop_manager_id" json:"shop_manager_id"`
	Name          string             `bson:"name" json:"name"`
	Category      string             `bson:"category,omitempty" json:"category,omitempty"` // seeds | fertilizer | tools | etc.
	Unit          string             `bson:"unit,omitempty" json:"unit,omitempty"`         // kg | litre | piece
	PriceRWF      float64            `bson:"price_rwf" json:"price_rwf"`
	StockQty      int                `bson:"stock_qty" json:"stock_qty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Active        bool               `bson:"active" json:"active"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}
