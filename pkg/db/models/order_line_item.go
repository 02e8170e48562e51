package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem captures the priced snapshot of each cart line within an order.
type OrderLineItem struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID        uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	Position         int                 `gorm:"column:position;not null"`
	Name             string              `gorm:"column:name;not null"`
	Quantity         int                 `gorm:"column:quantity;not null"`
	SubTotal         decimal.Decimal     `gorm:"column:sub_total;type:numeric(12,2);not null"`
	SubTotalDiscount decimal.NullDecimal `gorm:"column:sub_total_discount;type:numeric(12,2)"`
}
