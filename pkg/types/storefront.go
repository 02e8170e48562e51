package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partnest/sparesync/pkg/enums"
)

// CartLine is one product/quantity pairing inside a cart.
type CartLine struct {
	SparePartID      uuid.UUID           `json:"sparePartId"`
	Name             string              `json:"name,omitempty"`
	Quantity         int                 `json:"quantity"`
	SubTotal         decimal.Decimal     `json:"subTotal"`
	SubTotalDiscount decimal.NullDecimal `json:"subTotalDiscount"`
}

// Cart is the canonical server-computed cart snapshot. Items keep insertion order.
type Cart struct {
	Items          []CartLine      `json:"items"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// Line returns the line for productID, if present.
func (c Cart) Line(productID uuid.UUID) (CartLine, bool) {
	for _, line := range c.Items {
		if line.SparePartID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

// IsEmpty reports whether the cart holds no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone deep-copies the cart so callers can hand it out without sharing the slice.
func (c Cart) Clone() Cart {
	out := c
	if c.Items != nil {
		out.Items = append([]CartLine(nil), c.Items...)
	}
	return out
}

// Product is the catalog snapshot of a listing as seen by the client.
type Product struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	SellerID uuid.UUID       `json:"sellerId"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
}

// OrderLine mirrors CartLine once frozen into an order.
type OrderLine struct {
	SparePartID      uuid.UUID           `json:"sparePartId"`
	Name             string              `json:"name,omitempty"`
	Quantity         int                 `json:"quantity"`
	SubTotal         decimal.Decimal     `json:"subTotal"`
	SubTotalDiscount decimal.NullDecimal `json:"subTotalDiscount"`
}

// Order is a placed order. ShipmentStatus is the only field that changes after creation.
type Order struct {
	ID              uuid.UUID            `json:"id"`
	Items           []OrderLine          `json:"items"`
	TotalAmount     decimal.Decimal      `json:"totalAmount"`
	DiscountAmount  decimal.Decimal      `json:"discountAmount"`
	ShipmentStatus  enums.ShipmentStatus `json:"shipmentStatus"`
	PaymentMethod   enums.PaymentMethod  `json:"paymentMethod"`
	ShippingAddress Address              `json:"shippingAddress"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// Wallet carries a user's spendable balance.
type Wallet struct {
	UserID uuid.UUID       `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

// Conversation is one entry of a user's chat list.
type Conversation struct {
	ID           uuid.UUID   `json:"id"`
	Participants []uuid.UUID `json:"participants"`
	LastMessage  string      `json:"lastMessage"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// PlaceOrderRequest is the body of POST /orders.
type PlaceOrderRequest struct {
	ShippingAddress Address             `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash_on_delivery wallet"`
}

// CancelOrderRequest is the body of PATCH /orders.
type CancelOrderRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
}

// CartItemRequest is the body of POST /cart/items and PATCH /cart/items/remove.
type CartItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
}

// CartQuantityRequest is the body of PATCH /cart/items.
type CartQuantityRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1"`
}
