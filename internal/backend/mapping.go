package backend

import (
	"github.com/shopspring/decimal"

	"github.com/partnest/sparesync/internal/pricing"
	"github.com/partnest/sparesync/pkg/db/models"
	"github.com/partnest/sparesync/pkg/types"
)

func toProduct(p models.Product) types.Product {
	return types.Product{
		ID:       p.ID,
		Name:     p.Name,
		SellerID: p.SellerID,
		Quantity: p.Quantity,
		Price:    p.Price,
		Discount: p.Discount,
	}
}

func toProducts(products []models.Product) []types.Product {
	out := make([]types.Product, 0, len(products))
	for _, p := range products {
		out = append(out, toProduct(p))
	}
	return out
}

// priceLine prices quantity units of product. The discount is the gap between
// the gross subtotal and the discounted unit price times quantity; it is null
// when the listing carries no discount.
func priceLine(product models.Product, quantity int) (types.CartLine, error) {
	qty := decimal.NewFromInt(int64(quantity))
	subTotal := product.Price.Mul(qty).Round(pricing.Places)
	line := types.CartLine{
		SparePartID: product.ID,
		Name:        product.Name,
		Quantity:    quantity,
		SubTotal:    subTotal,
	}
	if !product.Discount.IsPositive() {
		return line, nil
	}
	unit, err := pricing.DiscountedUnitPrice(product.Price, product.Discount)
	if err != nil {
		return types.CartLine{}, err
	}
	line.SubTotalDiscount = decimal.NewNullDecimal(subTotal.Sub(unit.Mul(qty)).Round(pricing.Places))
	return line, nil
}

// priceCart builds the canonical cart snapshot. Lines whose product vanished are skipped.
func priceCart(items []models.CartItem) (types.Cart, error) {
	cart := types.Cart{Items: []types.CartLine{}, TotalAmount: decimal.Zero, DiscountAmount: decimal.Zero}
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		line, err := priceLine(*item.Product, item.Quantity)
		if err != nil {
			return types.Cart{}, err
		}
		cart.Items = append(cart.Items, line)
		cart.TotalAmount = cart.TotalAmount.Add(line.SubTotal)
		if line.SubTotalDiscount.Valid {
			cart.DiscountAmount = cart.DiscountAmount.Add(line.SubTotalDiscount.Decimal)
		}
	}
	return cart, nil
}

func toOrder(o models.Order) types.Order {
	items := make([]types.OrderLine, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, types.OrderLine{
			SparePartID:      item.ProductID,
			Name:             item.Name,
			Quantity:         item.Quantity,
			SubTotal:         item.SubTotal,
			SubTotalDiscount: item.SubTotalDiscount,
		})
	}
	return types.Order{
		ID:              o.ID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		DiscountAmount:  o.DiscountAmount,
		ShipmentStatus:  o.ShipmentStatus,
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
	}
}

func toOrders(orders []models.Order) []types.Order {
	out := make([]types.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrder(o))
	}
	return out
}

func toWallet(w models.Wallet) types.Wallet {
	return types.Wallet{UserID: w.UserID, Amount: w.Amount}
}
