// Package cartview derives the display model of a cart from server data and
// the current catalog snapshot. Nothing here is sent back to the server.
package cartview

import (
	"github.com/google/uuid"

	"github.com/partnest/sparesync/internal/pricing"
	"github.com/partnest/sparesync/internal/stock"
	"github.com/partnest/sparesync/pkg/types"
)

// Line is one display row.
type Line struct {
	ProductID  uuid.UUID
	Name       string
	Quantity   int
	Available  int
	Gross      string
	Discount   string
	Net        string
	OutOfStock bool
	Missing    bool
	// Inconsistent is set when the server sent a discount larger than the subtotal.
	Inconsistent bool
}

// View is the full cart as shown to the shopper.
type View struct {
	Lines        []Line
	Total        string
	Discount     string
	Payable      string
	Inconsistent bool
	Placeable    bool
	Affected     []uuid.UUID
}

// Build assembles the view. Lines keep cart order.
func Build(cart types.Cart, catalog []types.Product) View {
	snapshots := stock.Index(catalog)
	report := stock.Reconcile(cart.Items, snapshots)

	view := View{Lines: make([]Line, 0, len(cart.Items))}
	for _, item := range cart.Items {
		net := pricing.Net(item.SubTotal, item.SubTotalDiscount)
		status, _ := report.Line(item.SparePartID)
		name := item.Name
		if p, ok := snapshots[item.SparePartID]; ok && name == "" {
			name = p.Name
		}
		discount := "0.00"
		if item.SubTotalDiscount.Valid {
			discount = item.SubTotalDiscount.Decimal.StringFixed(pricing.Places)
		}
		view.Lines = append(view.Lines, Line{
			ProductID:    item.SparePartID,
			Name:         name,
			Quantity:     item.Quantity,
			Available:    status.Available,
			Gross:        item.SubTotal.StringFixed(pricing.Places),
			Discount:     discount,
			Net:          net.String(),
			OutOfStock:   status.OutOfStock,
			Missing:      status.Missing,
			Inconsistent: net.Clamped,
		})
		if net.Clamped {
			view.Inconsistent = true
		}
	}

	payable := pricing.NetOf(cart.TotalAmount, cart.DiscountAmount)
	view.Total = cart.TotalAmount.StringFixed(pricing.Places)
	view.Discount = cart.DiscountAmount.StringFixed(pricing.Places)
	view.Payable = payable.String()
	view.Inconsistent = view.Inconsistent || payable.Clamped
	view.Placeable = report.Placeable && !cart.IsEmpty()
	view.Affected = report.Affected()
	return view
}
