// Package stock compares cart quantities with catalog snapshots to decide
// whether an order may be attempted.
package stock

import (
	"github.com/google/uuid"

	"github.com/partnest/sparesync/pkg/types"
)

// LineStatus is the reconciliation result for one cart line.
type LineStatus struct {
	ProductID  uuid.UUID
	Requested  int
	Available  int
	OutOfStock bool
	// Missing means the product has no snapshot, for example after delisting.
	Missing bool
}

// Report is the outcome of Reconcile. Lines follow cart order.
type Report struct {
	Placeable bool
	Lines     []LineStatus
}

// Reconcile flags every line whose requested quantity exceeds the snapshot
// quantity. It never fails: inconsistent data only clears Placeable.
func Reconcile(lines []types.CartLine, snapshots map[uuid.UUID]types.Product) Report {
	report := Report{Placeable: true, Lines: make([]LineStatus, 0, len(lines))}
	for _, line := range lines {
		status := LineStatus{ProductID: line.SparePartID, Requested: line.Quantity}
		product, ok := snapshots[line.SparePartID]
		if !ok {
			status.Missing = true
			status.OutOfStock = true
		} else {
			status.Available = product.Quantity
			status.OutOfStock = product.Quantity < line.Quantity
		}
		if status.OutOfStock {
			report.Placeable = false
		}
		report.Lines = append(report.Lines, status)
	}
	return report
}

// Affected lists the product ids of out-of-stock lines in cart order.
func (r Report) Affected() []uuid.UUID {
	var ids []uuid.UUID
	for _, line := range r.Lines {
		if line.OutOfStock {
			ids = append(ids, line.ProductID)
		}
	}
	return ids
}

// Line returns the status for productID.
func (r Report) Line(productID uuid.UUID) (LineStatus, bool) {
	for _, line := range r.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return LineStatus{}, false
}

// Index turns a product list into the lookup Reconcile expects.
func Index(products []types.Product) map[uuid.UUID]types.Product {
	out := make(map[uuid.UUID]types.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}
