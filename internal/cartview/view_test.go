package cartview

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partnest/sparesync/pkg/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuildFormatsLinesAndTotals(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	cart := types.Cart{
		Items: []types.CartLine{
			{SparePartID: a, Quantity: 2, SubTotal: dec("40"), SubTotalDiscount: decimal.NewNullDecimal(dec("4.5"))},
			{SparePartID: b, Quantity: 1, SubTotal: dec("9.999")},
		},
		TotalAmount:    dec("49.999"),
		DiscountAmount: dec("4.5"),
	}
	catalog := []types.Product{{ID: a, Name: "Brake pad", Quantity: 5}, {ID: b, Name: "Spark plug", Quantity: 1}}

	view := Build(cart, catalog)
	if len(view.Lines) != 2 {
		t.Fatalf("expected 2 lines")
	}
	first := view.Lines[0]
	if first.Name != "Brake pad" || first.Gross != "40.00" || first.Discount != "4.50" || first.Net != "35.50" {
		t.Fatalf("unexpected first line %+v", first)
	}
	if view.Lines[1].Net != "10.00" || view.Lines[1].Discount != "0.00" {
		t.Fatalf("unexpected second line %+v", view.Lines[1])
	}
	if view.Payable != "45.50" {
		t.Fatalf("expected payable 45.50, got %s", view.Payable)
	}
	if !view.Placeable || view.Inconsistent {
		t.Fatalf("expected clean placeable view: %+v", view)
	}
}

func TestBuildFlagsStockAndInconsistency(t *testing.T) {
	a := uuid.New()
	cart := types.Cart{
		Items:          []types.CartLine{{SparePartID: a, Quantity: 3, SubTotal: dec("10"), SubTotalDiscount: decimal.NewNullDecimal(dec("12"))}},
		TotalAmount:    dec("10"),
		DiscountAmount: dec("12"),
	}
	view := Build(cart, []types.Product{{ID: a, Quantity: 2}})

	line := view.Lines[0]
	if !line.OutOfStock || line.Available != 2 {
		t.Fatalf("expected out of stock line, got %+v", line)
	}
	if !line.Inconsistent || line.Net != "0.00" {
		t.Fatalf("expected clamped line, got %+v", line)
	}
	if view.Placeable || !view.Inconsistent || view.Payable != "0.00" {
		t.Fatalf("unexpected view flags %+v", view)
	}
	if len(view.Affected) != 1 || view.Affected[0] != a {
		t.Fatalf("unexpected affected %v", view.Affected)
	}
}

func TestBuildEmptyCartIsNotPlaceable(t *testing.T) {
	view := Build(types.Cart{}, nil)
	if view.Placeable {
		t.Fatalf("empty cart must not be placeable")
	}
	if view.Payable != "0.00" {
		t.Fatalf("expected zero payable, got %s", view.Payable)
	}
}
