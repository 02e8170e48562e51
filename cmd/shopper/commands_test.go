package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partnest/sparesync/internal/appstate"
	"github.com/partnest/sparesync/internal/cartview"
	"github.com/partnest/sparesync/internal/failure"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/types"
)

func TestReportStockConflictListsProducts(t *testing.T) {
	id := uuid.New()
	var out bytes.Buffer
	report(&out, failure.Outcome{
		Kind: failure.KindRefresh,
		Notice: appstate.Notice{
			Code:    pkgerrors.CodeStockConflict,
			Message: "one or more products out of stock",
			Details: map[string]any{"productIds": []any{id.String()}},
		},
		ResubmitAllowed: true,
	})
	got := out.String()
	if !strings.Contains(got, "STOCK_CONFLICT") || !strings.Contains(got, id.String()) {
		t.Fatalf("unexpected report:\n%s", got)
	}
	if !strings.Contains(got, "resubmit") {
		t.Fatalf("expected resubmit hint:\n%s", got)
	}
}

func TestReportRefreshFailure(t *testing.T) {
	var out bytes.Buffer
	report(&out, failure.Outcome{
		Kind:       failure.KindRefresh,
		Notice:     appstate.Notice{Code: pkgerrors.CodeConflict, Message: "not enough stock"},
		RefreshErr: errors.New("offline"),
	})
	if !strings.Contains(out.String(), "refresh failed: offline") {
		t.Fatalf("unexpected report:\n%s", out.String())
	}
}

func TestReportDroppedIsSilent(t *testing.T) {
	var out bytes.Buffer
	report(&out, failure.Outcome{Kind: failure.KindDropped})
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestProductArg(t *testing.T) {
	id := uuid.New()
	got, err := productArg([]string{id.String()}, 1)
	if err != nil || got != id {
		t.Fatalf("productArg = %s, %v", got, err)
	}
	if _, err := productArg([]string{"nope"}, 1); err == nil {
		t.Fatal("expected invalid id error")
	}
	if _, err := productArg([]string{id.String()}, 2); err == nil {
		t.Fatal("expected missing argument error")
	}
}

func TestPrintCartFlagsShortStock(t *testing.T) {
	id := uuid.New()
	cart := types.Cart{
		Items: []types.CartLine{{
			SparePartID: id,
			Name:        "Brake pad",
			Quantity:    3,
			SubTotal:    decimal.NewFromInt(30),
		}},
		TotalAmount: decimal.NewFromInt(30),
	}
	catalog := []types.Product{{ID: id, Name: "Brake pad", Quantity: 1, Price: decimal.NewFromInt(10)}}

	var out bytes.Buffer
	printCart(&out, cartview.Build(cart, catalog))
	got := out.String()
	if !strings.Contains(got, "only 1 left") {
		t.Fatalf("expected short stock flag:\n%s", got)
	}
	if !strings.Contains(got, "cannot be placed") {
		t.Fatalf("expected placement warning:\n%s", got)
	}
}

func TestPrintOrdersEmpty(t *testing.T) {
	var out bytes.Buffer
	printOrders(&out, nil)
	if strings.TrimSpace(out.String()) != "no orders" {
		t.Fatalf("unexpected output %q", out.String())
	}
}
