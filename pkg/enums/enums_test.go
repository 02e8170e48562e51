package enums

import "testing"

func TestCanTransitionForwardOnly(t *testing.T) {
	cases := []struct {
		from, to ShipmentStatus
		want     bool
	}{
		{ShipmentStatusPending, ShipmentStatusProcessing, true},
		{ShipmentStatusProcessing, ShipmentStatusShipped, true},
		{ShipmentStatusShipped, ShipmentStatusDelivered, true},
		{ShipmentStatusPending, ShipmentStatusShipped, false},
		{ShipmentStatusDelivered, ShipmentStatusShipped, false},
		{ShipmentStatusShipped, ShipmentStatusProcessing, false},
		{ShipmentStatusPending, ShipmentStatusCancelled, true},
		{ShipmentStatusProcessing, ShipmentStatusCancelled, true},
		{ShipmentStatusShipped, ShipmentStatusCancelled, false},
		{ShipmentStatusDelivered, ShipmentStatusCancelled, false},
		{ShipmentStatusCancelled, ShipmentStatusCancelled, false},
		{ShipmentStatusCancelled, ShipmentStatusPending, false},
		{ShipmentStatus("lost"), ShipmentStatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestShipmentStatusHelpers(t *testing.T) {
	if !ShipmentStatusPending.IsCancellable() || ShipmentStatusShipped.IsCancellable() {
		t.Fatalf("unexpected cancellable results")
	}
	if !ShipmentStatusDelivered.IsTerminal() || ShipmentStatusProcessing.IsTerminal() {
		t.Fatalf("unexpected terminal results")
	}
	if _, err := ParseShipmentStatus("shipped"); err != nil {
		t.Fatalf("parse shipped: %v", err)
	}
	if _, err := ParseShipmentStatus("teleported"); err == nil {
		t.Fatalf("expected parse failure")
	}
}

func TestParseHelpers(t *testing.T) {
	if pm, err := ParsePaymentMethod("wallet"); err != nil || pm != PaymentMethodWallet {
		t.Fatalf("unexpected wallet parse %q %v", pm, err)
	}
	if _, err := ParsePaymentMethod("barter"); err == nil {
		t.Fatalf("expected invalid payment method")
	}
	if rc, err := ParseResourceClass("conversation"); err != nil || rc != ResourceClassConversation {
		t.Fatalf("unexpected class parse %q %v", rc, err)
	}
	if !MemberRoleSeller.IsValid() || MemberRole("owner").IsValid() {
		t.Fatalf("unexpected member role validity")
	}
}
