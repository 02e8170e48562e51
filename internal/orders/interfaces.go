package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/partnest/sparesync/pkg/enums"
	"github.com/partnest/sparesync/pkg/types"
)

// Remote is the order resource on the storefront backend. *storefront.Client satisfies it.
type Remote interface {
	GetCart(ctx context.Context) (types.Cart, error)
	PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (types.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (types.Order, error)
	ListOrders(ctx context.Context, status *enums.ShipmentStatus) ([]types.Order, error)
}
