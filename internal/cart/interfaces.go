package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/partnest/sparesync/pkg/types"
)

// Remote is the cart resource on the storefront backend. *storefront.Client satisfies it.
type Remote interface {
	GetCart(ctx context.Context) (types.Cart, error)
	AddCartItem(ctx context.Context, productID uuid.UUID) (types.Cart, error)
	SetCartItemQuantity(ctx context.Context, productID uuid.UUID, quantity int) (types.Cart, error)
	RemoveCartItem(ctx context.Context, productID uuid.UUID) (types.Cart, error)
}
