// Package cart mutates the remote cart and mirrors the canonical server
// snapshot into application state. Totals are never computed locally.
package cart

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/partnest/sparesync/internal/appstate"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/metrics"
	"github.com/partnest/sparesync/pkg/storefront"
	"github.com/partnest/sparesync/pkg/types"
)

// DefaultMaxItemQuantity is used when Options leaves the cap unset.
const DefaultMaxItemQuantity = 5

// Options tunes a Service.
type Options struct {
	MaxItemQuantity int
	Logger          *logger.Logger
	Metrics         *metrics.OperationMetrics
}

// Service performs cart mutations for the signed-in shopper.
type Service struct {
	remote  Remote
	sink    appstate.Sink
	maxQty  int
	logg    *logger.Logger
	metrics *metrics.OperationMetrics
	flight  singleflight.Group
}

// NewService builds a cart service writing into sink.
func NewService(remote Remote, sink appstate.Sink, opts Options) (*Service, error) {
	if remote == nil {
		return nil, fmt.Errorf("cart remote required")
	}
	if sink == nil {
		return nil, fmt.Errorf("state sink required")
	}
	maxQty := opts.MaxItemQuantity
	if maxQty <= 0 {
		maxQty = DefaultMaxItemQuantity
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		remote:  remote,
		sink:    sink,
		maxQty:  maxQty,
		logg:    logg,
		metrics: opts.Metrics,
	}, nil
}

// MaxItemQuantity is the configured per-line cap.
func (s *Service) MaxItemQuantity() int {
	return s.maxQty
}

// Load fetches the canonical cart.
func (s *Service) Load(ctx context.Context) (types.Cart, error) {
	return s.run(ctx, "cart.load", "load", uuid.Nil, func(ctx context.Context) (types.Cart, error) {
		return s.remote.GetCart(ctx)
	})
}

// AddItem adds one unit of productID. A catalog snapshot showing zero stock
// fails fast with CONFLICT; otherwise the server decides.
func (s *Service) AddItem(ctx context.Context, productID uuid.UUID) (types.Cart, error) {
	if productID == uuid.Nil {
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	state := s.sink.State()
	if product, ok := state.Product(productID); ok && product.Quantity <= 0 {
		err := pkgerrors.New(pkgerrors.CodeConflict, "product is out of stock").
			WithDetails(storefront.StockConflictDetails([]uuid.UUID{productID}))
		s.metrics.IncFailure("cart.add", string(pkgerrors.CodeConflict))
		return types.Cart{}, err
	}
	if line, ok := state.Cart.Line(productID); ok && line.Quantity >= s.maxQty {
		return types.Cart{}, s.capError(line.Quantity + 1)
	}
	return s.run(ctx, "cart.add", "add", productID, func(ctx context.Context) (types.Cart, error) {
		return s.remote.AddCartItem(ctx, productID)
	})
}

// SetQuantity sets the quantity of productID's line. Values outside
// [1, MaxItemQuantity] are rejected without contacting the server.
func (s *Service) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) (types.Cart, error) {
	if productID == uuid.Nil {
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 || quantity > s.maxQty {
		s.metrics.IncFailure("cart.set_quantity", string(pkgerrors.CodeValidation))
		return types.Cart{}, s.capError(quantity)
	}
	key := "set:" + strconv.Itoa(quantity)
	return s.run(ctx, "cart.set_quantity", key, productID, func(ctx context.Context) (types.Cart, error) {
		return s.remote.SetCartItemQuantity(ctx, productID, quantity)
	})
}

// Increment raises the line by one unit.
func (s *Service) Increment(ctx context.Context, productID uuid.UUID) (types.Cart, error) {
	line, ok := s.sink.State().Cart.Line(productID)
	if !ok {
		return s.AddItem(ctx, productID)
	}
	return s.SetQuantity(ctx, productID, line.Quantity+1)
}

// Decrement lowers the line by one unit and removes it at zero.
func (s *Service) Decrement(ctx context.Context, productID uuid.UUID) (types.Cart, error) {
	line, ok := s.sink.State().Cart.Line(productID)
	if !ok || line.Quantity <= 1 {
		return s.RemoveItem(ctx, productID)
	}
	return s.SetQuantity(ctx, productID, line.Quantity-1)
}

// RemoveItem deletes productID's line. Removing an absent line returns the
// unchanged cart.
func (s *Service) RemoveItem(ctx context.Context, productID uuid.UUID) (types.Cart, error) {
	if productID == uuid.Nil {
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.run(ctx, "cart.remove", "remove", productID, func(ctx context.Context) (types.Cart, error) {
		cart, err := s.remote.RemoveCartItem(ctx, productID)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return s.remote.GetCart(ctx)
		}
		return cart, err
	})
}

func (s *Service) capError(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", s.maxQty)).
		WithDetails(map[string]any{
			"quantity": quantity,
			"min":      1,
			"max":      s.maxQty,
		})
}

// run coalesces identical concurrent calls, stores the resulting cart and
// records the outcome.
func (s *Service) run(ctx context.Context, op, key string, productID uuid.UUID, call func(context.Context) (types.Cart, error)) (types.Cart, error) {
	started := time.Now()
	flightKey := key
	if productID != uuid.Nil {
		flightKey = key + ":" + productID.String()
	}

	v, err, shared := s.flight.Do(flightKey, func() (any, error) {
		cart, err := call(ctx)
		if err != nil {
			return types.Cart{}, err
		}
		s.sink.Dispatch(appstate.CartReplaced{Cart: cart})
		return cart, nil
	})

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"operation":  op,
		"product_id": productID.String(),
		"shared":     shared,
	})
	if err != nil {
		code := pkgerrors.CodeOf(err)
		s.metrics.Track(op, started, string(code))
		s.logg.Warn(s.logg.WithField(logCtx, "error_code", code), "cart.mutate.failed")
		return types.Cart{}, err
	}
	s.metrics.Track(op, started, "")
	s.logg.Debug(logCtx, "cart.mutate")
	return v.(types.Cart).Clone(), nil
}
