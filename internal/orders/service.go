// Package orders places and cancels orders on behalf of the shopper.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/partnest/sparesync/internal/appstate"
	"github.com/partnest/sparesync/internal/pricing"
	"github.com/partnest/sparesync/internal/stock"
	"github.com/partnest/sparesync/pkg/enums"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/metrics"
	"github.com/partnest/sparesync/pkg/storefront"
	"github.com/partnest/sparesync/pkg/types"
)

// Options tunes a Service.
type Options struct {
	WalletPayments bool
	Logger         *logger.Logger
	Metrics        *metrics.OperationMetrics
}

// PlaceInput is what the checkout screen collects.
type PlaceInput struct {
	Address       types.Address
	PaymentMethod enums.PaymentMethod
}

// Service drives the order lifecycle from the client side.
type Service struct {
	remote         Remote
	sink           appstate.Sink
	walletPayments bool
	logg           *logger.Logger
	metrics        *metrics.OperationMetrics
	flight         singleflight.Group
}

// NewService builds an order service writing into sink.
func NewService(remote Remote, sink appstate.Sink, opts Options) (*Service, error) {
	if remote == nil {
		return nil, fmt.Errorf("orders remote required")
	}
	if sink == nil {
		return nil, fmt.Errorf("state sink required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		remote:         remote,
		sink:           sink,
		walletPayments: opts.WalletPayments,
		logg:           logg,
		metrics:        opts.Metrics,
	}, nil
}

// Place submits the current cart as an order. Address and payment checks run
// before any network call. On success the cart is cleared and the new order
// is prepended to the order list.
func (s *Service) Place(ctx context.Context, input PlaceInput) (types.Order, error) {
	started := time.Now()
	order, err := s.place(ctx, input)
	s.finish(ctx, "order.place", started, err, map[string]any{"payment_method": input.PaymentMethod.String()})
	return order, err
}

// placeKey coalesces repeated submits of the same checkout. A concurrent
// submit with another address or payment method is placed on its own.
func placeKey(input PlaceInput) string {
	a := input.Address.Normalized()
	return fmt.Sprintf("place|%s|%s|%s|%s|%s|%s", input.PaymentMethod, a.HouseNo, a.Street, a.PostalCode, a.City, a.State)
}

func (s *Service) place(ctx context.Context, input PlaceInput) (types.Order, error) {
	if err := input.Address.Validate(); err != nil {
		return types.Order{}, err
	}
	if !input.PaymentMethod.IsValid() {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]any{"paymentMethod": input.PaymentMethod.String()})
	}
	if input.PaymentMethod == enums.PaymentMethodWallet && !s.walletPayments {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "wallet payments are disabled")
	}

	state := s.sink.State()
	if input.PaymentMethod == enums.PaymentMethodWallet && state.CartLoaded {
		if err := checkWallet(state); err != nil {
			return types.Order{}, err
		}
	}

	v, err, _ := s.flight.Do(placeKey(input), func() (any, error) {
		state := s.sink.State()
		if !state.CartLoaded {
			cart, err := s.remote.GetCart(ctx)
			if err != nil {
				return types.Order{}, err
			}
			state = s.sink.Dispatch(appstate.CartReplaced{Cart: cart})
		}
		if state.Cart.IsEmpty() {
			return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		if input.PaymentMethod == enums.PaymentMethodWallet {
			if err := checkWallet(state); err != nil {
				return types.Order{}, err
			}
		}
		if state.CatalogLoaded {
			report := stock.Reconcile(state.Cart.Items, stock.Index(state.Catalog))
			if !report.Placeable {
				return types.Order{}, pkgerrors.New(pkgerrors.CodeStockConflict, "one or more products out of stock").
					WithDetails(storefront.StockConflictDetails(report.Affected()))
			}
		}

		order, err := s.remote.PlaceOrder(ctx, types.PlaceOrderRequest{
			ShippingAddress: input.Address.Normalized(),
			PaymentMethod:   input.PaymentMethod,
		})
		if err != nil {
			return types.Order{}, err
		}
		if order.ShipmentStatus == "" {
			order.ShipmentStatus = enums.ShipmentStatusPending
		}
		s.sink.Dispatch(appstate.CartCleared{})
		s.sink.Dispatch(appstate.OrderUpserted{Order: order})
		return order, nil
	})
	if err != nil {
		return types.Order{}, err
	}
	return v.(types.Order), nil
}

func checkWallet(state appstate.State) error {
	if state.Wallet == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "wallet balance is not available yet")
	}
	payable := pricing.NetOf(state.Cart.TotalAmount, state.Cart.DiscountAmount)
	if state.Wallet.Amount.LessThan(payable.Value) {
		return pkgerrors.New(pkgerrors.CodeValidation, "insufficient wallet balance").WithDetails(map[string]any{
			"balance": state.Wallet.Amount.StringFixed(pricing.Places),
			"payable": payable.String(),
		})
	}
	return nil
}

// Cancel cancels orderID when its status still allows it. Orders that are
// shipped, delivered or already cancelled come back unchanged without a
// mutation call.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID) (types.Order, error) {
	started := time.Now()
	order, err := s.cancel(ctx, orderID)
	s.finish(ctx, "order.cancel", started, err, map[string]any{"order_id": orderID.String()})
	return order, err
}

func (s *Service) cancel(ctx context.Context, orderID uuid.UUID) (types.Order, error) {
	if orderID == uuid.Nil {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, ok := s.sink.State().Order(orderID)
	if !ok {
		if _, err := s.List(ctx, nil); err != nil {
			return types.Order{}, err
		}
		order, ok = s.sink.State().Order(orderID)
		if !ok {
			return types.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
	}

	if !order.ShipmentStatus.IsCancellable() {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id":        orderID.String(),
			"shipment_status": order.ShipmentStatus.String(),
		}), "order.cancel.noop")
		return order, nil
	}

	v, err, _ := s.flight.Do("cancel:"+orderID.String(), func() (any, error) {
		updated, err := s.remote.CancelOrder(ctx, orderID)
		if err != nil {
			return types.Order{}, err
		}
		s.sink.Dispatch(appstate.OrderUpserted{Order: updated})
		return updated, nil
	})
	if err != nil {
		return types.Order{}, err
	}
	return v.(types.Order), nil
}

// List fetches orders. An unfiltered listing replaces the stored list; a
// filtered one only refreshes the orders it returns.
func (s *Service) List(ctx context.Context, status *enums.ShipmentStatus) ([]types.Order, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipment status").
			WithDetails(map[string]any{"status": status.String()})
	}
	started := time.Now()
	orders, err := s.remote.ListOrders(ctx, status)
	s.finish(ctx, "order.list", started, err, nil)
	if err != nil {
		return nil, err
	}
	if status == nil {
		s.sink.Dispatch(appstate.OrdersReplaced{Orders: orders})
	} else {
		for _, o := range orders {
			s.sink.Dispatch(appstate.OrderUpserted{Order: o})
		}
	}
	return orders, nil
}

func (s *Service) finish(ctx context.Context, op string, started time.Time, err error, fields map[string]any) {
	logCtx := s.logg.WithField(ctx, "operation", op)
	if len(fields) > 0 {
		logCtx = s.logg.WithFields(logCtx, fields)
	}
	if err != nil {
		code := pkgerrors.CodeOf(err)
		s.metrics.Track(op, started, string(code))
		s.logg.Warn(s.logg.WithField(logCtx, "error_code", code), op+".failed")
		return
	}
	s.metrics.Track(op, started, "")
	s.logg.Info(logCtx, op)
}
