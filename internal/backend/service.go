// Package backend is the development storefront backend: the canonical owner
// of carts, stock, orders and wallets that the client core talks to.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/partnest/sparesync/internal/pricing"
	"github.com/partnest/sparesync/pkg/db/models"
	"github.com/partnest/sparesync/pkg/enums"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/storefront"
	"github.com/partnest/sparesync/pkg/types"
)

// DefaultMaxItemQuantity mirrors the client's default per-line cap.
const DefaultMaxItemQuantity = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Publisher pushes fresh snapshots to live subscribers after a write.
type Publisher interface {
	PublishCatalog(ctx context.Context) error
	PublishWallet(ctx context.Context, userID uuid.UUID) error
}

// Service exposes the storefront operations served over HTTP.
type Service interface {
	Products(ctx context.Context) ([]types.Product, error)
	Cart(ctx context.Context, userID uuid.UUID) (types.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) (types.Cart, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (types.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (types.Cart, error)
	PlaceOrder(ctx context.Context, userID uuid.UUID, req types.PlaceOrderRequest) (types.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (types.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, status *enums.ShipmentStatus) ([]types.Order, error)
	AdvanceOrder(ctx context.Context, orderID uuid.UUID, status enums.ShipmentStatus) (types.Order, error)
	Wallet(ctx context.Context, userID uuid.UUID) (types.Wallet, error)
	CreditWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (types.Wallet, error)
}

// ServiceOptions tunes the backend service.
type ServiceOptions struct {
	MaxItemQuantity int
	WalletPayments  bool
	Publisher       Publisher
	Logger          *logger.Logger
	Now             func() time.Time
}

type service struct {
	repo      *Repository
	tx        txRunner
	publisher Publisher
	logg      *logger.Logger
	maxQty    int
	wallet    bool
	now       func() time.Time
}

// NewService builds the backend service.
func NewService(repo *Repository, tx txRunner, opts ServiceOptions) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	maxQty := opts.MaxItemQuantity
	if maxQty <= 0 {
		maxQty = DefaultMaxItemQuantity
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      repo,
		tx:        tx,
		publisher: opts.Publisher,
		logg:      logg,
		maxQty:    maxQty,
		wallet:    opts.WalletPayments,
		now:       now,
	}, nil
}

func (s *service) Products(ctx context.Context) ([]types.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return toProducts(products), nil
}

func (s *service) Cart(ctx context.Context, userID uuid.UUID) (types.Cart, error) {
	return s.cart(ctx, s.repo, userID)
}

func (s *service) cart(ctx context.Context, repo *Repository, userID uuid.UUID) (types.Cart, error) {
	items, err := repo.ListCartItems(ctx, userID)
	if err != nil {
		return types.Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	cart, err := priceCart(items)
	if err != nil {
		return types.Cart{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price cart")
	}
	return cart, nil
}

func (s *service) loadProduct(ctx context.Context, repo *Repository, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindProduct(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func outOfStock(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "product is out of stock").
		WithDetails(storefront.StockConflictDetails([]uuid.UUID{productID}))
}

func (s *service) capError(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", s.maxQty)).
		WithDetails(map[string]any{"quantity": quantity, "min": 1, "max": s.maxQty})
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) (types.Cart, error) {
	var cart types.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := s.loadProduct(ctx, repo, productID)
		if err != nil {
			return err
		}
		item, err := repo.FindCartItem(ctx, userID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		next := 1
		if item != nil {
			next = item.Quantity + 1
		}
		if product.Quantity < next {
			return outOfStock(productID)
		}
		if next > s.maxQty {
			return s.capError(next)
		}

		if item == nil {
			err = repo.AppendCartItem(ctx, userID, productID, next)
		} else {
			err = repo.SetCartItemQuantity(ctx, item.ID, next)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
		}
		cart, err = s.cart(ctx, repo, userID)
		return err
	})
	return cart, s.result(ctx, "backend.cart.add", err)
}

func (s *service) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (types.Cart, error) {
	if quantity < 1 || quantity > s.maxQty {
		return types.Cart{}, s.capError(quantity)
	}
	var cart types.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindCartItem(ctx, userID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
		}
		product, err := s.loadProduct(ctx, repo, productID)
		if err != nil {
			return err
		}
		if product.Quantity < quantity {
			return outOfStock(productID)
		}
		if err := repo.SetCartItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
		}
		cart, err = s.cart(ctx, repo, userID)
		return err
	})
	return cart, s.result(ctx, "backend.cart.set_quantity", err)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (types.Cart, error) {
	if err := s.repo.DeleteCartItem(ctx, userID, productID); err != nil {
		return types.Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.Cart(ctx, userID)
}

func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, req types.PlaceOrderRequest) (types.Order, error) {
	if err := req.ShippingAddress.Validate(); err != nil {
		return types.Order{}, err
	}
	if !req.PaymentMethod.IsValid() {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"paymentMethod": string(req.PaymentMethod)})
	}
	if req.PaymentMethod == enums.PaymentMethodWallet && !s.wallet {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "wallet payments are disabled")
	}

	var placed models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items, err := repo.ListCartItems(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		stock, err := repo.LockProducts(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock products")
		}

		var short []uuid.UUID
		for i, item := range items {
			product, ok := stock[item.ProductID]
			if !ok || product.Quantity < item.Quantity {
				short = append(short, item.ProductID)
				continue
			}
			// price against the locked row, not the preloaded one
			items[i].Product = &product
		}
		if len(short) > 0 {
			sort.Slice(short, func(i, j int) bool { return short[i].String() < short[j].String() })
			return pkgerrors.New(pkgerrors.CodeStockConflict, "one or more products out of stock").
				WithDetails(storefront.StockConflictDetails(short))
		}

		cart, err := priceCart(items)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price cart")
		}

		if req.PaymentMethod == enums.PaymentMethodWallet {
			if err := s.debitWallet(ctx, repo, userID, pricing.NetOf(cart.TotalAmount, cart.DiscountAmount).Value); err != nil {
				return err
			}
		}

		for _, item := range items {
			if err := repo.AdjustProductQuantity(ctx, item.ProductID, -item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
		}

		placed = models.Order{
			ID:              uuid.New(),
			UserID:          userID,
			TotalAmount:     cart.TotalAmount,
			DiscountAmount:  cart.DiscountAmount,
			ShipmentStatus:  enums.ShipmentStatusPending,
			PaymentMethod:   req.PaymentMethod,
			ShippingAddress: req.ShippingAddress.Normalized(),
			CreatedAt:       s.now().UTC(),
		}
		for i, line := range cart.Items {
			placed.Items = append(placed.Items, models.OrderLineItem{
				ID:               uuid.New(),
				OrderID:          placed.ID,
				ProductID:        line.SparePartID,
				Position:         i,
				Name:             line.Name,
				Quantity:         line.Quantity,
				SubTotal:         line.SubTotal,
				SubTotalDiscount: line.SubTotalDiscount,
			})
		}
		if err := repo.CreateOrder(ctx, &placed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.ClearCart(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	if err := s.result(ctx, "backend.order.place", err); err != nil {
		return types.Order{}, err
	}

	s.publishCatalog(ctx)
	if req.PaymentMethod == enums.PaymentMethodWallet {
		s.publishWallet(ctx, userID)
	}
	return toOrder(placed), nil
}

func (s *service) debitWallet(ctx context.Context, repo *Repository, userID uuid.UUID, amount decimal.Decimal) error {
	debited, err := repo.DebitWallet(ctx, userID, amount.Round(pricing.Places))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
	}
	if !debited {
		return pkgerrors.New(pkgerrors.CodeValidation, "insufficient wallet balance").
			WithDetails(map[string]any{"required": amount.StringFixed(pricing.Places)})
	}
	return nil
}

func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (types.Order, error) {
	var (
		order     *models.Order
		cancelled bool
		refunded  bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.loadOrder(ctx, repo.LockOrder, userID, orderID)
		if err != nil {
			return err
		}
		if !order.ShipmentStatus.IsCancellable() {
			return nil
		}
		moved, err := repo.TransitionOrderStatus(ctx, order.ID, enums.ShipmentStatusCancelled, order.ShipmentStatus)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !moved {
			// Another writer changed the status first; report what it left behind.
			order, err = s.loadOrder(ctx, repo.FindOrder, userID, orderID)
			return err
		}

		for _, item := range order.Items {
			if err := repo.AdjustProductQuantity(ctx, item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
		}
		if order.PaymentMethod == enums.PaymentMethodWallet {
			if err := s.creditWallet(ctx, repo, order.UserID, pricing.NetOf(order.TotalAmount, order.DiscountAmount).Value, nil); err != nil {
				return err
			}
			refunded = true
		}
		order.ShipmentStatus = enums.ShipmentStatusCancelled
		cancelled = true
		return nil
	})
	if err := s.result(ctx, "backend.order.cancel", err); err != nil {
		return types.Order{}, err
	}

	if cancelled {
		s.publishCatalog(ctx)
	}
	if refunded {
		s.publishWallet(ctx, order.UserID)
	}
	return toOrder(*order), nil
}

type orderFinder func(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)

func (s *service) loadOrder(ctx context.Context, find orderFinder, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := find(ctx, userID, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, status *enums.ShipmentStatus) ([]types.Order, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipment status")
	}
	orders, err := s.repo.ListOrders(ctx, userID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toOrders(orders), nil
}

// AdvanceOrder moves an order along the fulfilment path. Cancellation goes
// through CancelOrder so stock and wallet are restored.
func (s *service) AdvanceOrder(ctx context.Context, orderID uuid.UUID, status enums.ShipmentStatus) (types.Order, error) {
	if status == enums.ShipmentStatusCancelled {
		order, err := s.loadOrder(ctx, s.repo.FindOrder, uuid.Nil, orderID)
		if err != nil {
			return types.Order{}, err
		}
		return s.CancelOrder(ctx, order.UserID, orderID)
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.loadOrder(ctx, repo.LockOrder, uuid.Nil, orderID)
		if err != nil {
			return err
		}
		conflict := pkgerrors.New(pkgerrors.CodeStateConflict, "shipment status transition not allowed").
			WithDetails(map[string]any{"from": order.ShipmentStatus.String(), "to": status.String()})
		if !enums.CanTransition(order.ShipmentStatus, status) {
			return conflict
		}
		moved, err := repo.TransitionOrderStatus(ctx, orderID, status, order.ShipmentStatus)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return conflict
		}
		order.ShipmentStatus = status
		return nil
	})
	if err := s.result(ctx, "backend.order.advance", err); err != nil {
		return types.Order{}, err
	}
	return toOrder(*order), nil
}

func (s *service) Wallet(ctx context.Context, userID uuid.UUID) (types.Wallet, error) {
	wallet, err := s.repo.FindWallet(ctx, userID)
	if err != nil {
		return types.Wallet{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if wallet == nil {
		return types.Wallet{UserID: userID, Amount: decimal.Zero}, nil
	}
	return toWallet(*wallet), nil
}

func (s *service) CreditWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (types.Wallet, error) {
	if !amount.IsPositive() {
		return types.Wallet{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	var wallet models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.creditWallet(ctx, s.repo.WithTx(tx), userID, amount, &wallet)
	})
	if err := s.result(ctx, "backend.wallet.credit", err); err != nil {
		return types.Wallet{}, err
	}
	s.publishWallet(ctx, userID)
	return toWallet(wallet), nil
}

func (s *service) creditWallet(ctx context.Context, repo *Repository, userID uuid.UUID, amount decimal.Decimal, out *models.Wallet) error {
	if err := repo.CreditWallet(ctx, userID, amount.Round(pricing.Places)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
	}
	if out == nil {
		return nil
	}
	wallet, err := repo.FindWallet(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if wallet != nil {
		*out = *wallet
	}
	return nil
}

// result logs a failed write and passes typed errors through untouched.
func (s *service) result(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) == nil {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit transaction")
	}
	code := pkgerrors.CodeOf(err)
	logCtx := s.logg.WithFields(ctx, map[string]any{"operation": op, "error_code": code})
	if pkgerrors.MetadataFor(code).Retryable {
		s.logg.Error(logCtx, "backend.write.failed", err)
	} else {
		s.logg.Info(logCtx, "backend.write.rejected")
	}
	return err
}

func (s *service) publishCatalog(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCatalog(ctx); err != nil {
		s.logg.Error(ctx, "backend.publish.catalog", err)
	}
}

func (s *service) publishWallet(ctx context.Context, userID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishWallet(ctx, userID); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "backend.publish.wallet", err)
	}
}
