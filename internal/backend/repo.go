package backend

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/partnest/sparesync/pkg/db/models"
	"github.com/partnest/sparesync/pkg/enums"
)

// Repository exposes persistence for products, carts, orders and wallets.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateProduct inserts a listing, assigning an id when missing.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(product).Error
}

// ListProducts returns every listing ordered by name.
func (r *Repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&products).Error
	return products, err
}

// FindProduct loads one listing.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LockProducts loads the listings by id, locking rows where the driver supports it.
func (r *Repository) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// AdjustProductQuantity adds delta to a listing's stock.
func (r *Repository) AdjustProductQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity + ?", delta)).Error
}

// ListCartItems returns the shopper's lines in insertion order with their products.
func (r *Repository) ListCartItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&items).Error
	return items, err
}

// FindCartItem returns the line for productID, or nil when absent.
func (r *Repository) FindCartItem(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// AppendCartItem inserts a new line after the existing ones.
func (r *Repository) AppendCartItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	var maxPos int
	row := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(position), -1)").
		Row()
	if err := row.Scan(&maxPos); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Position:  maxPos + 1,
		Quantity:  quantity,
	}).Error
}

// SetCartItemQuantity overwrites a line's quantity.
func (r *Repository) SetCartItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity).Error
}

// DeleteCartItem removes a line. Deleting an absent line is not an error.
func (r *Repository) DeleteCartItem(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}

// ClearCart removes every line of the shopper's cart.
func (r *Repository) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

// CreateOrder persists the order together with its line items.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *Repository) ordersQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindOrder loads an order owned by userID. A nil userID skips the ownership check.
func (r *Repository) FindOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return r.findOrder(r.ordersQuery(ctx), userID, orderID)
}

// LockOrder is FindOrder holding a row lock on the order until the surrounding
// transaction ends.
func (r *Repository) LockOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return r.findOrder(r.ordersQuery(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID, orderID)
}

func (r *Repository) findOrder(query *gorm.DB, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	query = query.Where("id = ?", orderID)
	if userID != uuid.Nil {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns the shopper's orders, newest first, optionally filtered by status.
func (r *Repository) ListOrders(ctx context.Context, userID uuid.UUID, status *enums.ShipmentStatus) ([]models.Order, error) {
	var orders []models.Order
	query := r.ordersQuery(ctx).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("shipment_status = ?", *status)
	}
	err := query.Order("created_at DESC, id ASC").Find(&orders).Error
	return orders, err
}

// TransitionOrderStatus moves an order to status only while its current status
// is one of from. It reports whether the row changed.
func (r *Repository) TransitionOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.ShipmentStatus, from ...enums.ShipmentStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND shipment_status IN ?", orderID, from).
		Update("shipment_status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindWallet returns the wallet for userID, or nil when none exists yet.
func (r *Repository) FindWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// SaveWallet inserts or replaces the wallet row.
func (r *Repository) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Save(wallet).Error
}

// DebitWallet subtracts amount in place when the balance covers it. It reports
// whether the debit was applied.
func (r *Repository) DebitWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND amount >= ?", userID, amount).
		Update("amount", gorm.Expr("amount - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreditWallet adds amount in place, creating the wallet on first credit.
func (r *Repository) CreditWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"amount":     gorm.Expr("wallets.amount + excluded.amount"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(&models.Wallet{UserID: userID, Amount: amount}).Error
}
