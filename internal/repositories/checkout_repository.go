package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/google/uuid"
)

type CheckoutRepository interface {
	Begin(ctx context.Context) (CheckoutTx, error)
}

// CheckoutTx is a single order placement. Nothing it writes is visible until
// Commit; any failure must be followed by Rollback.
type CheckoutTx interface {
	LockActiveCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	LoadLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	DecrementStock(ctx context.Context, variantID uuid.UUID, quantity int) error
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error
	ConvertCart(ctx context.Context, cartID uuid.UUID) error
	Commit() error
	Rollback() error
}

type checkoutRepository struct {
	DB *sql.DB
}

func NewCheckoutRepo(db *sql.DB) CheckoutRepository {
	return &checkoutRepository{DB: db}
}

func (r *checkoutRepository) Begin(ctx context.Context) (CheckoutTx, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin checkout transaction: %w", err)
	}

	return &checkoutTx{cartTx{tx: tx}}, nil
}

type checkoutTx struct {
	cartTx
}

// LoadLines reads the cart lines and locks their variant rows.
func (t *checkoutTx) LoadLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	rows, err := t.tx.QueryContext(dbCtx, cartLineQuery+` FOR UPDATE OF v`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart lines: %w", err)
	}

	return scanCartLines(rows)
}

// DecrementStock only succeeds while enough stock remains.
func (t *checkoutTx) DecrementStock(ctx context.Context, variantID uuid.UUID, quantity int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE product_variants
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2`

	result, err := t.tx.ExecContext(dbCtx, query, variantID, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if err := requireAffected(result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInsufficientStock
		}

		return err
	}

	return nil
}

// InsertOrder fills order.ID and timestamps. A taken order number yields
// ErrDuplicateOrderNumber and leaves the transaction usable.
func (t *checkoutTx) InsertOrder(ctx context.Context, order *models.Order) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	query := `
		INSERT INTO orders (order_no, status, currency, subtotal, discount_total, shipping_total, grand_total,
			shipping_address, user_id, is_guest, guest_email, guest_name, guest_phone, payment_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (order_no) DO NOTHING
		RETURNING id, created_at, updated_at`

	err = t.tx.QueryRowContext(dbCtx, query,
		order.OrderNo, order.Status, order.Currency,
		order.Subtotal, order.DiscountTotal, order.ShippingTotal, order.GrandTotal,
		address, nullableUUID(order.UserID), order.IsGuest,
		nullableString(order.GuestEmail), nullableString(order.GuestName), nullableString(order.GuestPhone),
		nullableString(order.PaymentToken),
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDuplicateOrderNumber
		}

		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

func (t *checkoutTx) InsertOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO order_items (order_id, variant_id, product_id, quantity, unit_price_snapshot, line_total,
			product_name_snapshot, sku_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	for i := range items {
		item := &items[i]
		item.OrderID = orderID

		err := t.tx.QueryRowContext(dbCtx, query, orderID, item.VariantID, item.ProductID, item.Quantity,
			item.UnitPriceSnapshot, item.LineTotal, item.ProductNameSnapshot, item.SKUSnapshot).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert an order item: %w", err)
		}
	}

	return nil
}

// ConvertCart retires the cart. It fails with ErrCartNotActive if another
// checkout converted it first.
func (t *checkoutTx) ConvertCart(ctx context.Context, cartID uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `UPDATE carts SET status = 'converted', updated_at = NOW() WHERE id = $1 AND status = 'active'`

	result, err := t.tx.ExecContext(dbCtx, query, cartID)
	if err != nil {
		return fmt.Errorf("failed to convert cart: %w", err)
	}

	if err := requireAffected(result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrCartNotActive
		}

		return err
	}

	return nil
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}

	return *id
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}

	return s
}
