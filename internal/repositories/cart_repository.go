package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/google/uuid"
)

type CartRepository interface {
	FindActiveCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	CreateCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	GetItem(ctx context.Context, cartID, variantID uuid.UUID) (*models.CartItem, error)
	AddItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int) (int, error)
	SetItemQuantity(ctx context.Context, cartID, variantID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, cartID, variantID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	CountItems(ctx context.Context, cartID uuid.UUID) (int, error)
	ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	BeginMerge(ctx context.Context) (CartMergeTx, error)
}

type cartRepository struct {
	DB *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepository {
	return &cartRepository{DB: db}
}

func (r *cartRepository) FindActiveCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	predicate, arg := ownerPredicate(owner, 1)

	query := `SELECT ` + cartColumns + ` FROM carts WHERE ` + predicate + ` AND status = 'active' LIMIT 1`

	cart, err := scanCart(r.DB.QueryRowContext(dbCtx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to find active cart: %w", err)
	}

	return cart, nil
}

// CreateCart inserts a new active cart. A concurrent insert for the same
// owner surfaces as ErrDuplicateActiveCart.
func (r *cartRepository) CreateCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var profileID, sessionID any
	if owner.IsGuest() {
		sessionID = owner.SessionID
	} else {
		profileID = owner.ProfileID
	}

	query := `
		INSERT INTO carts (profile_id, session_id, status, is_guest)
		VALUES ($1, $2, 'active', $3)
		RETURNING ` + cartColumns

	cart, err := scanCart(r.DB.QueryRowContext(dbCtx, query, profileID, sessionID, owner.IsGuest()))
	if err != nil {
		if isUniqueViolation(err, "carts_one_active_per_profile", "carts_one_active_per_session") {
			return nil, ErrDuplicateActiveCart
		}

		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return cart, nil
}

func (r *cartRepository) GetItem(ctx context.Context, cartID, variantID uuid.UUID) (*models.CartItem, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT id, cart_id, variant_id, quantity FROM cart_items WHERE cart_id = $1 AND variant_id = $2`

	var item models.CartItem

	err := r.DB.QueryRowContext(dbCtx, query, cartID, variantID).Scan(&item.ID, &item.CartID, &item.VariantID, &item.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}

	return &item, nil
}

// AddItem increments the line for (cart, variant), creating it when absent,
// and returns the resulting quantity.
func (r *cartRepository) AddItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int) (int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO cart_items (cart_id, variant_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING quantity`

	var total int

	if err := r.DB.QueryRowContext(dbCtx, query, cartID, variantID, quantity).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to add cart item: %w", err)
	}

	return total, nil
}

func (r *cartRepository) SetItemQuantity(ctx context.Context, cartID, variantID uuid.UUID, quantity int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `UPDATE cart_items SET quantity = $3, updated_at = NOW() WHERE cart_id = $1 AND variant_id = $2`

	result, err := r.DB.ExecContext(dbCtx, query, cartID, variantID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return requireAffected(result)
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, variantID uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.DB.ExecContext(dbCtx, `DELETE FROM cart_items WHERE cart_id = $1 AND variant_id = $2`, cartID, variantID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	return requireAffected(result)
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if _, err := r.DB.ExecContext(dbCtx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}

// CountItems counts distinct lines, not units.
func (r *cartRepository) CountItems(ctx context.Context, cartID uuid.UUID) (int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var count int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM cart_items WHERE cart_id = $1`, cartID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}

	return count, nil
}

func (r *cartRepository) ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	rows, err := r.DB.QueryContext(dbCtx, cartLineQuery, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}

	return scanCartLines(rows)
}

func (r *cartRepository) BeginMerge(ctx context.Context) (CartMergeTx, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin merge transaction: %w", err)
	}

	return &mergeTx{cartTx{tx: tx}}, nil
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
