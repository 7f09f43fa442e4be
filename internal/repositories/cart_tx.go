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

// CartMergeTx folds a guest cart into a user's cart atomically.
type CartMergeTx interface {
	LockActiveCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	MergeItems(ctx context.Context, fromCartID, toCartID uuid.UUID) error
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
	TransferOwnership(ctx context.Context, cartID, profileID uuid.UUID) error
	Commit() error
	Rollback() error
}

type cartTx struct {
	tx *sql.Tx
}

// LockActiveCart selects the owner's active cart FOR UPDATE.
func (t *cartTx) LockActiveCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	predicate, arg := ownerPredicate(owner, 1)

	query := `SELECT ` + cartColumns + ` FROM carts WHERE ` + predicate + ` AND status = 'active' LIMIT 1 FOR UPDATE`

	cart, err := scanCart(t.tx.QueryRowContext(dbCtx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}

	return cart, nil
}

func (t *cartTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (t *cartTx) Rollback() error {
	return rollback(t.tx)
}

type mergeTx struct {
	cartTx
}

// MergeItems adds every line of fromCartID into toCartID, summing quantities
// for variants present in both.
func (t *mergeTx) MergeItems(ctx context.Context, fromCartID, toCartID uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO cart_items (cart_id, variant_id, quantity)
		SELECT $2, variant_id, quantity FROM cart_items WHERE cart_id = $1
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()`

	if _, err := t.tx.ExecContext(dbCtx, query, fromCartID, toCartID); err != nil {
		return fmt.Errorf("failed to merge cart items: %w", err)
	}

	return nil
}

func (t *mergeTx) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if _, err := t.tx.ExecContext(dbCtx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to delete cart items: %w", err)
	}

	if _, err := t.tx.ExecContext(dbCtx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	return nil
}

// TransferOwnership hands an active guest cart to a profile. If the profile
// gained an active cart meanwhile, ErrDuplicateActiveCart is returned.
func (t *mergeTx) TransferOwnership(ctx context.Context, cartID, profileID uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE carts
		SET profile_id = $2, session_id = NULL, is_guest = FALSE, updated_at = NOW()
		WHERE id = $1 AND status = 'active'`

	result, err := t.tx.ExecContext(dbCtx, query, cartID, profileID)
	if err != nil {
		if isUniqueViolation(err, "carts_one_active_per_profile") {
			return ErrDuplicateActiveCart
		}

		return fmt.Errorf("failed to transfer cart: %w", err)
	}

	if err := requireAffected(result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrCartNotActive
		}

		return err
	}

	return nil
}
