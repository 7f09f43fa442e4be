package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OverrideRepository interface {
	LatestActiveOverride(ctx context.Context, variantID uuid.UUID, role string) (*models.VariantPriceOverride, error)
	ReplaceOverride(ctx context.Context, variantID uuid.UUID, role string, price decimal.Decimal) (*models.VariantPriceOverride, error)
}

type overrideRepository struct {
	DB *sql.DB
}

func NewOverrideRepo(db *sql.DB) OverrideRepository {
	return &overrideRepository{DB: db}
}

const overrideColumns = `id, variant_id, role, price, is_active, created_at`

func scanOverride(row rowScanner) (*models.VariantPriceOverride, error) {
	var o models.VariantPriceOverride

	if err := row.Scan(&o.ID, &o.VariantID, &o.Role, &o.Price, &o.IsActive, &o.CreatedAt); err != nil {
		return nil, err
	}

	return &o, nil
}

// LatestActiveOverride returns the newest active override for the role,
// ties broken by id.
func (r *overrideRepository) LatestActiveOverride(ctx context.Context, variantID uuid.UUID, role string) (*models.VariantPriceOverride, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + overrideColumns + `
		FROM variant_prices
		WHERE variant_id = $1 AND role = $2 AND is_active
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	override, err := scanOverride(r.DB.QueryRowContext(dbCtx, query, variantID, role))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get price override: %w", err)
	}

	return override, nil
}

// ReplaceOverride deactivates the current override for (variant, role) and
// inserts the new one in a single transaction.
func (r *overrideRepository) ReplaceOverride(ctx context.Context, variantID uuid.UUID, role string, price decimal.Decimal) (*models.VariantPriceOverride, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	_, err = tx.ExecContext(dbCtx, `UPDATE variant_prices SET is_active = FALSE WHERE variant_id = $1 AND role = $2 AND is_active`, variantID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate price overrides: %w", err)
	}

	query := `
		INSERT INTO variant_prices (variant_id, role, price, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING ` + overrideColumns

	override, err := scanOverride(tx.QueryRowContext(dbCtx, query, variantID, role, price))
	if err != nil {
		return nil, fmt.Errorf("failed to insert price override: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit price override: %w", err)
	}

	return override, nil
}
