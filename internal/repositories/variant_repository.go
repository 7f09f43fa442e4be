package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type VariantRepository interface {
	GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	GetVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ProductVariant, error)
}

type variantRepository struct {
	DB *sql.DB
}

func NewVariantRepo(db *sql.DB) VariantRepository {
	return &variantRepository{DB: db}
}

func (r *variantRepository) GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + variantColumns + `
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1`

	var (
		variant    models.ProductVariant
		start, end sql.NullTime
	)

	if err := r.DB.QueryRowContext(dbCtx, query, id).Scan(variantDest(&variant, &start, &end)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get variant: %w", err)
	}

	applyDiscountWindow(&variant, start, end)

	return &variant, nil
}

// GetVariants loads several variants in one round trip. Unknown ids are
// simply absent from the result.
func (r *variantRepository) GetVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ProductVariant, error) {
	result := make(map[uuid.UUID]*models.ProductVariant, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	query := `
		SELECT ` + variantColumns + `
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1::uuid[])`

	rows, err := r.DB.QueryContext(dbCtx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			variant    models.ProductVariant
			start, end sql.NullTime
		)

		if err := rows.Scan(variantDest(&variant, &start, &end)...); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}

		applyDiscountWindow(&variant, start, end)

		result[variant.ID] = &variant
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over variants: %w", err)
	}

	return result, nil
}
