package repository

import (
	"database/sql"
	"fmt"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/google/uuid"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const cartColumns = `id, profile_id, session_id, status, is_guest, created_at, updated_at`

func scanCart(row rowScanner) (*models.Cart, error) {
	var (
		cart      models.Cart
		profileID uuid.NullUUID
		sessionID sql.NullString
	)

	if err := row.Scan(&cart.ID, &profileID, &sessionID, &cart.Status, &cart.IsGuest, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
		return nil, err
	}

	if profileID.Valid {
		id := profileID.UUID
		cart.ProfileID = &id
	}

	if sessionID.Valid {
		s := sessionID.String
		cart.SessionID = &s
	}

	return &cart, nil
}

// variantColumns expects product_variants aliased v and products aliased p.
const variantColumns = `v.id, v.product_id, p.name, v.name, v.sku, v.base_price, v.stock, v.is_active,
		v.discount_percentage, v.discount_start_date, v.discount_end_date, v.updated_at`

func variantDest(v *models.ProductVariant, start, end *sql.NullTime) []any {
	return []any{
		&v.ID, &v.ProductID, &v.ProductName, &v.Name, &v.SKU, &v.BasePrice, &v.Stock, &v.IsActive,
		&v.Discount.Percentage, start, end, &v.UpdatedAt,
	}
}

func applyDiscountWindow(v *models.ProductVariant, start, end sql.NullTime) {
	if start.Valid {
		t := start.Time
		v.Discount.Start = &t
	}

	if end.Valid {
		t := end.Time
		v.Discount.End = &t
	}
}

const cartLineQuery = `
		SELECT ci.id, ci.cart_id, ci.variant_id, ci.quantity,
		` + variantColumns + `
		FROM cart_items ci
		JOIN product_variants v ON v.id = ci.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`

func scanCartLines(rows *sql.Rows) ([]models.CartLine, error) {
	defer rows.Close()

	lines := []models.CartLine{}

	for rows.Next() {
		var (
			line       models.CartLine
			start, end sql.NullTime
		)

		dest := append([]any{&line.Item.ID, &line.Item.CartID, &line.Item.VariantID, &line.Item.Quantity},
			variantDest(&line.Variant, &start, &end)...)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}

		applyDiscountWindow(&line.Variant, start, end)

		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over cart lines: %w", err)
	}

	return lines, nil
}

// ownerPredicate returns the WHERE fragment selecting a cart owner at
// placeholder position pos, and its argument.
func ownerPredicate(owner models.CartOwner, pos int) (string, any) {
	if owner.IsGuest() {
		return fmt.Sprintf("session_id = $%d", pos), owner.SessionID
	}

	return fmt.Sprintf("profile_id = $%d", pos), owner.ProfileID
}
