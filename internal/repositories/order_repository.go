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

type OrderRepository interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, page int, size int) ([]models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, trackingNumber string) (*models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.Order, error)
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

const orderColumns = `id, order_no, status, currency, subtotal, discount_total, shipping_total, grand_total,
		shipping_address, user_id, is_guest, guest_email, guest_name, guest_phone, tracking_number, payment_token, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order                     models.Order
		address                   []byte
		userID                    uuid.NullUUID
		email, name, phone, track sql.NullString
		token                     sql.NullString
	)

	err := row.Scan(&order.ID, &order.OrderNo, &order.Status, &order.Currency,
		&order.Subtotal, &order.DiscountTotal, &order.ShippingTotal, &order.GrandTotal,
		&address, &userID, &order.IsGuest, &email, &name, &phone, &track, &token, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}

	if userID.Valid {
		id := userID.UUID
		order.UserID = &id
	}

	order.GuestEmail = email.String
	order.GuestName = name.String
	order.GuestPhone = phone.String
	order.TrackingNumber = track.String
	order.PaymentToken = token.String

	return &order, nil
}

/*
Get the order
Get the order items
*/
func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.DB.QueryRowContext(dbCtx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get the order: %w", err)
	}

	if order.Items, err = r.listItems(dbCtx, order.ID); err != nil {
		return nil, err
	}

	return order, nil
}

// List the orders of a user, newest first, along with pagination
func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page int, size int) ([]models.Order, int, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int
	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * size

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(dbCtx, query, userID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := []models.Order{}

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan the orders: %w", err)
		}

		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("error iterating over the orders: %w", err)
	}

	rows.Close()

	// now for each order we have to fetch the respective order items
	for i := range orders {
		if orders[i].Items, err = r.listItems(dbCtx, orders[i].ID); err != nil {
			return nil, 0, err
		}
	}

	return orders, total, nil
}

// UpdateOrderStatus sets the status and, when given, the tracking number.
// An empty tracking number keeps the stored one.
func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, trackingNumber string) (*models.Order, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders
		SET status = $2, tracking_number = COALESCE(NULLIF($3, ''), tracking_number), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orderColumns

	order, err := scanOrder(r.DB.QueryRowContext(dbCtx, query, id, status, trackingNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	return order, nil
}

// TransitionStatus moves the order from one status to another in a single
// statement. A missing order is ErrNotFound; an order in any other status is
// ErrStatusChanged and stays untouched.
func (r *orderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.Order, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns

	order, err := scanOrder(r.DB.QueryRowContext(dbCtx, query, id, from, to))
	if err == nil {
		return order, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to transition order status: %w", err)
	}

	var exists bool
	if err := r.DB.QueryRowContext(dbCtx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check order: %w", err)
	}

	if !exists {
		return nil, ErrNotFound
	}

	return nil, ErrStatusChanged
}

func (r *orderRepository) listItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	query := `
		SELECT id, variant_id, product_id, quantity, unit_price_snapshot, line_total, product_name_snapshot, sku_snapshot
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_name_snapshot, id
	`

	rows, err := r.DB.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}

	for rows.Next() {
		item := models.OrderItem{OrderID: orderID}

		err := rows.Scan(&item.ID, &item.VariantID, &item.ProductID, &item.Quantity,
			&item.UnitPriceSnapshot, &item.LineTotal, &item.ProductNameSnapshot, &item.SKUSnapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over order items: %w", err)
	}

	return items, nil
}
