package service

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

type OrderService interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetUserOrder(ctx context.Context, userID, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, page int, size int) (*models.PaginatedResponse, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	profileRepo repository.ProfileRepository
	events      OrderEvents
	policy      *bluemonday.Policy
}

func NewOrderService(orderRepo repository.OrderRepository, profileRepo repository.ProfileRepository, events OrderEvents) OrderService {
	return &orderService{orderRepo: orderRepo, profileRepo: profileRepo, events: events, policy: bluemonday.StrictPolicy()}
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {

	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Order not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch order").WithError(err)
	}

	return order, nil
}

// GetUserOrder hides orders the user does not own behind a not found.
func (s *orderService) GetUserOrder(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.UserID == nil || *order.UserID != userID {
		return nil, appErrors.NotFoundError("Order not found")
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, page int, size int) (*models.PaginatedResponse, error) {

	if page < 1 {
		page = 1
	}

	if size < 1 || size > 10 {
		size = 10
	}

	orders, total, err := s.orderRepo.ListOrdersByUser(ctx, userID, page, size)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return &models.PaginatedResponse{
		Data:     orders,
		Total:    total,
		Page:     page,
		PageSize: size,
	}, nil
}

// UpdateOrderStatus writes the new status and, after it commits, tells the
// customer. Delivery of that message never affects the update.
func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, error) {

	status := models.OrderStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if status == "" {
		return nil, appErrors.AddValidationError("status", "is required")
	}

	tracking := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(req.TrackingNumber)))

	if status == models.OrderStatusShipped && tracking == "" {
		return nil, appErrors.AddValidationError("tracking_number", "is required when an order is shipped")
	}

	if status != models.OrderStatusShipped {
		tracking = ""
	}

	var (
		order *models.Order
		err   error
	)

	if req.From != "" {
		order, err = s.orderRepo.TransitionStatus(ctx, id, req.From, status)
	} else {
		order, err = s.orderRepo.UpdateOrderStatus(ctx, id, status, tracking)
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Order not found").WithError(err)
		}

		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, appErrors.ConflictError("Order status changed, please reload the order").
				WithDetail("expected status: " + string(req.From)).WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to update order status").WithError(err)
	}

	middleware.LoggerFromContext(ctx).Info("Order status updated",
		slog.String("orderId", order.ID.String()),
		slog.String("orderNo", order.OrderNo),
		slog.String("status", string(status)))

	if s.events != nil {
		customer := s.customerOf(ctx, order)

		s.events.OrderStatusChanged(models.OrderStatusChanged{
			OrderID:        order.ID,
			OrderNo:        order.OrderNo,
			Status:         order.Status,
			CustomerEmail:  customer.Email,
			CustomerName:   customer.Name,
			TrackingNumber: tracking,
			GrandTotal:     order.GrandTotal,
		})
	}

	return order, nil
}

// customerOf prefers the guest contact on the order, then the profile.
func (s *orderService) customerOf(ctx context.Context, order *models.Order) models.OrderCustomer {

	customer := models.OrderCustomer{Email: order.GuestEmail, Name: order.GuestName}

	if !order.IsGuest && order.UserID != nil {
		profile, err := s.profileRepo.GetProfile(ctx, *order.UserID)
		if err == nil {
			customer = models.OrderCustomer{Email: profile.Email, Name: profile.FullName}
		} else {
			middleware.LoggerFromContext(ctx).Warn("Failed to load customer for order notification",
				slog.String("orderId", order.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	if customer.Name == "" {
		customer.Name = models.DefaultCustomerName
	}

	return customer
}
