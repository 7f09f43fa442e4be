package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	expiryPattern     = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
	cvcPattern        = regexp.MustCompile(`^\d{3,4}$`)
)

// PaymentService approves orders through a simulated card gateway. No card
// data leaves the process or is stored.
type PaymentService interface {
	SimulatePayment(ctx context.Context, identity models.Identity, orderID uuid.UUID, req *models.SimulatedPaymentRequest) (*models.PaymentResult, error)
}

type paymentService struct {
	orders   OrderService
	validate *validator.Validate
	now      func() time.Time
}

func NewPaymentService(orders OrderService) PaymentService {
	return &paymentService{orders: orders, validate: validator.New(), now: time.Now}
}

func (s *paymentService) SimulatePayment(ctx context.Context, identity models.Identity, orderID uuid.UUID, req *models.SimulatedPaymentRequest) (*models.PaymentResult, error) {

	card, err := s.validateCard(req)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !canPay(identity, order, req.PaymentToken) {
		return nil, appErrors.NotFoundError("Order not found")
	}

	if order.Status != models.OrderStatusPendingPayment {
		return nil, appErrors.ConflictError("Order is not awaiting payment").WithDetail("current status: " + string(order.Status))
	}

	// the status check above is advisory; the transition itself is conditional
	updated, err := s.orders.UpdateOrderStatus(ctx, orderID, &models.UpdateOrderStatusRequest{
		Status: models.OrderStatusApproved,
		From:   models.OrderStatusPendingPayment,
	})
	if err != nil {
		return nil, err
	}

	masked := "**** **** **** " + card[len(card)-4:]

	middleware.LoggerFromContext(ctx).Info("Simulated payment approved",
		slog.String("orderId", updated.ID.String()),
		slog.String("orderNo", updated.OrderNo),
		slog.String("card", masked))

	return &models.PaymentResult{
		Reference:  uuid.New(),
		OrderID:    updated.ID,
		OrderNo:    updated.OrderNo,
		Status:     updated.Status,
		Amount:     updated.GrandTotal,
		Currency:   updated.Currency,
		MaskedCard: masked,
		ApprovedAt: s.now(),
	}, nil
}

// validateCard returns the card number with spaces removed.
func (s *paymentService) validateCard(req *models.SimulatedPaymentRequest) (string, error) {

	req.CardHolder = strings.TrimSpace(req.CardHolder)
	req.CardNumber = strings.ReplaceAll(strings.TrimSpace(req.CardNumber), " ", "")
	req.Expiry = strings.TrimSpace(req.Expiry)
	req.CVC = strings.TrimSpace(req.CVC)

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return "", appErrors.ValidationError("Please check your card details").WithDetail(strings.Join(response.ValidationMessages(verrs), "; "))
		}

		return "", appErrors.InternalError("Failed to validate request").WithError(err)
	}

	if !cardNumberPattern.MatchString(req.CardNumber) {
		return "", appErrors.AddValidationError("card_number", "must be 16 digits")
	}

	match := expiryPattern.FindStringSubmatch(req.Expiry)
	if match == nil {
		return "", appErrors.AddValidationError("expiry", "must be in MM/YY format")
	}

	month, _ := strconv.Atoi(match[1])
	year, _ := strconv.Atoi(match[2])

	// cards are valid through the last day of the expiry month
	expiresAt := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !s.now().Before(expiresAt) {
		return "", appErrors.AddValidationError("expiry", "card has expired")
	}

	if !cvcPattern.MatchString(req.CVC) {
		return "", appErrors.AddValidationError("cvc", "must be 3 or 4 digits")
	}

	if !req.AcceptedAgreement {
		return "", appErrors.AddValidationError("accepted_agreement", "the sales agreement must be accepted")
	}

	return req.CardNumber, nil
}

// canPay lets users pay their own orders. Guest orders need the token issued
// at checkout, since the guest session is gone by then.
func canPay(identity models.Identity, order *models.Order, token string) bool {
	if identity.IsUser() {
		return order.UserID != nil && *order.UserID == *identity.UserID
	}

	if !order.IsGuest || order.PaymentToken == "" || token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(order.PaymentToken), []byte(token)) == 1
}
