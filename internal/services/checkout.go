package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/metrics"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

type CheckoutService interface {
	PlaceOrder(ctx context.Context, identity models.Identity, req *models.PlaceOrderRequest) (*models.PlaceOrderResult, error)
}

type CheckoutOptions struct {
	OrderNumberPrefix   string
	OrderNumberAttempts int
}

// OrderEvents receives order lifecycle events after they commit.
type OrderEvents interface {
	OrderPlaced(event models.OrderPlaced)
	OrderStatusChanged(event models.OrderStatusChanged)
}

type checkoutService struct {
	checkoutRepo repository.CheckoutRepository
	addressRepo  repository.AddressRepository
	profileRepo  repository.ProfileRepository
	rateLimiter  repository.RateLimitRepository
	carts        CartService
	pricing      PricingService
	currency     CurrencyService
	events       OrderEvents
	opts         CheckoutOptions
	validate     *validator.Validate
	policy       *bluemonday.Policy
	now          func() time.Time
	orderSuffix  func() int
}

func NewCheckoutService(checkoutRepo repository.CheckoutRepository, addressRepo repository.AddressRepository, profileRepo repository.ProfileRepository, rateLimiter repository.RateLimitRepository, carts CartService, pricing PricingService, currency CurrencyService, events OrderEvents, opts CheckoutOptions) CheckoutService {

	if opts.OrderNumberPrefix == "" {
		opts.OrderNumberPrefix = "ORB-"
	}

	if opts.OrderNumberAttempts < 1 {
		opts.OrderNumberAttempts = 5
	}

	return &checkoutService{
		checkoutRepo: checkoutRepo,
		addressRepo:  addressRepo,
		profileRepo:  profileRepo,
		rateLimiter:  rateLimiter,
		carts:        carts,
		pricing:      pricing,
		currency:     currency,
		events:       events,
		opts:         opts,
		validate:     validator.New(),
		policy:       bluemonday.StrictPolicy(),
		now:          time.Now,
		orderSuffix:  randomOrderSuffix,
	}
}

// checkoutParty is the validated who and where of an order.
type checkoutParty struct {
	owner    models.CartOwner
	address  models.ShippingAddress
	contact  *models.GuestContact
	customer models.OrderCustomer
}

// PlaceOrder turns the caller's active cart into an order. Every check runs
// against live rows inside one transaction; on any failure nothing is written
// and the cart is left as it was.
func (s *checkoutService) PlaceOrder(ctx context.Context, identity models.Identity, req *models.PlaceOrderRequest) (*models.PlaceOrderResult, error) {

	logger := middleware.LoggerFromContext(ctx)

	owner, ok := currentOwner(identity)
	if !ok {
		metrics.CheckoutRejections.WithLabelValues("empty_cart").Inc()
		return nil, appErrors.EmptyCartError("Your cart is empty")
	}

	if err := s.checkRateLimit(ctx, owner); err != nil {
		return nil, err
	}

	party, err := s.resolveParty(ctx, identity, owner, req)
	if err != nil {
		metrics.CheckoutRejections.WithLabelValues("invalid_details").Inc()
		return nil, err
	}

	role := s.pricing.FetchUserRole(ctx, identity)
	rate := s.currency.Rate()

	tx, err := s.checkoutRepo.Begin(ctx)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to start checkout").WithError(err)
	}
	defer func() { _ = tx.Rollback() }()

	cart, err := tx.LockActiveCart(ctx, owner)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.CheckoutRejections.WithLabelValues("empty_cart").Inc()
			return nil, appErrors.EmptyCartError("Your cart is empty")
		}

		return nil, appErrors.DatabaseError("Failed to load cart").WithError(err)
	}

	lines, err := tx.LoadLines(ctx, cart.ID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to load cart items").WithError(err)
	}

	if len(lines) == 0 {
		metrics.CheckoutRejections.WithLabelValues("empty_cart").Inc()
		return nil, appErrors.EmptyCartError("Your cart is empty")
	}

	items, subtotal, err := s.priceLines(ctx, lines, role, rate)
	if err != nil {
		return nil, err
	}

	for i, item := range items {
		if err := tx.DecrementStock(ctx, item.VariantID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				metrics.CheckoutRejections.WithLabelValues("insufficient_stock").Inc()
				return nil, appErrors.InsufficientStockError(item.ProductNameSnapshot, lines[i].Variant.Stock).WithError(err)
			}

			return nil, appErrors.DatabaseError("Failed to reserve stock").WithError(err)
		}
	}

	order := &models.Order{
		Status:          models.OrderStatusPendingPayment,
		Currency:        s.currency.Currency(),
		Subtotal:        subtotal,
		DiscountTotal:   decimal.Zero,
		ShippingTotal:   decimal.Zero,
		GrandTotal:      subtotal,
		ShippingAddress: party.address,
		IsGuest:         owner.IsGuest(),
	}

	if owner.IsGuest() {
		order.GuestEmail = party.contact.Email
		order.GuestName = party.contact.FullName
		order.GuestPhone = party.contact.Phone
		order.PaymentToken = rand.Text()
	} else {
		userID := owner.ProfileID
		order.UserID = &userID
	}

	if err := s.insertOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.InsertOrderItems(ctx, order.ID, items); err != nil {
		return nil, appErrors.DatabaseError("Failed to save order items").WithError(err)
	}

	if err := tx.ConvertCart(ctx, cart.ID); err != nil {
		if errors.Is(err, repository.ErrCartNotActive) {
			return nil, appErrors.ConflictError("Your cart changed during checkout, please review it and try again").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to close cart").WithError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.DatabaseError("Failed to complete checkout").WithError(err)
	}

	// committed: everything below is best effort
	if owner.IsGuest() && identity.Guest != nil {
		identity.Guest.Clear()
	}

	s.carts.NotifyCartChanged(cart.ID, ReasonCheckout)

	metrics.OrdersPlaced.WithLabelValues(ownerLabel(owner)).Inc()

	logger.Info("Order placed",
		slog.String("orderId", order.ID.String()),
		slog.String("orderNo", order.OrderNo),
		slog.String("grandTotal", order.GrandTotal.StringFixed(2)),
		slog.Int("items", len(items)))

	if s.events != nil {
		s.events.OrderPlaced(models.OrderPlaced{
			OrderID:       order.ID,
			OrderNo:       order.OrderNo,
			CustomerName:  party.customer.Name,
			CustomerEmail: party.customer.Email,
			IsGuest:       order.IsGuest,
			ItemCount:     len(items),
			GrandTotal:    order.GrandTotal,
			Currency:      order.Currency,
		})
	}

	return &models.PlaceOrderResult{
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		GrandTotal: order.GrandTotal,
		Currency:   order.Currency,
		Display:    s.currency.FormatAmount(order.GrandTotal),

		PaymentToken: order.PaymentToken,
	}, nil
}

// checkRateLimit fails open when the limiter itself is unavailable.
func (s *checkoutService) checkRateLimit(ctx context.Context, owner models.CartOwner) error {

	if s.rateLimiter == nil {
		return nil
	}

	allowed, _, retryAfter, err := s.rateLimiter.CheckRateLimit(ctx, owner.Key())
	if err != nil {
		middleware.LoggerFromContext(ctx).Warn("Checkout rate limiter unavailable", slog.String("error", err.Error()))
		return nil
	}

	if !allowed {
		metrics.CheckoutRejections.WithLabelValues("rate_limited").Inc()
		return appErrors.TooManyRequestsError("Too many checkout attempts, please wait and try again").
			WithDetail(fmt.Sprintf("retry after %d seconds", retryAfter))
	}

	return nil
}

func (s *checkoutService) resolveParty(ctx context.Context, identity models.Identity, owner models.CartOwner, req *models.PlaceOrderRequest) (*checkoutParty, error) {

	if req == nil {
		return nil, appErrors.ValidationError("Shipping details are required")
	}

	if owner.IsGuest() {
		if req.Contact == nil {
			return nil, appErrors.AddValidationError("contact", "guest checkout requires contact details")
		}

		if req.Address == nil {
			return nil, appErrors.AddValidationError("address", "a shipping address is required")
		}

		contact := s.sanitizeContact(*req.Contact)
		address := s.sanitizeAddress(*req.Address)

		if err := s.validateAll(&contact, &address); err != nil {
			return nil, err
		}

		return &checkoutParty{
			owner:    owner,
			address:  address,
			contact:  &contact,
			customer: models.OrderCustomer{Email: contact.Email, Name: contact.FullName},
		}, nil
	}

	if req.AddressID == nil {
		return nil, appErrors.AddValidationError("address_id", "please select a shipping address")
	}

	saved, err := s.addressRepo.GetAddress(ctx, *req.AddressID, *identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.AddValidationError("address_id", "address not found")
		}

		return nil, appErrors.DatabaseError("Failed to load shipping address").WithError(err)
	}

	address := s.sanitizeAddress(saved.ShippingAddress)

	if err := s.validateAll(&address); err != nil {
		return nil, err
	}

	customer := models.OrderCustomer{Name: address.FullName}

	profile, err := s.profileRepo.GetProfile(ctx, owner.ProfileID)
	if err == nil {
		customer.Email = profile.Email
		if profile.FullName != "" {
			customer.Name = profile.FullName
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		middleware.LoggerFromContext(ctx).Warn("Failed to load profile for order contact", slog.String("error", err.Error()))
	}

	return &checkoutParty{owner: owner, address: address, customer: customer}, nil
}

func (s *checkoutService) validateAll(targets ...any) error {

	var messages []string

	for _, target := range targets {
		if err := s.validate.Struct(target); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return appErrors.InternalError("Failed to validate request").WithError(err)
			}

			messages = append(messages, response.ValidationMessages(verrs)...)
		}
	}

	if len(messages) > 0 {
		return appErrors.ValidationError("Please check your shipping details").WithDetail(strings.Join(messages, "; "))
	}

	return nil
}

// clean strips markup; snapshots hold plain text.
func (s *checkoutService) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *checkoutService) sanitizeContact(c models.GuestContact) models.GuestContact {
	return models.GuestContact{
		FullName: s.clean(c.FullName),
		Email:    strings.ToLower(s.clean(c.Email)),
		Phone:    s.clean(c.Phone),
	}
}

func (s *checkoutService) sanitizeAddress(a models.ShippingAddress) models.ShippingAddress {
	return models.ShippingAddress{
		FullName:    s.clean(a.FullName),
		Phone:       s.clean(a.Phone),
		Country:     s.clean(a.Country),
		City:        s.clean(a.City),
		District:    s.clean(a.District),
		AddressLine: s.clean(a.AddressLine),
		PostalCode:  s.clean(a.PostalCode),
	}
}

// priceLines validates each live line and snapshots it in the settlement
// currency: unit = round2(unit_usd * rate), line = unit * qty.
func (s *checkoutService) priceLines(ctx context.Context, lines []models.CartLine, role string, rate decimal.Decimal) ([]models.OrderItem, models.Money, error) {

	items := make([]models.OrderItem, 0, len(lines))
	subtotal := decimal.Zero

	for _, line := range lines {
		variant := line.Variant
		name := variant.DisplayName()

		if !variant.IsActive {
			metrics.CheckoutRejections.WithLabelValues("inactive_product").Inc()
			return nil, decimal.Zero, appErrors.ProductInactiveError(name)
		}

		if variant.Stock < line.Item.Quantity {
			metrics.CheckoutRejections.WithLabelValues("insufficient_stock").Inc()
			return nil, decimal.Zero, appErrors.InsufficientStockError(name, variant.Stock)
		}

		unitUSD, err := s.pricing.ResolveUnitPrice(ctx, variant.ID, variant.BasePrice, role, &variant.Discount)
		if err != nil {
			return nil, decimal.Zero, appErrors.DatabaseError("Failed to price cart items").WithError(err)
		}

		unit := ConvertAt(unitUSD, rate)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(line.Item.Quantity)))

		items = append(items, models.OrderItem{
			VariantID:           variant.ID,
			ProductID:           variant.ProductID,
			Quantity:            line.Item.Quantity,
			UnitPriceSnapshot:   unit,
			LineTotal:           lineTotal,
			ProductNameSnapshot: name,
			SKUSnapshot:         variant.SKU,
		})

		subtotal = subtotal.Add(lineTotal)
	}

	return items, subtotal, nil
}

// insertOrder draws order numbers until one is free or the attempts run out.
func (s *checkoutService) insertOrder(ctx context.Context, tx repository.CheckoutTx, order *models.Order) error {

	for attempt := 1; attempt <= s.opts.OrderNumberAttempts; attempt++ {
		order.OrderNo = s.orderNumber()

		err := tx.InsertOrder(ctx, order)
		if err == nil {
			return nil
		}

		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return appErrors.DatabaseError("Failed to create order").WithError(err)
		}

		middleware.LoggerFromContext(ctx).Warn("Order number collision, drawing another",
			slog.String("orderNo", order.OrderNo), slog.Int("attempt", attempt))
	}

	return appErrors.ConflictError("Could not allocate an order number, please try again")
}

func (s *checkoutService) orderNumber() string {
	return s.opts.OrderNumberPrefix + strconv.Itoa(s.now().Year()) + strconv.Itoa(s.orderSuffix())
}

// randomOrderSuffix is uniform over 1000..9999.
func randomOrderSuffix() int {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		panic(fmt.Sprintf("checkout: entropy source failed: %v", err))
	}

	return 1000 + int(n.Int64())
}
