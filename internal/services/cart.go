package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/solar-storefront/internal/cache"
	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/events"
	"github.com/aaravmahajanofficial/solar-storefront/internal/metrics"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ReasonItemAdded   = "item_added"
	ReasonItemUpdated = "item_updated"
	ReasonItemRemoved = "item_removed"
	ReasonCleared     = "cleared"
	ReasonMerged      = "merged"
	ReasonCheckout    = "checkout"
)

type CartService interface {
	GetOrCreateActiveCart(ctx context.Context, identity models.Identity) (uuid.UUID, bool)
	GetCurrentCartID(ctx context.Context, identity models.Identity) (uuid.UUID, bool)
	MergeGuestCartIntoUser(ctx context.Context, userID uuid.UUID, guest models.GuestSession) models.MergeOutcome
	AddItem(ctx context.Context, identity models.Identity, req *models.AddItemRequest) (*models.CartView, error)
	UpdateItemQuantity(ctx context.Context, identity models.Identity, variantID uuid.UUID, quantity int) (*models.CartView, error)
	RemoveItem(ctx context.Context, identity models.Identity, variantID uuid.UUID) (*models.CartView, error)
	ClearCart(ctx context.Context, identity models.Identity) error
	GetCart(ctx context.Context, identity models.Identity) (*models.CartView, error)
	CartCount(ctx context.Context, identity models.Identity) int
	NotifyCartChanged(cartID uuid.UUID, reason string)
	Subscribe(fn func(models.CartChanged)) func()
}

type ProfileWait struct {
	Attempts int
	Delay    time.Duration
}

type cartService struct {
	cartRepo    repository.CartRepository
	variantRepo repository.VariantRepository
	profileRepo repository.ProfileRepository
	pricing     PricingService
	currency    CurrencyService
	cache       cache.Cache
	cacheTTL    time.Duration
	wait        ProfileWait
	notifier    *events.Broadcaster[models.CartChanged]
}

func NewCartService(cartRepo repository.CartRepository, variantRepo repository.VariantRepository, profileRepo repository.ProfileRepository, pricing PricingService, currency CurrencyService, c cache.Cache, cacheTTL time.Duration, wait ProfileWait) CartService {

	s := &cartService{
		cartRepo:    cartRepo,
		variantRepo: variantRepo,
		profileRepo: profileRepo,
		pricing:     pricing,
		currency:    currency,
		cache:       c,
		cacheTTL:    cacheTTL,
		wait:        wait,
		notifier:    events.NewBroadcaster[models.CartChanged](),
	}

	// counts are cached per cart and dropped on every change
	s.notifier.Subscribe(s.invalidateCount)

	return s
}

// GetOrCreateActiveCart never returns an error: any failure is logged and
// reported as false so the caller can tell the user the cart is unavailable.
func (s *cartService) GetOrCreateActiveCart(ctx context.Context, identity models.Identity) (uuid.UUID, bool) {

	logger := middleware.LoggerFromContext(ctx)

	var owner models.CartOwner

	if identity.IsUser() {
		userID := *identity.UserID

		err := utils.WaitForConsistency(ctx, s.wait.Attempts, s.wait.Delay, func(ctx context.Context) (bool, error) {
			return s.profileRepo.ProfileExists(ctx, userID)
		})
		if err != nil {
			if ctx.Err() != nil {
				return uuid.Nil, false
			}

			logger.Warn("Profile not visible yet, continuing without it",
				slog.String("userId", userID.String()),
				slog.String("error", err.Error()))
		}

		owner = models.UserOwner(userID)
	} else {
		if identity.Guest == nil {
			return uuid.Nil, false
		}

		sessionID, ok := identity.Guest.GetOrCreateID()
		if !ok {
			logger.Warn("Guest session unavailable, cannot resolve cart")
			return uuid.Nil, false
		}

		owner = models.GuestOwner(sessionID)
	}

	return s.findOrCreate(ctx, owner)
}

func (s *cartService) findOrCreate(ctx context.Context, owner models.CartOwner) (uuid.UUID, bool) {

	logger := middleware.LoggerFromContext(ctx).With(slog.String("owner", owner.Key()))

	cart, err := s.cartRepo.FindActiveCart(ctx, owner)
	if err == nil {
		return cart.ID, true
	}

	if !errors.Is(err, repository.ErrNotFound) {
		logger.Error("Failed to look up active cart", slog.String("error", err.Error()))
		return uuid.Nil, false
	}

	cart, err = s.cartRepo.CreateCart(ctx, owner)
	if err == nil {
		metrics.CartsCreated.WithLabelValues(ownerLabel(owner)).Inc()
		logger.Info("Active cart created", slog.String("cartId", cart.ID.String()))
		return cart.ID, true
	}

	if !errors.Is(err, repository.ErrDuplicateActiveCart) {
		logger.Error("Failed to create cart", slog.String("error", err.Error()))
		return uuid.Nil, false
	}

	// another request created it first; use theirs
	cart, err = s.cartRepo.FindActiveCart(ctx, owner)
	if err != nil {
		logger.Error("Failed to re-read cart after create conflict", slog.String("error", err.Error()))
		return uuid.Nil, false
	}

	metrics.CartRacesRecovered.Inc()

	return cart.ID, true
}

// GetCurrentCartID is read-only: it never creates a cart or mints a guest session.
func (s *cartService) GetCurrentCartID(ctx context.Context, identity models.Identity) (uuid.UUID, bool) {

	owner, ok := currentOwner(identity)
	if !ok {
		return uuid.Nil, false
	}

	cart, err := s.cartRepo.FindActiveCart(ctx, owner)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			middleware.LoggerFromContext(ctx).Error("Failed to look up active cart",
				slog.String("owner", owner.Key()),
				slog.String("error", err.Error()))
		}

		return uuid.Nil, false
	}

	return cart.ID, true
}

// MergeGuestCartIntoUser moves the guest's cart to the user at sign-in. The
// guest session is cleared on every path once a session was found.
func (s *cartService) MergeGuestCartIntoUser(ctx context.Context, userID uuid.UUID, guest models.GuestSession) models.MergeOutcome {

	if guest == nil {
		return models.MergeNone
	}

	sessionID, ok := guest.PeekID()
	if !ok {
		return models.MergeNone
	}

	defer guest.Clear()

	logger := middleware.LoggerFromContext(ctx).With(
		slog.String("userId", userID.String()),
		slog.String("sessionId", sessionID),
	)

	outcome, cartID, err := s.merge(ctx, userID, sessionID)
	if errors.Is(err, repository.ErrDuplicateActiveCart) {
		// the user got a cart between our lock and the transfer; merge into it
		outcome, cartID, err = s.merge(ctx, userID, sessionID)
	}

	if err != nil {
		logger.Error("Guest cart merge failed", slog.String("error", err.Error()))
		outcome = models.MergeFailed
	}

	metrics.CartMerges.WithLabelValues(string(outcome)).Inc()

	if outcome == models.MergeMerged || outcome == models.MergeTransferred {
		logger.Info("Guest cart merged", slog.String("outcome", string(outcome)), slog.String("cartId", cartID.String()))
		s.NotifyCartChanged(cartID, ReasonMerged)
	}

	return outcome
}

func (s *cartService) merge(ctx context.Context, userID uuid.UUID, sessionID string) (models.MergeOutcome, uuid.UUID, error) {

	tx, err := s.cartRepo.BeginMerge(ctx)
	if err != nil {
		return models.MergeFailed, uuid.Nil, err
	}
	defer func() { _ = tx.Rollback() }()

	guestCart, err := tx.LockActiveCart(ctx, models.GuestOwner(sessionID))
	if errors.Is(err, repository.ErrNotFound) {
		return models.MergeCleared, uuid.Nil, nil
	}

	if err != nil {
		return models.MergeFailed, uuid.Nil, err
	}

	userCart, err := tx.LockActiveCart(ctx, models.UserOwner(userID))
	switch {
	case err == nil:
		if err := tx.MergeItems(ctx, guestCart.ID, userCart.ID); err != nil {
			return models.MergeFailed, uuid.Nil, err
		}

		if err := tx.DeleteCart(ctx, guestCart.ID); err != nil {
			return models.MergeFailed, uuid.Nil, err
		}

		if err := tx.Commit(); err != nil {
			return models.MergeFailed, uuid.Nil, err
		}

		return models.MergeMerged, userCart.ID, nil

	case errors.Is(err, repository.ErrNotFound):
		if err := tx.TransferOwnership(ctx, guestCart.ID, userID); err != nil {
			return models.MergeFailed, uuid.Nil, err
		}

		if err := tx.Commit(); err != nil {
			return models.MergeFailed, uuid.Nil, err
		}

		return models.MergeTransferred, guestCart.ID, nil

	default:
		return models.MergeFailed, uuid.Nil, err
	}
}

func (s *cartService) AddItem(ctx context.Context, identity models.Identity, req *models.AddItemRequest) (*models.CartView, error) {

	if req.Quantity < 1 {
		return nil, appErrors.AddValidationError("quantity", "must be at least 1")
	}

	variant, err := s.fetchVariant(ctx, req.VariantID)
	if err != nil {
		return nil, err
	}

	if !variant.IsActive {
		return nil, appErrors.ProductInactiveError(variant.DisplayName())
	}

	cartID, ok := s.GetOrCreateActiveCart(ctx, identity)
	if !ok {
		return nil, appErrors.CartUnavailableError("Your cart is unavailable right now, please try again")
	}

	inCart := 0

	item, err := s.cartRepo.GetItem(ctx, cartID, variant.ID)
	switch {
	case err == nil:
		inCart = item.Quantity
	case !errors.Is(err, repository.ErrNotFound):
		return nil, appErrors.DatabaseError("Failed to read cart").WithError(err)
	}

	if inCart+req.Quantity > variant.Stock {
		return nil, appErrors.InsufficientStockError(variant.DisplayName(), variant.Stock)
	}

	if _, err := s.cartRepo.AddItem(ctx, cartID, variant.ID, req.Quantity); err != nil {
		return nil, appErrors.DatabaseError("Failed to add item to cart").WithError(err)
	}

	s.NotifyCartChanged(cartID, ReasonItemAdded)

	return s.buildView(ctx, identity, cartID)
}

// UpdateItemQuantity sets the line's quantity; zero removes the line.
func (s *cartService) UpdateItemQuantity(ctx context.Context, identity models.Identity, variantID uuid.UUID, quantity int) (*models.CartView, error) {

	if quantity < 0 {
		return nil, appErrors.AddValidationError("quantity", "must not be negative")
	}

	if quantity == 0 {
		return s.RemoveItem(ctx, identity, variantID)
	}

	cartID, ok := s.GetCurrentCartID(ctx, identity)
	if !ok {
		return nil, appErrors.NotFoundError("Cart not found")
	}

	variant, err := s.fetchVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	if quantity > variant.Stock {
		return nil, appErrors.InsufficientStockError(variant.DisplayName(), variant.Stock)
	}

	if err := s.cartRepo.SetItemQuantity(ctx, cartID, variantID, quantity); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Item not found in cart").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to update cart item").WithError(err)
	}

	s.NotifyCartChanged(cartID, ReasonItemUpdated)

	return s.buildView(ctx, identity, cartID)
}

func (s *cartService) RemoveItem(ctx context.Context, identity models.Identity, variantID uuid.UUID) (*models.CartView, error) {

	cartID, ok := s.GetCurrentCartID(ctx, identity)
	if !ok {
		return nil, appErrors.NotFoundError("Cart not found")
	}

	if err := s.cartRepo.RemoveItem(ctx, cartID, variantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Item not found in cart").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to remove cart item").WithError(err)
	}

	s.NotifyCartChanged(cartID, ReasonItemRemoved)

	return s.buildView(ctx, identity, cartID)
}

// ClearCart empties the active cart if there is one.
func (s *cartService) ClearCart(ctx context.Context, identity models.Identity) error {

	cartID, ok := s.GetCurrentCartID(ctx, identity)
	if !ok {
		return nil
	}

	if err := s.cartRepo.ClearItems(ctx, cartID); err != nil {
		return appErrors.DatabaseError("Failed to clear cart").WithError(err)
	}

	s.NotifyCartChanged(cartID, ReasonCleared)

	return nil
}

// GetCart renders the current cart. A visitor without a cart gets an empty view.
func (s *cartService) GetCart(ctx context.Context, identity models.Identity) (*models.CartView, error) {

	cartID, ok := s.GetCurrentCartID(ctx, identity)
	if !ok {
		return s.emptyView(), nil
	}

	return s.buildView(ctx, identity, cartID)
}

// CartCount is best effort: failures count as an empty cart.
func (s *cartService) CartCount(ctx context.Context, identity models.Identity) int {

	logger := middleware.LoggerFromContext(ctx)

	cartID, ok := s.GetCurrentCartID(ctx, identity)
	if !ok {
		return 0
	}

	cacheKey := cache.Key(cache.CartCountKeyPrefix, cartID.String())

	var count int

	found, err := s.cache.Get(ctx, cacheKey, &count)
	if err != nil {
		logger.Warn("Cart count cache read failed", slog.String("key", cacheKey), slog.String("error", err.Error()))
	} else if found {
		return count
	}

	count, err = s.cartRepo.CountItems(ctx, cartID)
	if err != nil {
		logger.Error("Failed to count cart items", slog.String("cartId", cartID.String()), slog.String("error", err.Error()))
		return 0
	}

	if err := s.cache.Set(ctx, cacheKey, count, s.cacheTTL); err != nil {
		logger.Warn("Cart count cache write failed", slog.String("key", cacheKey), slog.String("error", err.Error()))
	}

	return count
}

func (s *cartService) NotifyCartChanged(cartID uuid.UUID, reason string) {
	s.notifier.Publish(models.CartChanged{CartID: cartID, Reason: reason})
}

func (s *cartService) Subscribe(fn func(models.CartChanged)) func() {
	return s.notifier.Subscribe(fn)
}

func (s *cartService) invalidateCount(change models.CartChanged) {
	cacheKey := cache.Key(cache.CartCountKeyPrefix, change.CartID.String())

	// runs on the publishing goroutine, so a slow Redis must not hold the request
	ctx, cancel := utils.WithDBTimeout(context.Background())
	defer cancel()

	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		slog.Warn("Failed to invalidate cart count", slog.String("key", cacheKey), slog.String("error", err.Error()))
	}
}

func (s *cartService) fetchVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error) {

	variant, err := s.variantRepo.GetVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Product variant not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch product variant").WithError(err)
	}

	return variant, nil
}

// buildView prices every line for the caller's role. Local amounts are
// computed per unit and then multiplied, the same way checkout does.
func (s *cartService) buildView(ctx context.Context, identity models.Identity, cartID uuid.UUID) (*models.CartView, error) {

	logger := middleware.LoggerFromContext(ctx)

	lines, err := s.cartRepo.ListLines(ctx, cartID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to load cart").WithError(err)
	}

	role := s.pricing.FetchUserRole(ctx, identity)
	rate := s.currency.Rate()

	view := s.emptyView()
	view.ID = cartID

	for _, line := range lines {
		variant := line.Variant

		detail, err := s.pricing.ResolvePriceDetail(ctx, variant.ID, variant.BasePrice, role, &variant.Discount)
		if err != nil {
			logger.Warn("Price override lookup failed, showing base price",
				slog.String("variantId", variant.ID.String()),
				slog.String("error", err.Error()))
		}

		qty := decimal.NewFromInt(int64(line.Item.Quantity))
		lineLocal := ConvertAt(detail.FinalPrice, rate).Mul(qty)

		view.Lines = append(view.Lines, models.CartLineView{
			VariantID:      variant.ID,
			ProductID:      variant.ProductID,
			ProductName:    variant.ProductName,
			VariantName:    variant.Name,
			SKU:            variant.SKU,
			Quantity:       line.Item.Quantity,
			Stock:          variant.Stock,
			IsActive:       variant.IsActive,
			Price:          detail,
			LineTotal:      detail.FinalPrice.Mul(qty),
			LineTotalLocal: lineLocal,
			Display:        s.currency.FormatAmount(lineLocal),
		})

		view.ItemCount += line.Item.Quantity
		view.Subtotal = view.Subtotal.Add(detail.FinalPrice.Mul(qty))
		view.SubtotalLocal = view.SubtotalLocal.Add(lineLocal)
	}

	view.Display = s.currency.FormatAmount(view.SubtotalLocal)

	return view, nil
}

func (s *cartService) emptyView() *models.CartView {
	return &models.CartView{
		Lines:         []models.CartLineView{},
		Subtotal:      decimal.Zero,
		SubtotalLocal: decimal.Zero,
		Display:       s.currency.FormatAmount(decimal.Zero),
	}
}

// currentOwner resolves the owner without side effects.
func currentOwner(identity models.Identity) (models.CartOwner, bool) {
	if identity.IsUser() {
		return models.UserOwner(*identity.UserID), true
	}

	if identity.Guest == nil {
		return models.CartOwner{}, false
	}

	sessionID, ok := identity.Guest.PeekID()
	if !ok {
		return models.CartOwner{}, false
	}

	return models.GuestOwner(sessionID), true
}

func ownerLabel(owner models.CartOwner) string {
	if owner.IsGuest() {
		return "guest"
	}

	return "user"
}
