package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	cachemocks "github.com/aaravmahajanofficial/solar-storefront/internal/cache/mocks"
	"github.com/aaravmahajanofficial/solar-storefront/internal/cache"
	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/guestsession"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	"github.com/aaravmahajanofficial/solar-storefront/internal/repositories/mocks"
	service "github.com/aaravmahajanofficial/solar-storefront/internal/services"
	svcmocks "github.com/aaravmahajanofficial/solar-storefront/internal/services/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type cartFixture struct {
	svc      service.CartService
	carts    *mocks.CartRepository
	variants *mocks.VariantRepository
	profiles *mocks.ProfileRepository
	pricing  *svcmocks.PricingService
	currency *svcmocks.CurrencyService
	cache    *cachemocks.Cache
	changes  []models.CartChanged
}

func setupCartServiceTest(t *testing.T) *cartFixture {
	t.Helper()

	f := &cartFixture{
		carts:    new(mocks.CartRepository),
		variants: new(mocks.VariantRepository),
		profiles: new(mocks.ProfileRepository),
		pricing:  new(svcmocks.PricingService),
		currency: svcmocks.NewCurrencyService("35"),
		cache:    cachemocks.NewCache(),
	}

	f.svc = service.NewCartService(f.carts, f.variants, f.profiles, f.pricing, f.currency, f.cache, time.Minute,
		service.ProfileWait{Attempts: 2, Delay: time.Millisecond})

	f.svc.Subscribe(func(c models.CartChanged) { f.changes = append(f.changes, c) })

	return f
}

func newGuest() *guestsession.Session {
	return guestsession.NewManager(0).For(guestsession.NewMemoryStorage())
}

func guestOwner() any {
	return mock.MatchedBy(func(o models.CartOwner) bool { return o.IsGuest() && o.SessionID != "" })
}

func variantFixture(price string, stock int) *models.ProductVariant {
	return &models.ProductVariant{
		ID:          uuid.New(),
		ProductID:   uuid.New(),
		ProductName: "Monokristal Panel",
		Name:        "450W",
		SKU:         "PNL-450",
		BasePrice:   dec(price),
		Stock:       stock,
		IsActive:    true,
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()

	appErr, ok := appErrors.IsAppError(err)
	require.True(t, ok, "expected *AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestGetOrCreateActiveCart(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - returns the existing user cart", func(t *testing.T) {
		// Arrange
		f := setupCartServiceTest(t)
		userID := uuid.New()
		cart := &models.Cart{ID: uuid.New()}

		f.profiles.On("ProfileExists", mock.Anything, userID).Return(true, nil).Once()
		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(cart, nil).Once()

		// Act
		id, ok := f.svc.GetOrCreateActiveCart(ctx, models.UserIdentity(userID))

		// Assert
		assert.True(t, ok)
		assert.Equal(t, cart.ID, id)
		f.carts.AssertNotCalled(t, "CreateCart", mock.Anything, mock.Anything)
		f.profiles.AssertExpectations(t)
	})

	t.Run("Success - creates a cart when none is active", func(t *testing.T) {
		f := setupCartServiceTest(t)
		userID := uuid.New()
		cart := &models.Cart{ID: uuid.New()}

		f.profiles.On("ProfileExists", mock.Anything, userID).Return(true, nil).Once()
		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(nil, repository.ErrNotFound).Once()
		f.carts.On("CreateCart", mock.Anything, models.UserOwner(userID)).Return(cart, nil).Once()

		id, ok := f.svc.GetOrCreateActiveCart(ctx, models.UserIdentity(userID))

		assert.True(t, ok)
		assert.Equal(t, cart.ID, id)
		f.carts.AssertExpectations(t)
	})

	t.Run("Success - concurrent create returns the winner's cart", func(t *testing.T) {
		f := setupCartServiceTest(t)
		userID := uuid.New()
		winner := &models.Cart{ID: uuid.New()}

		f.profiles.On("ProfileExists", mock.Anything, userID).Return(true, nil).Once()
		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(nil, repository.ErrNotFound).Once()
		f.carts.On("CreateCart", mock.Anything, models.UserOwner(userID)).Return(nil, repository.ErrDuplicateActiveCart).Once()
		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(winner, nil).Once()

		id, ok := f.svc.GetOrCreateActiveCart(ctx, models.UserIdentity(userID))

		assert.True(t, ok)
		assert.Equal(t, winner.ID, id)
		f.carts.AssertExpectations(t)
	})

	t.Run("Success - proceeds when the profile never becomes visible", func(t *testing.T) {
		f := setupCartServiceTest(t)
		userID := uuid.New()
		cart := &models.Cart{ID: uuid.New()}

		f.profiles.On("ProfileExists", mock.Anything, userID).Return(false, nil).Times(2)
		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(cart, nil).Once()

		id, ok := f.svc.GetOrCreateActiveCart(ctx, models.UserIdentity(userID))

		assert.True(t, ok)
		assert.Equal(t, cart.ID, id)
		f.profiles.AssertExpectations(t)
	})

	t.Run("Success - guest gets a session and a cart", func(t *testing.T) {
		f := setupCartServiceTest(t)
		guest := newGuest()
		cart := &models.Cart{ID: uuid.New()}

		f.carts.On("FindActiveCart", mock.Anything, guestOwner()).Return(nil, repository.ErrNotFound).Once()
		f.carts.On("CreateCart", mock.Anything, guestOwner()).Return(cart, nil).Once()

		id, ok := f.svc.GetOrCreateActiveCart(ctx, models.GuestIdentity(guest))

		assert.True(t, ok)
		assert.Equal(t, cart.ID, id)
		assert.True(t, guest.HasActive())
	})

	t.Run("Failure - lookup error reports the cart as unavailable", func(t *testing.T) {
		f := setupCartServiceTest(t)
		userID := uuid.New()

		f.profiles.On("ProfileExists", mock.Anything, userID).Return(true, nil).Once()
		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(nil, errors.New("connection reset")).Once()

		id, ok := f.svc.GetOrCreateActiveCart(ctx, models.UserIdentity(userID))

		assert.False(t, ok)
		assert.Equal(t, uuid.Nil, id)
	})

	t.Run("Failure - no identity at all", func(t *testing.T) {
		f := setupCartServiceTest(t)

		_, ok := f.svc.GetOrCreateActiveCart(ctx, models.Identity{})

		assert.False(t, ok)
		f.carts.AssertNotCalled(t, "FindActiveCart", mock.Anything, mock.Anything)
	})
}

func TestGetCurrentCartID(t *testing.T) {
	ctx := context.Background()

	t.Run("Guest without a session does not mint one", func(t *testing.T) {
		// Arrange
		f := setupCartServiceTest(t)
		guest := newGuest()

		// Act
		_, ok := f.svc.GetCurrentCartID(ctx, models.GuestIdentity(guest))

		// Assert
		assert.False(t, ok)
		assert.False(t, guest.HasActive())
		f.carts.AssertNotCalled(t, "FindActiveCart", mock.Anything, mock.Anything)
	})

	t.Run("Returns the guest's active cart", func(t *testing.T) {
		f := setupCartServiceTest(t)
		guest := newGuest()
		sessionID, _ := guest.GetOrCreateID()
		cart := &models.Cart{ID: uuid.New()}

		f.carts.On("FindActiveCart", mock.Anything, models.GuestOwner(sessionID)).Return(cart, nil).Once()

		id, ok := f.svc.GetCurrentCartID(ctx, models.GuestIdentity(guest))

		assert.True(t, ok)
		assert.Equal(t, cart.ID, id)
	})

	t.Run("Never creates a cart", func(t *testing.T) {
		f := setupCartServiceTest(t)
		userID := uuid.New()

		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(nil, repository.ErrNotFound).Once()

		_, ok := f.svc.GetCurrentCartID(ctx, models.UserIdentity(userID))

		assert.False(t, ok)
		f.carts.AssertNotCalled(t, "CreateCart", mock.Anything, mock.Anything)
	})
}

func TestMergeGuestCartIntoUser(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*cartFixture, *guestsession.Session, string, uuid.UUID) {
		f := setupCartServiceTest(t)
		guest := newGuest()
		sessionID, ok := guest.GetOrCreateID()
		require.True(t, ok)

		return f, guest, sessionID, uuid.New()
	}

	t.Run("No guest session", func(t *testing.T) {
		// Arrange
		f := setupCartServiceTest(t)

		// Act
		outcome := f.svc.MergeGuestCartIntoUser(ctx, uuid.New(), newGuest())

		// Assert
		assert.Equal(t, models.MergeNone, outcome)
		f.carts.AssertNotCalled(t, "BeginMerge", mock.Anything)
	})

	t.Run("Guest has no cart", func(t *testing.T) {
		f, guest, sessionID, userID := setup(t)
		tx := new(mocks.CartMergeTx)

		f.carts.On("BeginMerge", mock.Anything).Return(tx, nil).Once()
		tx.On("LockActiveCart", mock.Anything, models.GuestOwner(sessionID)).Return(nil, repository.ErrNotFound).Once()
		tx.On("Rollback").Return(nil).Once()

		outcome := f.svc.MergeGuestCartIntoUser(ctx, userID, guest)

		assert.Equal(t, models.MergeCleared, outcome)
		assert.False(t, guest.HasActive())
		assert.Empty(t, f.changes)
		tx.AssertExpectations(t)
	})

	t.Run("Merges into the user's existing cart", func(t *testing.T) {
		f, guest, sessionID, userID := setup(t)
		tx := new(mocks.CartMergeTx)
		guestCart := &models.Cart{ID: uuid.New()}
		userCart := &models.Cart{ID: uuid.New()}

		f.carts.On("BeginMerge", mock.Anything).Return(tx, nil).Once()
		tx.On("LockActiveCart", mock.Anything, models.GuestOwner(sessionID)).Return(guestCart, nil).Once()
		tx.On("LockActiveCart", mock.Anything, models.UserOwner(userID)).Return(userCart, nil).Once()
		tx.On("MergeItems", mock.Anything, guestCart.ID, userCart.ID).Return(nil).Once()
		tx.On("DeleteCart", mock.Anything, guestCart.ID).Return(nil).Once()
		tx.On("Commit").Return(nil).Once()
		tx.On("Rollback").Return(nil).Once()

		outcome := f.svc.MergeGuestCartIntoUser(ctx, userID, guest)

		assert.Equal(t, models.MergeMerged, outcome)
		assert.False(t, guest.HasActive())
		require.Len(t, f.changes, 1)
		assert.Equal(t, models.CartChanged{CartID: userCart.ID, Reason: service.ReasonMerged}, f.changes[0])
		tx.AssertExpectations(t)
	})

	t.Run("Transfers the guest cart when the user has none", func(t *testing.T) {
		f, guest, sessionID, userID := setup(t)
		tx := new(mocks.CartMergeTx)
		guestCart := &models.Cart{ID: uuid.New()}

		f.carts.On("BeginMerge", mock.Anything).Return(tx, nil).Once()
		tx.On("LockActiveCart", mock.Anything, models.GuestOwner(sessionID)).Return(guestCart, nil).Once()
		tx.On("LockActiveCart", mock.Anything, models.UserOwner(userID)).Return(nil, repository.ErrNotFound).Once()
		tx.On("TransferOwnership", mock.Anything, guestCart.ID, userID).Return(nil).Once()
		tx.On("Commit").Return(nil).Once()
		tx.On("Rollback").Return(nil).Once()

		outcome := f.svc.MergeGuestCartIntoUser(ctx, userID, guest)

		assert.Equal(t, models.MergeTransferred, outcome)
		require.Len(t, f.changes, 1)
		assert.Equal(t, guestCart.ID, f.changes[0].CartID)
		tx.AssertExpectations(t)
	})

	t.Run("Retries as a merge when the user gained a cart mid-transfer", func(t *testing.T) {
		f, guest, sessionID, userID := setup(t)
		first := new(mocks.CartMergeTx)
		second := new(mocks.CartMergeTx)
		guestCart := &models.Cart{ID: uuid.New()}
		userCart := &models.Cart{ID: uuid.New()}

		f.carts.On("BeginMerge", mock.Anything).Return(first, nil).Once()
		first.On("LockActiveCart", mock.Anything, models.GuestOwner(sessionID)).Return(guestCart, nil).Once()
		first.On("LockActiveCart", mock.Anything, models.UserOwner(userID)).Return(nil, repository.ErrNotFound).Once()
		first.On("TransferOwnership", mock.Anything, guestCart.ID, userID).Return(repository.ErrDuplicateActiveCart).Once()
		first.On("Rollback").Return(nil).Once()

		f.carts.On("BeginMerge", mock.Anything).Return(second, nil).Once()
		second.On("LockActiveCart", mock.Anything, models.GuestOwner(sessionID)).Return(guestCart, nil).Once()
		second.On("LockActiveCart", mock.Anything, models.UserOwner(userID)).Return(userCart, nil).Once()
		second.On("MergeItems", mock.Anything, guestCart.ID, userCart.ID).Return(nil).Once()
		second.On("DeleteCart", mock.Anything, guestCart.ID).Return(nil).Once()
		second.On("Commit").Return(nil).Once()
		second.On("Rollback").Return(nil).Once()

		outcome := f.svc.MergeGuestCartIntoUser(ctx, userID, guest)

		assert.Equal(t, models.MergeMerged, outcome)
		first.AssertExpectations(t)
		second.AssertExpectations(t)
	})

	t.Run("Failure still clears the guest session", func(t *testing.T) {
		f, guest, _, userID := setup(t)

		f.carts.On("BeginMerge", mock.Anything).Return(nil, errors.New("pool exhausted")).Once()

		outcome := f.svc.MergeGuestCartIntoUser(ctx, userID, guest)

		assert.Equal(t, models.MergeFailed, outcome)
		assert.False(t, guest.HasActive())
		assert.Empty(t, f.changes)
	})
}

func TestCartAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - adds and renders the cart", func(t *testing.T) {
		// Arrange
		f := setupCartServiceTest(t)
		userID := uuid.New()
		cartID := uuid.New()
		variant := variantFixture("10", 5)
		countKey := cache.Key(cache.CartCountKeyPrefix, cartID.String())
		require.NoError(t, f.cache.Set(ctx, countKey, 3, 0))

		f.variants.On("GetVariant", mock.Anything, variant.ID).Return(variant, nil).Once()
		f.profiles.On("ProfileExists", mock.Anything, userID).Return(true, nil).Once()
		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(&models.Cart{ID: cartID}, nil).Once()
		f.carts.On("GetItem", mock.Anything, cartID, variant.ID).Return(&models.CartItem{Quantity: 1}, nil).Once()
		f.carts.On("AddItem", mock.Anything, cartID, variant.ID, 2).Return(3, nil).Once()
		f.carts.On("ListLines", mock.Anything, cartID).Return([]models.CartLine{
			{Item: models.CartItem{VariantID: variant.ID, Quantity: 3}, Variant: *variant},
		}, nil).Once()
		f.pricing.On("FetchUserRole", mock.Anything, mock.Anything).Return(models.RoleB2C).Once()
		f.pricing.On("ResolvePriceDetail", mock.Anything, variant.ID, decimalEq("10"), models.RoleB2C, mock.Anything).
			Return(models.PriceDetail{FinalPrice: dec("9.99"), OriginalPrice: dec("10")}, nil).Once()

		// Act
		view, err := f.svc.AddItem(ctx, models.UserIdentity(userID), &models.AddItemRequest{VariantID: variant.ID, Quantity: 2})

		// Assert
		require.NoError(t, err)
		require.Len(t, view.Lines, 1)
		assert.Equal(t, cartID, view.ID)
		assert.Equal(t, 3, view.ItemCount)
		assert.True(t, dec("29.97").Equal(view.Subtotal))
		// 9.99 * 35 = 349.65 per unit
		assert.True(t, dec("1048.95").Equal(view.SubtotalLocal))
		assert.Equal(t, "1048.95 TL", view.Display)
		assert.False(t, f.cache.Has(countKey))
		assert.True(t, f.cache.DeleteBounded, "count invalidation should run with a deadline")
		require.Len(t, f.changes, 1)
		assert.Equal(t, service.ReasonItemAdded, f.changes[0].Reason)
		f.carts.AssertExpectations(t)
		f.pricing.AssertExpectations(t)
	})

	t.Run("Failure - quantity below one", func(t *testing.T) {
		f := setupCartServiceTest(t)

		_, err := f.svc.AddItem(ctx, models.UserIdentity(uuid.New()), &models.AddItemRequest{VariantID: uuid.New(), Quantity: 0})

		assertAppErrorCode(t, err, appErrors.ErrCodeValidation)
	})

	t.Run("Failure - variant not found", func(t *testing.T) {
		f := setupCartServiceTest(t)
		variantID := uuid.New()

		f.variants.On("GetVariant", mock.Anything, variantID).Return(nil, repository.ErrNotFound).Once()

		_, err := f.svc.AddItem(ctx, models.UserIdentity(uuid.New()), &models.AddItemRequest{VariantID: variantID, Quantity: 1})

		assertAppErrorCode(t, err, appErrors.ErrCodeNotFound)
	})

	t.Run("Failure - inactive product", func(t *testing.T) {
		f := setupCartServiceTest(t)
		variant := variantFixture("10", 5)
		variant.IsActive = false

		f.variants.On("GetVariant", mock.Anything, variant.ID).Return(variant, nil).Once()

		_, err := f.svc.AddItem(ctx, models.UserIdentity(uuid.New()), &models.AddItemRequest{VariantID: variant.ID, Quantity: 1})

		assertAppErrorCode(t, err, appErrors.ErrCodeProductInactive)
		f.carts.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - existing quantity plus request exceeds stock", func(t *testing.T) {
		f := setupCartServiceTest(t)
		userID := uuid.New()
		cartID := uuid.New()
		variant := variantFixture("10", 5)

		f.variants.On("GetVariant", mock.Anything, variant.ID).Return(variant, nil).Once()
		f.profiles.On("ProfileExists", mock.Anything, userID).Return(true, nil).Once()
		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(&models.Cart{ID: cartID}, nil).Once()
		f.carts.On("GetItem", mock.Anything, cartID, variant.ID).Return(&models.CartItem{Quantity: 4}, nil).Once()

		_, err := f.svc.AddItem(ctx, models.UserIdentity(userID), &models.AddItemRequest{VariantID: variant.ID, Quantity: 2})

		assertAppErrorCode(t, err, appErrors.ErrCodeInsufficientStock)
		assert.Contains(t, err.Error(), "available: 5")
		f.carts.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - cart unavailable", func(t *testing.T) {
		f := setupCartServiceTest(t)
		userID := uuid.New()
		variant := variantFixture("10", 5)

		f.variants.On("GetVariant", mock.Anything, variant.ID).Return(variant, nil).Once()
		f.profiles.On("ProfileExists", mock.Anything, userID).Return(true, nil).Once()
		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(nil, errors.New("timeout")).Once()

		_, err := f.svc.AddItem(ctx, models.UserIdentity(userID), &models.AddItemRequest{VariantID: variant.ID, Quantity: 1})

		assertAppErrorCode(t, err, appErrors.ErrCodeCartUnavailable)
	})
}

func TestCartUpdateAndRemove(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*cartFixture, uuid.UUID, uuid.UUID) {
		f := setupCartServiceTest(t)
		userID := uuid.New()
		cartID := uuid.New()

		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(&models.Cart{ID: cartID}, nil)
		f.carts.On("ListLines", mock.Anything, cartID).Return([]models.CartLine{}, nil).Maybe()
		f.pricing.On("FetchUserRole", mock.Anything, mock.Anything).Return(models.RoleB2C).Maybe()

		return f, userID, cartID
	}

	t.Run("Zero quantity removes the line", func(t *testing.T) {
		// Arrange
		f, userID, cartID := setup(t)
		variantID := uuid.New()

		f.carts.On("RemoveItem", mock.Anything, cartID, variantID).Return(nil).Once()

		// Act
		view, err := f.svc.UpdateItemQuantity(ctx, models.UserIdentity(userID), variantID, 0)

		// Assert
		require.NoError(t, err)
		assert.Empty(t, view.Lines)
		require.Len(t, f.changes, 1)
		assert.Equal(t, service.ReasonItemRemoved, f.changes[0].Reason)
		f.carts.AssertNotCalled(t, "SetItemQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Quantity above stock is rejected", func(t *testing.T) {
		f, userID, _ := setup(t)
		variant := variantFixture("10", 2)

		f.variants.On("GetVariant", mock.Anything, variant.ID).Return(variant, nil).Once()

		_, err := f.svc.UpdateItemQuantity(ctx, models.UserIdentity(userID), variant.ID, 3)

		assertAppErrorCode(t, err, appErrors.ErrCodeInsufficientStock)
	})

	t.Run("Sets the quantity", func(t *testing.T) {
		f, userID, cartID := setup(t)
		variant := variantFixture("10", 9)

		f.variants.On("GetVariant", mock.Anything, variant.ID).Return(variant, nil).Once()
		f.carts.On("SetItemQuantity", mock.Anything, cartID, variant.ID, 4).Return(nil).Once()

		_, err := f.svc.UpdateItemQuantity(ctx, models.UserIdentity(userID), variant.ID, 4)

		require.NoError(t, err)
		require.Len(t, f.changes, 1)
		assert.Equal(t, service.ReasonItemUpdated, f.changes[0].Reason)
	})

	t.Run("Missing line", func(t *testing.T) {
		f, userID, cartID := setup(t)
		variantID := uuid.New()

		f.carts.On("RemoveItem", mock.Anything, cartID, variantID).Return(repository.ErrNotFound).Once()

		_, err := f.svc.RemoveItem(ctx, models.UserIdentity(userID), variantID)

		assertAppErrorCode(t, err, appErrors.ErrCodeNotFound)
		assert.Empty(t, f.changes)
	})

	t.Run("Clear empties the cart", func(t *testing.T) {
		f, userID, cartID := setup(t)

		f.carts.On("ClearItems", mock.Anything, cartID).Return(nil).Once()

		err := f.svc.ClearCart(ctx, models.UserIdentity(userID))

		require.NoError(t, err)
		require.Len(t, f.changes, 1)
		assert.Equal(t, service.ReasonCleared, f.changes[0].Reason)
	})
}

func TestGetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("Visitor without a cart gets an empty view", func(t *testing.T) {
		// Arrange
		f := setupCartServiceTest(t)

		// Act
		view, err := f.svc.GetCart(ctx, models.GuestIdentity(newGuest()))

		// Assert
		require.NoError(t, err)
		assert.Empty(t, view.Lines)
		assert.Equal(t, "0.00 TL", view.Display)
	})

	t.Run("Override lookup failure still shows a price", func(t *testing.T) {
		f := setupCartServiceTest(t)
		userID := uuid.New()
		cartID := uuid.New()
		variant := variantFixture("2", 10)

		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(&models.Cart{ID: cartID}, nil).Once()
		f.carts.On("ListLines", mock.Anything, cartID).Return([]models.CartLine{
			{Item: models.CartItem{VariantID: variant.ID, Quantity: 1}, Variant: *variant},
		}, nil).Once()
		f.pricing.On("FetchUserRole", mock.Anything, mock.Anything).Return(models.RoleB2B).Once()
		f.pricing.On("ResolvePriceDetail", mock.Anything, variant.ID, mock.Anything, models.RoleB2B, mock.Anything).
			Return(models.PriceDetail{FinalPrice: dec("2"), OriginalPrice: dec("2")}, errors.New("override table locked")).Once()

		view, err := f.svc.GetCart(ctx, models.UserIdentity(userID))

		require.NoError(t, err)
		require.Len(t, view.Lines, 1)
		assert.True(t, dec("70").Equal(view.SubtotalLocal))
		assert.Equal(t, "70.00 TL", view.Lines[0].Display)
	})
}

func TestCartCount(t *testing.T) {
	ctx := context.Background()

	t.Run("Caches until the cart changes", func(t *testing.T) {
		// Arrange
		f := setupCartServiceTest(t)
		userID := uuid.New()
		cartID := uuid.New()

		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(&models.Cart{ID: cartID}, nil)
		f.carts.On("CountItems", mock.Anything, cartID).Return(2, nil).Once()
		f.carts.On("CountItems", mock.Anything, cartID).Return(3, nil).Once()

		// Act
		first := f.svc.CartCount(ctx, models.UserIdentity(userID))
		second := f.svc.CartCount(ctx, models.UserIdentity(userID))
		f.svc.NotifyCartChanged(cartID, service.ReasonItemAdded)
		third := f.svc.CartCount(ctx, models.UserIdentity(userID))

		// Assert
		assert.Equal(t, 2, first)
		assert.Equal(t, 2, second)
		assert.Equal(t, 3, third)
		f.carts.AssertExpectations(t)
	})

	t.Run("Counts through a broken cache", func(t *testing.T) {
		f := setupCartServiceTest(t)
		userID := uuid.New()
		cartID := uuid.New()
		f.cache.GetErr = errors.New("redis down")
		f.cache.SetErr = errors.New("redis down")

		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(&models.Cart{ID: cartID}, nil)
		f.carts.On("CountItems", mock.Anything, cartID).Return(4, nil).Twice()

		assert.Equal(t, 4, f.svc.CartCount(ctx, models.UserIdentity(userID)))
		assert.Equal(t, 4, f.svc.CartCount(ctx, models.UserIdentity(userID)))
	})

	t.Run("Failures count as zero", func(t *testing.T) {
		f := setupCartServiceTest(t)
		userID := uuid.New()
		cartID := uuid.New()

		f.carts.On("FindActiveCart", mock.Anything, models.UserOwner(userID)).Return(&models.Cart{ID: cartID}, nil)
		f.carts.On("CountItems", mock.Anything, cartID).Return(0, errors.New("boom")).Once()

		assert.Equal(t, 0, f.svc.CartCount(ctx, models.UserIdentity(userID)))
		assert.Equal(t, 0, f.svc.CartCount(ctx, models.GuestIdentity(newGuest())))
	})
}
