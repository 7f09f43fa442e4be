package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/cache"
	"github.com/aaravmahajanofficial/solar-storefront/internal/events"
	"github.com/aaravmahajanofficial/solar-storefront/internal/metrics"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	rateSourceCache    = "cache"
	rateSourceFallback = "fallback"
	rateSourceRefresh  = "refresh"
	rateSourcePush     = "push"
	rateSourceAdmin    = "admin"
)

var ErrInvalidRate = errors.New("exchange rate must be a positive number")

// CurrencyService holds the USD exchange rate and renders prices in the
// settlement currency.
type CurrencyService interface {
	Rate() decimal.Decimal
	Snapshot() models.RateSnapshot
	Currency() string
	Convert(usd models.Money) models.Money
	Format(usd models.Money) string
	FormatAmount(local models.Money) string
	Refresh(ctx context.Context) error
	Apply(ctx context.Context, rate decimal.Decimal, source string) error
	Subscribe(fn func(models.RateSnapshot)) func()
	Start(ctx context.Context)
	Close()
}

type CurrencyOptions struct {
	FallbackRate decimal.Decimal
	MaxCacheAge  time.Duration
	Currency     string
	Label        string
	Locale       string
}

type currencyService struct {
	settingsRepo repository.SettingsRepository
	feed         repository.SettingsFeed
	cache        cache.Cache
	opts         CurrencyOptions
	tag          language.Tag
	now          func() time.Time

	mu       sync.RWMutex
	snapshot models.RateSnapshot

	updates *events.Broadcaster[models.RateSnapshot]

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// ConvertAt converts a USD amount at the given rate, rounded to two fraction
// digits half away from zero.
func ConvertAt(usd models.Money, rate decimal.Decimal) models.Money {
	return usd.Mul(rate).Round(2)
}

// NewCurrencyService seeds the rate from the cache when it is fresh enough and
// from the fallback otherwise. It does not touch the database; Start does.
func NewCurrencyService(ctx context.Context, settingsRepo repository.SettingsRepository, feed repository.SettingsFeed, c cache.Cache, opts CurrencyOptions) CurrencyService {

	if opts.Currency == "" {
		opts.Currency = "TRY"
	}

	if opts.Label == "" {
		opts.Label = "TL"
	}

	if !opts.FallbackRate.IsPositive() {
		opts.FallbackRate = decimal.NewFromInt(35)
	}

	if opts.MaxCacheAge <= 0 {
		opts.MaxCacheAge = time.Hour
	}

	tag, err := language.Parse(opts.Locale)
	if err != nil {
		tag = language.Turkish
	}

	s := &currencyService{
		settingsRepo: settingsRepo,
		feed:         feed,
		cache:        c,
		opts:         opts,
		tag:          tag,
		now:          time.Now,
		updates:      events.NewBroadcaster[models.RateSnapshot](),
	}

	s.snapshot = s.seed(ctx)

	return s
}

func (s *currencyService) seed(ctx context.Context) models.RateSnapshot {

	var cached models.RateSnapshot

	found, err := s.cache.Get(ctx, cache.RateCacheKey, &cached)
	if err != nil {
		slog.Warn("Exchange rate cache unavailable, using fallback", slog.String("error", err.Error()))
	}

	if found && cached.Rate.IsPositive() && s.now().Sub(cached.Timestamp) <= s.opts.MaxCacheAge {
		metrics.ExchangeRateUpdates.WithLabelValues(rateSourceCache).Inc()
		return cached
	}

	if err == nil {
		slog.Warn("No fresh exchange rate in cache, using fallback", slog.String("rate", s.opts.FallbackRate.String()))
	}

	metrics.ExchangeRateUpdates.WithLabelValues(rateSourceFallback).Inc()

	return models.RateSnapshot{Rate: s.opts.FallbackRate, Timestamp: s.now()}
}

func (s *currencyService) Rate() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot.Rate
}

func (s *currencyService) Snapshot() models.RateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot
}

func (s *currencyService) Currency() string {
	return s.opts.Currency
}

func (s *currencyService) Convert(usd models.Money) models.Money {
	return ConvertAt(usd, s.Rate())
}

func (s *currencyService) Format(usd models.Money) string {
	return s.FormatAmount(s.Convert(usd))
}

// FormatAmount renders an amount already in the settlement currency using the
// display locale's separators and exactly two fraction digits.
func (s *currencyService) FormatAmount(local models.Money) string {
	p := message.NewPrinter(s.tag)

	return p.Sprintf("%v", number.Decimal(local.Round(2).InexactFloat64(), number.Scale(2))) + " " + s.opts.Label
}

// Refresh loads the authoritative rate from settings.
func (s *currencyService) Refresh(ctx context.Context) error {

	setting, err := s.settingsRepo.GetSetting(ctx, models.SettingUSDRate)
	if err != nil {
		return fmt.Errorf("failed to load exchange rate: %w", err)
	}

	rate, err := decimal.NewFromString(setting.Value)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRate, setting.Value)
	}

	return s.Apply(ctx, rate, rateSourceRefresh)
}

// Apply installs a new rate, re-caches it and notifies subscribers.
func (s *currencyService) Apply(ctx context.Context, rate decimal.Decimal, source string) error {

	if !rate.IsPositive() {
		return ErrInvalidRate
	}

	snapshot := models.RateSnapshot{Rate: rate, Timestamp: s.now()}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	// the entry expires when it would no longer be trusted at startup
	if err := s.cache.Set(ctx, cache.RateCacheKey, snapshot, s.opts.MaxCacheAge); err != nil {
		slog.Warn("Failed to cache exchange rate", slog.String("error", err.Error()))
	}

	metrics.ExchangeRateUpdates.WithLabelValues(source).Inc()

	slog.Info("Exchange rate updated", slog.String("rate", rate.String()), slog.String("source", source))

	s.updates.Publish(snapshot)

	return nil
}

func (s *currencyService) Subscribe(fn func(models.RateSnapshot)) func() {
	return s.updates.Subscribe(fn)
}

// Start refreshes the rate in the background and follows the settings feed
// until Close.
func (s *currencyService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("Initial exchange rate refresh failed", slog.String("error", err.Error()))
			}
		}()

		if s.feed == nil {
			return
		}

		s.wg.Add(1)
		go s.follow(ctx)
	})
}

func (s *currencyService) follow(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-s.feed.Changes():
			if !ok {
				return
			}

			s.handleChange(ctx, change)
		}
	}
}

func (s *currencyService) handleChange(ctx context.Context, change models.SettingChange) {

	if change.Resync {
		if err := s.Refresh(ctx); err != nil {
			slog.Warn("Exchange rate resync failed", slog.String("error", err.Error()))
		}

		return
	}

	if change.Key != models.SettingUSDRate {
		return
	}

	rate, err := decimal.NewFromString(change.Value)
	if err == nil {
		err = s.Apply(ctx, rate, rateSourcePush)
	}

	if err != nil {
		slog.Warn("Ignoring invalid exchange rate push", slog.String("value", change.Value), slog.String("error", err.Error()))
	}
}

// Close stops the feed consumer. Safe to call more than once.
func (s *currencyService) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}

		if s.feed != nil {
			if err := s.feed.Close(); err != nil {
				slog.Warn("Failed to close settings feed", slog.String("error", err.Error()))
			}
		}

		s.wg.Wait()
	})
}
