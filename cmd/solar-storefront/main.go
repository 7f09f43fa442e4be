package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/handlers"
	"github.com/aaravmahajanofficial/solar-storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/solar-storefront/internal/cache"
	"github.com/aaravmahajanofficial/solar-storefront/internal/config"
	"github.com/aaravmahajanofficial/solar-storefront/internal/guestsession"
	"github.com/aaravmahajanofficial/solar-storefront/internal/health"
	"github.com/aaravmahajanofficial/solar-storefront/internal/metrics"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	service "github.com/aaravmahajanofficial/solar-storefront/internal/services"
	"github.com/aaravmahajanofficial/solar-storefront/internal/telemetry"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/aaravmahajanofficial/solar-storefront/pkg/sendGrid"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		slog.Error("❌ Error setting up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	utils.SetDBTimeout(cfg.Database.QueryTimeout)

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	if !cfg.Database.SkipMigrate {
		migrateCtx, cancel := utils.WithDBTimeout(ctx)
		err := repos.Migrate(migrateCtx)
		cancel()

		if err != nil {
			slog.Error("❌ Error applying schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, &cfg.Cache)
	rateLimiter := repository.NewRateLimitRepo(redisClient, cfg)

	// Settings push channel; without it the rate only changes through this instance
	settingsFeed, err := repository.NewSettingsListener(cfg.Database.GetDSN(), cfg.Storefront.ListenerMinReconnect, cfg.Storefront.ListenerMaxReconnect)
	if err != nil {
		slog.Warn("Settings listener unavailable, rate changes from other instances will be missed", slog.String("error", err.Error()))
		settingsFeed = nil
	}

	fallbackRate, err := decimal.NewFromString(cfg.Storefront.FallbackUSDRate)
	if err != nil {
		slog.Warn("Invalid fallback USD rate, using the built-in default", slog.String("value", cfg.Storefront.FallbackUSDRate))
	}

	currencyService := service.NewCurrencyService(ctx, repos.Settings, settingsFeed, redisCache, service.CurrencyOptions{
		FallbackRate: fallbackRate,
		MaxCacheAge:  cfg.Storefront.RateCacheMaxAge,
		Currency:     cfg.Storefront.SettlementCurrency,
		Label:        cfg.Storefront.CurrencyLabel,
		Locale:       cfg.Storefront.DisplayLocale,
	})
	currencyService.Start(ctx)
	defer currencyService.Close()

	sendGridClient := sendGrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	notificationService := service.NewNotificationService(repos.Notifications, sendGridClient)
	dispatcher := service.NewDispatcher(notificationService, currencyService, service.DispatcherOptions{
		AdminEmails: cfg.Storefront.AdminEmails,
		QueueSize:   cfg.Storefront.NotifierQueueSize,
		SendTimeout: cfg.Storefront.NotifierSendTimeout,
	})
	defer dispatcher.Close()

	pricingService := service.NewPricingService(repos.Overrides, repos.Variants, repos.Profiles, redisCache, cfg.Cache.DefaultTTL, cfg.Storefront.WholesaleRole)
	cartService := service.NewCartService(repos.Carts, repos.Variants, repos.Profiles, pricingService, currencyService, redisCache, cfg.Cache.DefaultTTL, service.ProfileWait{
		Attempts: cfg.Storefront.ProfileWaitAttempts,
		Delay:    cfg.Storefront.ProfileWaitDelay,
	})
	orderService := service.NewOrderService(repos.Orders, repos.Profiles, dispatcher)
	checkoutService := service.NewCheckoutService(repos.Checkout, repos.Addresses, repos.Profiles, rateLimiter, cartService, pricingService, currencyService, dispatcher, service.CheckoutOptions{
		OrderNumberPrefix:   cfg.Storefront.OrderNumberPrefix,
		OrderNumberAttempts: cfg.Storefront.OrderNumberAttempts,
	})
	paymentService := service.NewPaymentService(orderService)
	settingsService := service.NewSettingsService(repos.Settings, currencyService)

	cartHandler := handlers.NewCartHandler(cartService)
	pricingHandler := handlers.NewPricingHandler(pricingService, currencyService)
	settingsHandler := handlers.NewSettingsHandler(settingsService, currencyService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	liveHub := handlers.NewLiveHub(cartService, currencyService, cfg.Storefront.LiveAllowedOrigins, cfg.Storefront.LiveSendBuffer)
	defer liveHub.Close()

	guests := guestsession.NewManager(cfg.Storefront.GuestSessionTTL())
	authMiddleware := middleware.NewAuthMiddleware([]byte(cfg.Security.JWTKey), guests, guestsession.CookieOptions{
		Secure: !cfg.Storefront.GuestCookieInsecure,
		Path:   "/",
	})

	roleOf := func(ctx context.Context, userID uuid.UUID) (string, error) {
		profile, err := repos.Profiles.GetProfile(ctx, userID)
		if err != nil {
			return "", err
		}

		return profile.Role, nil
	}

	user := func(h http.HandlerFunc) http.Handler { return middleware.RequireUser(h) }
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireRole(roleOf, models.RoleAdmin)(h) }

	healthHandler, err := health.NewHealthHandler(cfg, &health.Endpoints{DB: repos.DB, RedisClient: redisClient, Email: sendGridClient, Rates: currencyService})
	if err != nil {
		slog.Error("❌ Error creating health checks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("GET /api/v1/cart", cartHandler.GetCart())
	routerMux.HandleFunc("GET /api/v1/cart/count", cartHandler.CartCount())
	routerMux.HandleFunc("POST /api/v1/cart/items", cartHandler.AddItem())
	routerMux.HandleFunc("PUT /api/v1/cart/items/{variantId}", cartHandler.UpdateItem())
	routerMux.HandleFunc("DELETE /api/v1/cart/items/{variantId}", cartHandler.RemoveItem())
	routerMux.HandleFunc("DELETE /api/v1/cart", cartHandler.ClearCart())
	routerMux.Handle("POST /api/v1/cart/merge", user(cartHandler.MergeGuestCart()))
	routerMux.HandleFunc("GET /api/v1/variants/{id}/price", pricingHandler.GetVariantPrice())
	routerMux.HandleFunc("GET /api/v1/currency", settingsHandler.GetCurrency())
	routerMux.HandleFunc("POST /api/v1/checkout", checkoutHandler.PlaceOrder())
	routerMux.HandleFunc("POST /api/v1/orders/{id}/payment", paymentHandler.PayOrder())
	routerMux.Handle("GET /api/v1/orders/{id}", user(orderHandler.GetOrder()))
	routerMux.Handle("GET /api/v1/orders", user(orderHandler.ListOrders()))
	routerMux.Handle("GET /api/v1/admin/orders/{id}", admin(orderHandler.AdminGetOrder()))
	routerMux.Handle("PATCH /api/v1/admin/orders/{id}/status", admin(orderHandler.UpdateOrderStatus()))
	routerMux.Handle("PUT /api/v1/admin/settings/usd-rate", admin(settingsHandler.UpdateUSDRate()))
	routerMux.Handle("PUT /api/v1/admin/variants/{id}/prices", admin(pricingHandler.SetVariantPrice()))
	routerMux.Handle("POST /api/v1/admin/notifications/email", admin(notificationHandler.SendEmail()))
	routerMux.Handle("GET /api/v1/admin/notifications/{id}", admin(notificationHandler.GetNotification()))
	routerMux.Handle("GET /api/v1/admin/notifications", admin(notificationHandler.ListNotifications()))
	routerMux.HandleFunc("GET /api/v1/live", liveHub.Serve())

	// Middleware chaining; metrics sits next to the mux so it sees the matched pattern
	var api http.Handler = metrics.Middleware(routerMux)
	api = authMiddleware.Identify(api)
	api = middleware.Logging(api)
	api = otelhttp.NewHandler(api, "storefront")

	rootMux := http.NewServeMux()
	rootMux.Handle("GET /metrics", metrics.Handler())
	rootMux.Handle("GET /health", healthHandler.Handler())
	rootMux.Handle("/", api)

	// Setup http server
	server := http.Server{
		Addr:         cfg.Addr,
		Handler:      rootMux,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("❌ Failed to start server", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("⚠️ Failed to flush traces", slog.String("error", err.Error()))
	}
}
