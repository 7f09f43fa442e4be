package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/config"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/pkg/sendGrid"
	"github.com/hellofresh/health-go/v5"
	"github.com/hellofresh/health-go/v5/checks/postgres"
	healthRedis "github.com/hellofresh/health-go/v5/checks/redis"
	"github.com/redis/go-redis/v9"
)

// RateSource exposes the exchange rate currently in use.
type RateSource interface {
	Snapshot() models.RateSnapshot
}

type Endpoints struct {
	DB          *sql.DB
	RedisClient *redis.Client
	Email       sendGrid.EmailService
	Rates       RateSource
}

func NewHealthHandler(cfg *config.Config, endpoints *Endpoints) (*health.Health, error) {

	checks := []health.Config{
		{
			Name:    "database",
			Timeout: 3 * time.Second,
			Check:   postgres.New(postgres.Config{DSN: cfg.Database.GetDSN()}),
		},
		{
			Name:    "redis",
			Timeout: 2 * time.Second,
			Check:   healthRedis.New(healthRedis.Config{DSN: cfg.RedisConnect.GetDSN()}),
		},
		// order emails are best effort
		{
			Name:      "sendgrid",
			Timeout:   time.Second,
			SkipOnErr: true,
			Check: func(context.Context) error {
				if endpoints.Email == nil || !endpoints.Email.Configured() {
					return sendGrid.ErrNotConfigured
				}

				return nil
			},
		},
	}

	if endpoints.Rates != nil {
		checks = append(checks, health.Config{
			Name:      "exchange_rate",
			Timeout:   time.Second,
			SkipOnErr: true,
			Check:     RateFreshness(endpoints.Rates, cfg.Storefront.RateCacheMaxAge, time.Now),
		})
	}

	h, err := health.New(
		health.WithComponent(health.Component{Name: "solar-storefront", Version: "1.0.0"}),
		health.WithSystemInfo(),
		health.WithChecks(checks...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}

// RateFreshness fails when the rate in use is older than maxAge, which means
// neither a refresh nor a push has landed for that long.
func RateFreshness(rates RateSource, maxAge time.Duration, now func() time.Time) health.CheckFunc {
	return func(context.Context) error {
		snapshot := rates.Snapshot()

		if !snapshot.Rate.IsPositive() {
			return fmt.Errorf("no exchange rate loaded")
		}

		if maxAge > 0 {
			if age := now().Sub(snapshot.Timestamp); age > maxAge {
				return fmt.Errorf("exchange rate is %s old", age.Round(time.Second))
			}
		}

		return nil
	}
}
