package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/aaravmahajanofficial/solar-storefront/internal/config"
	"go.opentelemetry.io/otel/attribute"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type Repositories struct {
	DB            *sql.DB
	Carts         CartRepository
	Variants      VariantRepository
	Overrides     OverrideRepository
	Profiles      ProfileRepository
	Addresses     AddressRepository
	Orders        OrderRepository
	Checkout      CheckoutRepository
	Settings      SettingsRepository
	Notifications NotificationRepository
}

func New(cfg *config.Config) (*Repositories, error) {

	db, err := otelsql.Open("postgres", cfg.Database.GetDSN(),
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	// Test the connection to make sure DB is reachable
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.QueryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewFromDB(db), nil
}

func NewFromDB(db *sql.DB) *Repositories {
	return &Repositories{
		DB:            db,
		Carts:         NewCartRepo(db),
		Variants:      NewVariantRepo(db),
		Overrides:     NewOverrideRepo(db),
		Profiles:      NewProfileRepo(db),
		Addresses:     NewAddressRepo(db),
		Orders:        NewOrderRepo(db),
		Checkout:      NewCheckoutRepo(db),
		Settings:      NewSettingsRepo(db),
		Notifications: NewNotificationRepo(db),
	}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (r *Repositories) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	return nil
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}
