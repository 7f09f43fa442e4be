package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/google/uuid"
)

// ProfileRepository reads profiles written by the auth provider's signup hook.
type ProfileRepository interface {
	ProfileExists(ctx context.Context, id uuid.UUID) (bool, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type profileRepository struct {
	DB *sql.DB
}

func NewProfileRepo(db *sql.DB) ProfileRepository {
	return &profileRepository{DB: db}
}

func (r *profileRepository) ProfileExists(ctx context.Context, id uuid.UUID) (bool, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var exists bool

	if err := r.DB.QueryRowContext(dbCtx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check profile: %w", err)
	}

	return exists, nil
}

func (r *profileRepository) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT id, role, COALESCE(email, ''), COALESCE(full_name, '') FROM profiles WHERE id = $1`

	profile := &models.Profile{}

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&profile.ID, &profile.Role, &profile.Email, &profile.FullName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

type AddressRepository interface {
	GetAddress(ctx context.Context, id, profileID uuid.UUID) (*models.Address, error)
}

type addressRepository struct {
	DB *sql.DB
}

func NewAddressRepo(db *sql.DB) AddressRepository {
	return &addressRepository{DB: db}
}

// GetAddress only returns addresses owned by profileID.
func (r *addressRepository) GetAddress(ctx context.Context, id, profileID uuid.UUID) (*models.Address, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, profile_id, title, full_name, phone, country, city, district, address_line, postal_code
		FROM addresses
		WHERE id = $1 AND profile_id = $2`

	a := &models.Address{}

	err := r.DB.QueryRowContext(dbCtx, query, id, profileID).Scan(&a.ID, &a.ProfileID, &a.Title,
		&a.FullName, &a.Phone, &a.Country, &a.City, &a.District, &a.AddressLine, &a.PostalCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get address: %w", err)
	}

	return a, nil
}
