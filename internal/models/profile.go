package models

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleB2C   = "b2c"
	RoleB2B   = "b2b"
	RoleAdmin = "admin"
)

type Profile struct {
	ID       uuid.UUID `json:"id"`
	Role     string    `json:"role"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

// Claims issued by the auth provider. The subject is the profile id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	return id, nil
}
