package models

import "github.com/google/uuid"

// GuestSession is the client-held pseudonymous identity of a visitor.
type GuestSession interface {
	GetOrCreateID() (string, bool)
	PeekID() (string, bool)
	HasActive() bool
	Clear()
}

// Identity is the caller that owns a cart: an authenticated user or a guest.
type Identity struct {
	UserID *uuid.UUID
	Guest  GuestSession
}

func UserIdentity(id uuid.UUID) Identity {
	return Identity{UserID: &id}
}

func GuestIdentity(session GuestSession) Identity {
	return Identity{Guest: session}
}

func (i Identity) IsUser() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}
