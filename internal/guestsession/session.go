// Package guestsession mints and tracks pseudonymous ids for visitors who
// have not signed in. The id lives in client-held storage next to its expiry.
package guestsession

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"
)

const (
	StorageKey   = "guest_session_id"
	ExpiryKey    = StorageKey + "_expiry"
	DefaultTTL   = 7 * 24 * time.Hour
	idPrefix     = "guest_"
	suffixLength = 9
	base36       = "0123456789abcdefghijklmnopqrstuvwxyz"
)

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSuffixSource replaces the random component of minted ids.
func WithSuffixSource(suffix func() string) Option {
	return func(m *Manager) { m.suffix = suffix }
}

// Manager holds the session policy; Sessions bind it to one storage.
type Manager struct {
	ttl    time.Duration
	now    func() time.Time
	suffix func() string
}

func NewManager(ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Manager{ttl: ttl, now: time.Now, suffix: randomSuffix}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) For(storage Storage) *Session {
	return &Session{manager: m, storage: storage}
}

type Session struct {
	manager *Manager
	storage Storage
}

// GetOrCreateID returns the stored id while it is unexpired and otherwise
// mints and persists a new one. ok is false only when storage is unusable.
func (s *Session) GetOrCreateID() (string, bool) {

	id, found := s.read(StorageKey)
	if found && id != "" {
		if !s.expired() {
			return id, true
		}

		slog.Debug("Guest session expired, minting a new one", slog.String("sessionId", id))

		if !s.clear() {
			return "", false
		}
	}

	now := s.manager.now()
	newID := idPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + s.manager.suffix()
	expiry := now.Add(s.manager.ttl).UTC().Format(time.RFC3339Nano)

	if err := s.storage.Set(StorageKey, newID); err != nil {
		slog.Warn("Guest session storage unavailable", slog.String("error", err.Error()))
		return "", false
	}

	if err := s.storage.Set(ExpiryKey, expiry); err != nil {
		slog.Warn("Failed to persist guest session expiry", slog.String("error", err.Error()))
		_ = s.storage.Remove(StorageKey)
		return "", false
	}

	return newID, true
}

// PeekID returns the stored id without minting one. Expired ids are reported as absent.
func (s *Session) PeekID() (string, bool) {
	id, found := s.read(StorageKey)
	if !found || id == "" || s.expired() {
		return "", false
	}

	return id, true
}

func (s *Session) HasActive() bool {
	_, ok := s.PeekID()
	return ok
}

func (s *Session) Clear() {
	s.clear()
}

func (s *Session) clear() bool {
	ok := true

	if err := s.storage.Remove(StorageKey); err != nil {
		slog.Warn("Failed to clear guest session", slog.String("error", err.Error()))
		ok = false
	}

	if err := s.storage.Remove(ExpiryKey); err != nil {
		slog.Warn("Failed to clear guest session expiry", slog.String("error", err.Error()))
		ok = false
	}

	return ok
}

// expired is false when no expiry is stored or it cannot be parsed; such ids are kept.
func (s *Session) expired() bool {
	raw, found := s.read(ExpiryKey)
	if !found || raw == "" {
		return false
	}

	expiry, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false
	}

	return !s.manager.now().Before(expiry)
}

func (s *Session) read(key string) (string, bool) {
	value, found, err := s.storage.Get(key)
	if err != nil {
		slog.Warn("Guest session storage unavailable", slog.String("key", key), slog.String("error", err.Error()))
		return "", false
	}

	return value, found
}

func randomSuffix() string {
	buf := make([]byte, suffixLength)
	limit := big.NewInt(int64(len(base36)))

	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(fmt.Sprintf("guestsession: entropy source failed: %v", err))
		}

		buf[i] = base36[n.Int64()]
	}

	return string(buf)
}
