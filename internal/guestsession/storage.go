package guestsession

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"
)

var ErrStorageUnavailable = errors.New("guest session storage unavailable")

// Storage is client-held key/value state.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]

	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value

	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)

	return nil
}

type CookieOptions struct {
	MaxAge time.Duration
	Secure bool
	Path   string
}

// CookieStorage keeps guest state in HTTP cookies. Writes are visible to later
// reads within the same request.
type CookieStorage struct {
	w    http.ResponseWriter
	r    *http.Request
	opts CookieOptions

	mu      sync.Mutex
	pending map[string]*string
}

func NewCookieStorage(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieStorage {
	if opts.Path == "" {
		opts.Path = "/"
	}

	return &CookieStorage{w: w, r: r, opts: opts, pending: make(map[string]*string)}
}

func (c *CookieStorage) Get(key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}

		return *v, true, nil
	}

	cookie, err := c.r.Cookie(key)
	if errors.Is(err, http.ErrNoCookie) {
		return "", false, nil
	}

	if err != nil {
		return "", false, errors.Join(ErrStorageUnavailable, err)
	}

	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", false, nil
	}

	return value, true, nil
}

func (c *CookieStorage) Set(key, value string) error {
	if c.w == nil {
		return ErrStorageUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     c.opts.Path,
		MaxAge:   int(c.opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	v := value
	c.pending[key] = &v

	return nil
}

func (c *CookieStorage) Remove(key string) error {
	if c.w == nil {
		return ErrStorageUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     c.opts.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	c.pending[key] = nil

	return nil
}
