package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/stretchr/testify/mock"
)

type SettingsRepository struct {
	mock.Mock
}

func (m *SettingsRepository) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	args := m.Called(ctx, key)
	s, _ := args.Get(0).(*models.Setting)
	return s, args.Error(1)
}

func (m *SettingsRepository) UpsertSetting(ctx context.Context, key, value string) (*models.Setting, error) {
	args := m.Called(ctx, key, value)
	s, _ := args.Get(0).(*models.Setting)
	return s, args.Error(1)
}

type RateLimitRepository struct {
	mock.Mock
}

func (m *RateLimitRepository) CheckRateLimit(ctx context.Context, key string) (bool, int, int, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Int(1), args.Int(2), args.Error(3)
}

// SettingsFeed is a channel-backed feed driven by the test.
type SettingsFeed struct {
	C      chan models.SettingChange
	closed bool
}

func NewSettingsFeed() *SettingsFeed {
	return &SettingsFeed{C: make(chan models.SettingChange, 8)}
}

func (f *SettingsFeed) Changes() <-chan models.SettingChange {
	return f.C
}

func (f *SettingsFeed) Close() error {
	if !f.closed {
		f.closed = true
		close(f.C)
	}

	return nil
}
