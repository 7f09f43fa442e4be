package repository

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/lib/pq"
)

const SettingsChannel = "settings_changed"

// SettingsFeed pushes settings changes as they are committed.
type SettingsFeed interface {
	Changes() <-chan models.SettingChange
	Close() error
}

type settingsListener struct {
	listener *pq.Listener
	changes  chan models.SettingChange
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewSettingsListener subscribes to the settings channel over a dedicated
// connection that reconnects on its own.
func NewSettingsListener(dsn string, minReconnect, maxReconnect time.Duration) (SettingsFeed, error) {
	report := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("Settings listener connection event", slog.Int("event", int(ev)), slog.String("error", err.Error()))
		}
	}

	listener := pq.NewListener(dsn, minReconnect, maxReconnect, report)

	if err := listener.Listen(SettingsChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", SettingsChannel, err)
	}

	l := &settingsListener{
		listener: listener,
		changes:  make(chan models.SettingChange, 16),
		done:     make(chan struct{}),
	}

	l.wg.Add(1)
	go l.run()

	return l, nil
}

func (l *settingsListener) Changes() <-chan models.SettingChange {
	return l.changes
}

func (l *settingsListener) Close() error {
	var err error

	l.once.Do(func() {
		close(l.done)
		err = l.listener.Close()
		l.wg.Wait()
		close(l.changes)
	})

	return err
}

func (l *settingsListener) run() {
	defer l.wg.Done()

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-l.done:
			return

		case n, ok := <-l.listener.Notify:
			if !ok {
				return
			}

			// nil after a reconnect: notifications may have been lost
			if n == nil {
				l.emit(models.SettingChange{Resync: true})
				continue
			}

			var change models.SettingChange
			if err := json.Unmarshal([]byte(n.Extra), &change); err != nil {
				slog.Warn("Ignoring malformed settings notification", slog.String("payload", n.Extra), slog.String("error", err.Error()))
				continue
			}

			l.emit(change)

		case <-ping.C:
			go func() {
				if err := l.listener.Ping(); err != nil {
					slog.Warn("Settings listener ping failed", slog.String("error", err.Error()))
				}
			}()
		}
	}
}

func (l *settingsListener) emit(change models.SettingChange) {
	select {
	case l.changes <- change:
	case <-l.done:
	}
}
