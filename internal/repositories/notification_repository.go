package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/google/uuid"
)

type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetNotificationById(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status models.NotificationStatus, errorMsg string) error
	ListNotifications(ctx context.Context, page int, size int) ([]*models.Notification, int, error)
}

type notificationRepository struct {
	DB *sql.DB
}

func NewNotificationRepo(db *sql.DB) NotificationRepository {
	return &notificationRepository{DB: db}
}

const notificationColumns = `id, type, recipient, subject, content, status, error_message, metadata, created_at, updated_at`

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n        models.Notification
		subject  sql.NullString
		metadata []byte
	)

	err := row.Scan(&n.ID, &n.Type, &n.Recipient, &subject, &n.Content, &n.Status, &n.ErrorMessage, &metadata, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}

	n.Subject = subject.String

	if len(metadata) > 0 {
		n.Metadata = json.RawMessage(metadata)
	}

	return &n, nil
}

func (r *notificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO notifications (id, type, recipient, subject, content, status, error_message, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`

	var metadata any
	if len(notification.Metadata) > 0 {
		metadata = []byte(notification.Metadata)
	}

	_, err := r.DB.ExecContext(dbCtx, query, notification.ID, notification.Type, notification.Recipient, notification.Subject, notification.Content, notification.Status, notification.ErrorMessage, metadata)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (r *notificationRepository) GetNotificationById(ctx context.Context, id uuid.UUID) (*models.Notification, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	notification, err := scanNotification(r.DB.QueryRowContext(dbCtx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return notification, nil
}

func (r *notificationRepository) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status models.NotificationStatus, errorMsg string) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE notifications SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.DB.ExecContext(dbCtx, query, status, errorMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update the notification status: %w", err)
	}

	return requireAffected(result)
}

func (r *notificationRepository) ListNotifications(ctx context.Context, page int, size int) ([]*models.Notification, int, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int
	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM notifications`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	offset := (page - 1) * size

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.DB.QueryContext(dbCtx, query, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}

	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notifications: %w", err)
		}

		notifications = append(notifications, notification)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over the rows: %w", err)
	}

	return notifications, total, nil
}
