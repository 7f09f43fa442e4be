package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/metrics"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	"github.com/aaravmahajanofficial/solar-storefront/pkg/sendGrid"
	"github.com/google/uuid"
)

type NotificationService interface {
	SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.NotificationResponse, error)
	GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListNotifications(ctx context.Context, page int, size int) (*models.PaginatedResponse, error)
}

type notificationService struct {
	repo         repository.NotificationRepository
	emailService sendGrid.EmailService
}

func NewNotificationService(repo repository.NotificationRepository, emailService sendGrid.EmailService) NotificationService {
	return &notificationService{repo: repo, emailService: emailService}
}

// SendEmail records the notification, sends it and records the outcome.
func (n *notificationService) SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.NotificationResponse, error) {

	var metadataJSON json.RawMessage

	if len(req.Metadata) > 0 {
		metadataBytes, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, appErrors.BadRequestError("Invalid notification metadata").WithError(err)
		}

		metadataJSON = metadataBytes
	}

	notification := &models.Notification{
		ID:        uuid.New(),
		Type:      models.NotificationTypeEmail,
		Recipient: req.To,
		Subject:   req.Subject,
		Content:   req.Content,
		Status:    models.StatusPending,
		Metadata:  metadataJSON,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := n.repo.CreateNotification(ctx, notification); err != nil {
		return nil, appErrors.DatabaseError("Failed to record notification").WithError(err)
	}

	if err := n.emailService.Send(ctx, req); err != nil {

		notification.Status = models.StatusFailed
		notification.ErrorMessage = err.Error()

		metrics.Notifications.WithLabelValues(string(models.StatusFailed)).Inc()

		if updateErr := n.repo.UpdateNotificationStatus(ctx, notification.ID, models.StatusFailed, notification.ErrorMessage); updateErr != nil {
			slog.Warn("Failed to record notification failure", slog.String("notificationId", notification.ID.String()), slog.String("error", updateErr.Error()))
		}

		return nil, appErrors.ThirdPartyError("Failed to send email").WithError(err)
	}

	notification.Status = models.StatusSent

	metrics.Notifications.WithLabelValues(string(models.StatusSent)).Inc()

	if err := n.repo.UpdateNotificationStatus(ctx, notification.ID, models.StatusSent, ""); err != nil {
		return nil, appErrors.DatabaseError("Email sent but its status could not be recorded").WithError(err)
	}

	return &models.NotificationResponse{
		ID:        notification.ID,
		Type:      notification.Type,
		Status:    notification.Status,
		Recipient: notification.Recipient,
		CreatedAt: notification.CreatedAt,
	}, nil
}

func (n *notificationService) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {

	notification, err := n.repo.GetNotificationById(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Notification not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch notification").WithError(err)
	}

	return notification, nil
}

func (n *notificationService) ListNotifications(ctx context.Context, page int, size int) (*models.PaginatedResponse, error) {

	if page < 1 {
		page = 1
	}

	if size < 1 || size > 10 {
		size = 10
	}

	notifications, total, err := n.repo.ListNotifications(ctx, page, size)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to list notifications").WithError(err)
	}

	return &models.PaginatedResponse{Data: notifications, Total: total, Page: page, PageSize: size}, nil
}

var (
	newOrderTemplate = template.Must(template.New("new_order").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #333;">
<h1>YENİ SİPARİŞ VAR!</h1>
<p>Yönetim paneline yeni bir sipariş düştü.</p>
<p><strong>Sipariş No:</strong> #{{.OrderNo}}</p>
<p><strong>Müşteri:</strong> {{.CustomerName}}</p>
<p><strong>Tutar:</strong> {{.Amount}}</p>
</body>
</html>`))

	statusTemplate = template.Must(template.New("order_status").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #333;">
<p>Merhaba {{.CustomerName}},</p>
<p>#{{.OrderNo}} numaralı siparişinizin durumu güncellendi: <strong>{{.StatusLabel}}</strong></p>
{{if .TrackingNumber}}<p><strong>Kargo Takip No:</strong> {{.TrackingNumber}}</p>{{end}}
<p><strong>Tutar:</strong> {{.Amount}}</p>
</body>
</html>`))
)

// AmountFormatter renders settlement currency amounts.
type AmountFormatter interface {
	FormatAmount(local models.Money) string
}

type DispatcherOptions struct {
	AdminEmails []string
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher turns order events into emails on a background worker so the
// operations that publish them never wait on the mail provider.
type Dispatcher struct {
	notifications NotificationService
	formatter     AmountFormatter
	opts          DispatcherOptions

	mu     sync.RWMutex
	closed bool
	queue  chan *models.EmailNotificationRequest
	wg     sync.WaitGroup
}

func NewDispatcher(notifications NotificationService, formatter AmountFormatter, opts DispatcherOptions) *Dispatcher {

	if opts.QueueSize < 1 {
		opts.QueueSize = 100
	}

	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}

	d := &Dispatcher{
		notifications: notifications,
		formatter:     formatter,
		opts:          opts,
		queue:         make(chan *models.EmailNotificationRequest, opts.QueueSize),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// OrderPlaced emails every configured admin.
func (d *Dispatcher) OrderPlaced(event models.OrderPlaced) {

	if len(d.opts.AdminEmails) == 0 {
		slog.Warn("No admin recipients configured, skipping new order email", slog.String("orderNo", event.OrderNo))
		return
	}

	customerName := event.CustomerName
	if customerName == "" {
		customerName = models.DefaultCustomerName
	}

	amount := d.formatter.FormatAmount(event.GrandTotal)

	body, err := render(newOrderTemplate, map[string]string{
		"OrderNo":      event.OrderNo,
		"CustomerName": customerName,
		"Amount":       amount,
	})
	if err != nil {
		slog.Error("Failed to render new order email", slog.String("orderNo", event.OrderNo), slog.String("error", err.Error()))
		return
	}

	for _, to := range d.opts.AdminEmails {
		d.enqueue(&models.EmailNotificationRequest{
			To:          to,
			Subject:     fmt.Sprintf("Yeni Sipariş: #%s - %s", event.OrderNo, customerName),
			Content:     fmt.Sprintf("Yeni sipariş #%s, müşteri: %s, tutar: %s", event.OrderNo, customerName, amount),
			HTMLContent: body,
			Metadata: map[string]string{
				"event":   "order_placed",
				"orderId": event.OrderID.String(),
				"orderNo": event.OrderNo,
			},
		})
	}
}

// OrderStatusChanged emails the customer when an address is known.
func (d *Dispatcher) OrderStatusChanged(event models.OrderStatusChanged) {

	if event.CustomerEmail == "" {
		slog.Warn("Order has no customer email, skipping status email", slog.String("orderNo", event.OrderNo))
		return
	}

	amount := d.formatter.FormatAmount(event.GrandTotal)
	label := event.Status.Label()

	body, err := render(statusTemplate, map[string]string{
		"OrderNo":        event.OrderNo,
		"CustomerName":   event.CustomerName,
		"StatusLabel":    label,
		"TrackingNumber": event.TrackingNumber,
		"Amount":         amount,
	})
	if err != nil {
		slog.Error("Failed to render order status email", slog.String("orderNo", event.OrderNo), slog.String("error", err.Error()))
		return
	}

	content := fmt.Sprintf("Merhaba %s, #%s numaralı siparişinizin durumu: %s.", event.CustomerName, event.OrderNo, label)
	if event.TrackingNumber != "" {
		content += " Kargo takip no: " + event.TrackingNumber
	}

	d.enqueue(&models.EmailNotificationRequest{
		To:          event.CustomerEmail,
		Subject:     fmt.Sprintf("Siparişiniz #%s: %s", event.OrderNo, label),
		Content:     content,
		HTMLContent: body,
		Metadata: map[string]string{
			"event":   "order_status_changed",
			"orderId": event.OrderID.String(),
			"status":  string(event.Status),
		},
	})
}

// enqueue drops the email when the queue is full or the dispatcher is closed.
func (d *Dispatcher) enqueue(req *models.EmailNotificationRequest) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		slog.Warn("Dispatcher closed, dropping email", slog.String("to", req.To), slog.String("subject", req.Subject))
		return
	}

	select {
	case d.queue <- req:
	default:
		metrics.Notifications.WithLabelValues("dropped").Inc()
		slog.Warn("Notification queue full, dropping email", slog.String("to", req.To), slog.String("subject", req.Subject))
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for req := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)

		if _, err := d.notifications.SendEmail(ctx, req); err != nil {
			slog.Warn("Email dispatch failed", slog.String("to", req.To), slog.String("subject", req.Subject), slog.String("error", err.Error()))
		}

		cancel()
	}
}

// Close sends what is already queued and stops the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer

	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
