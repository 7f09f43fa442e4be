package sendGrid

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendPath = "/v3/mail/send"

var ErrNotConfigured = errors.New("sendgrid api key is not configured")

// SendError is a non-2xx answer from the mail API.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send email, status code: %d", e.StatusCode)
}

type EmailService interface {
	Send(ctx context.Context, req *models.EmailNotificationRequest) error
	Configured() bool
}

type emailService struct {
	client    *sendgrid.Client
	apiKey    string
	fromEmail string
	fromName  string

	attempts uint64
	interval time.Duration
}

type Option func(*emailService)

// WithBaseURL points the client at another host, e.g. a sandbox or test server.
func WithBaseURL(host string) Option {
	return func(e *emailService) {
		e.client.Request.BaseURL = host + sendPath
	}
}

// WithRetry sets how many times a send is tried and the first backoff interval.
func WithRetry(attempts uint64, interval time.Duration) Option {
	return func(e *emailService) {
		e.attempts = attempts
		e.interval = interval
	}
}

func NewEmailService(apiKey string, fromEmail string, fromName string, opts ...Option) EmailService {

	e := &emailService{
		client:    sendgrid.NewSendClient(apiKey),
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		attempts:  3,
		interval:  250 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *emailService) Configured() bool {
	return e.apiKey != ""
}

// Send delivers one message. Rate limiting, server errors and transport
// failures are retried with exponential backoff; other 4xx answers are not.
func (e *emailService) Send(ctx context.Context, req *models.EmailNotificationRequest) error {

	if !e.Configured() {
		return ErrNotConfigured
	}

	message := e.build(req)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.interval

	var retries uint64
	if e.attempts > 1 {
		retries = e.attempts - 1
	}

	return backoff.Retry(func() error {
		response, err := e.client.SendWithContext(ctx, message)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}

			return err
		}

		if response.StatusCode < 400 {
			return nil
		}

		sendErr := &SendError{StatusCode: response.StatusCode, Body: response.Body}
		if response.StatusCode == 429 || response.StatusCode >= 500 {
			return sendErr
		}

		return backoff.Permanent(sendErr)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
}

func (e *emailService) build(req *models.EmailNotificationRequest) *mail.SGMailV3 {

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(e.fromName, e.fromEmail))

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail("", req.To))

	for _, cc := range req.CC {
		personalization.AddCCs(mail.NewEmail("", cc))
	}

	for _, bcc := range req.BCC {
		personalization.AddBCCs(mail.NewEmail("", bcc))
	}

	// metadata travels as custom args so webhook events can be correlated
	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		personalization.SetCustomArg(k, req.Metadata[k])
	}

	personalization.Subject = req.Subject
	message.AddPersonalizations(personalization)

	message.AddContent(mail.NewContent("text/plain", req.Content))

	if req.HTMLContent != "" {
		message.AddContent(mail.NewContent("text/html", req.HTMLContent))
	}

	return message
}
